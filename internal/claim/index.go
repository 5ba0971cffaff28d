package claim

import (
	"fmt"
	"hash/fnv"
)

// spatialIndex maps coarse 16x16 buckets to the claims intersecting them.
// It holds non-owning references purely for lookup acceleration; the Store
// owns the claims and keeps the index consistent on create/resize/delete.
// Invariant: every in-store claim's full footprint is present in every bucket
// it intersects, subdivisions included.
type spatialIndex struct {
	buckets map[uint64][]*Claim

	// worldHash memoizes the per-world component of bucket keys.
	worldHash map[string]uint64
}

func newSpatialIndex() *spatialIndex {
	return &spatialIndex{
		buckets:   map[uint64][]*Claim{},
		worldHash: map[string]uint64{},
	}
}

func (ix *spatialIndex) hashWorld(world string) uint64 {
	if h, ok := ix.worldHash[world]; ok {
		return h
	}
	f := fnv.New64a()
	_, _ = f.Write([]byte(world))
	h := f.Sum64()
	ix.worldHash[world] = h
	return h
}

// bucketKey packs (world, chunkX, chunkZ) into one 64-bit key: world hash in
// the high 24 bits, chunk coordinates as 20-bit two's-complement fields.
// FNV-1a is stable across process runs, so keys may be persisted.
func (ix *spatialIndex) bucketKey(world string, cx, cz int) uint64 {
	h := ix.hashWorld(world)
	return h<<40 | (uint64(uint32(cx))&0xFFFFF)<<20 | uint64(uint32(cz))&0xFFFFF
}

// bucketSpan visits every bucket key the claim's rectangle intersects, in
// raster order (chunk x ascending, then chunk z).
func (ix *spatialIndex) bucketSpan(c *Claim, fn func(key uint64)) {
	cx1, cx2 := chunkCoord(c.Lesser.X), chunkCoord(c.Greater.X)
	cz1, cz2 := chunkCoord(c.Lesser.Z), chunkCoord(c.Greater.Z)
	for cx := cx1; cx <= cx2; cx++ {
		for cz := cz1; cz <= cz2; cz++ {
			fn(ix.bucketKey(c.World, cx, cz))
		}
	}
}

// add registers the claim in every bucket its rectangle spans. Minimum-size
// policy in the Store guarantees at least one bucket.
func (ix *spatialIndex) add(c *Claim) {
	ix.bucketSpan(c, func(key uint64) {
		ix.buckets[key] = append(ix.buckets[key], c)
	})
}

// remove drops the claim from every bucket of its current rectangle. Removing
// a claim that was never indexed means the Store and the index have diverged,
// which would surface later as wrong permission answers; fail hard instead.
func (ix *spatialIndex) remove(c *Claim) {
	removed := 0
	ix.bucketSpan(c, func(key uint64) {
		list := ix.buckets[key]
		for i, cc := range list {
			if cc == c {
				// Order-preserving removal keeps bucket scans deterministic.
				list = append(list[:i], list[i+1:]...)
				removed++
				break
			}
		}
		if len(list) == 0 {
			delete(ix.buckets, key)
		} else {
			ix.buckets[key] = list
		}
	})
	if removed == 0 {
		panic(fmt.Sprintf("claim %d unindexed but never indexed", c.ID))
	}
}

// claimsAt returns the bucket list for a location; callers must not mutate it.
func (ix *spatialIndex) claimsAt(loc Location) []*Claim {
	return ix.buckets[ix.bucketKey(loc.World, chunkCoord(loc.X), chunkCoord(loc.Z))]
}

// nearby collects every claim registered in buckets within radius blocks of
// loc, deduplicated, in raster bucket order.
func (ix *spatialIndex) nearby(loc Location, radius int) []*Claim {
	if radius < 0 {
		radius = 0
	}
	cx1, cx2 := chunkCoord(loc.X-radius), chunkCoord(loc.X+radius)
	cz1, cz2 := chunkCoord(loc.Z-radius), chunkCoord(loc.Z+radius)

	seen := map[*Claim]struct{}{}
	var out []*Claim
	for cx := cx1; cx <= cx2; cx++ {
		for cz := cz1; cz <= cz2; cz++ {
			for _, c := range ix.buckets[ix.bucketKey(loc.World, cx, cz)] {
				if _, ok := seen[c]; ok {
					continue
				}
				seen[c] = struct{}{}
				out = append(out, c)
			}
		}
	}
	return out
}
