package claim

import "strings"

// PistonMode selects the bulk-move safety policy. The modes trade accuracy
// for per-block cost; only the precise mode destroys offending pistons.
type PistonMode uint8

const (
	// PistonEverywhere checks every displaced block and its destination cell
	// individually. Cross-claim movement cancels the event AND removes the
	// piston: a cancelled-but-intact cross-claim piston can be retried by an
	// attacker forever.
	PistonEverywhere PistonMode = iota
	// PistonEverywhereSimple intersects one bounding box against nearby
	// claims. Cheaper; may deny safe moves near (but not into) foreign land.
	PistonEverywhereSimple
	// PistonClaimsOnly requires the whole movement envelope to stay inside
	// the piston's own claim.
	PistonClaimsOnly
	// PistonIgnored permits all piston movement.
	PistonIgnored
)

// ParsePistonMode reads the config form; unknown values fall back to
// claims_only, the conservative default.
func ParsePistonMode(s string) PistonMode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "everywhere":
		return PistonEverywhere
	case "everywhere_simple":
		return PistonEverywhereSimple
	case "ignored":
		return PistonIgnored
	default:
		return PistonClaimsOnly
	}
}

func (m PistonMode) String() string {
	switch m {
	case PistonEverywhere:
		return "everywhere"
	case PistonEverywhereSimple:
		return "everywhere_simple"
	case PistonIgnored:
		return "ignored"
	default:
		return "claims_only"
	}
}

// MovedBlock is one block about to be displaced. Blocks that break on push
// never occupy a destination cell, so that cell is skipped in precise mode.
type MovedBlock struct {
	Pos          BlockPos
	BreaksOnPush bool
}

// PistonMove describes a push or pull event as delivered by the host.
type PistonMove struct {
	World      string
	Piston     BlockPos
	Facing     Direction
	Retracting bool
	Sticky     bool
	Blocks     []MovedBlock
}

// PistonVerdict is the outcome. Unsafe always means the caller cancels the
// movement; DestroyPiston additionally asks the caller to remove the piston
// block, drop its item and fire a zero-yield blast effect.
type PistonVerdict struct {
	Allowed       bool
	DestroyPiston bool
}

// CheckPistonMove classifies a bulk block movement against claim ownership.
// Stateless per invocation; all lookups go through the store with a threaded
// hint, exploiting the spatial locality of adjacent blocks.
func (s *Store) CheckPistonMove(mode PistonMode, mv PistonMove) PistonVerdict {
	if mode == PistonIgnored {
		return PistonVerdict{Allowed: true}
	}

	dir := mv.Facing
	if mv.Retracting {
		dir = dir.Opposite()
	}

	pistonClaim := s.ClaimAt(mv.Piston.In(mv.World), nil)

	// A claim is required, but the piston is not inside one.
	if pistonClaim == nil && mode == PistonClaimsOnly {
		return PistonVerdict{}
	}

	// Nothing moves: only the single cell in the movement direction can be
	// invaded.
	if len(mv.Blocks) == 0 {
		invaded := s.ClaimAt(mv.Piston.Shift(dir).In(mv.World), pistonClaim)
		if invaded != nil && (pistonClaim == nil || pistonClaim.Owner != invaded.Owner) {
			return PistonVerdict{}
		}
		return PistonVerdict{Allowed: true}
	}

	minX, maxX := mv.Piston.X, mv.Piston.X
	minY, maxY := mv.Piston.Y, mv.Piston.Y
	minZ, maxZ := mv.Piston.Z, mv.Piston.Z
	for _, b := range mv.Blocks {
		minX, maxX = min(minX, b.Pos.X), max(maxX, b.Pos.X)
		minY, maxY = min(minY, b.Pos.Y), max(maxY, b.Pos.Y)
		minZ, maxZ = min(minZ, b.Pos.Z), max(maxZ, b.Pos.Z)
	}

	// Extend by the movement direction to cover the invaded zone. The
	// vertical extension only grows upward; downward motion is caught by the
	// minY bound below.
	if dir.X > 0 {
		maxX += dir.X
	} else {
		minX += dir.X
	}
	if dir.Y > 0 {
		maxY += dir.Y
	}
	if dir.Z > 0 {
		maxZ += dir.Z
	} else {
		minZ += dir.Z
	}

	// Claims-only: the entire envelope must stay inside the piston's claim.
	// Conservative on purpose; rejecting diagonal-safe moves is cheaper than
	// checking them.
	if mode == PistonClaimsOnly {
		if minY < 0 ||
			minX < pistonClaim.Lesser.X || maxX > pistonClaim.Greater.X ||
			minZ < pistonClaim.Lesser.Z || maxZ > pistonClaim.Greater.Z {
			return PistonVerdict{}
		}
		return PistonVerdict{Allowed: true}
	}

	// Pushing up or pulling down in a straight column never crosses a
	// horizontal claim boundary.
	selfContained := DirUp
	if mv.Retracting {
		selfContained = DirDown
	}
	if minX == maxX && minZ == maxZ && dir == selfContained {
		return PistonVerdict{Allowed: true}
	}

	if mode == PistonEverywhereSimple {
		for _, other := range s.claimsTouchingBox(mv.World, minX, maxX, minZ, maxZ) {
			if other == pistonClaim {
				continue
			}
			if maxY < 0 ||
				minX > other.Greater.X || maxX < other.Lesser.X ||
				minZ > other.Greater.Z || maxZ < other.Lesser.Z {
				continue
			}
			if pistonClaim == nil || pistonClaim.Owner != other.Owner {
				return PistonVerdict{}
			}
		}
		return PistonVerdict{Allowed: true}
	}

	// Precise mode: every displaced block and every destination cell it will
	// occupy, seeded with the previous block's claim as lookup hint.
	cells := make(map[BlockPos]struct{}, 2*len(mv.Blocks))
	for _, b := range mv.Blocks {
		cells[b.Pos] = struct{}{}
	}
	for _, b := range mv.Blocks {
		if !b.BreaksOnPush {
			cells[b.Pos.Shift(dir)] = struct{}{}
		}
	}

	last := pistonClaim
	for pos := range cells {
		c := s.ClaimAtExcludingChildren(pos.In(mv.World), last)
		if c == nil {
			continue
		}
		last = c
		if pistonClaim == nil || pistonClaim.Owner != c.Owner {
			return PistonVerdict{DestroyPiston: true}
		}
	}
	return PistonVerdict{Allowed: true}
}

// claimsTouchingBox collects claims registered in buckets covering the box,
// deduplicated, in raster order.
func (s *Store) claimsTouchingBox(world string, minX, maxX, minZ, maxZ int) []*Claim {
	seen := map[*Claim]struct{}{}
	var out []*Claim
	for cx := chunkCoord(minX); cx <= chunkCoord(maxX); cx++ {
		for cz := chunkCoord(minZ); cz <= chunkCoord(maxZ); cz++ {
			for _, c := range s.index.buckets[s.index.bucketKey(world, cx, cz)] {
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
