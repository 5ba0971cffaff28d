package claim

import (
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"
)

// NameResolver turns an owner id into a display name for denial messages.
type NameResolver interface {
	PlayerName(id uuid.UUID) string
}

// Persistence is the outbound storage collaborator. The Store calls it after
// every mutation and never retries: a failed save is logged and the Store
// keeps operating in memory, because world simulation must continue
// regardless of storage health.
type Persistence interface {
	SaveClaim(rec ClaimRecord) error
	DeleteClaimRecord(id int64) error
	SavePlayerRecord(id uuid.UUID, rec PlayerRecord) error
	LoadPlayerRecord(id uuid.UUID) (PlayerRecord, bool, error)
	LoadAllClaims() ([]ClaimRecord, error)
}

// StoreConfig carries the claim-geometry policy knobs.
type StoreConfig struct {
	// Minimum footprint for player top-level claims. Subdivisions and admin
	// claims are exempt. These also guarantee every claim spans at least one
	// index bucket.
	MinClaimWidth int
	MinClaimArea  int
}

func (c *StoreConfig) applyDefaults() {
	if c.MinClaimWidth <= 0 {
		c.MinClaimWidth = 5
	}
	if c.MinClaimArea <= 0 {
		c.MinClaimArea = 100
	}
}

// Store owns the canonical claim collection: the flat id table, the stable
// listing order, and the spatial index. All methods must be called from the
// single engine goroutine; the Store does no locking of its own, so create/
// resize/delete are fully visible before the next permission check runs.
type Store struct {
	cfg StoreConfig

	claims  map[int64]*Claim
	ordered []*Claim // sorted by (lesser.X, lesser.Z, world)
	index   *spatialIndex
	nextID  int64

	persist Persistence   // may be nil
	balance BalanceSource // may be nil: unlimited
	names   NameResolver  // may be nil
	log     *log.Logger   // may be nil
}

func NewStore(cfg StoreConfig) *Store {
	cfg.applyDefaults()
	return &Store{
		cfg:    cfg,
		claims: map[int64]*Claim{},
		index:  newSpatialIndex(),
		nextID: 1,
	}
}

func (s *Store) SetPersistence(p Persistence) { s.persist = p }

func (s *Store) SetBalanceSource(b BalanceSource) { s.balance = b }

func (s *Store) SetNameResolver(n NameResolver) { s.names = n }

func (s *Store) SetLogger(l *log.Logger) { s.log = l }

func (s *Store) logf(format string, args ...any) {
	if s.log != nil {
		s.log.Printf(format, args...)
	}
}

// ClaimByID returns the registered claim with the given id, or nil.
func (s *Store) ClaimByID(id int64) *Claim {
	return s.claims[id]
}

// Count returns the number of registered claims, subdivisions included.
func (s *Store) Count() int {
	return len(s.claims)
}

// Claims returns the registered claims in stable listing order. The slice is
// a copy; the claims are not.
func (s *Store) Claims() []*Claim {
	out := make([]*Claim, len(s.ordered))
	copy(out, s.ordered)
	return out
}

// CreateRequest describes a claim creation or the geometry half of a resize.
// Corners may arrive in any order; the Store normalizes them.
type CreateRequest struct {
	World          string
	X1, X2, Z1, Z2 int

	// Owner is uuid.Nil for administrative claims. Ignored for subdivisions,
	// which copy the parent's owner.
	Owner uuid.UUID

	// Parent marks a subdivision request: the rectangle must lie fully
	// inside the parent.
	Parent *Claim

	// Resizing excludes an existing claim from the overlap scan.
	Resizing *Claim

	// Actor is the requesting player, consulted for the claim-block budget.
	// Nil skips the budget check (console/admin paths).
	Actor *Actor
}

// CreateResult is the typed outcome of CreateClaim. A geometry conflict is
// expected control flow, not an error; Conflicting carries the first claim
// found in the way.
type CreateResult struct {
	Succeeded   bool
	Claim       *Claim
	Conflicting *Claim
	Reason      string
}

// ResizeResult is the typed outcome of ResizeClaim.
type ResizeResult struct {
	Succeeded   bool
	Conflicting *Claim
	Reason      string
}

// CreateClaim validates and registers a new claim. On success the claim is
// indexed, ordered, linked to its parent, persisted fire-and-forget, and
// live for permission checks. First overlap found wins as the reported
// conflict; the bucket scan runs in fixed raster order so the answer is
// deterministic for a given store state.
func (s *Store) CreateClaim(req CreateRequest) CreateResult {
	lesser, greater := normalizeCorners(req.X1, req.X2, req.Z1, req.Z2)
	cand := newClaim(req.World, lesser, greater, req.Owner)

	if req.Parent != nil {
		p := req.Parent
		if !p.inStore {
			return CreateResult{Reason: "parent claim is not registered", Conflicting: p}
		}
		if p.ParentID != 0 {
			return CreateResult{Reason: "subdivisions cannot be subdivided", Conflicting: p}
		}
		if !rectWithin(cand, p) {
			return CreateResult{Reason: "subdivision reaches outside its parent claim", Conflicting: p}
		}
		cand.Owner = p.Owner
		cand.ParentID = p.ID
	} else {
		if cand.Owner != uuid.Nil {
			if cand.Width() < s.cfg.MinClaimWidth || cand.Length() < s.cfg.MinClaimWidth {
				return CreateResult{Reason: fmt.Sprintf("claims must be at least %d blocks wide", s.cfg.MinClaimWidth)}
			}
			if cand.Area() < s.cfg.MinClaimArea {
				return CreateResult{Reason: fmt.Sprintf("claims must cover at least %d blocks", s.cfg.MinClaimArea)}
			}
		}
		if conflict := s.firstOverlap(cand, req.Resizing); conflict != nil {
			return CreateResult{Conflicting: conflict, Reason: "overlaps an existing claim"}
		}
		if deny := s.checkBudget(req.Actor, cand.Owner, cand.Area(), req.Resizing); deny != "" {
			return CreateResult{Reason: deny}
		}
	}

	cand.ID = s.nextID
	s.nextID++
	s.register(cand)
	if req.Parent != nil {
		req.Parent.ChildIDs = append(req.Parent.ChildIDs, cand.ID)
		s.saveClaim(req.Parent)
	}
	s.saveClaim(cand)
	return CreateResult{Succeeded: true, Claim: cand}
}

// ResizeClaim re-validates geometry, overlap and budget, then atomically
// swaps the claim's footprint in the index: old buckets are cleared before
// the new span is installed, so no stale entries survive.
func (s *Store) ResizeClaim(a *Actor, c *Claim, newX1, newX2, newZ1, newZ2 int) ResizeResult {
	if !c.inStore {
		panic(fmt.Sprintf("resize of claim %d not in store", c.ID))
	}
	lesser, greater := normalizeCorners(newX1, newX2, newZ1, newZ2)
	cand := newClaim(c.World, lesser, greater, c.Owner)

	if c.ParentID == 0 {
		if c.Owner != uuid.Nil {
			if cand.Width() < s.cfg.MinClaimWidth || cand.Length() < s.cfg.MinClaimWidth {
				return ResizeResult{Reason: fmt.Sprintf("claims must be at least %d blocks wide", s.cfg.MinClaimWidth)}
			}
			if cand.Area() < s.cfg.MinClaimArea {
				return ResizeResult{Reason: fmt.Sprintf("claims must cover at least %d blocks", s.cfg.MinClaimArea)}
			}
		}
		if conflict := s.firstOverlap(cand, c); conflict != nil {
			return ResizeResult{Conflicting: conflict, Reason: "overlaps an existing claim"}
		}
		if deny := s.checkBudget(a, c.Owner, cand.Area(), c); deny != "" {
			return ResizeResult{Reason: deny}
		}
	} else {
		p := s.ClaimByID(c.ParentID)
		if p == nil || !rectWithin(cand, p) {
			return ResizeResult{Conflicting: p, Reason: "subdivision reaches outside its parent claim"}
		}
	}

	s.index.remove(c)
	s.orderedRemove(c)
	c.Lesser, c.Greater = lesser, greater
	c.Modified = time.Now()
	s.index.add(c)
	s.orderedInsert(c)
	s.saveClaim(c)
	return ResizeResult{Succeeded: true}
}

// DeleteClaim unregisters a claim. Children are deleted first when recursive
// is set; calling with children and recursive=false is a programming error,
// as is re-deleting a claim that already left the store. Both panic rather
// than silently no-op: divergence between registry and index is a
// correctness catastrophe.
func (s *Store) DeleteClaim(c *Claim, recursive bool) {
	if !c.inStore {
		panic(fmt.Sprintf("delete of claim %d not in store", c.ID))
	}
	if len(c.ChildIDs) > 0 && !recursive {
		panic(fmt.Sprintf("delete of claim %d with %d subdivisions without recursive", c.ID, len(c.ChildIDs)))
	}

	children := append([]int64(nil), c.ChildIDs...)
	for _, id := range children {
		if ch := s.claims[id]; ch != nil {
			s.DeleteClaim(ch, true)
		}
	}

	s.index.remove(c)
	s.orderedRemove(c)
	delete(s.claims, c.ID)
	if c.ParentID != 0 {
		if p := s.claims[c.ParentID]; p != nil {
			p.ChildIDs = removeID(p.ChildIDs, c.ID)
			s.saveClaim(p)
		}
	}
	c.inStore = false
	if s.persist != nil {
		if err := s.persist.DeleteClaimRecord(c.ID); err != nil {
			s.logf("claimdb: delete claim %d: %v", c.ID, err)
		}
	}
}

// DeleteClaimsForOwner removes every top-level claim owned by the given id
// (uuid.Nil selects administrative claims), subdivisions included.
func (s *Store) DeleteClaimsForOwner(owner uuid.UUID) int {
	var doomed []*Claim
	for _, c := range s.ordered {
		if c.ParentID == 0 && c.Owner == owner {
			doomed = append(doomed, c)
		}
	}
	for _, c := range doomed {
		s.DeleteClaim(c, true)
	}
	return len(doomed)
}

// ClaimAt resolves the claim governing a location, descending into
// subdivisions. The hint is a one-entry cache threaded by the caller:
// consecutive checks for one actor usually recheck the same claim.
func (s *Store) ClaimAt(loc Location, hint *Claim) *Claim {
	if hint != nil && hint.inStore && hint.Contains(s, loc) {
		return hint
	}
	for _, c := range s.index.claimsAt(loc) {
		if !c.Contains(s, loc) {
			continue
		}
		if c.ParentID != 0 {
			return c
		}
		for _, id := range c.ChildIDs {
			if ch := s.claims[id]; ch != nil && ch.Contains(s, loc) {
				return ch
			}
		}
		return c
	}
	return nil
}

// ClaimAtExcludingChildren answers the cheaper "who owns the land" question:
// it returns the top-level claim covering loc without descending into
// subdivisions. Hot paths (piston safety) use it with a threaded hint.
func (s *Store) ClaimAtExcludingChildren(loc Location, hint *Claim) *Claim {
	if hint != nil && hint.inStore && hint.ParentID == 0 && hint.Contains(s, loc) {
		return hint
	}
	for _, c := range s.index.claimsAt(loc) {
		if c.ParentID != 0 {
			continue
		}
		if c.Contains(s, loc) {
			return c
		}
	}
	return nil
}

// NearbyClaims returns all claims registered in buckets within radius blocks
// of loc, deduplicated.
func (s *Store) NearbyClaims(loc Location, radius int) []*Claim {
	return s.index.nearby(loc, radius)
}

// ClaimedArea sums the footprint of the owner's top-level claims, the
// number the balance collaborator subtracts from the accrued budget.
func (s *Store) ClaimedArea(owner uuid.UUID) int {
	if owner == uuid.Nil {
		return 0
	}
	total := 0
	for _, c := range s.ordered {
		if c.ParentID == 0 && c.Owner == owner {
			total += c.Area()
		}
	}
	return total
}

// Mutators that keep Modified and persistence in step. The raw claim-level
// operations stay available inside the package; external callers go through
// the Store so nothing escapes the save path.

func (s *Store) SetClaimPermission(c *Claim, id Identity, level TrustLevel) {
	c.SetPermission(id, level)
	s.touch(c)
}

func (s *Store) DropClaimPermission(c *Claim, id Identity) {
	c.DropPermission(s, id)
	s.touchTree(c)
}

func (s *Store) ClearClaimPermissions(c *Claim) {
	c.ClearPermissions(s)
	s.touchTree(c)
}

func (s *Store) AddManager(c *Claim, id Identity) {
	for _, m := range c.Managers {
		if m == id {
			return
		}
	}
	c.Managers = append(c.Managers, id)
	s.touch(c)
}

func (s *Store) RemoveManager(c *Claim, id Identity) {
	for i, m := range c.Managers {
		if m == id {
			c.Managers = append(c.Managers[:i], c.Managers[i+1:]...)
			s.touch(c)
			return
		}
	}
}

func (s *Store) SetDoorsOpen(c *Claim, open bool) {
	c.DoorsOpen = open
	// Transient raid state, not persisted state; no save.
}

func (s *Store) SetSubclaimRestriction(c *Claim, inheritNothing bool) {
	c.InheritNothing = inheritNothing
	s.touch(c)
}

func (s *Store) SetExplosivesAllowed(c *Claim, allowed bool) {
	c.ExplosivesAllowed = allowed
	s.touch(c)
}

func (s *Store) touch(c *Claim) {
	c.Modified = time.Now()
	s.saveClaim(c)
}

func (s *Store) touchTree(c *Claim) {
	s.touch(c)
	for _, id := range c.ChildIDs {
		if ch := s.claims[id]; ch != nil {
			s.touchTree(ch)
		}
	}
}

func (s *Store) saveClaim(c *Claim) {
	if s.persist == nil {
		return
	}
	if err := s.persist.SaveClaim(s.ExportRecord(c)); err != nil {
		s.logf("claimdb: save claim %d: %v", c.ID, err)
	}
}

func (s *Store) register(c *Claim) {
	c.inStore = true
	s.claims[c.ID] = c
	s.index.add(c)
	s.orderedInsert(c)
}

func (s *Store) orderedInsert(c *Claim) {
	i := sort.Search(len(s.ordered), func(i int) bool {
		return !s.ordered[i].less(c)
	})
	s.ordered = append(s.ordered, nil)
	copy(s.ordered[i+1:], s.ordered[i:])
	s.ordered[i] = c
}

func (s *Store) orderedRemove(c *Claim) {
	for i, cc := range s.ordered {
		if cc == c {
			s.ordered = append(s.ordered[:i], s.ordered[i+1:]...)
			return
		}
	}
	panic(fmt.Sprintf("claim %d missing from ordered collection", c.ID))
}

// firstOverlap scans the candidate's buckets in raster order for a top-level
// claim whose rectangle overlaps, excluding the claim being resized.
func (s *Store) firstOverlap(cand *Claim, resizing *Claim) *Claim {
	seen := map[*Claim]struct{}{}
	var conflict *Claim
	s.index.bucketSpan(cand, func(key uint64) {
		if conflict != nil {
			return
		}
		for _, other := range s.index.buckets[key] {
			if other == resizing || other.ParentID != 0 {
				continue
			}
			if _, ok := seen[other]; ok {
				continue
			}
			seen[other] = struct{}{}
			if cand.Overlaps(other) {
				conflict = other
				return
			}
		}
	})
	return conflict
}

func (s *Store) checkBudget(a *Actor, owner uuid.UUID, newArea int, resizing *Claim) string {
	if s.balance == nil || owner == uuid.Nil || a == nil {
		return ""
	}
	if a.IgnoreClaims || a.HasCapability(CapAdminClaims) {
		return ""
	}
	oldArea := 0
	if resizing != nil {
		oldArea = resizing.Area()
	}
	needed := newArea - oldArea
	if needed <= 0 {
		return ""
	}
	remaining := s.balance.RemainingBlocks(owner)
	if resizing == nil {
		// A fresh claim's own footprint is not yet counted as claimed.
		if newArea > remaining {
			return fmt.Sprintf("not enough claim blocks: need %d, have %d", newArea, remaining)
		}
		return ""
	}
	if needed > remaining {
		return fmt.Sprintf("not enough claim blocks: need %d more, have %d", needed, remaining)
	}
	return ""
}

func normalizeCorners(x1, x2, z1, z2 int) (Coordinate, Coordinate) {
	if x1 > x2 {
		x1, x2 = x2, x1
	}
	if z1 > z2 {
		z1, z2 = z2, z1
	}
	return Coordinate{X: x1, Z: z1}, Coordinate{X: x2, Z: z2}
}

// rectWithin reports raw rectangle containment of inner in outer, same world.
func rectWithin(inner, outer *Claim) bool {
	if inner.World != outer.World {
		return false
	}
	return inner.Lesser.X >= outer.Lesser.X &&
		inner.Greater.X <= outer.Greater.X &&
		inner.Lesser.Z >= outer.Lesser.Z &&
		inner.Greater.Z <= outer.Greater.Z
}

func removeID(ids []int64, id int64) []int64 {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
