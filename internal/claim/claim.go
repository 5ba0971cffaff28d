package claim

import (
	"time"

	"github.com/google/uuid"
)

// Claim is a player land claim: an axis-aligned rectangle of full-height
// columns with an owner and trust rules. Constructing a Claim does nothing by
// itself; only claims accepted by a Store gate access. Removed claims keep
// floating references memory-valid but inert via the inStore flag.
type Claim struct {
	ID    int64
	World string

	// Boundary corners. Invariant: Lesser.X <= Greater.X, Lesser.Z <= Greater.Z.
	// The vertical axis is unbounded; claims always extend to the sky and
	// down to bedrock.
	Lesser  Coordinate
	Greater Coordinate

	// Owner is uuid.Nil for administrative claims, which are governed by the
	// CapAdminClaims node instead of per-owner rules. Subdivisions copy the
	// parent's owner at creation.
	Owner uuid.UUID

	// permissions maps identities to their granted trust. Not exported:
	// mutation goes through SetPermission/DropPermission so the cascade and
	// case normalization cannot be bypassed.
	permissions map[Identity]TrustLevel

	// Managers may grant/revoke permissions without edit rights.
	Managers []Identity

	// ParentID is zero for top-level claims. Subdivisions never have
	// children of their own.
	ParentID int64
	ChildIDs []int64

	// InheritNothing isolates a subdivision: on a permission miss it does
	// NOT fall back to the parent's entries.
	InheritNothing bool

	// ExplosivesAllowed has root-claim-only semantics; subdivisions delegate.
	ExplosivesAllowed bool

	// DoorsOpen temporarily grants universal access (post-raid unlock).
	DoorsOpen bool

	// Modified tracks the last mutation affecting persisted state.
	Modified time.Time

	inStore bool
}

func newClaim(world string, lesser, greater Coordinate, owner uuid.UUID) *Claim {
	return &Claim{
		World:       world,
		Lesser:      lesser,
		Greater:     greater,
		Owner:       owner,
		permissions: map[Identity]TrustLevel{},
		Modified:    time.Now(),
	}
}

// InStore reports whether the claim is currently registered. Claims outside
// the store have no permission effect.
func (c *Claim) InStore() bool {
	return c.inStore
}

func (c *Claim) Width() int {
	return c.Greater.X - c.Lesser.X + 1
}

func (c *Claim) Length() int {
	return c.Greater.Z - c.Lesser.Z + 1
}

func (c *Claim) Area() int {
	return c.Width() * c.Length()
}

// IsAdmin reports whether this is an administrative claim, resolved at the
// root for subdivisions.
func (c *Claim) IsAdmin(s *Store) bool {
	if c.ParentID != 0 {
		if p := s.ClaimByID(c.ParentID); p != nil {
			return p.IsAdmin(s)
		}
	}
	return c.Owner == uuid.Nil
}

// Contains reports whether loc is inside the claim, counting subdivision
// area as inside. A subdivision contains a point only when its parent does
// too: if the parent was shrunk past the subdivision, the drifted area is
// reported as NOT contained. That sharp edge is load-bearing, don't fix it.
func (c *Claim) Contains(s *Store, loc Location) bool {
	return c.contains(s, loc, false)
}

// ContainsExcludingChildren is Contains for top-level claims with
// subdivision area carved out: a point inside any child reports false.
func (c *Claim) ContainsExcludingChildren(s *Store, loc Location) bool {
	return c.contains(s, loc, true)
}

func (c *Claim) contains(s *Store, loc Location, excludeChildren bool) bool {
	if loc.World != c.World {
		return false
	}
	// Inclusive cell bounds: greater corner's column belongs to the claim.
	in := loc.X >= c.Lesser.X &&
		loc.X < c.Greater.X+1 &&
		loc.Z >= c.Lesser.Z &&
		loc.Z < c.Greater.Z+1
	if !in {
		return false
	}

	// You're only in a subdivision when you're also in its parent.
	if c.ParentID != 0 {
		p := s.ClaimByID(c.ParentID)
		if p == nil {
			return false
		}
		return p.contains(s, loc, false)
	}

	if excludeChildren {
		for _, id := range c.ChildIDs {
			ch := s.ClaimByID(id)
			if ch != nil && ch.contains(s, loc, true) {
				return false
			}
		}
	}
	return true
}

// Intersects tests other's lesser corner as a representative point against
// this claim, with the same hierarchy rules as Contains. This is a membership
// question, not rectangle collision; use Overlaps for collision.
func (c *Claim) Intersects(s *Store, other *Claim, excludeChildren bool) bool {
	return c.contains(s, Location{World: other.World, X: other.Lesser.X, Z: other.Lesser.Z}, excludeChildren)
}

// Overlaps reports whether the two rectangles share any area. Raw geometry
// only: parent/child relationships are ignored, different worlds never
// overlap. Used by creation/resize to reject conflicting footprints.
func (c *Claim) Overlaps(other *Claim) bool {
	if c.World != other.World {
		return false
	}
	return !(c.Greater.X < other.Lesser.X ||
		c.Lesser.X > other.Greater.X ||
		c.Greater.Z < other.Lesser.Z ||
		c.Lesser.Z > other.Greater.Z)
}

// IsNear reports whether loc falls within a band of howNear blocks around
// the claim's rectangle.
func (c *Claim) IsNear(s *Store, loc Location, howNear int) bool {
	band := &Claim{
		World:   c.World,
		Lesser:  Coordinate{X: c.Lesser.X - howNear, Z: c.Lesser.Z - howNear},
		Greater: Coordinate{X: c.Greater.X + howNear, Z: c.Greater.Z + howNear},
	}
	return band.contains(s, loc, false)
}

// Permission returns the explicit trust recorded for an identity, TrustNone
// when absent.
func (c *Claim) Permission(id Identity) TrustLevel {
	return c.permissions[id]
}

// SetPermission grants trust to an identity on this claim only.
func (c *Claim) SetPermission(id Identity, level TrustLevel) {
	if level == TrustNone {
		delete(c.permissions, id)
		return
	}
	c.permissions[id] = level
}

// DropPermission revokes an identity's trust here and in every subdivision.
// Subdivisions cannot keep independently-trusted entries once the parent
// drops them.
func (c *Claim) DropPermission(s *Store, id Identity) {
	delete(c.permissions, id)
	for _, childID := range c.ChildIDs {
		if ch := s.ClaimByID(childID); ch != nil {
			ch.DropPermission(s, id)
		}
	}
}

// ClearPermissions removes all trust entries and managers, cascading into
// subdivisions.
func (c *Claim) ClearPermissions(s *Store) {
	c.permissions = map[Identity]TrustLevel{}
	c.Managers = nil
	for _, childID := range c.ChildIDs {
		if ch := s.ClaimByID(childID); ch != nil {
			ch.ClearPermissions(s)
		}
	}
}

// forEachPermission visits entries in an unspecified order.
func (c *Claim) forEachPermission(fn func(Identity, TrustLevel)) {
	for id, lvl := range c.permissions {
		fn(id, lvl)
	}
}

// less is the stable listing order: (lesser.X, lesser.Z, world) ascending.
// Not used for lookups, only for reproducible iteration and export.
func (c *Claim) less(other *Claim) bool {
	if c.Lesser.X != other.Lesser.X {
		return c.Lesser.X < other.Lesser.X
	}
	if c.Lesser.Z != other.Lesser.Z {
		return c.Lesser.Z < other.Lesser.Z
	}
	return c.World < other.World
}
