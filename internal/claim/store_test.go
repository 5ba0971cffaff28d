package claim

import (
	"testing"

	"github.com/google/uuid"
)

func TestCreateClaim_OverlapRejected(t *testing.T) {
	s := testStore()
	a := mustCreate(t, s, "world", 0, 9, 0, 9, ownerU)

	res := s.CreateClaim(CreateRequest{World: "world", X1: 5, X2: 14, Z1: 5, Z2: 14, Owner: visitorV})
	if res.Succeeded {
		t.Fatalf("overlapping claim should be rejected")
	}
	if res.Conflicting != a {
		t.Fatalf("conflict should report claim %d, got %v", a.ID, res.Conflicting)
	}

	adjacent := s.CreateClaim(CreateRequest{World: "world", X1: 10, X2: 19, Z1: 0, Z2: 9, Owner: visitorV})
	if !adjacent.Succeeded {
		t.Fatalf("edge-adjacent claim should succeed: %s", adjacent.Reason)
	}

	otherWorld := s.CreateClaim(CreateRequest{World: "nether", X1: 0, X2: 9, Z1: 0, Z2: 9, Owner: visitorV})
	if !otherWorld.Succeeded {
		t.Fatalf("same rectangle in another world should succeed: %s", otherWorld.Reason)
	}
}

func TestCreateClaim_NormalizesCorners(t *testing.T) {
	s := testStore()
	res := s.CreateClaim(CreateRequest{World: "world", X1: 9, X2: 0, Z1: 9, Z2: 0, Owner: ownerU})
	if !res.Succeeded {
		t.Fatalf("create: %s", res.Reason)
	}
	c := res.Claim
	if c.Lesser != (Coordinate{X: 0, Z: 0}) || c.Greater != (Coordinate{X: 9, Z: 9}) {
		t.Fatalf("corners not normalized: %v %v", c.Lesser, c.Greater)
	}
	if !c.InStore() {
		t.Fatalf("accepted claim must be in store")
	}
}

func TestCreateClaim_MinimumSize(t *testing.T) {
	s := NewStore(StoreConfig{MinClaimWidth: 5, MinClaimArea: 100})

	narrow := s.CreateClaim(CreateRequest{World: "world", X1: 0, X2: 3, Z1: 0, Z2: 50, Owner: ownerU})
	if narrow.Succeeded {
		t.Fatalf("claim narrower than the minimum width should fail")
	}
	small := s.CreateClaim(CreateRequest{World: "world", X1: 0, X2: 8, Z1: 0, Z2: 8, Owner: ownerU})
	if small.Succeeded {
		t.Fatalf("claim under the minimum area should fail")
	}
	ok := s.CreateClaim(CreateRequest{World: "world", X1: 0, X2: 9, Z1: 0, Z2: 9, Owner: ownerU})
	if !ok.Succeeded {
		t.Fatalf("10x10 claim should pass the defaults: %s", ok.Reason)
	}

	// Administrative claims are exempt from size policy.
	admin := s.CreateClaim(CreateRequest{World: "world", X1: 100, X2: 101, Z1: 100, Z2: 101, Owner: uuid.Nil})
	if !admin.Succeeded {
		t.Fatalf("admin claim should bypass size policy: %s", admin.Reason)
	}
}

func TestCreateClaim_BudgetEnforced(t *testing.T) {
	s := testStore()
	s.SetBalanceSource(LedgerBalance{
		Store:   s,
		Default: PlayerRecord{AccruedBlocks: 150},
	})
	actor := &Actor{ID: ownerU}

	ok := s.CreateClaim(CreateRequest{World: "world", X1: 0, X2: 9, Z1: 0, Z2: 9, Owner: ownerU, Actor: actor})
	if !ok.Succeeded {
		t.Fatalf("100 blocks within a 150 budget: %s", ok.Reason)
	}
	over := s.CreateClaim(CreateRequest{World: "world", X1: 100, X2: 109, Z1: 0, Z2: 9, Owner: ownerU, Actor: actor})
	if over.Succeeded {
		t.Fatalf("second 100-block claim should exceed the remaining 50")
	}

	grow := s.ResizeClaim(actor, ok.Claim, 0, 14, 0, 9)
	if !grow.Succeeded {
		t.Fatalf("growing by 50 should fit exactly: %s", grow.Reason)
	}
	tooBig := s.ResizeClaim(actor, ok.Claim, 0, 15, 0, 9)
	if tooBig.Succeeded {
		t.Fatalf("growing past the budget should fail")
	}
}

func TestCreateClaim_SubdivisionRules(t *testing.T) {
	s := testStore()
	parent := mustCreate(t, s, "world", 0, 20, 0, 20, ownerU)

	outside := s.CreateClaim(CreateRequest{World: "world", X1: 15, X2: 25, Z1: 15, Z2: 25, Parent: parent})
	if outside.Succeeded || outside.Conflicting != parent {
		t.Fatalf("subdivision reaching outside the parent must fail with the parent as conflict")
	}

	sub := mustSubdivide(t, s, parent, 5, 10, 5, 10)
	if sub.ParentID != parent.ID {
		t.Fatalf("subdivision should link to parent %d, got %d", parent.ID, sub.ParentID)
	}
	if sub.Owner != parent.Owner {
		t.Fatalf("subdivision should copy the parent's owner")
	}
	if len(parent.ChildIDs) != 1 || parent.ChildIDs[0] != sub.ID {
		t.Fatalf("parent should list the subdivision: %v", parent.ChildIDs)
	}

	nested := s.CreateClaim(CreateRequest{World: "world", X1: 6, X2: 8, Z1: 6, Z2: 8, Parent: sub})
	if nested.Succeeded {
		t.Fatalf("subdivisions cannot be subdivided")
	}
}

func TestClaimAt_DescendsIntoSubdivisions(t *testing.T) {
	s := testStore()
	parent := mustCreate(t, s, "world", 0, 20, 0, 20, ownerU)
	sub := mustSubdivide(t, s, parent, 5, 10, 5, 10)

	if got := s.ClaimAt(Location{World: "world", X: 7, Z: 7}, nil); got != sub {
		t.Fatalf("point in subdivision should resolve to the subdivision, got %v", got)
	}
	if got := s.ClaimAt(Location{World: "world", X: 15, Z: 15}, nil); got != parent {
		t.Fatalf("point outside subdivisions should resolve to the parent, got %v", got)
	}
	if got := s.ClaimAtExcludingChildren(Location{World: "world", X: 7, Z: 7}, nil); got != parent {
		t.Fatalf("top-level-only lookup should stop at the parent, got %v", got)
	}
}

func TestDeleteClaim_Guards(t *testing.T) {
	s := testStore()
	parent := mustCreate(t, s, "world", 0, 20, 0, 20, ownerU)
	mustSubdivide(t, s, parent, 5, 10, 5, 10)

	func() {
		defer func() {
			if recover() == nil {
				t.Fatalf("non-recursive delete with children must panic")
			}
		}()
		s.DeleteClaim(parent, false)
	}()

	s.DeleteClaim(parent, true)
	if s.Count() != 0 {
		t.Fatalf("recursive delete should remove subdivisions too, %d remain", s.Count())
	}

	func() {
		defer func() {
			if recover() == nil {
				t.Fatalf("re-deleting a removed claim must panic")
			}
		}()
		s.DeleteClaim(parent, true)
	}()
}

func TestDeleteClaimsForOwner(t *testing.T) {
	s := testStore()
	mustCreate(t, s, "world", 0, 9, 0, 9, ownerU)
	mustCreate(t, s, "world", 50, 59, 0, 9, ownerU)
	keep := mustCreate(t, s, "world", 100, 109, 0, 9, visitorV)

	if n := s.DeleteClaimsForOwner(ownerU); n != 2 {
		t.Fatalf("want 2 claims deleted, got %d", n)
	}
	if s.Count() != 1 || s.ClaimByID(keep.ID) != keep {
		t.Fatalf("other owners' claims must survive")
	}
}

func TestCreateClaim_ConflictDeterminism(t *testing.T) {
	s := testStore()
	mustCreate(t, s, "world", 0, 9, 0, 9, ownerU)
	mustCreate(t, s, "world", 16, 25, 0, 9, visitorV)

	// A rectangle overlapping both: the raster-order scan reports the same
	// conflict every time.
	var first *Claim
	for i := 0; i < 16; i++ {
		res := s.CreateClaim(CreateRequest{World: "world", X1: 5, X2: 20, Z1: 0, Z2: 9, Owner: actorZ})
		if res.Succeeded {
			t.Fatalf("overlapping claim should fail")
		}
		if first == nil {
			first = res.Conflicting
		} else if res.Conflicting != first {
			t.Fatalf("conflict report flapped between claims %d and %d", first.ID, res.Conflicting.ID)
		}
	}
}

func TestResizeClaim_OverlapRejected(t *testing.T) {
	s := testStore()
	a := mustCreate(t, s, "world", 0, 9, 0, 9, ownerU)
	b := mustCreate(t, s, "world", 20, 29, 0, 9, visitorV)

	res := s.ResizeClaim(nil, a, 0, 25, 0, 9)
	if res.Succeeded || res.Conflicting != b {
		t.Fatalf("resize into claim %d should fail with it as conflict, got %+v", b.ID, res)
	}
	// Geometry untouched on failure.
	if a.Greater.X != 9 {
		t.Fatalf("failed resize must not mutate bounds")
	}

	if res := s.ResizeClaim(nil, a, 0, 19, 0, 9); !res.Succeeded {
		t.Fatalf("resize up to the edge should succeed: %s", res.Reason)
	}
}

func TestClaimIDsAreNeverReused(t *testing.T) {
	s := testStore()
	a := mustCreate(t, s, "world", 0, 9, 0, 9, ownerU)
	s.DeleteClaim(a, false)
	b := mustCreate(t, s, "world", 0, 9, 0, 9, ownerU)
	if b.ID <= a.ID {
		t.Fatalf("ids must be fresh: old %d new %d", a.ID, b.ID)
	}
}
