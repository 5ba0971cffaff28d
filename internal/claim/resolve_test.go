package claim

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestResolve_NilActorAlwaysDenied(t *testing.T) {
	s := testStore()
	c := mustCreate(t, s, "world", 0, 9, 0, 9, ownerU)
	if c.AllowBuild(s, nil).Allowed || c.AllowAccess(s, nil).Allowed ||
		c.AllowContainers(s, nil).Allowed || c.AllowEdit(s, nil).Allowed ||
		c.AllowGrantPermission(s, nil).Allowed {
		t.Fatalf("nil actor must be denied everywhere")
	}
}

func TestResolve_OwnerAllowed(t *testing.T) {
	s := testStore()
	c := mustCreate(t, s, "world", 0, 9, 0, 9, ownerU)
	owner := &Actor{ID: ownerU}
	if d := c.AllowBuild(s, owner); !d.Allowed {
		t.Fatalf("owner build denied: %s", d.Reason)
	}
	if d := c.AllowEdit(s, owner); !d.Allowed {
		t.Fatalf("owner edit denied: %s", d.Reason)
	}
}

func TestResolve_PublicFallback(t *testing.T) {
	s := testStore()
	c := mustCreate(t, s, "world", 0, 9, 0, 9, ownerU)
	c.SetPermission(PublicIdentity(), TrustAccess)

	z := &Actor{ID: actorZ}
	if d := c.AllowAccess(s, z); !d.Allowed {
		t.Fatalf("public access grant should allow: %s", d.Reason)
	}
	if d := c.AllowBuild(s, z); d.Allowed {
		t.Fatalf("public access grant must not allow building")
	}
	if d := c.AllowContainers(s, z); d.Allowed {
		t.Fatalf("public access grant must not allow containers")
	}
}

// Container trust alone passes AllowBuild. That breadth is intended: the
// crop-only narrowing happens in callers, never at the claim level.
func TestResolve_ContainerTrustPassesBuild(t *testing.T) {
	s := testStore()
	c := mustCreate(t, s, "world", 0, 9, 0, 9, ownerU)
	c.SetPermission(PlayerIdentity(actorZ), TrustInventory)

	z := &Actor{ID: actorZ}
	if d := c.AllowContainers(s, z); !d.Allowed {
		t.Fatalf("container trust denied: %s", d.Reason)
	}
	if d := c.AllowBuild(s, z); !d.Allowed {
		t.Fatalf("container-trusted actor passes AllowBuild by design: %s", d.Reason)
	}
	if d := c.AllowAccess(s, z); !d.Allowed {
		t.Fatalf("container trust grants access: %s", d.Reason)
	}
}

func TestResolve_CapabilityNodeEntry(t *testing.T) {
	s := testStore()
	c := mustCreate(t, s, "world", 0, 9, 0, 9, ownerU)
	c.SetPermission(CapabilityIdentity("town.builders"), TrustBuild)

	holder := &Actor{ID: actorZ, Caps: StaticCaps{"town.builders": true}}
	if d := c.AllowBuild(s, holder); !d.Allowed {
		t.Fatalf("capability-node entry should grant holders: %s", d.Reason)
	}
	stranger := &Actor{ID: visitorV}
	if d := c.AllowBuild(s, stranger); d.Allowed {
		t.Fatalf("non-holder must not benefit from a capability-node entry")
	}
}

func TestResolve_DenialNamesOwnerAndAdvertisesOverride(t *testing.T) {
	s := testStore()
	s.SetNameResolver(staticNames{ownerU: "Ulla"})
	c := mustCreate(t, s, "world", 0, 9, 0, 9, ownerU)

	d := c.AllowBuild(s, &Actor{ID: visitorV})
	if d.Allowed {
		t.Fatalf("stranger build should be denied")
	}
	if !strings.Contains(d.Reason, "Ulla") {
		t.Fatalf("denial reason should name the owner: %q", d.Reason)
	}

	withCap := c.AllowBuild(s, &Actor{ID: visitorV, Caps: StaticCaps{CapIgnoreClaims: true}})
	if withCap.Allowed {
		t.Fatalf("holding the node without toggling it does not allow")
	}
	if !strings.Contains(withCap.Reason, "ignore-claims") {
		t.Fatalf("denial should advertise the held override: %q", withCap.Reason)
	}
}

func TestResolve_IgnoreClaimsOverride(t *testing.T) {
	s := testStore()
	c := mustCreate(t, s, "world", 0, 9, 0, 9, ownerU)
	a := &Actor{ID: visitorV, IgnoreClaims: true}
	if d := c.AllowBuild(s, a); !d.Allowed {
		t.Fatalf("ignore-claims mode bypasses: %s", d.Reason)
	}
	if d := c.AllowContainers(s, a); !d.Allowed {
		t.Fatalf("ignore-claims mode bypasses containers: %s", d.Reason)
	}
}

func TestResolve_AdminClaim(t *testing.T) {
	s := testStore()
	c := mustCreate(t, s, "world", 0, 9, 0, 9, uuid.Nil)
	if !c.IsAdmin(s) {
		t.Fatalf("ownerless claim is administrative")
	}

	admin := &Actor{ID: visitorV, Caps: StaticCaps{CapAdminClaims: true}}
	if d := c.AllowBuild(s, admin); !d.Allowed {
		t.Fatalf("admin capability should bypass on admin claims: %s", d.Reason)
	}
	if d := c.AllowEdit(s, admin); !d.Allowed {
		t.Fatalf("admin capability should allow editing admin claims: %s", d.Reason)
	}

	pleb := &Actor{ID: actorZ}
	d := c.AllowBuild(s, pleb)
	if d.Allowed {
		t.Fatalf("admin claims deny the public by default")
	}
	if !strings.Contains(d.Reason, "an administrator") {
		t.Fatalf("admin claim denial should name an administrator: %q", d.Reason)
	}
}

func TestResolve_DeleteCapabilityEditsPlayerClaims(t *testing.T) {
	s := testStore()
	c := mustCreate(t, s, "world", 0, 9, 0, 9, ownerU)
	mod := &Actor{ID: visitorV, Caps: StaticCaps{CapDeleteClaims: true}}
	if d := c.AllowEdit(s, mod); !d.Allowed {
		t.Fatalf("delete capability should allow editing player claims: %s", d.Reason)
	}
}

func TestResolve_DoorsOpenGrantsAccessOnly(t *testing.T) {
	s := testStore()
	c := mustCreate(t, s, "world", 0, 9, 0, 9, ownerU)
	s.SetDoorsOpen(c, true)

	z := &Actor{ID: actorZ}
	if d := c.AllowAccess(s, z); !d.Allowed {
		t.Fatalf("doors-open should grant access: %s", d.Reason)
	}
	if d := c.AllowContainers(s, z); d.Allowed {
		t.Fatalf("doors-open must not grant container access")
	}
}

func TestResolve_SubdivisionInheritance(t *testing.T) {
	s := testStore()
	parent := mustCreate(t, s, "world", 0, 20, 0, 20, ownerU)
	parent.SetPermission(PublicIdentity(), TrustBuild)
	sub := mustSubdivide(t, s, parent, 2, 4, 2, 4)

	v := &Actor{ID: visitorV}
	if d := sub.AllowBuild(s, v); !d.Allowed {
		t.Fatalf("subdivision inherits the parent's public grant: %s", d.Reason)
	}

	s.SetSubclaimRestriction(sub, true)
	if d := sub.AllowBuild(s, v); d.Allowed {
		t.Fatalf("isolated subdivision must not inherit the parent's public grant")
	}

	// The parent's owner is never locked out of a subdivision.
	if d := sub.AllowBuild(s, &Actor{ID: ownerU}); !d.Allowed {
		t.Fatalf("parent owner denied in isolated subdivision: %s", d.Reason)
	}
}

func TestResolve_ManagersGrantPermission(t *testing.T) {
	s := testStore()
	c := mustCreate(t, s, "world", 0, 9, 0, 9, ownerU)
	s.AddManager(c, PlayerIdentity(visitorV))
	s.AddManager(c, CapabilityIdentity("town.stewards"))

	if d := c.AllowGrantPermission(s, &Actor{ID: visitorV}); !d.Allowed {
		t.Fatalf("listed manager should grant: %s", d.Reason)
	}
	steward := &Actor{ID: actorZ, Caps: StaticCaps{"town.stewards": true}}
	if d := c.AllowGrantPermission(s, steward); !d.Allowed {
		t.Fatalf("capability-node manager should grant: %s", d.Reason)
	}
	if d := c.AllowGrantPermission(s, &Actor{ID: uuid.MustParse("44444444-4444-4444-4444-444444444444")}); d.Allowed {
		t.Fatalf("stranger must not manage trust")
	}
	if d := c.AllowBuild(s, &Actor{ID: visitorV}); d.Allowed {
		t.Fatalf("manager rights are distinct from build rights")
	}
}

type staticNames map[uuid.UUID]string

func (m staticNames) PlayerName(id uuid.UUID) string { return m[id] }
