package claim

import "github.com/google/uuid"

// CapabilitySource answers point-checks for named capability nodes held by an
// actor. The core never enumerates capabilities; it only asks about specific
// nodes (admin bypass, bracketed grants, manager-by-capability).
type CapabilitySource interface {
	Has(node string) bool
}

// Capability nodes consulted by the resolution engine.
const (
	CapAdminClaims  = "landguard.adminclaims"
	CapDeleteClaims = "landguard.deleteclaims"
	CapIgnoreClaims = "landguard.ignoreclaims"
)

// Actor is the acting identity behind a world event. A nil *Actor is always
// denied: if we don't know who's asking, the answer is no.
type Actor struct {
	ID uuid.UUID

	// IgnoreClaims is the per-player override mode; holders bypass owner
	// checks entirely.
	IgnoreClaims bool

	// Caps may be nil, meaning the actor holds no capability nodes.
	Caps CapabilitySource
}

func (a *Actor) HasCapability(node string) bool {
	if a == nil || a.Caps == nil {
		return false
	}
	return a.Caps.Has(node)
}

// StaticCaps is a fixed capability set, convenient for tests and for hosts
// that resolve capabilities up front.
type StaticCaps map[string]bool

func (s StaticCaps) Has(node string) bool {
	return s[node]
}
