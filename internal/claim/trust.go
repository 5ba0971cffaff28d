package claim

import (
	"fmt"
	"strings"
)

// TrustLevel is the ordered capability an actor may hold within a claim.
// Higher levels grant everything below them.
type TrustLevel uint8

const (
	TrustNone TrustLevel = iota
	TrustAccess
	TrustInventory
	TrustBuild
)

// Grants reports whether holding l satisfies a requirement of req.
func (l TrustLevel) Grants(req TrustLevel) bool {
	return l != TrustNone && req != TrustNone && l >= req
}

func (l TrustLevel) String() string {
	switch l {
	case TrustAccess:
		return "access"
	case TrustInventory:
		return "inventory"
	case TrustBuild:
		return "build"
	default:
		return "none"
	}
}

// ParseTrustLevel reads the persisted/wire form of a trust level.
func ParseTrustLevel(s string) (TrustLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "access":
		return TrustAccess, nil
	case "inventory":
		return TrustInventory, nil
	case "build":
		return TrustBuild, nil
	default:
		return TrustNone, fmt.Errorf("unknown trust level %q", s)
	}
}
