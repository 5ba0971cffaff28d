package claim

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type identityKind uint8

const (
	identityPlayer identityKind = iota + 1
	identityPublic
	identityCapability
)

// Identity is a permission-map key: a concrete player, the public sentinel,
// or a named capability node (anyone holding the node gets the entry's trust).
// The original encodes all three in one string space ("public", "[node]",
// uuid); parsing of those forms lives only at the persistence and wire edges.
type Identity struct {
	kind   identityKind
	player uuid.UUID
	node   string
}

func PlayerIdentity(id uuid.UUID) Identity {
	return Identity{kind: identityPlayer, player: id}
}

func PublicIdentity() Identity {
	return Identity{kind: identityPublic}
}

// CapabilityIdentity names a capability node; trust granted to it applies to
// any actor holding the node. Nodes are case-normalized.
func CapabilityIdentity(node string) Identity {
	return Identity{kind: identityCapability, node: strings.ToLower(strings.TrimSpace(node))}
}

func (i Identity) IsPlayer(id uuid.UUID) bool {
	return i.kind == identityPlayer && i.player == id
}

func (i Identity) IsPublic() bool {
	return i.kind == identityPublic
}

func (i Identity) CapabilityNode() (string, bool) {
	if i.kind != identityCapability {
		return "", false
	}
	return i.node, true
}

// String renders the persisted form: uuid, "public", or "[node]".
func (i Identity) String() string {
	switch i.kind {
	case identityPlayer:
		return i.player.String()
	case identityPublic:
		return "public"
	case identityCapability:
		return "[" + i.node + "]"
	default:
		return ""
	}
}

// ParseIdentity reads the persisted form back. Keys are case-normalized.
func ParseIdentity(s string) (Identity, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Identity{}, fmt.Errorf("empty identity")
	}
	if strings.EqualFold(s, "public") {
		return PublicIdentity(), nil
	}
	if len(s) >= 3 && s[0] == '[' && s[len(s)-1] == ']' {
		node := strings.TrimSpace(s[1 : len(s)-1])
		if node == "" {
			return Identity{}, fmt.Errorf("empty capability node in %q", s)
		}
		return CapabilityIdentity(node), nil
	}
	id, err := uuid.Parse(strings.ToLower(s))
	if err != nil {
		return Identity{}, fmt.Errorf("identity %q: %w", s, err)
	}
	return PlayerIdentity(id), nil
}
