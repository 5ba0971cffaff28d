package protocol

// HELLO (client -> server). The event source authenticates out of band and
// declares the identity it will submit events for.
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`

	// SourceName labels the connection in logs ("paper-bridge-1").
	SourceName string `json:"source_name,omitempty"`

	// ActorID is the default acting identity for events on this connection,
	// a player uuid. Optional: events may override it per message, and
	// actorless events (fluid, explosion) need none.
	ActorID string `json:"actor_id,omitempty"`

	// Capabilities are the capability nodes the connection's actor holds.
	Capabilities []string `json:"capabilities,omitempty"`

	// IgnoreClaims mirrors the actor's toggled override mode.
	IgnoreClaims bool `json:"ignore_claims,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	SessionID       string `json:"session_id"`
	PistonMode      string `json:"piston_mode"`
	ClaimCount      int    `json:"claim_count"`
}

// EVENT (client -> server): one world mutation awaiting arbitration.
type EventMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`

	// ID is echoed back on the verdict.
	ID string `json:"id"`

	Kind  string `json:"kind"`
	World string `json:"world"`
	Pos   [3]int `json:"pos"`

	// ActorID overrides the connection's default actor. "" keeps it.
	ActorID string `json:"actor_id,omitempty"`

	// Fluid source cell.
	From [3]int `json:"from,omitempty"`

	// Explosion damage list and surface-rule flag.
	Blocks  [][3]int `json:"blocks,omitempty"`
	Surface bool     `json:"surface,omitempty"`

	// Piston movement description.
	Facing [3]int          `json:"facing,omitempty"`
	Sticky bool            `json:"sticky,omitempty"`
	Moved  []MovedBlockMsg `json:"moved,omitempty"`
}

type MovedBlockMsg struct {
	Pos          [3]int `json:"pos"`
	BreaksOnPush bool   `json:"breaks_on_push,omitempty"`
}

// VERDICT (server -> client)
type VerdictMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`

	Ref     string `json:"ref"`
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`

	// Blocks is the filtered explosion damage list.
	Blocks [][3]int `json:"blocks,omitempty"`

	PistonDestroyed bool `json:"piston_destroyed,omitempty"`
}

// COMMAND (client -> server): claim management.
type CommandMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`

	ID   string `json:"id"`
	Kind string `json:"kind"`

	World string `json:"world,omitempty"`
	X1    int    `json:"x1,omitempty"`
	X2    int    `json:"x2,omitempty"`
	Z1    int    `json:"z1,omitempty"`
	Z2    int    `json:"z2,omitempty"`

	ClaimID  int64 `json:"claim_id,omitempty"`
	ParentID int64 `json:"parent_id,omitempty"`

	// Owner is a player uuid; "" means administrative for CREATE_CLAIM and
	// "the connection's actor" for ABANDON_ALL.
	Owner string `json:"owner,omitempty"`

	ActorID string `json:"actor_id,omitempty"`

	Recursive bool   `json:"recursive,omitempty"`
	Target    string `json:"target,omitempty"`
	Level     string `json:"level,omitempty"`
	Value     bool   `json:"value,omitempty"`
}

// RESULT (server -> client)
type ResultMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`

	Ref        string `json:"ref"`
	OK         bool   `json:"ok"`
	Code       string `json:"code,omitempty"`
	Message    string `json:"message,omitempty"`
	ClaimID    int64  `json:"claim_id,omitempty"`
	ConflictID int64  `json:"conflict_id,omitempty"`
}

// ERROR (server -> client): protocol-level rejection of a message that
// could not be routed to the engine at all.
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
	Code            string `json:"code"`
	Message         string `json:"message,omitempty"`
}
