package rules

import (
	"time"

	"landguard/internal/claim"
)

// EventKind classifies inbound world events.
type EventKind string

const (
	EventBreak         EventKind = "BREAK"
	EventPlace         EventKind = "PLACE"
	EventContainer     EventKind = "CONTAINER"
	EventInteract      EventKind = "INTERACT"
	EventFluid         EventKind = "FLUID"
	EventExplosion     EventKind = "EXPLOSION"
	EventPistonExtend  EventKind = "PISTON_EXTEND"
	EventPistonRetract EventKind = "PISTON_RETRACT"
)

// Event is one world mutation awaiting arbitration. Which fields matter
// depends on Kind: actor events use Pos+Actor, fluid uses From+Pos, explosion
// uses Blocks, piston events use the piston fields.
type Event struct {
	Kind  EventKind
	World string
	Pos   claim.BlockPos

	// Actor is nil for actorless events (fluid, explosion, piston).
	Actor *claim.Actor

	// From is the source cell of a fluid spread.
	From claim.BlockPos

	// Blocks is the damage list of an explosion.
	Blocks []claim.BlockPos

	// Surface marks an explosion subject to surface protection rules
	// (creeper blasts in the overworld, per host config).
	Surface bool

	// Piston movement description.
	Facing claim.Direction
	Sticky bool
	Moved  []claim.MovedBlock
}

// Verdict is the arbitration outcome the event source acts on. Denied events
// must not be applied by the host. For explosions Blocks carries the filtered
// damage list; the event itself is never cancelled outright.
type Verdict struct {
	Allowed bool
	Reason  string

	// Blocks is the filtered damage list for EventExplosion: the blocks
	// still allowed to be destroyed.
	Blocks []claim.BlockPos

	// PistonDestroyed reports that the engine ordered removal of the piston
	// block through the WorldMutator.
	PistonDestroyed bool
}

func allow() Verdict { return Verdict{Allowed: true} }

func deny(reason string) Verdict { return Verdict{Reason: reason} }

// WorldMutator applies the engine's few outbound world edits, all of them
// piston-destruction side effects. A nil mutator records the verdict but
// leaves the world untouched.
type WorldMutator interface {
	SetAir(world string, pos claim.BlockPos)
	DropPistonItem(world string, pos claim.BlockPos)
	ZeroYieldBlast(world string, pos claim.BlockPos)
}

// AuditLogger receives one entry per arbitrated event and claim mutation.
// Implemented in internal/persistence/auditlog; may be nil.
type AuditLogger interface {
	WriteAudit(entry AuditEntry) error
}

type AuditEntry struct {
	Time    time.Time `json:"time"`
	Kind    string    `json:"kind"`
	World   string    `json:"world,omitempty"`
	Pos     [3]int    `json:"pos,omitempty"`
	Actor   string    `json:"actor,omitempty"`
	Allowed bool      `json:"allowed"`
	Reason  string    `json:"reason,omitempty"`
	ClaimID int64     `json:"claim_id,omitempty"`
}
