package ws

import (
	"testing"

	"github.com/google/uuid"

	"landguard/internal/claim"
	"landguard/internal/protocol"
	"landguard/internal/rules"
)

var testActor = &claim.Actor{ID: uuid.MustParse("11111111-1111-1111-1111-111111111111")}

func TestEventFromMsg_ActorEvents(t *testing.T) {
	ev, code, _ := eventFromMsg(protocol.EventMsg{
		ID: "E1", Kind: "BREAK", World: "world", Pos: [3]int{5, 64, 5},
	}, testActor)
	if code != "" {
		t.Fatalf("decode: %s", code)
	}
	if ev.Kind != rules.EventBreak || ev.Actor != testActor {
		t.Fatalf("decoded event: %+v", ev)
	}
	if ev.Pos != (claim.BlockPos{X: 5, Y: 64, Z: 5}) {
		t.Fatalf("pos: %+v", ev.Pos)
	}

	// Per-message actor override.
	other := uuid.MustParse("22222222-2222-2222-2222-222222222222")
	ev, code, _ = eventFromMsg(protocol.EventMsg{
		ID: "E2", Kind: "PLACE", World: "world", Pos: [3]int{0, 0, 0},
		ActorID: other.String(),
	}, testActor)
	if code != "" || ev.Actor.ID != other {
		t.Fatalf("override actor: %s %+v", code, ev.Actor)
	}

	// Actor events without any actor are rejected before the engine.
	_, code, _ = eventFromMsg(protocol.EventMsg{
		ID: "E3", Kind: "CONTAINER", World: "world", Pos: [3]int{0, 0, 0},
	}, nil)
	if code != protocol.ErrBadRequest {
		t.Fatalf("actorless CONTAINER should be rejected, got %q", code)
	}
}

func TestEventFromMsg_PistonAndExplosion(t *testing.T) {
	ev, code, _ := eventFromMsg(protocol.EventMsg{
		ID: "E1", Kind: "PISTON_EXTEND", World: "world",
		Pos: [3]int{8, 64, 5}, Facing: [3]int{1, 0, 0}, Sticky: true,
		Moved: []protocol.MovedBlockMsg{
			{Pos: [3]int{9, 64, 5}},
			{Pos: [3]int{10, 64, 5}, BreaksOnPush: true},
		},
	}, nil)
	if code != "" {
		t.Fatalf("decode: %s", code)
	}
	if ev.Facing != claim.DirEast || !ev.Sticky || len(ev.Moved) != 2 || !ev.Moved[1].BreaksOnPush {
		t.Fatalf("piston event: %+v", ev)
	}

	_, code, _ = eventFromMsg(protocol.EventMsg{
		ID: "E2", Kind: "PISTON_RETRACT", World: "world", Pos: [3]int{0, 0, 0},
	}, nil)
	if code != protocol.ErrBadRequest {
		t.Fatalf("piston without facing should be rejected")
	}

	ev, code, _ = eventFromMsg(protocol.EventMsg{
		ID: "E3", Kind: "EXPLOSION", World: "world", Pos: [3]int{0, 64, 0},
		Surface: true, Blocks: [][3]int{{1, 64, 0}, {2, 64, 0}},
	}, nil)
	if code != "" || !ev.Surface || len(ev.Blocks) != 2 {
		t.Fatalf("explosion event: %s %+v", code, ev)
	}
}

func TestEventFromMsg_Rejections(t *testing.T) {
	if _, code, _ := eventFromMsg(protocol.EventMsg{ID: "E1", Kind: "TELEPORT", World: "world"}, testActor); code != protocol.ErrBadRequest {
		t.Fatalf("unknown kind should be rejected")
	}
	if _, code, _ := eventFromMsg(protocol.EventMsg{ID: "E2", Kind: "BREAK"}, testActor); code != protocol.ErrBadRequest {
		t.Fatalf("missing world should be rejected")
	}
}

func TestCommandFromMsg(t *testing.T) {
	cmd, code, _ := commandFromMsg(protocol.CommandMsg{
		ID: "C1", Kind: "CREATE_CLAIM", World: "world",
		X1: 0, X2: 9, Z1: 0, Z2: 9,
	}, testActor)
	if code != "" {
		t.Fatalf("decode: %s", code)
	}
	if cmd.Kind != rules.CmdCreateClaim || cmd.Actor != testActor {
		t.Fatalf("command: %+v", cmd)
	}
	// Ownerless creation defaults to the connection's actor.
	if cmd.Owner != testActor.ID {
		t.Fatalf("owner should default to the actor, got %s", cmd.Owner)
	}

	// Capability holders leaving owner empty ask for an administrative claim.
	adminActor := &claim.Actor{ID: testActor.ID, Caps: claim.StaticCaps{claim.CapAdminClaims: true}}
	cmd, code, _ = commandFromMsg(protocol.CommandMsg{
		ID: "C2", Kind: "CREATE_CLAIM", World: "world", X1: 0, X2: 9, Z1: 0, Z2: 9,
	}, adminActor)
	if code != "" || cmd.Owner != uuid.Nil {
		t.Fatalf("admin create: %s owner=%s", code, cmd.Owner)
	}

	cmd, code, _ = commandFromMsg(protocol.CommandMsg{
		ID: "C3", Kind: "TRUST", ClaimID: 7, Target: "public", Level: "build",
	}, testActor)
	if code != "" || cmd.Kind != rules.CmdTrust || cmd.Target != "public" || cmd.Level != "build" {
		t.Fatalf("trust command: %s %+v", code, cmd)
	}

	if _, code, _ = commandFromMsg(protocol.CommandMsg{ID: "C4", Kind: "NUKE"}, testActor); code != protocol.ErrBadRequest {
		t.Fatalf("unknown command kind should be rejected")
	}
	if _, code, _ = commandFromMsg(protocol.CommandMsg{ID: "C5", Kind: "TRUST", Owner: "nope"}, testActor); code != protocol.ErrBadRequest {
		t.Fatalf("bad owner should be rejected")
	}
}
