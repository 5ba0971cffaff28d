package ws

import (
	"fmt"

	"github.com/google/uuid"

	"landguard/internal/claim"
	"landguard/internal/protocol"
	"landguard/internal/rules"
)

var eventKinds = map[string]rules.EventKind{
	string(rules.EventBreak):         rules.EventBreak,
	string(rules.EventPlace):         rules.EventPlace,
	string(rules.EventContainer):     rules.EventContainer,
	string(rules.EventInteract):      rules.EventInteract,
	string(rules.EventFluid):         rules.EventFluid,
	string(rules.EventExplosion):     rules.EventExplosion,
	string(rules.EventPistonExtend):  rules.EventPistonExtend,
	string(rules.EventPistonRetract): rules.EventPistonRetract,
}

var commandKinds = map[string]rules.CommandKind{
	string(rules.CmdCreateClaim):      rules.CmdCreateClaim,
	string(rules.CmdResizeClaim):      rules.CmdResizeClaim,
	string(rules.CmdDeleteClaim):      rules.CmdDeleteClaim,
	string(rules.CmdAbandonAll):       rules.CmdAbandonAll,
	string(rules.CmdTrust):            rules.CmdTrust,
	string(rules.CmdUntrust):          rules.CmdUntrust,
	string(rules.CmdClearTrust):       rules.CmdClearTrust,
	string(rules.CmdAddManager):       rules.CmdAddManager,
	string(rules.CmdRemoveManager):    rules.CmdRemoveManager,
	string(rules.CmdSetDoorsOpen):     rules.CmdSetDoorsOpen,
	string(rules.CmdRestrictSubclaim): rules.CmdRestrictSubclaim,
	string(rules.CmdSetExplosives):    rules.CmdSetExplosives,
}

func pos3(a [3]int) claim.BlockPos {
	return claim.BlockPos{X: a[0], Y: a[1], Z: a[2]}
}

// eventFromMsg maps the wire form onto the engine's event type. A non-empty
// code means the message never reaches the engine.
func eventFromMsg(em protocol.EventMsg, defaultActor *claim.Actor) (rules.Event, string, string) {
	kind, ok := eventKinds[em.Kind]
	if !ok {
		return rules.Event{}, protocol.ErrBadRequest, fmt.Sprintf("unknown event kind %q", em.Kind)
	}
	if em.World == "" {
		return rules.Event{}, protocol.ErrBadRequest, "missing world"
	}

	ev := rules.Event{
		Kind:    kind,
		World:   em.World,
		Pos:     pos3(em.Pos),
		From:    pos3(em.From),
		Surface: em.Surface,
		Facing:  claim.Direction{X: em.Facing[0], Y: em.Facing[1], Z: em.Facing[2]},
		Sticky:  em.Sticky,
	}
	for _, b := range em.Blocks {
		ev.Blocks = append(ev.Blocks, pos3(b))
	}
	for _, m := range em.Moved {
		ev.Moved = append(ev.Moved, claim.MovedBlock{Pos: pos3(m.Pos), BreaksOnPush: m.BreaksOnPush})
	}

	switch kind {
	case rules.EventBreak, rules.EventPlace, rules.EventContainer, rules.EventInteract:
		actor := defaultActor
		if em.ActorID != "" {
			id, err := uuid.Parse(em.ActorID)
			if err != nil {
				return rules.Event{}, protocol.ErrBadRequest, "bad actor_id"
			}
			actor = &claim.Actor{ID: id}
			if defaultActor != nil && defaultActor.ID == id {
				actor = defaultActor
			}
		}
		if actor == nil {
			return rules.Event{}, protocol.ErrBadRequest, "actor event without an actor"
		}
		ev.Actor = actor
	case rules.EventPistonExtend, rules.EventPistonRetract:
		if ev.Facing == (claim.Direction{}) {
			return rules.Event{}, protocol.ErrBadRequest, "piston event without facing"
		}
	}
	return ev, "", ""
}

// commandFromMsg maps the wire form onto the engine's command type.
func commandFromMsg(cm protocol.CommandMsg, defaultActor *claim.Actor) (rules.Command, string, string) {
	kind, ok := commandKinds[cm.Kind]
	if !ok {
		return rules.Command{}, protocol.ErrBadRequest, fmt.Sprintf("unknown command kind %q", cm.Kind)
	}

	cmd := rules.Command{
		Kind:  kind,
		World: cm.World,
		X1:    cm.X1, X2: cm.X2, Z1: cm.Z1, Z2: cm.Z2,
		ClaimID:   cm.ClaimID,
		ParentID:  cm.ParentID,
		Recursive: cm.Recursive,
		Target:    cm.Target,
		Level:     cm.Level,
		Value:     cm.Value,
		Actor:     defaultActor,
	}
	if cm.ActorID != "" {
		id, err := uuid.Parse(cm.ActorID)
		if err != nil {
			return rules.Command{}, protocol.ErrBadRequest, "bad actor_id"
		}
		if defaultActor != nil && defaultActor.ID == id {
			cmd.Actor = defaultActor
		} else {
			cmd.Actor = &claim.Actor{ID: id}
		}
	}
	if cm.Owner != "" {
		id, err := uuid.Parse(cm.Owner)
		if err != nil {
			return rules.Command{}, protocol.ErrBadRequest, "bad owner"
		}
		cmd.Owner = id
	} else if kind == rules.CmdCreateClaim && cmd.ParentID == 0 && cmd.Actor != nil && !cmd.Actor.HasCapability(claim.CapAdminClaims) {
		// Claims default to the requesting player; administrative claims
		// must be asked for by a capability holder leaving owner empty.
		cmd.Owner = cmd.Actor.ID
	}
	return cmd, "", ""
}
