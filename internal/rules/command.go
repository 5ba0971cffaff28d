package rules

import (
	"fmt"

	"github.com/google/uuid"

	"landguard/internal/claim"
	"landguard/internal/protocol"
)

// CommandKind selects a claim-management operation.
type CommandKind string

const (
	CmdCreateClaim      CommandKind = "CREATE_CLAIM"
	CmdResizeClaim      CommandKind = "RESIZE_CLAIM"
	CmdDeleteClaim      CommandKind = "DELETE_CLAIM"
	CmdAbandonAll       CommandKind = "ABANDON_ALL"
	CmdTrust            CommandKind = "TRUST"
	CmdUntrust          CommandKind = "UNTRUST"
	CmdClearTrust       CommandKind = "CLEAR_TRUST"
	CmdAddManager       CommandKind = "ADD_MANAGER"
	CmdRemoveManager    CommandKind = "REMOVE_MANAGER"
	CmdSetDoorsOpen     CommandKind = "SET_DOORS_OPEN"
	CmdRestrictSubclaim CommandKind = "RESTRICT_SUBCLAIM"
	CmdSetExplosives    CommandKind = "SET_EXPLOSIVES"
)

// Command is one claim-management request. Which fields matter depends on
// Kind; unused fields are ignored.
type Command struct {
	Kind CommandKind

	World          string
	X1, X2, Z1, Z2 int

	ClaimID  int64
	ParentID int64

	// Owner is the claim owner for creation (uuid.Nil = administrative) and
	// the target for ABANDON_ALL.
	Owner uuid.UUID

	// Actor is who asked. Nil means console: permission checks are skipped
	// but store-level validation still applies.
	Actor *claim.Actor

	Recursive bool

	// Target is an identity in string form ("public", "[node]", uuid).
	Target string
	// Level is a trust level in string form.
	Level string

	// Value feeds the flag setters.
	Value bool
}

// CommandResult is the typed outcome. Code carries a protocol error code on
// failure; expected rejections are results, never Go errors.
type CommandResult struct {
	OK         bool
	Code       string
	Message    string
	ClaimID    int64
	ConflictID int64
}

func cmdFail(code, format string, args ...any) CommandResult {
	return CommandResult{Code: code, Message: fmt.Sprintf(format, args...)}
}

func (e *Engine) applyCommand(cmd Command) CommandResult {
	switch cmd.Kind {
	case CmdCreateClaim:
		return e.cmdCreate(cmd)
	case CmdResizeClaim:
		return e.cmdResize(cmd)
	case CmdDeleteClaim:
		return e.cmdDelete(cmd)
	case CmdAbandonAll:
		return e.cmdAbandonAll(cmd)
	case CmdTrust:
		return e.cmdTrust(cmd)
	case CmdUntrust:
		return e.cmdUntrust(cmd)
	case CmdClearTrust:
		return e.cmdClearTrust(cmd)
	case CmdAddManager, CmdRemoveManager:
		return e.cmdManager(cmd)
	case CmdSetDoorsOpen, CmdRestrictSubclaim, CmdSetExplosives:
		return e.cmdSetFlag(cmd)
	}
	return cmdFail(protocol.ErrBadRequest, "unknown command %q", cmd.Kind)
}

func (e *Engine) claimForCommand(id int64) (*claim.Claim, CommandResult) {
	c := e.store.ClaimByID(id)
	if c == nil {
		return nil, cmdFail(protocol.ErrInvalidTarget, "claim %d not found", id)
	}
	return c, CommandResult{}
}

func (e *Engine) cmdCreate(cmd Command) CommandResult {
	req := claim.CreateRequest{
		World: cmd.World,
		X1:    cmd.X1, X2: cmd.X2, Z1: cmd.Z1, Z2: cmd.Z2,
		Owner: cmd.Owner,
		Actor: cmd.Actor,
	}
	if cmd.ParentID != 0 {
		p, fail := e.claimForCommand(cmd.ParentID)
		if fail.Code != "" {
			return fail
		}
		if cmd.Actor != nil {
			if d := p.AllowEdit(e.store, cmd.Actor); !d.Allowed {
				return cmdFail(protocol.ErrNoPermission, "%s", d.Reason)
			}
		}
		req.Parent = p
	} else if cmd.Owner == uuid.Nil && cmd.Actor != nil && !cmd.Actor.HasCapability(claim.CapAdminClaims) {
		return cmdFail(protocol.ErrNoPermission, "administrative claims require the admin capability")
	}

	res := e.store.CreateClaim(req)
	if !res.Succeeded {
		out := cmdFail(protocol.ErrBlocked, "%s", res.Reason)
		if res.Conflicting != nil {
			out.Code = protocol.ErrConflict
			out.ConflictID = res.Conflicting.ID
		}
		return out
	}
	return CommandResult{OK: true, ClaimID: res.Claim.ID}
}

func (e *Engine) cmdResize(cmd Command) CommandResult {
	c, fail := e.claimForCommand(cmd.ClaimID)
	if fail.Code != "" {
		return fail
	}
	if cmd.Actor != nil {
		if d := c.AllowEdit(e.store, cmd.Actor); !d.Allowed {
			return cmdFail(protocol.ErrNoPermission, "%s", d.Reason)
		}
	}
	res := e.store.ResizeClaim(cmd.Actor, c, cmd.X1, cmd.X2, cmd.Z1, cmd.Z2)
	if !res.Succeeded {
		out := cmdFail(protocol.ErrBlocked, "%s", res.Reason)
		if res.Conflicting != nil {
			out.Code = protocol.ErrConflict
			out.ConflictID = res.Conflicting.ID
		}
		return out
	}
	return CommandResult{OK: true, ClaimID: c.ID}
}

func (e *Engine) cmdDelete(cmd Command) CommandResult {
	c, fail := e.claimForCommand(cmd.ClaimID)
	if fail.Code != "" {
		return fail
	}
	if cmd.Actor != nil {
		if d := c.AllowEdit(e.store, cmd.Actor); !d.Allowed {
			return cmdFail(protocol.ErrNoPermission, "%s", d.Reason)
		}
	}
	if len(c.ChildIDs) > 0 && !cmd.Recursive {
		return cmdFail(protocol.ErrBlocked, "claim %d has %d subdivisions", c.ID, len(c.ChildIDs))
	}
	id := c.ID
	e.store.DeleteClaim(c, cmd.Recursive)
	e.dropHints(c)
	return CommandResult{OK: true, ClaimID: id}
}

func (e *Engine) cmdAbandonAll(cmd Command) CommandResult {
	owner := cmd.Owner
	if cmd.Actor != nil {
		if owner == uuid.Nil {
			owner = cmd.Actor.ID
		} else if owner != cmd.Actor.ID && !cmd.Actor.HasCapability(claim.CapDeleteClaims) {
			return cmdFail(protocol.ErrNoPermission, "deleting another player's claims requires the delete capability")
		}
	}
	if owner == uuid.Nil {
		return cmdFail(protocol.ErrBadRequest, "missing owner")
	}
	n := e.store.DeleteClaimsForOwner(owner)
	e.hints = map[uuid.UUID]*claim.Claim{}
	return CommandResult{OK: true, Message: fmt.Sprintf("deleted %d claims", n)}
}

func (e *Engine) cmdTrust(cmd Command) CommandResult {
	c, fail := e.claimForCommand(cmd.ClaimID)
	if fail.Code != "" {
		return fail
	}
	if cmd.Actor != nil {
		if d := c.AllowGrantPermission(e.store, cmd.Actor); !d.Allowed {
			return cmdFail(protocol.ErrNoPermission, "%s", d.Reason)
		}
	}
	id, err := claim.ParseIdentity(cmd.Target)
	if err != nil {
		return cmdFail(protocol.ErrBadRequest, "target: %v", err)
	}
	lvl, err := claim.ParseTrustLevel(cmd.Level)
	if err != nil {
		return cmdFail(protocol.ErrBadRequest, "level: %v", err)
	}
	e.store.SetClaimPermission(c, id, lvl)
	return CommandResult{OK: true, ClaimID: c.ID}
}

func (e *Engine) cmdUntrust(cmd Command) CommandResult {
	c, fail := e.claimForCommand(cmd.ClaimID)
	if fail.Code != "" {
		return fail
	}
	if cmd.Actor != nil {
		if d := c.AllowGrantPermission(e.store, cmd.Actor); !d.Allowed {
			return cmdFail(protocol.ErrNoPermission, "%s", d.Reason)
		}
	}
	id, err := claim.ParseIdentity(cmd.Target)
	if err != nil {
		return cmdFail(protocol.ErrBadRequest, "target: %v", err)
	}
	e.store.DropClaimPermission(c, id)
	return CommandResult{OK: true, ClaimID: c.ID}
}

func (e *Engine) cmdClearTrust(cmd Command) CommandResult {
	c, fail := e.claimForCommand(cmd.ClaimID)
	if fail.Code != "" {
		return fail
	}
	if cmd.Actor != nil {
		if d := c.AllowEdit(e.store, cmd.Actor); !d.Allowed {
			return cmdFail(protocol.ErrNoPermission, "%s", d.Reason)
		}
	}
	e.store.ClearClaimPermissions(c)
	return CommandResult{OK: true, ClaimID: c.ID}
}

func (e *Engine) cmdManager(cmd Command) CommandResult {
	c, fail := e.claimForCommand(cmd.ClaimID)
	if fail.Code != "" {
		return fail
	}
	if cmd.Actor != nil {
		if d := c.AllowEdit(e.store, cmd.Actor); !d.Allowed {
			return cmdFail(protocol.ErrNoPermission, "%s", d.Reason)
		}
	}
	id, err := claim.ParseIdentity(cmd.Target)
	if err != nil {
		return cmdFail(protocol.ErrBadRequest, "target: %v", err)
	}
	if cmd.Kind == CmdAddManager {
		e.store.AddManager(c, id)
	} else {
		e.store.RemoveManager(c, id)
	}
	return CommandResult{OK: true, ClaimID: c.ID}
}

func (e *Engine) cmdSetFlag(cmd Command) CommandResult {
	c, fail := e.claimForCommand(cmd.ClaimID)
	if fail.Code != "" {
		return fail
	}
	if cmd.Actor != nil {
		if d := c.AllowEdit(e.store, cmd.Actor); !d.Allowed {
			return cmdFail(protocol.ErrNoPermission, "%s", d.Reason)
		}
	}
	switch cmd.Kind {
	case CmdSetDoorsOpen:
		e.store.SetDoorsOpen(c, cmd.Value)
	case CmdRestrictSubclaim:
		if c.ParentID == 0 {
			return cmdFail(protocol.ErrInvalidTarget, "claim %d is not a subdivision", c.ID)
		}
		e.store.SetSubclaimRestriction(c, cmd.Value)
	case CmdSetExplosives:
		e.store.SetExplosivesAllowed(c, cmd.Value)
	}
	return CommandResult{OK: true, ClaimID: c.ID}
}

// dropHints clears cached lookups pointing at a removed claim or its
// subtree. Stale hints are harmless for correctness but keep dead claims
// reachable.
func (e *Engine) dropHints(c *claim.Claim) {
	for k, v := range e.hints {
		if v == c || (v != nil && v.ParentID == c.ID) {
			delete(e.hints, k)
		}
	}
}
