package rules

import "landguard/internal/claim"

func (e *Engine) decide(ev Event) Verdict {
	if !e.claimsEnabled(ev.World) {
		if ev.Kind == EventExplosion {
			return Verdict{Allowed: true, Blocks: ev.Blocks}
		}
		return allow()
	}

	switch ev.Kind {
	case EventBreak, EventPlace, EventContainer, EventInteract:
		return e.decideActor(ev)
	case EventFluid:
		return e.decideFluid(ev)
	case EventExplosion:
		return e.decideExplosion(ev)
	case EventPistonExtend, EventPistonRetract:
		return e.decidePiston(ev)
	}
	return deny("unknown event kind")
}

// decideActor arbitrates the four actor-driven event kinds. Unclaimed land
// allows everything; inside a claim the trust resolution decides.
func (e *Engine) decideActor(ev Event) Verdict {
	c := e.store.ClaimAt(ev.Pos.In(ev.World), e.hintFor(ev.Actor))
	if c == nil {
		return allow()
	}
	e.rememberHint(ev.Actor, c)

	var d claim.Decision
	switch ev.Kind {
	case EventBreak:
		d = c.AllowBreak(e.store, ev.Actor)
	case EventPlace:
		d = c.AllowBuild(e.store, ev.Actor)
	case EventContainer:
		d = c.AllowContainers(e.store, ev.Actor)
	case EventInteract:
		d = c.AllowAccess(e.store, ev.Actor)
	}
	if d.Allowed {
		return allow()
	}
	return deny(d.Reason)
}

// decideFluid keeps fluids from flowing into a claim from outside it. The
// one exception is parent area feeding its own subdivision.
func (e *Engine) decideFluid(ev Event) Verdict {
	// Straight down never crosses a horizontal claim boundary.
	if ev.Pos.X == ev.From.X && ev.Pos.Z == ev.From.Z && ev.Pos.Y < ev.From.Y {
		return allow()
	}

	to := e.store.ClaimAt(ev.Pos.In(ev.World), e.lastFluid)
	if to == nil {
		return allow()
	}
	e.lastFluid = to

	from := ev.From.In(ev.World)
	if to.ContainsExcludingChildren(e.store, from) {
		return allow()
	}
	if to.ParentID != 0 {
		if p := e.store.ClaimByID(to.ParentID); p != nil && p.Contains(e.store, from) {
			return allow()
		}
	}
	return deny("fluid may not flow into a claim from outside")
}

// decideExplosion filters the damage list rather than cancelling: claimed
// blocks are pulled out unless the root claim opted into explosions, and
// unclaimed blocks near the surface are pulled out when surface rules apply.
// The verdict is always Allowed; a fully protected blast just damages
// nothing.
func (e *Engine) decideExplosion(ev Event) Verdict {
	surviving := make([]claim.BlockPos, 0, len(ev.Blocks))
	var last *claim.Claim
	for _, b := range ev.Blocks {
		c := e.store.ClaimAt(b.In(ev.World), last)
		if c != nil {
			last = c
			if e.explosivesAllowed(c) || !e.cfg.BlockClaimExplosions {
				surviving = append(surviving, b)
			}
			continue
		}
		if !e.cfg.BlockSurfaceExplosions || !ev.Surface || b.Y < e.cfg.SeaLevel-7 {
			surviving = append(surviving, b)
		}
	}
	return Verdict{Allowed: true, Blocks: surviving}
}

// explosivesAllowed resolves the flag at the root; subdivisions delegate.
func (e *Engine) explosivesAllowed(c *claim.Claim) bool {
	if c.ParentID != 0 {
		if p := e.store.ClaimByID(c.ParentID); p != nil {
			return e.explosivesAllowed(p)
		}
	}
	return c.ExplosivesAllowed
}

func (e *Engine) decidePiston(ev Event) Verdict {
	mv := claim.PistonMove{
		World:      ev.World,
		Piston:     ev.Pos,
		Facing:     ev.Facing,
		Retracting: ev.Kind == EventPistonRetract,
		Sticky:     ev.Sticky,
		Blocks:     ev.Moved,
	}
	v := e.store.CheckPistonMove(e.cfg.PistonMode, mv)
	if v.Allowed {
		return allow()
	}

	out := deny("piston movement crosses a claim boundary")
	if v.DestroyPiston {
		out.PistonDestroyed = true
		if e.world != nil {
			e.world.SetAir(ev.World, ev.Pos)
			e.world.DropPistonItem(ev.World, ev.Pos)
			e.world.ZeroYieldBlast(ev.World, ev.Pos)
		}
	}
	return out
}
