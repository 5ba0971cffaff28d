package rules

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"landguard/internal/claim"
)

// Config carries the arbitration policy knobs.
type Config struct {
	PistonMode claim.PistonMode

	// ClaimsEnabled maps world ids to the per-world claims toggle; worlds
	// absent from the map use ClaimsEnabledDefault. Events in a disabled
	// world are allowed without any lookup.
	ClaimsEnabled        map[string]bool
	ClaimsEnabledDefault bool

	// BlockClaimExplosions keeps claimed blocks out of explosion damage
	// lists unless the root claim opted in.
	BlockClaimExplosions bool

	// BlockSurfaceExplosions protects unclaimed blocks near the surface from
	// explosions flagged Surface. SeaLevel anchors "near the surface".
	BlockSurfaceExplosions bool
	SeaLevel               int
}

func (c *Config) applyDefaults() {
	if c.SeaLevel == 0 {
		c.SeaLevel = 63
	}
}

type eventEnvelope struct {
	Event Event
	Resp  chan Verdict
}

type commandEnvelope struct {
	Cmd  Command
	Resp chan CommandResult
}

type statsReq struct {
	Resp chan Stats
}

type snapshotReq struct {
	Resp chan []claim.ClaimRecord
}

// Stats is a point-in-time counter snapshot for the admin surface.
type Stats struct {
	Claims    int    `json:"claims"`
	Events    uint64 `json:"events"`
	Denials   uint64 `json:"denials"`
	Destroyed uint64 `json:"pistons_destroyed"`
}

// Engine is the single-threaded arbitration loop. It owns the Store; all
// state must be accessed only from the engine goroutine. Transports hand
// envelopes over channels and wait on reply channels.
type Engine struct {
	cfg   Config
	store *claim.Store

	inbox chan eventEnvelope
	cmds  chan commandEnvelope
	stats chan statsReq
	snaps chan snapshotReq
	stop  chan struct{}

	// Optional collaborators (may be nil). Implemented in
	// internal/persistence/* and the host adapter.
	world WorldMutator
	audit AuditLogger
	log   *log.Logger

	// One-entry lookup caches threaded between consecutive events.
	// Engine-goroutine only.
	hints     map[uuid.UUID]*claim.Claim
	lastFluid *claim.Claim

	counters Stats
}

func New(cfg Config, store *claim.Store) *Engine {
	cfg.applyDefaults()
	return &Engine{
		cfg:   cfg,
		store: store,
		inbox: make(chan eventEnvelope, 1024),
		cmds:  make(chan commandEnvelope, 64),
		stats: make(chan statsReq, 8),
		snaps: make(chan snapshotReq, 8),
		stop:  make(chan struct{}),
		hints: map[uuid.UUID]*claim.Claim{},
	}
}

func (e *Engine) SetWorldMutator(m WorldMutator) { e.world = m }
func (e *Engine) SetAuditLogger(a AuditLogger)   { e.audit = a }
func (e *Engine) SetLogger(l *log.Logger)        { e.log = l }

func (e *Engine) logf(format string, args ...any) {
	if e.log != nil {
		e.log.Printf(format, args...)
	}
}

// Run processes envelopes until the context is cancelled or Stop is called.
// Unlike a tick-driven world loop there is no batching: every event is
// answered as it arrives, in receive order.
func (e *Engine) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.stop:
			return nil
		case env := <-e.inbox:
			v := e.decide(env.Event)
			e.counters.Events++
			if !v.Allowed && env.Event.Kind != EventExplosion {
				e.counters.Denials++
			}
			if v.PistonDestroyed {
				e.counters.Destroyed++
			}
			e.auditEvent(env.Event, v)
			if env.Resp != nil {
				env.Resp <- v
			}
		case env := <-e.cmds:
			res := e.applyCommand(env.Cmd)
			e.auditCommand(env.Cmd, res)
			if env.Resp != nil {
				env.Resp <- res
			}
		case req := <-e.stats:
			s := e.counters
			s.Claims = e.store.Count()
			req.Resp <- s
		case req := <-e.snaps:
			req.Resp <- e.store.ExportAll()
		}
	}
}

func (e *Engine) Stop() { close(e.stop) }

// Submit arbitrates one event, blocking until the engine answers.
func (e *Engine) Submit(ctx context.Context, ev Event) (Verdict, error) {
	resp := make(chan Verdict, 1)
	select {
	case e.inbox <- eventEnvelope{Event: ev, Resp: resp}:
	case <-ctx.Done():
		return Verdict{}, ctx.Err()
	}
	select {
	case v := <-resp:
		return v, nil
	case <-ctx.Done():
		return Verdict{}, ctx.Err()
	}
}

// Apply runs one claim-management command on the engine goroutine.
func (e *Engine) Apply(ctx context.Context, cmd Command) (CommandResult, error) {
	resp := make(chan CommandResult, 1)
	select {
	case e.cmds <- commandEnvelope{Cmd: cmd, Resp: resp}:
	case <-ctx.Done():
		return CommandResult{}, ctx.Err()
	}
	select {
	case res := <-resp:
		return res, nil
	case <-ctx.Done():
		return CommandResult{}, ctx.Err()
	}
}

// CurrentStats reads the counter snapshot through the loop.
func (e *Engine) CurrentStats(ctx context.Context) (Stats, error) {
	resp := make(chan Stats, 1)
	select {
	case e.stats <- statsReq{Resp: resp}:
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	}
	select {
	case s := <-resp:
		return s, nil
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	}
}

// SnapshotClaims exports every claim record through the loop.
func (e *Engine) SnapshotClaims(ctx context.Context) ([]claim.ClaimRecord, error) {
	resp := make(chan []claim.ClaimRecord, 1)
	select {
	case e.snaps <- snapshotReq{Resp: resp}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case recs := <-resp:
		return recs, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (e *Engine) claimsEnabled(world string) bool {
	if v, ok := e.cfg.ClaimsEnabled[world]; ok {
		return v
	}
	return e.cfg.ClaimsEnabledDefault
}

// hintFor threads the per-actor one-entry cache. Stale entries are inert
// (the store checks registration) but still worth dropping eventually.
func (e *Engine) hintFor(a *claim.Actor) *claim.Claim {
	if a == nil {
		return nil
	}
	return e.hints[a.ID]
}

func (e *Engine) rememberHint(a *claim.Actor, c *claim.Claim) {
	if a == nil || c == nil {
		return
	}
	if len(e.hints) > 4096 {
		e.hints = map[uuid.UUID]*claim.Claim{}
	}
	e.hints[a.ID] = c
}

func (e *Engine) auditEvent(ev Event, v Verdict) {
	if e.audit == nil {
		return
	}
	if v.Allowed && !v.PistonDestroyed {
		return
	}
	entry := AuditEntry{
		Time:    time.Now(),
		Kind:    string(ev.Kind),
		World:   ev.World,
		Pos:     [3]int{ev.Pos.X, ev.Pos.Y, ev.Pos.Z},
		Allowed: v.Allowed,
		Reason:  v.Reason,
	}
	if ev.Actor != nil {
		entry.Actor = ev.Actor.ID.String()
	}
	if err := e.audit.WriteAudit(entry); err != nil {
		e.logf("auditlog: %v", err)
	}
}

func (e *Engine) auditCommand(cmd Command, res CommandResult) {
	if e.audit == nil {
		return
	}
	entry := AuditEntry{
		Time:    time.Now(),
		Kind:    string(cmd.Kind),
		World:   cmd.World,
		Allowed: res.OK,
		Reason:  res.Message,
		ClaimID: res.ClaimID,
	}
	if cmd.Actor != nil {
		entry.Actor = cmd.Actor.ID.String()
	}
	if err := e.audit.WriteAudit(entry); err != nil {
		e.logf("auditlog: %v", err)
	}
}
