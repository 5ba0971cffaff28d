package claimdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"landguard/internal/claim"
)

// SQLiteDB persists claims and player ledgers. Writes are applied by a
// single writer goroutine in batched transactions; reads are served
// directly, with player records shadowed in memory so a read always sees
// the latest save even while a batch is open.
type SQLiteDB struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	mu      sync.Mutex
	players map[uuid.UUID]claim.PlayerRecord
}

type reqKind int

const (
	reqSaveClaim reqKind = iota + 1
	reqDeleteClaim
	reqSavePlayer
)

type req struct {
	kind reqKind

	claim    claim.ClaimRecord
	claimID  int64
	playerID uuid.UUID
	player   claim.PlayerRecord
}

func Open(path string) (*SQLiteDB, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteDB{
		db:      db,
		ch:      make(chan req, 4096),
		players: make(map[uuid.UUID]claim.PlayerRecord),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS claims (
			id INTEGER PRIMARY KEY,
			world TEXT NOT NULL,
			owner TEXT,
			parent_id INTEGER NOT NULL DEFAULT 0,
			raw_json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_claims_world ON claims(world);`,
		`CREATE INDEX IF NOT EXISTS idx_claims_owner ON claims(owner);`,
		`CREATE TABLE IF NOT EXISTS players (
			id TEXT PRIMARY KEY,
			accrued_blocks INTEGER NOT NULL,
			bonus_blocks INTEGER NOT NULL,
			ignore_claims INTEGER NOT NULL DEFAULT 0,
			updated_at TEXT NOT NULL
		);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes the write queue and closes the database.
func (s *SQLiteDB) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteDB) SaveClaim(rec claim.ClaimRecord) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	// Blocking send: claim state has no other copy on disk.
	s.ch <- req{kind: reqSaveClaim, claim: rec}
	return nil
}

func (s *SQLiteDB) DeleteClaimRecord(id int64) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	s.ch <- req{kind: reqDeleteClaim, claimID: id}
	return nil
}

func (s *SQLiteDB) SavePlayerRecord(id uuid.UUID, rec claim.PlayerRecord) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	s.mu.Lock()
	s.players[id] = rec
	s.mu.Unlock()
	s.ch <- req{kind: reqSavePlayer, playerID: id, player: rec}
	return nil
}

func (s *SQLiteDB) LoadPlayerRecord(id uuid.UUID) (claim.PlayerRecord, bool, error) {
	if s == nil {
		return claim.PlayerRecord{}, false, nil
	}
	s.mu.Lock()
	if rec, ok := s.players[id]; ok {
		s.mu.Unlock()
		return rec, true, nil
	}
	s.mu.Unlock()

	var rec claim.PlayerRecord
	var ignore int
	err := s.db.QueryRow(
		`SELECT accrued_blocks, bonus_blocks, ignore_claims FROM players WHERE id = ?`,
		id.String(),
	).Scan(&rec.AccruedBlocks, &rec.BonusBlocks, &ignore)
	if err == sql.ErrNoRows {
		return claim.PlayerRecord{}, false, nil
	}
	if err != nil {
		return claim.PlayerRecord{}, false, err
	}
	rec.IgnoreClaims = ignore != 0

	s.mu.Lock()
	s.players[id] = rec
	s.mu.Unlock()
	return rec, true, nil
}

// LoadAllClaims reads every persisted claim. Called once at startup before
// the writer receives any traffic.
func (s *SQLiteDB) LoadAllClaims() ([]claim.ClaimRecord, error) {
	rows, err := s.db.Query(`SELECT raw_json FROM claims ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []claim.ClaimRecord
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var rec claim.ClaimRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("claim row: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteDB) loop() {
	ctx := context.Background()

	insertClaim, _ := s.db.Prepare(`INSERT OR REPLACE INTO claims(id,world,owner,parent_id,raw_json,updated_at) VALUES(?,?,?,?,?,?)`)
	deleteClaim, _ := s.db.Prepare(`DELETE FROM claims WHERE id = ?`)
	insertPlayer, _ := s.db.Prepare(`INSERT OR REPLACE INTO players(id,accrued_blocks,bonus_blocks,ignore_claims,updated_at) VALUES(?,?,?,?,?)`)
	defer func() {
		if insertClaim != nil {
			_ = insertClaim.Close()
		}
		if deleteClaim != nil {
			_ = deleteClaim.Close()
		}
		if insertPlayer != nil {
			_ = insertPlayer.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 256
		commitMaxWait = 500 * time.Millisecond
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	flushIfNeeded := func() {
		if tx == nil {
			return
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		now := time.Now().UTC().Format(time.RFC3339Nano)
		switch r.kind {
		case reqSaveClaim:
			raw, _ := json.Marshal(r.claim)
			if insertClaim != nil {
				if _, err := tx.Stmt(insertClaim).Exec(
					r.claim.ID,
					r.claim.World,
					r.claim.Owner,
					r.claim.ParentID,
					string(raw),
					now,
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}

		case reqDeleteClaim:
			if deleteClaim != nil {
				if _, err := tx.Stmt(deleteClaim).Exec(r.claimID); err != nil {
					rollback()
					continue
				}
				opCount++
			}

		case reqSavePlayer:
			ignore := 0
			if r.player.IgnoreClaims {
				ignore = 1
			}
			if insertPlayer != nil {
				if _, err := tx.Stmt(insertPlayer).Exec(
					r.playerID.String(),
					r.player.AccruedBlocks,
					r.player.BonusBlocks,
					ignore,
					now,
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}
		}
		flushIfNeeded()
	}

	commit()
}
