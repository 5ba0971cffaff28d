package claimdb

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"landguard/internal/claim"
)

func TestSQLiteDB_ClaimRoundTrip(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "claims.sqlite")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	owner := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	recs := []claim.ClaimRecord{
		{
			ID: 1, World: "world", X1: 0, Z1: 0, X2: 9, Z2: 9,
			Owner:    owner.String(),
			Modified: time.Now().UTC(),
			Permissions: map[string]string{
				"public": "access",
			},
		},
		{
			ID: 2, World: "world", X1: 2, Z1: 2, X2: 4, Z2: 4,
			Owner: owner.String(), ParentID: 1, InheritNothing: true,
			Modified: time.Now().UTC(),
		},
		{
			ID: 3, World: "nether", X1: 50, Z1: 50, X2: 59, Z2: 59,
			Owner:    owner.String(),
			Modified: time.Now().UTC(),
		},
	}
	for _, r := range recs {
		if err := db.SaveClaim(r); err != nil {
			t.Fatalf("save claim %d: %v", r.ID, err)
		}
	}
	if err := db.DeleteClaimRecord(3); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	db, err = Open(dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()

	loaded, err := db.LoadAllClaims()
	if err != nil {
		t.Fatalf("load all: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("want 2 claims after delete, got %d", len(loaded))
	}
	if loaded[0].ID != 1 || loaded[1].ID != 2 {
		t.Fatalf("claims out of order: %+v", loaded)
	}
	if loaded[0].Permissions["public"] != "access" {
		t.Fatalf("permissions lost: %+v", loaded[0].Permissions)
	}
	if !loaded[1].InheritNothing || loaded[1].ParentID != 1 {
		t.Fatalf("subdivision fields lost: %+v", loaded[1])
	}
}

func TestSQLiteDB_SaveClaimOverwrites(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "claims.sqlite")
	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	rec := claim.ClaimRecord{ID: 1, World: "world", X1: 0, Z1: 0, X2: 9, Z2: 9, Modified: time.Now().UTC()}
	if err := db.SaveClaim(rec); err != nil {
		t.Fatalf("save: %v", err)
	}
	rec.X2 = 19
	if err := db.SaveClaim(rec); err != nil {
		t.Fatalf("resave: %v", err)
	}

	// Close flushes the writer batch.
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	db, err = Open(dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()

	loaded, err := db.LoadAllClaims()
	if err != nil {
		t.Fatalf("load all: %v", err)
	}
	if len(loaded) != 1 || loaded[0].X2 != 19 {
		t.Fatalf("resave should overwrite: %+v", loaded)
	}
}

func TestSQLiteDB_PlayerRecords(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "claims.sqlite")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	id := uuid.MustParse("22222222-2222-2222-2222-222222222222")

	if _, ok, err := db.LoadPlayerRecord(id); err != nil || ok {
		t.Fatalf("unknown player: ok=%v err=%v", ok, err)
	}

	want := claim.PlayerRecord{AccruedBlocks: 1500, BonusBlocks: 200, IgnoreClaims: true}
	if err := db.SavePlayerRecord(id, want); err != nil {
		t.Fatalf("save player: %v", err)
	}

	// The in-memory shadow serves reads before the batch commits.
	got, ok, err := db.LoadPlayerRecord(id)
	if err != nil || !ok || got != want {
		t.Fatalf("read-after-write: ok=%v err=%v got=%+v", ok, err, got)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	db, err = Open(dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()

	got, ok, err = db.LoadPlayerRecord(id)
	if err != nil || !ok || got != want {
		t.Fatalf("after reopen: ok=%v err=%v got=%+v", ok, err, got)
	}
}
