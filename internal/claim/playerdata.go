package claim

import "github.com/google/uuid"

// PlayerRecord is the per-player persisted state the core consults. Accrued
// blocks grow with play time (maintained by the host), bonus blocks are
// admin-granted.
type PlayerRecord struct {
	AccruedBlocks int  `json:"accrued_blocks"`
	BonusBlocks   int  `json:"bonus_blocks"`
	IgnoreClaims  bool `json:"ignore_claims,omitempty"`
}

// BalanceSource answers "how many more blocks may this player claim". The
// core treats it as a pure query and never mutates it; claimed area is
// re-derived from the store.
type BalanceSource interface {
	RemainingBlocks(owner uuid.UUID) int
}

// LedgerBalance derives remaining balance from player records and the
// store's claimed-area sum: accrued + bonus - claimed.
type LedgerBalance struct {
	Store *Store

	// Load fetches the player record; ok=false falls back to Default.
	Load func(owner uuid.UUID) (PlayerRecord, bool)

	// Default is the record assumed for players never seen before.
	Default PlayerRecord
}

func (b LedgerBalance) RemainingBlocks(owner uuid.UUID) int {
	rec := b.Default
	if b.Load != nil {
		if r, ok := b.Load(owner); ok {
			rec = r
		}
	}
	return rec.AccruedBlocks + rec.BonusBlocks - b.Store.ClaimedArea(owner)
}
