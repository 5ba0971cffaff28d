package claim

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// ClaimRecord is the serializable form of a claim handed to the persistence
// collaborator. Identities and trust levels travel in their string forms;
// the storage layer stays ignorant of the core types.
type ClaimRecord struct {
	ID                int64             `json:"id"`
	World             string            `json:"world"`
	X1                int               `json:"x1"`
	Z1                int               `json:"z1"`
	X2                int               `json:"x2"`
	Z2                int               `json:"z2"`
	Owner             string            `json:"owner,omitempty"` // empty = administrative claim
	ParentID          int64             `json:"parent_id,omitempty"`
	InheritNothing    bool              `json:"inherit_nothing,omitempty"`
	ExplosivesAllowed bool              `json:"explosives_allowed,omitempty"`
	Permissions       map[string]string `json:"permissions,omitempty"`
	Managers          []string          `json:"managers,omitempty"`
	Modified          time.Time         `json:"modified"`
}

// ExportRecord snapshots a claim for persistence. Permission keys are sorted
// only implicitly by the map encoding downstream; the record itself carries
// a plain map.
func (s *Store) ExportRecord(c *Claim) ClaimRecord {
	rec := ClaimRecord{
		ID:                c.ID,
		World:             c.World,
		X1:                c.Lesser.X,
		Z1:                c.Lesser.Z,
		X2:                c.Greater.X,
		Z2:                c.Greater.Z,
		ParentID:          c.ParentID,
		InheritNothing:    c.InheritNothing,
		ExplosivesAllowed: c.ExplosivesAllowed,
		Modified:          c.Modified,
	}
	if c.Owner != uuid.Nil {
		rec.Owner = c.Owner.String()
	}
	if len(c.permissions) > 0 {
		rec.Permissions = make(map[string]string, len(c.permissions))
		c.forEachPermission(func(id Identity, lvl TrustLevel) {
			rec.Permissions[id.String()] = lvl.String()
		})
	}
	for _, m := range c.Managers {
		rec.Managers = append(rec.Managers, m.String())
	}
	return rec
}

// ExportAll snapshots every registered claim in stable listing order.
func (s *Store) ExportAll() []ClaimRecord {
	out := make([]ClaimRecord, 0, len(s.ordered))
	for _, c := range s.ordered {
		out = append(out, s.ExportRecord(c))
	}
	return out
}

// LoadAll rebuilds the store from persisted records: top-level claims first,
// then subdivisions linked to their parents. Records referencing a missing
// parent are rejected. Must be called on an empty store before the engine
// loop starts.
func (s *Store) LoadAll(records []ClaimRecord) error {
	if len(s.claims) != 0 {
		panic("LoadAll on a non-empty store")
	}

	sorted := append([]ClaimRecord(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if (sorted[i].ParentID == 0) != (sorted[j].ParentID == 0) {
			return sorted[i].ParentID == 0
		}
		return sorted[i].ID < sorted[j].ID
	})

	for _, rec := range sorted {
		c, err := claimFromRecord(rec)
		if err != nil {
			return fmt.Errorf("claim %d: %w", rec.ID, err)
		}
		if rec.ParentID != 0 {
			p := s.claims[rec.ParentID]
			if p == nil {
				return fmt.Errorf("claim %d: parent %d not found", rec.ID, rec.ParentID)
			}
			if p.ParentID != 0 {
				return fmt.Errorf("claim %d: parent %d is itself a subdivision", rec.ID, rec.ParentID)
			}
			c.Owner = p.Owner
			p.ChildIDs = append(p.ChildIDs, c.ID)
		}
		s.register(c)
		if c.ID >= s.nextID {
			s.nextID = c.ID + 1
		}
	}
	return nil
}

func claimFromRecord(rec ClaimRecord) (*Claim, error) {
	if rec.ID <= 0 {
		return nil, fmt.Errorf("invalid id %d", rec.ID)
	}
	if rec.World == "" {
		return nil, fmt.Errorf("empty world")
	}
	lesser, greater := normalizeCorners(rec.X1, rec.X2, rec.Z1, rec.Z2)

	owner := uuid.Nil
	if rec.Owner != "" {
		id, err := uuid.Parse(rec.Owner)
		if err != nil {
			return nil, fmt.Errorf("owner: %w", err)
		}
		owner = id
	}

	c := newClaim(rec.World, lesser, greater, owner)
	c.ID = rec.ID
	c.ParentID = rec.ParentID
	c.InheritNothing = rec.InheritNothing
	c.ExplosivesAllowed = rec.ExplosivesAllowed
	if !rec.Modified.IsZero() {
		c.Modified = rec.Modified
	}

	for key, val := range rec.Permissions {
		id, err := ParseIdentity(key)
		if err != nil {
			return nil, fmt.Errorf("permission key: %w", err)
		}
		lvl, err := ParseTrustLevel(val)
		if err != nil {
			return nil, fmt.Errorf("permission %q: %w", key, err)
		}
		c.permissions[id] = lvl
	}
	for _, m := range rec.Managers {
		id, err := ParseIdentity(m)
		if err != nil {
			return nil, fmt.Errorf("manager: %w", err)
		}
		c.Managers = append(c.Managers, id)
	}
	return c, nil
}
