// Package token is the read-only token metadata database: lookups by ID,
// the full record list, and the group inventory keyed by normalized group
// name. Records come from the shared token JSON file, whose raw fields use
// the SF_ prefix.
package token

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/maxepunk/ALNScanner-sub001/internal/scoring"
)

// Record is one token's metadata.
type Record struct {
	ID          string `json:"id"`
	MemoryType  string `json:"SF_MemoryType"`
	ValueRating int    `json:"SF_ValueRating"`
	Group       string `json:"SF_Group,omitempty"`
}

// Group is one entry of the group inventory: the display name and multiplier
// from the raw label, plus every token ID carrying that group.
type Group struct {
	DisplayName string
	Multiplier  int
	Tokens      map[string]bool
}

// Scoreable reports whether completing the group can ever award a bonus:
// it needs more than one member and a multiplier above 1.
func (g *Group) Scoreable() bool {
	return len(g.Tokens) > 1 && g.Multiplier > 1
}

// Lookup is the read-only view the ledgers and the activity builder consume.
type Lookup interface {
	FindToken(id string) *Record
	AllTokens() []Record
	GroupInventory() map[string]*Group
}

// Database is an immutable in-memory token database.
type Database struct {
	byID   map[string]*Record
	all    []Record
	groups map[string]*Group
}

var _ Lookup = (*Database)(nil)

// New builds a database from records, indexing tokens and deriving the
// group inventory. Records without a group are loose tokens and appear in
// no inventory entry.
func New(records []Record) *Database {
	db := &Database{
		byID:   make(map[string]*Record, len(records)),
		all:    append([]Record(nil), records...),
		groups: make(map[string]*Group),
	}
	sort.SliceStable(db.all, func(i, j int) bool { return db.all[i].ID < db.all[j].ID })

	for i := range db.all {
		rec := &db.all[i]
		db.byID[rec.ID] = rec
		if rec.Group == "" {
			continue
		}
		label := scoring.ParseGroupLabel(rec.Group)
		key := scoring.NormalizeGroupName(label.Name)
		g, ok := db.groups[key]
		if !ok {
			g = &Group{
				DisplayName: label.Name,
				Multiplier:  label.Multiplier,
				Tokens:      make(map[string]bool),
			}
			db.groups[key] = g
		}
		// Labels should agree across members; keep the highest multiplier
		// if the raw data disagrees.
		if label.Multiplier > g.Multiplier {
			g.Multiplier = label.Multiplier
		}
		g.Tokens[rec.ID] = true
	}
	return db
}

// LoadFile reads a token database JSON file: an object keyed by token ID
// whose values carry the SF_ metadata fields.
func LoadFile(path string) (*Database, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading token database: %w", err)
	}
	var raw map[string]Record
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing token database: %w", err)
	}
	records := make([]Record, 0, len(raw))
	for id, rec := range raw {
		rec.ID = id
		records = append(records, rec)
	}
	return New(records), nil
}

// FindToken returns the record for id, or nil when the token is not in the
// database.
func (d *Database) FindToken(id string) *Record {
	return d.byID[id]
}

// AllTokens returns every record, sorted by ID.
func (d *Database) AllTokens() []Record {
	return append([]Record(nil), d.all...)
}

// GroupInventory returns the inventory keyed by normalized group name.
// Callers must treat it as read-only.
func (d *Database) GroupInventory() map[string]*Group {
	return d.groups
}
