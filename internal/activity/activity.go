// Package activity merges player discovery scans and GM claim transactions
// into one token-centric timeline. A token can be discovered then claimed,
// claimed without ever being discovered (GM-only), or discovered and left
// unclaimed; the report covers all three.
package activity

import (
	"sort"

	"github.com/maxepunk/ALNScanner-sub001/internal/game"
	"github.com/maxepunk/ALNScanner-sub001/internal/token"
)

// Token statuses in the report.
const (
	StatusAvailable = "available"
	StatusClaimed   = "claimed"
)

// Event kinds within a token timeline.
const (
	EventDiscovery = "discovery"
	EventScan      = "scan"
	EventClaim     = "claim"
)

// Event is one timeline entry for a token.
type Event struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
	DeviceID  string `json:"deviceId,omitempty"`
	TeamID    string `json:"teamId,omitempty"`
}

// Token is the merged lifecycle of one token.
type Token struct {
	TokenID             string  `json:"tokenId"`
	Status              string  `json:"status"`
	MemoryType          string  `json:"memoryType,omitempty"`
	ValueRating         int     `json:"valueRating,omitempty"`
	DiscoveredByPlayers bool    `json:"discoveredByPlayers"`
	Events              []Event `json:"events"`
}

// Stats aggregates the report. TotalPlayerScans counts raw scan inputs,
// duplicates included.
type Stats struct {
	TotalTokens             int `json:"totalTokens"`
	Available               int `json:"available"`
	Claimed                 int `json:"claimed"`
	ClaimedWithoutDiscovery int `json:"claimedWithoutDiscovery"`
	TotalPlayerScans        int `json:"totalPlayerScans"`
}

// Report is the full game activity view.
type Report struct {
	Tokens []Token `json:"tokens"`
	Stats  Stats   `json:"stats"`
}

// Filter selects which transactions participate in the timeline.
type Filter func(game.Transaction) bool

// AcceptedOnly is the usual filter: accepted transactions only.
func AcceptedOnly(tx game.Transaction) bool { return tx.Accepted() }

// Build produces the merged report. Scans are processed in input order: the
// first scan of a token is its discovery, later scans are plain scan events.
// Transactions then claim tokens; a claim always wins over available. Token
// metadata for claims without a prior discovery comes from the lookup,
// falling back to the transaction's own fields when the lookup misses.
func Build(scans []game.PlayerScan, txs []game.Transaction, filter Filter, lookup token.Lookup) Report {
	if filter == nil {
		filter = AcceptedOnly
	}

	byID := make(map[string]*Token)
	var order []string

	entry := func(tokenID string) *Token {
		t, ok := byID[tokenID]
		if !ok {
			t = &Token{TokenID: tokenID}
			byID[tokenID] = t
			order = append(order, tokenID)
		}
		return t
	}

	for _, s := range scans {
		t, seen := byID[s.TokenID]
		if !seen {
			t = entry(s.TokenID)
			t.Status = StatusAvailable
			t.DiscoveredByPlayers = true
			t.MemoryType = s.MemoryType
			t.ValueRating = s.ValueRating
			t.Events = append(t.Events, Event{
				Type:      EventDiscovery,
				Timestamp: s.Timestamp,
				DeviceID:  s.DeviceID,
			})
			continue
		}
		t.Events = append(t.Events, Event{
			Type:      EventScan,
			Timestamp: s.Timestamp,
			DeviceID:  s.DeviceID,
		})
	}

	for _, tx := range txs {
		if !filter(tx) {
			continue
		}
		t, seen := byID[tx.TokenID]
		if !seen {
			t = entry(tx.TokenID)
			t.DiscoveredByPlayers = false
			t.MemoryType = tx.MemoryType
			t.ValueRating = tx.ValueRating
			if lookup != nil {
				if rec := lookup.FindToken(tx.TokenID); rec != nil {
					t.MemoryType = rec.MemoryType
					t.ValueRating = rec.ValueRating
				}
			}
		}
		t.Status = StatusClaimed
		t.Events = append(t.Events, Event{
			Type:      EventClaim,
			Timestamp: tx.Timestamp,
			DeviceID:  tx.DeviceID,
			TeamID:    tx.TeamID,
		})
	}

	report := Report{Tokens: make([]Token, 0, len(order))}
	for _, id := range order {
		t := byID[id]
		sort.SliceStable(t.Events, func(i, j int) bool {
			return t.Events[i].Timestamp < t.Events[j].Timestamp
		})
		report.Tokens = append(report.Tokens, *t)

		report.Stats.TotalTokens++
		switch t.Status {
		case StatusAvailable:
			report.Stats.Available++
		case StatusClaimed:
			report.Stats.Claimed++
			if !t.DiscoveredByPlayers {
				report.Stats.ClaimedWithoutDiscovery++
			}
		}
	}
	report.Stats.TotalPlayerScans = len(scans)
	return report
}
