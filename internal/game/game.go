// Package game holds the domain types shared by the ledger strategies,
// the activity builder and the station API.
package game

// Game modes. Only black market scans score; detective scans are recorded
// for evidence tracking and never contribute points.
const (
	ModeBlackMarket = "blackmarket"
	ModeDetective   = "detective"
)

// Transaction statuses. Only accepted transactions count toward scores and
// duplicate prevention.
const StatusAccepted = "accepted"

// Session statuses.
const (
	SessionActive    = "active"
	SessionPaused    = "paused"
	SessionCompleted = "completed"
)

// Transaction is a single token claim recorded by a GM.
type Transaction struct {
	ID          string `json:"id"`
	TokenID     string `json:"tokenId"`
	TeamID      string `json:"teamId"`
	DeviceID    string `json:"deviceId,omitempty"`
	Mode        string `json:"mode"`
	ValueRating int    `json:"valueRating"`
	MemoryType  string `json:"memoryType"`
	Group       string `json:"group,omitempty"`
	Points      int    `json:"points"`
	IsUnknown   bool   `json:"isUnknown"`
	Timestamp   string `json:"timestamp"`
	Status      string `json:"status"`
}

// Accepted reports whether the transaction counts toward scores and the
// duplicate-prevention set.
func (t Transaction) Accepted() bool { return t.Status == StatusAccepted }

// Adjustment is a manual GM score correction. Reason is mandatory so the
// audit trail stays meaningful.
type Adjustment struct {
	Delta     int    `json:"delta"`
	Reason    string `json:"reason"`
	Timestamp string `json:"timestamp"`
}

// TeamScore is the running score state for one team.
//
// Invariant: Score == BaseScore + BonusPoints + sum of adjustment deltas.
// After any transaction removal the whole row is recomputed from the
// surviving transactions, never patched by subtraction.
type TeamScore struct {
	TeamID          string          `json:"teamId"`
	BaseScore       int             `json:"baseScore"`
	BonusPoints     int             `json:"bonusPoints"`
	Score           int             `json:"score"`
	TokensScanned   int             `json:"tokensScanned"`
	CompletedGroups map[string]bool `json:"completedGroups"`
	Adjustments     []Adjustment    `json:"adminAdjustments"`
	LastUpdate      string          `json:"lastUpdate,omitempty"`
}

// AdjustmentTotal sums the deltas of all admin adjustments.
func (t TeamScore) AdjustmentTotal() int {
	total := 0
	for _, a := range t.Adjustments {
		total += a.Delta
	}
	return total
}

// Clone returns a deep copy so read snapshots never alias ledger state.
func (t TeamScore) Clone() TeamScore {
	out := t
	out.CompletedGroups = make(map[string]bool, len(t.CompletedGroups))
	for g := range t.CompletedGroups {
		out.CompletedGroups[g] = true
	}
	out.Adjustments = append([]Adjustment(nil), t.Adjustments...)
	return out
}

// PlayerScan is a discovery event reported by a player device. It never
// scores; it only feeds the activity timeline. Offline sessions have none.
type PlayerScan struct {
	ID          string `json:"id"`
	TokenID     string `json:"tokenId"`
	DeviceID    string `json:"deviceId"`
	Timestamp   string `json:"timestamp"`
	MemoryType  string `json:"memoryType,omitempty"`
	ValueRating int    `json:"valueRating,omitempty"`
}

// Session is one game session. A completed session is immutable.
type Session struct {
	ID        string   `json:"sessionId"`
	Name      string   `json:"name"`
	Status    string   `json:"status"`
	StartTime string   `json:"startTime"`
	EndTime   string   `json:"endTime,omitempty"`
	PausedAt  string   `json:"pausedAt,omitempty"`
	Teams     []string `json:"teams,omitempty"`
}
