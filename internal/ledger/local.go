package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/maxepunk/ALNScanner-sub001/internal/activity"
	"github.com/maxepunk/ALNScanner-sub001/internal/game"
	"github.com/maxepunk/ALNScanner-sub001/internal/scoring"
	"github.com/maxepunk/ALNScanner-sub001/internal/storage"
	"github.com/maxepunk/ALNScanner-sub001/internal/token"
)

// sessionKey is the single durable slot for the station's current session.
const sessionKey = "session/current"

// LocalConfig wires a LocalLedger's collaborators.
type LocalConfig struct {
	Scoring  scoring.Config
	Tokens   token.Lookup
	Store    storage.KV // nil means in-memory only
	Logger   *slog.Logger
	DeviceID string
	// Clock defaults to time.Now. Injected so the daily-reset policy is
	// testable.
	Clock func() time.Time
}

// LocalLedger is the offline, authoritative ledger. It computes scores and
// group bonuses itself and writes the whole session through to the durable
// store after every mutation.
type LocalLedger struct {
	mu       sync.Mutex
	cfg      scoring.Config
	tokens   token.Lookup
	store    storage.KV
	log      *slog.Logger
	clock    func() time.Time
	deviceID string
	broker   *Broker

	session      *game.Session
	transactions []game.Transaction
	teams        map[string]*game.TeamScore
	teamOrder    []string
	scanned      map[string]bool
}

var _ Strategy = (*LocalLedger)(nil)

// localSession is the persisted form: the whole session is the unit of
// durability.
type localSession struct {
	SessionID    string                     `json:"sessionId"`
	Name         string                     `json:"name"`
	Status       string                     `json:"status"`
	StartTime    string                     `json:"startTime"`
	EndTime      string                     `json:"endTime,omitempty"`
	PausedAt     string                     `json:"pausedAt,omitempty"`
	SessionTeams []string                   `json:"sessionTeams,omitempty"`
	Transactions []game.Transaction         `json:"transactions"`
	Teams        map[string]*game.TeamScore `json:"teams"`
	TeamOrder    []string                   `json:"teamOrder"`
	Mode         string                     `json:"mode"`
}

func NewLocalLedger(cfg LocalConfig) *LocalLedger {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &LocalLedger{
		cfg:      cfg.Scoring,
		tokens:   cfg.Tokens,
		store:    cfg.Store,
		log:      cfg.Logger,
		clock:    cfg.Clock,
		deviceID: cfg.DeviceID,
		broker:   NewBroker(),
		teams:    make(map[string]*game.TeamScore),
		scanned:  make(map[string]bool),
	}
}

// Initialize restores the persisted session if it started today (local
// time); anything older is discarded and a fresh session takes its place.
// The daily reset is policy: a scanner left on overnight must not carry
// yesterday's claims into a new game day.
func (l *LocalLedger) Initialize(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.store != nil {
		data, err := l.store.Get(ctx, sessionKey)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			// First boot.
		case err != nil:
			l.log.Warn("reading persisted session failed, starting fresh", "error", err)
		default:
			var saved localSession
			if err := json.Unmarshal(data, &saved); err != nil {
				l.log.Warn("persisted session is corrupt, starting fresh", "error", err)
			} else if l.startedToday(saved.StartTime) {
				l.restoreLocked(saved)
				l.log.Info("restored session", "session", saved.SessionID,
					"transactions", len(saved.Transactions))
				return nil
			} else {
				l.log.Info("discarding stale session", "session", saved.SessionID,
					"started", saved.StartTime)
			}
		}
	}

	day := l.clock().Format("2006-01-02")
	l.newSessionLocked("Session "+day, nil)
	return nil
}

func (l *LocalLedger) startedToday(startTime string) bool {
	start, err := time.Parse(time.RFC3339, startTime)
	if err != nil {
		return false
	}
	now := l.clock()
	y1, m1, d1 := start.In(now.Location()).Date()
	y2, m2, d2 := now.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

func (l *LocalLedger) restoreLocked(saved localSession) {
	l.session = &game.Session{
		ID:        saved.SessionID,
		Name:      saved.Name,
		Status:    saved.Status,
		StartTime: saved.StartTime,
		EndTime:   saved.EndTime,
		PausedAt:  saved.PausedAt,
		Teams:     saved.SessionTeams,
	}
	l.transactions = saved.Transactions
	l.teams = saved.Teams
	if l.teams == nil {
		l.teams = make(map[string]*game.TeamScore)
	}
	l.teamOrder = saved.TeamOrder

	// The scanned set is never persisted on its own; it is rebuilt from
	// the transaction list so the two can never disagree.
	l.scanned = make(map[string]bool)
	for _, tx := range l.transactions {
		if tx.Accepted() {
			l.scanned[tx.TokenID] = true
		}
	}
}

func (l *LocalLedger) newSessionLocked(name string, teams []string) {
	now := l.timestamp()
	l.session = &game.Session{
		ID:        uuid.NewString(),
		Name:      name,
		Status:    game.SessionActive,
		StartTime: now,
		Teams:     teams,
	}
	l.transactions = nil
	l.teams = make(map[string]*game.TeamScore)
	l.teamOrder = nil
	l.scanned = make(map[string]bool)
	for _, teamID := range teams {
		l.ensureTeamLocked(teamID)
	}
	l.persistLocked()
}

func (l *LocalLedger) timestamp() string {
	return l.clock().UTC().Format(time.RFC3339)
}

// AddTransaction validates, enriches and records a token claim, updating
// the claiming team's score. New scans are refused while the session is
// paused or after it ended.
func (l *LocalLedger) AddTransaction(ctx context.Context, tx game.Transaction) (*Submission, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.session == nil {
		return nil, ErrNoSession
	}
	switch l.session.Status {
	case game.SessionPaused:
		return nil, ErrSessionPaused
	case game.SessionCompleted:
		return nil, ErrSessionCompleted
	}
	if strings.TrimSpace(tx.TeamID) == "" {
		return nil, validationf("transaction requires a teamId")
	}
	if strings.TrimSpace(tx.TokenID) == "" {
		return nil, validationf("transaction requires a tokenId")
	}
	if l.scanned[tx.TokenID] {
		return nil, ErrDuplicateToken
	}

	l.enrich(&tx)

	l.transactions = append(l.transactions, tx)
	l.scanned[tx.TokenID] = true

	team := l.ensureTeamLocked(tx.TeamID)
	l.updateTeamScoreLocked(team, tx)

	l.persistLocked()

	txCopy := tx
	teamCopy := team.Clone()
	l.broker.Publish(Event{Type: EventTransactionAdded, Data: txCopy})
	l.broker.Publish(Event{Type: EventScoresUpdated, Data: l.teamScoresLocked()})

	return &Submission{Transaction: &txCopy, TeamScore: &teamCopy}, nil
}

// enrich fills identity, timestamp and token metadata. The ledger is
// authoritative offline, so points are always computed here rather than
// trusted from the caller.
func (l *LocalLedger) enrich(tx *game.Transaction) {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.Timestamp == "" {
		tx.Timestamp = l.timestamp()
	}
	if tx.Status == "" {
		tx.Status = game.StatusAccepted
	}
	if tx.DeviceID == "" {
		tx.DeviceID = l.deviceID
	}

	var rec *token.Record
	if l.tokens != nil {
		rec = l.tokens.FindToken(tx.TokenID)
	}
	if rec != nil {
		tx.MemoryType = rec.MemoryType
		tx.ValueRating = rec.ValueRating
		tx.Group = rec.Group
		tx.IsUnknown = false
	} else if tx.MemoryType == "" {
		tx.MemoryType = "UNKNOWN"
		tx.IsUnknown = true
	}

	if tx.Mode == game.ModeBlackMarket {
		tx.Points = l.cfg.TokenValue(tx.ValueRating, tx.MemoryType, tx.IsUnknown)
	} else {
		tx.Points = 0
	}
}

func (l *LocalLedger) ensureTeamLocked(teamID string) *game.TeamScore {
	if team, ok := l.teams[teamID]; ok {
		return team
	}
	team := &game.TeamScore{
		TeamID:          teamID,
		CompletedGroups: make(map[string]bool),
	}
	l.teams[teamID] = team
	l.teamOrder = append(l.teamOrder, teamID)
	return team
}

// updateTeamScoreLocked applies one accepted transaction to a team's
// running score. Non-scoring transactions (detective mode, zero-value
// tokens) only bump the scan counter.
func (l *LocalLedger) updateTeamScoreLocked(team *game.TeamScore, tx game.Transaction) {
	team.TokensScanned++

	if tx.Mode == game.ModeBlackMarket && tx.Points > 0 {
		team.BaseScore += tx.Points
		if tx.Group != "" {
			l.checkGroupCompletionLocked(team, tx)
		}
	}

	team.Score = team.BaseScore + team.BonusPoints + team.AdjustmentTotal()
	team.LastUpdate = l.timestamp()
}

// checkGroupCompletionLocked awards the group bonus the moment a team has
// claimed every token of a scoreable group. The membership test is set
// containment against the token database's full inventory for the group,
// not a count comparison, so removed or duplicate scans cannot fake a
// completion. Each group is credited once per team.
func (l *LocalLedger) checkGroupCompletionLocked(team *game.TeamScore, tx game.Transaction) {
	label := scoring.ParseGroupLabel(tx.Group)
	if label.Multiplier <= 1 {
		return
	}
	key := scoring.NormalizeGroupName(label.Name)
	if team.CompletedGroups[key] {
		return
	}
	if l.tokens == nil {
		return
	}
	group, ok := l.tokens.GroupInventory()[key]
	if !ok || !group.Scoreable() {
		return
	}

	collected := make(map[string]int)
	for _, t := range l.transactions {
		if t.TeamID != team.TeamID || !t.Accepted() || t.Mode != game.ModeBlackMarket {
			continue
		}
		if scoring.NormalizeGroupName(scoring.ParseGroupLabel(t.Group).Name) != key {
			continue
		}
		collected[t.TokenID] = t.Points
	}

	sum := 0
	for id := range group.Tokens {
		points, ok := collected[id]
		if !ok {
			return
		}
		sum += points
	}

	bonus := (label.Multiplier - 1) * sum
	team.BonusPoints += bonus
	team.CompletedGroups[key] = true
	l.log.Info("group completed", "team", team.TeamID, "group", label.Name, "bonus", bonus)
}

// RemoveTransaction deletes a claim and recomputes the owning team from its
// surviving transactions. Group completion depends on the whole remaining
// set, so the team is replayed from zero rather than patched by
// subtraction. Removal stays available while paused; it is a GM
// administrative action.
func (l *LocalLedger) RemoveTransaction(ctx context.Context, id string) (*Submission, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.session == nil {
		return nil, ErrNoSession
	}
	if l.session.Status == game.SessionCompleted {
		return nil, ErrSessionCompleted
	}

	idx := -1
	for i, tx := range l.transactions {
		if tx.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrTransactionMissing, id)
	}

	removed := l.transactions[idx]
	l.transactions = append(l.transactions[:idx], l.transactions[idx+1:]...)
	delete(l.scanned, removed.TokenID)

	l.recomputeTeamLocked(removed.TeamID)
	l.persistLocked()

	l.broker.Publish(Event{Type: EventTransactionRemoved, Data: removed})
	l.broker.Publish(Event{Type: EventScoresUpdated, Data: l.teamScoresLocked()})

	return &Submission{Transaction: &removed}, nil
}

// recomputeTeamLocked rebuilds a team's score from scratch by replaying its
// remaining transactions in original order. Admin adjustments survive the
// replay.
func (l *LocalLedger) recomputeTeamLocked(teamID string) {
	team, ok := l.teams[teamID]
	if !ok {
		return
	}
	team.BaseScore = 0
	team.BonusPoints = 0
	team.TokensScanned = 0
	team.CompletedGroups = make(map[string]bool)

	for _, tx := range l.transactions {
		if tx.TeamID == teamID && tx.Accepted() {
			l.updateTeamScoreLocked(team, tx)
		}
	}
	team.Score = team.BaseScore + team.BonusPoints + team.AdjustmentTotal()
}

// AdjustTeamScore applies a manual GM correction. A reason is part of the
// contract, not a nicety: the adjustment list is the audit trail.
// Adjustments remain possible while the session is paused.
func (l *LocalLedger) AdjustTeamScore(ctx context.Context, teamID string, delta int, reason string) (*Submission, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.session == nil {
		return nil, ErrNoSession
	}
	if l.session.Status == game.SessionCompleted {
		return nil, ErrSessionCompleted
	}
	if strings.TrimSpace(teamID) == "" {
		return nil, validationf("adjustment requires a teamId")
	}
	if strings.TrimSpace(reason) == "" {
		return nil, validationf("adjustment reason is required")
	}

	team := l.ensureTeamLocked(teamID)
	team.Adjustments = append(team.Adjustments, game.Adjustment{
		Delta:     delta,
		Reason:    reason,
		Timestamp: l.timestamp(),
	})
	team.Score = team.BaseScore + team.BonusPoints + team.AdjustmentTotal()
	team.LastUpdate = l.timestamp()

	l.persistLocked()

	teamCopy := team.Clone()
	l.broker.Publish(Event{Type: EventScoreAdjusted, Data: teamCopy})
	l.broker.Publish(Event{Type: EventScoresUpdated, Data: l.teamScoresLocked()})

	return &Submission{TeamScore: &teamCopy}, nil
}

func (l *LocalLedger) Transactions() []game.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]game.Transaction(nil), l.transactions...)
}

func (l *LocalLedger) TeamScores() []game.TeamScore {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.teamScoresLocked()
}

// teamScoresLocked snapshots rows in first-seen team order, then sorts by
// score descending. The stable sort keeps insertion order for ties.
func (l *LocalLedger) teamScoresLocked() []game.TeamScore {
	rows := make([]game.TeamScore, 0, len(l.teamOrder))
	for _, teamID := range l.teamOrder {
		rows = append(rows, l.teams[teamID].Clone())
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Score > rows[j].Score })
	return rows
}

func (l *LocalLedger) GameActivity() activity.Report {
	l.mu.Lock()
	txs := append([]game.Transaction(nil), l.transactions...)
	l.mu.Unlock()
	// No player discovery channel exists offline; the timeline is claims
	// only.
	return activity.Build(nil, txs, activity.AcceptedOnly, l.tokens)
}

// CreateSession discards the current session and starts a new one. Teams
// listed up front get zeroed score rows in that order.
func (l *LocalLedger) CreateSession(ctx context.Context, name string, teams []string) (*game.Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if strings.TrimSpace(name) == "" {
		name = "Session " + l.clock().Format("2006-01-02")
	}
	l.newSessionLocked(name, teams)

	sess := *l.session
	l.broker.Publish(Event{Type: EventSessionUpdated, Data: sess})
	return &sess, nil
}

func (l *LocalLedger) CurrentSession() *game.Session {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.session == nil {
		return nil
	}
	sess := *l.session
	return &sess
}

// EndSession completes the session. A completed session is immutable; only
// a new CreateSession (or the next day's reset) moves the station forward.
func (l *LocalLedger) EndSession(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.session == nil {
		return ErrNoSession
	}
	if l.session.Status == game.SessionCompleted {
		return ErrSessionCompleted
	}
	l.session.Status = game.SessionCompleted
	l.session.EndTime = l.timestamp()
	l.session.PausedAt = ""
	l.persistLocked()

	l.broker.Publish(Event{Type: EventSessionUpdated, Data: *l.session})
	return nil
}

func (l *LocalLedger) PauseSession(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.session == nil {
		return ErrNoSession
	}
	if l.session.Status != game.SessionActive {
		return validationf("cannot pause a %s session", l.session.Status)
	}
	l.session.Status = game.SessionPaused
	l.session.PausedAt = l.timestamp()
	l.persistLocked()

	l.broker.Publish(Event{Type: EventSessionUpdated, Data: *l.session})
	return nil
}

func (l *LocalLedger) ResumeSession(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.session == nil {
		return ErrNoSession
	}
	if l.session.Status != game.SessionPaused {
		return validationf("cannot resume a %s session", l.session.Status)
	}
	l.session.Status = game.SessionActive
	l.session.PausedAt = ""
	l.persistLocked()

	l.broker.Publish(Event{Type: EventSessionUpdated, Data: *l.session})
	return nil
}

func (l *LocalLedger) TokenScanned(tokenID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.scanned[tokenID]
}

func (l *LocalLedger) ScannedTokens() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	ids := make([]string, 0, len(l.scanned))
	for id := range l.scanned {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Ready is always true: the local ledger has no transport to wait on.
func (l *LocalLedger) Ready() bool { return true }

func (l *LocalLedger) Events() *Broker { return l.broker }

// Dispose writes the session through one last time. The durable store is
// owned by the caller and is not closed here.
func (l *LocalLedger) Dispose() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.session != nil {
		l.persistLocked()
	}
}

// persistLocked writes the whole session through to the durable store.
// Persistence failures are logged and swallowed: the in-memory state stays
// authoritative for the rest of the session.
func (l *LocalLedger) persistLocked() {
	if l.store == nil || l.session == nil {
		return
	}
	saved := localSession{
		SessionID:    l.session.ID,
		Name:         l.session.Name,
		Status:       l.session.Status,
		StartTime:    l.session.StartTime,
		EndTime:      l.session.EndTime,
		PausedAt:     l.session.PausedAt,
		SessionTeams: l.session.Teams,
		Transactions: l.transactions,
		Teams:        l.teams,
		TeamOrder:    l.teamOrder,
		Mode:         "standalone",
	}
	data, err := json.Marshal(saved)
	if err != nil {
		l.log.Error("serializing session failed", "error", err)
		return
	}
	if err := l.store.Set(context.Background(), sessionKey, data); err != nil {
		l.log.Warn("persisting session failed", "error", err)
	}
}
