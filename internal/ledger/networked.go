package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/maxepunk/ALNScanner-sub001/internal/activity"
	"github.com/maxepunk/ALNScanner-sub001/internal/game"
	"github.com/maxepunk/ALNScanner-sub001/internal/token"
)

// NetworkedConfig wires a NetworkedLedger's collaborators.
type NetworkedConfig struct {
	Transport Transport
	Tokens    token.Lookup
	Logger    *slog.Logger
	DeviceID  string
}

// NetworkedLedger mirrors a remote authoritative ledger. Mutations are
// optimistic fire-and-forget commands; the cache only changes when the
// transport layer delivers a broadcast through the Apply*/Set* methods.
// It computes no scores of its own and never invents authority it does not
// have: before the first score snapshot arrives, TeamScores is empty.
type NetworkedLedger struct {
	mu        sync.RWMutex
	transport Transport
	tokens    token.Lookup
	log       *slog.Logger
	deviceID  string
	broker    *Broker

	transactions []game.Transaction
	txIDs        map[string]bool
	scores       []game.TeamScore
	haveScores   bool
	scanned      map[string]bool
	playerScans  []game.PlayerScan
	scanIDs      map[string]bool
	session      *game.Session
	disposed     bool
}

var _ Strategy = (*NetworkedLedger)(nil)

func NewNetworkedLedger(cfg NetworkedConfig) *NetworkedLedger {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &NetworkedLedger{
		transport: cfg.Transport,
		tokens:    cfg.Tokens,
		log:       cfg.Logger,
		deviceID:  cfg.DeviceID,
		broker:    NewBroker(),
		txIDs:     make(map[string]bool),
		scanned:   make(map[string]bool),
		scanIDs:   make(map[string]bool),
	}
}

// Initialize is a no-op; the cache fills as the transport delivers the
// resync broadcasts after connecting.
func (n *NetworkedLedger) Initialize(ctx context.Context) error { return nil }

// SetTransport installs the command channel. Wiring is two-phase because
// the websocket client needs the ledger for broadcast dispatch before the
// ledger can hold the client. Call before the ledger takes traffic.
func (n *NetworkedLedger) SetTransport(t Transport) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.transport = t
}

func (n *NetworkedLedger) send(ctx context.Context, action string, payload any) error {
	n.mu.RLock()
	t := n.transport
	n.mu.RUnlock()
	if t == nil || !t.Connected() {
		return ErrNotConnected
	}
	if err := t.Send(ctx, Command{Action: action, Payload: payload}); err != nil {
		return fmt.Errorf("sending %s: %w", action, err)
	}
	return nil
}

// AddTransaction submits a claim to the orchestrator. The token is marked
// scanned immediately so the GM cannot double-scan while the confirmation
// broadcast is in flight; the transaction itself only enters the cache when
// the server echoes it back.
func (n *NetworkedLedger) AddTransaction(ctx context.Context, tx game.Transaction) (*Submission, error) {
	if strings.TrimSpace(tx.TeamID) == "" {
		return nil, validationf("transaction requires a teamId")
	}
	if strings.TrimSpace(tx.TokenID) == "" {
		return nil, validationf("transaction requires a tokenId")
	}
	if tx.DeviceID == "" {
		tx.DeviceID = n.deviceID
	}

	if err := n.send(ctx, CmdTransactionSubmit, tx); err != nil {
		return nil, err
	}

	n.mu.Lock()
	n.scanned[tx.TokenID] = true
	n.mu.Unlock()

	return &Submission{Transaction: &tx, Pending: true}, nil
}

// RemoveTransaction submits a deletion. The cached copy stays until the
// server's resync confirms the removal.
func (n *NetworkedLedger) RemoveTransaction(ctx context.Context, id string) (*Submission, error) {
	if strings.TrimSpace(id) == "" {
		return nil, validationf("transaction id is required")
	}
	if err := n.send(ctx, CmdTransactionDelete, map[string]string{"id": id}); err != nil {
		return nil, err
	}
	return &Submission{Pending: true}, nil
}

func (n *NetworkedLedger) AdjustTeamScore(ctx context.Context, teamID string, delta int, reason string) (*Submission, error) {
	if strings.TrimSpace(teamID) == "" {
		return nil, validationf("adjustment requires a teamId")
	}
	if strings.TrimSpace(reason) == "" {
		return nil, validationf("adjustment reason is required")
	}
	payload := map[string]any{"teamId": teamID, "delta": delta, "reason": reason}
	if err := n.send(ctx, CmdScoreAdjust, payload); err != nil {
		return nil, err
	}
	return &Submission{Pending: true}, nil
}

func (n *NetworkedLedger) Transactions() []game.Transaction {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return append([]game.Transaction(nil), n.transactions...)
}

// TeamScores projects the last-received server snapshot. No snapshot means
// no rows; this ledger never falls back to computing scores locally.
func (n *NetworkedLedger) TeamScores() []game.TeamScore {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if !n.haveScores {
		return []game.TeamScore{}
	}
	rows := make([]game.TeamScore, 0, len(n.scores))
	for _, s := range n.scores {
		rows = append(rows, s.Clone())
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Score > rows[j].Score })
	return rows
}

func (n *NetworkedLedger) GameActivity() activity.Report {
	n.mu.RLock()
	scans := append([]game.PlayerScan(nil), n.playerScans...)
	txs := append([]game.Transaction(nil), n.transactions...)
	n.mu.RUnlock()
	return activity.Build(scans, txs, activity.AcceptedOnly, n.tokens)
}

// CreateSession asks the orchestrator to start a session. The returned
// session is provisional (no ID yet); the authoritative one arrives by
// broadcast.
func (n *NetworkedLedger) CreateSession(ctx context.Context, name string, teams []string) (*game.Session, error) {
	payload := map[string]any{"name": name, "teams": teams}
	if err := n.send(ctx, CmdSessionCreate, payload); err != nil {
		return nil, err
	}
	return &game.Session{Name: name, Status: game.SessionActive, Teams: teams}, nil
}

func (n *NetworkedLedger) CurrentSession() *game.Session {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.session == nil {
		return nil
	}
	sess := *n.session
	return &sess
}

func (n *NetworkedLedger) EndSession(ctx context.Context) error {
	return n.send(ctx, CmdSessionEnd, nil)
}

func (n *NetworkedLedger) PauseSession(ctx context.Context) error {
	return n.send(ctx, CmdSessionPause, nil)
}

func (n *NetworkedLedger) ResumeSession(ctx context.Context) error {
	return n.send(ctx, CmdSessionResume, nil)
}

func (n *NetworkedLedger) TokenScanned(tokenID string) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.scanned[tokenID]
}

func (n *NetworkedLedger) ScannedTokens() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	ids := make([]string, 0, len(n.scanned))
	for id := range n.scanned {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Ready is true only while the transport believes itself connected.
func (n *NetworkedLedger) Ready() bool {
	n.mu.RLock()
	disposed, t := n.disposed, n.transport
	n.mu.RUnlock()
	return !disposed && t != nil && t.Connected()
}

func (n *NetworkedLedger) Events() *Broker { return n.broker }

// Dispose drops the cache. Safe to call more than once.
func (n *NetworkedLedger) Dispose() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.disposed = true
	n.transactions = nil
	n.txIDs = make(map[string]bool)
	n.scores = nil
	n.haveScores = false
	n.scanned = make(map[string]bool)
	n.playerScans = nil
	n.scanIDs = make(map[string]bool)
	n.session = nil
}

// --- cache updates, invoked by the transport layer on broadcasts ---

// SetTransactions replaces the cached transaction list wholesale (full
// resync).
func (n *NetworkedLedger) SetTransactions(txs []game.Transaction) {
	n.mu.Lock()
	n.transactions = append([]game.Transaction(nil), txs...)
	n.txIDs = make(map[string]bool, len(txs))
	for _, tx := range txs {
		n.txIDs[tx.ID] = true
	}
	n.mu.Unlock()
	n.broker.Publish(Event{Type: EventSyncApplied, Data: map[string]int{"transactions": len(txs)}})
}

// AddTransactionFromBroadcast appends a confirmed transaction. Idempotent
// by ID: a reconnect resync redelivering the same transaction must not
// double-count.
func (n *NetworkedLedger) AddTransactionFromBroadcast(tx game.Transaction) {
	n.mu.Lock()
	if n.txIDs[tx.ID] {
		n.mu.Unlock()
		return
	}
	n.txIDs[tx.ID] = true
	n.transactions = append(n.transactions, tx)
	if tx.Accepted() {
		n.scanned[tx.TokenID] = true
	}
	n.mu.Unlock()
	n.broker.Publish(Event{Type: EventTransactionAdded, Data: tx})
}

// SetBackendScores stores the server's score snapshot.
func (n *NetworkedLedger) SetBackendScores(scores []game.TeamScore) {
	n.mu.Lock()
	n.scores = append([]game.TeamScore(nil), scores...)
	n.haveScores = true
	n.mu.Unlock()
	n.broker.Publish(Event{Type: EventScoresUpdated, Data: n.TeamScores()})
}

// ClearBackendScores forgets the snapshot (e.g. the server reset scores).
func (n *NetworkedLedger) ClearBackendScores() {
	n.mu.Lock()
	n.scores = nil
	n.haveScores = false
	n.mu.Unlock()
	n.broker.Publish(Event{Type: EventScoresUpdated, Data: []game.TeamScore{}})
}

// SetScannedTokens replaces the duplicate-prevention set (full resync).
func (n *NetworkedLedger) SetScannedTokens(tokenIDs []string) {
	n.mu.Lock()
	n.scanned = make(map[string]bool, len(tokenIDs))
	for _, id := range tokenIDs {
		n.scanned[id] = true
	}
	n.mu.Unlock()
	n.broker.Publish(Event{Type: EventSyncApplied, Data: map[string]int{"scannedTokens": len(tokenIDs)}})
}

// SetPlayerScans replaces the discovery scan list (full resync).
func (n *NetworkedLedger) SetPlayerScans(scans []game.PlayerScan) {
	n.mu.Lock()
	n.playerScans = append([]game.PlayerScan(nil), scans...)
	n.scanIDs = make(map[string]bool, len(scans))
	for _, s := range scans {
		n.scanIDs[s.ID] = true
	}
	n.mu.Unlock()
	n.broker.Publish(Event{Type: EventSyncApplied, Data: map[string]int{"playerScans": len(scans)}})
}

// AddPlayerScan appends a discovery scan. Idempotent by ID.
func (n *NetworkedLedger) AddPlayerScan(scan game.PlayerScan) {
	n.mu.Lock()
	if n.scanIDs[scan.ID] {
		n.mu.Unlock()
		return
	}
	n.scanIDs[scan.ID] = true
	n.playerScans = append(n.playerScans, scan)
	n.mu.Unlock()
	n.broker.Publish(Event{Type: EventScanAdded, Data: scan})
}

// SetSessionID records the authoritative session identity.
func (n *NetworkedLedger) SetSessionID(id string) {
	n.mu.Lock()
	if n.session == nil {
		n.session = &game.Session{ID: id, Status: game.SessionActive}
	} else {
		n.session.ID = id
	}
	sess := *n.session
	n.mu.Unlock()
	n.broker.Publish(Event{Type: EventSessionUpdated, Data: sess})
}

// ApplySession replaces the cached session state.
func (n *NetworkedLedger) ApplySession(sess game.Session) {
	n.mu.Lock()
	n.session = &sess
	n.mu.Unlock()
	n.broker.Publish(Event{Type: EventSessionUpdated, Data: sess})
}

// ConnectionChanged lets the transport layer surface link state to
// listeners.
func (n *NetworkedLedger) ConnectionChanged(connected bool) {
	n.broker.Publish(Event{Type: EventConnectionChanged, Data: map[string]bool{"connected": connected}})
}
