package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/maxepunk/ALNScanner-sub001/internal/game"
)

// fakeTransport records commands instead of sending them anywhere.
type fakeTransport struct {
	mu        sync.Mutex
	connected bool
	sent      []Command
	sendErr   error
}

func (f *fakeTransport) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeTransport) Send(_ context.Context, cmd Command) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, cmd)
	return nil
}

func (f *fakeTransport) lastAction() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return ""
	}
	return f.sent[len(f.sent)-1].Action
}

func newNetworked(t *testing.T, tr *fakeTransport) *NetworkedLedger {
	t.Helper()
	n := NewNetworkedLedger(NetworkedConfig{
		Transport: tr,
		Tokens:    testTokens(),
		Logger:    discardLogger(),
		DeviceID:  "GM_STATION_2",
	})
	if err := n.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return n
}

func TestNetworkedAddIsPending(t *testing.T) {
	tr := &fakeTransport{connected: true}
	n := newNetworked(t, tr)

	sub, err := n.AddTransaction(context.Background(), game.Transaction{
		TokenID: "solo", TeamID: "Alpha", Mode: game.ModeBlackMarket,
	})
	if err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}
	if !sub.Pending {
		t.Error("networked add must be pending")
	}
	if tr.lastAction() != CmdTransactionSubmit {
		t.Errorf("sent %q, want %q", tr.lastAction(), CmdTransactionSubmit)
	}
	// Optimistically part of the duplicate scope...
	if !n.TokenScanned("solo") {
		t.Error("token not marked scanned after submit")
	}
	// ...but not in the cache until the broadcast confirms it.
	if len(n.Transactions()) != 0 {
		t.Error("transaction entered the cache before confirmation")
	}
}

func TestNetworkedRejectsWhenDisconnected(t *testing.T) {
	tr := &fakeTransport{connected: false}
	n := newNetworked(t, tr)
	ctx := context.Background()

	if _, err := n.AddTransaction(ctx, game.Transaction{
		TokenID: "solo", TeamID: "Alpha", Mode: game.ModeBlackMarket,
	}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("add: err = %v, want ErrNotConnected", err)
	}
	if _, err := n.RemoveTransaction(ctx, "tx1"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("remove: err = %v, want ErrNotConnected", err)
	}
	if err := n.EndSession(ctx); !errors.Is(err, ErrNotConnected) {
		t.Errorf("end: err = %v, want ErrNotConnected", err)
	}
	if n.Ready() {
		t.Error("Ready() = true while disconnected")
	}
}

func TestNetworkedValidationBeforeConnectivity(t *testing.T) {
	tr := &fakeTransport{connected: true}
	n := newNetworked(t, tr)
	ctx := context.Background()

	if _, err := n.AddTransaction(ctx, game.Transaction{TokenID: "solo"}); !IsValidation(err) {
		t.Errorf("missing teamId: err = %v, want validation error", err)
	}
	if _, err := n.AdjustTeamScore(ctx, "Alpha", 10, ""); !IsValidation(err) {
		t.Errorf("missing reason: err = %v, want validation error", err)
	}
	if len(tr.sent) != 0 {
		t.Errorf("invalid input reached the transport: %v", tr.sent)
	}
}

func TestBroadcastIdempotentByID(t *testing.T) {
	n := newNetworked(t, &fakeTransport{connected: true})

	tx := game.Transaction{
		ID: "tx1", TokenID: "solo", TeamID: "Alpha",
		Mode: game.ModeBlackMarket, Status: game.StatusAccepted,
	}
	n.AddTransactionFromBroadcast(tx)
	n.AddTransactionFromBroadcast(tx)

	if got := len(n.Transactions()); got != 1 {
		t.Errorf("duplicate broadcast double-counted: %d transactions", got)
	}
	if !n.TokenScanned("solo") {
		t.Error("confirmed transaction not in the scanned set")
	}
}

func TestPlayerScanIdempotentByID(t *testing.T) {
	n := newNetworked(t, &fakeTransport{connected: true})

	s := game.PlayerScan{ID: "scan1", TokenID: "gem", DeviceID: "phone-1", Timestamp: "2026-08-23T10:00:00Z"}
	n.AddPlayerScan(s)
	n.AddPlayerScan(s)

	if got := n.GameActivity().Stats.TotalPlayerScans; got != 1 {
		t.Errorf("TotalPlayerScans = %d, want 1", got)
	}
}

func TestScoresEmptyUntilSnapshot(t *testing.T) {
	n := newNetworked(t, &fakeTransport{connected: true})

	if rows := n.TeamScores(); len(rows) != 0 {
		t.Fatalf("scores before snapshot = %+v, want empty", rows)
	}

	n.SetBackendScores([]game.TeamScore{
		{TeamID: "Alpha", Score: 1000},
		{TeamID: "Beta", Score: 5000},
	})
	rows := n.TeamScores()
	if len(rows) != 2 || rows[0].TeamID != "Beta" {
		t.Errorf("projected snapshot = %+v, want Beta first", rows)
	}

	n.ClearBackendScores()
	if rows := n.TeamScores(); len(rows) != 0 {
		t.Errorf("scores after clear = %+v, want empty", rows)
	}
}

func TestResyncReplacesCache(t *testing.T) {
	n := newNetworked(t, &fakeTransport{connected: true})

	n.AddTransactionFromBroadcast(game.Transaction{
		ID: "tx1", TokenID: "solo", TeamID: "Alpha", Status: game.StatusAccepted,
	})
	n.SetTransactions([]game.Transaction{
		{ID: "tx2", TokenID: "gem", TeamID: "Beta", Status: game.StatusAccepted},
	})
	n.SetScannedTokens([]string{"gem"})

	txs := n.Transactions()
	if len(txs) != 1 || txs[0].ID != "tx2" {
		t.Errorf("cache after resync = %+v", txs)
	}
	if n.TokenScanned("solo") || !n.TokenScanned("gem") {
		t.Error("scanned set not replaced by resync")
	}
}

func TestSessionFromBroadcasts(t *testing.T) {
	tr := &fakeTransport{connected: true}
	n := newNetworked(t, tr)

	if n.CurrentSession() != nil {
		t.Fatal("session before any broadcast")
	}

	sess, err := n.CreateSession(context.Background(), "Friday Game", []string{"Alpha"})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if sess.ID != "" {
		t.Errorf("provisional session has server ID %q", sess.ID)
	}
	if tr.lastAction() != CmdSessionCreate {
		t.Errorf("sent %q, want %q", tr.lastAction(), CmdSessionCreate)
	}

	n.SetSessionID("srv-session-1")
	if got := n.CurrentSession(); got == nil || got.ID != "srv-session-1" {
		t.Errorf("CurrentSession = %+v", got)
	}

	n.ApplySession(game.Session{ID: "srv-session-1", Status: game.SessionPaused})
	if got := n.CurrentSession().Status; got != game.SessionPaused {
		t.Errorf("session status = %q, want paused", got)
	}
}

func TestDisposeDropsCacheAndIsIdempotent(t *testing.T) {
	n := newNetworked(t, &fakeTransport{connected: true})
	n.AddTransactionFromBroadcast(game.Transaction{ID: "tx1", TokenID: "solo", Status: game.StatusAccepted})

	n.Dispose()
	n.Dispose()

	if len(n.Transactions()) != 0 || n.TokenScanned("solo") {
		t.Error("dispose left cache state behind")
	}
	if n.Ready() {
		t.Error("Ready() = true after dispose")
	}
}
