package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/maxepunk/ALNScanner-sub001/internal/activity"
	"github.com/maxepunk/ALNScanner-sub001/internal/game"
)

// Facade modes.
const (
	ModeStandalone = "standalone"
	ModeNetworked  = "networked"
)

// forwardable is the fixed whitelist of strategy events the facade
// re-emits. Anything else a strategy publishes stays internal.
var forwardable = map[string]bool{
	EventTransactionAdded:   true,
	EventTransactionRemoved: true,
	EventScoresUpdated:      true,
	EventScoreAdjusted:      true,
	EventSessionUpdated:     true,
	EventScanAdded:          true,
	EventSyncApplied:        true,
	EventConnectionChanged:  true,
}

// Facade is the application's single entry into the ledger. Exactly one
// strategy is active per session; switching disposes the previous one and
// re-initializes the next. Every delegated call fails fast with
// ErrNoStrategy until Select succeeds.
//
// The facade keeps a mirror of the scanned-token set for cheap duplicate
// pre-checks. The mirror is a plain copy, re-synced from the strategy on
// selection and on ledger events, never mutated on its own authority.
type Facade struct {
	mu     sync.Mutex
	log    *slog.Logger
	broker *Broker

	active   Strategy
	activeCh chan Event
	mode     string
	mirror   map[string]bool
}

func NewFacade(logger *slog.Logger) *Facade {
	if logger == nil {
		logger = slog.Default()
	}
	return &Facade{
		log:    logger,
		broker: NewBroker(),
		mirror: make(map[string]bool),
	}
}

// Select makes s the active strategy. The previous strategy (if any) is
// unsubscribed and disposed first. On initialization failure the facade is
// left with no active strategy, so later calls fail fast rather than run
// against a half-built ledger.
func (f *Facade) Select(ctx context.Context, mode string, s Strategy) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.active != nil {
		f.active.Events().Unsubscribe(f.activeCh)
		f.active.Dispose()
		f.active = nil
		f.activeCh = nil
	}

	if err := s.Initialize(ctx); err != nil {
		return fmt.Errorf("initializing %s strategy: %w", mode, err)
	}

	ch := s.Events().Subscribe()
	f.active = s
	f.activeCh = ch
	f.mode = mode
	f.resyncMirrorLocked()

	go f.forward(s, ch)

	f.log.Info("storage strategy selected", "mode", mode)
	return nil
}

// forward re-emits whitelisted strategy events and keeps the scanned-token
// mirror in sync. It exits when the strategy is unsubscribed (channel
// closed).
func (f *Facade) forward(s Strategy, ch chan Event) {
	for ev := range ch {
		if !forwardable[ev.Type] {
			continue
		}
		switch ev.Type {
		case EventTransactionAdded, EventTransactionRemoved, EventSyncApplied:
			f.mu.Lock()
			if f.active == s {
				f.resyncMirrorLocked()
			}
			f.mu.Unlock()
		}
		f.broker.Publish(ev)
	}
}

func (f *Facade) resyncMirrorLocked() {
	f.mirror = make(map[string]bool)
	if f.active == nil {
		return
	}
	for _, id := range f.active.ScannedTokens() {
		f.mirror[id] = true
	}
}

func (f *Facade) strategy() (Strategy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.active == nil {
		return nil, ErrNoStrategy
	}
	return f.active, nil
}

// Mode returns the active mode, or "" before selection.
func (f *Facade) Mode() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mode
}

// TokenScanned consults the mirror; no strategy means nothing is scanned.
func (f *Facade) TokenScanned(tokenID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mirror[tokenID]
}

// AddTransaction runs the duplicate pre-check against the mirror, then
// delegates. The active strategy still enforces its own invariant; the
// mirror just lets the scan flow reject duplicates without a round-trip.
func (f *Facade) AddTransaction(ctx context.Context, tx game.Transaction) (*Submission, error) {
	f.mu.Lock()
	if f.active == nil {
		f.mu.Unlock()
		return nil, ErrNoStrategy
	}
	if f.mirror[tx.TokenID] {
		f.mu.Unlock()
		return nil, ErrDuplicateToken
	}
	s := f.active
	f.mu.Unlock()

	sub, err := s.AddTransaction(ctx, tx)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	if f.active == s {
		f.mirror[tx.TokenID] = true
	}
	f.mu.Unlock()
	return sub, nil
}

func (f *Facade) RemoveTransaction(ctx context.Context, id string) (*Submission, error) {
	s, err := f.strategy()
	if err != nil {
		return nil, err
	}
	sub, err := s.RemoveTransaction(ctx, id)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	if f.active == s && sub.Transaction != nil && !sub.Pending {
		delete(f.mirror, sub.Transaction.TokenID)
	}
	f.mu.Unlock()
	return sub, nil
}

func (f *Facade) AdjustTeamScore(ctx context.Context, teamID string, delta int, reason string) (*Submission, error) {
	s, err := f.strategy()
	if err != nil {
		return nil, err
	}
	return s.AdjustTeamScore(ctx, teamID, delta, reason)
}

func (f *Facade) Transactions() ([]game.Transaction, error) {
	s, err := f.strategy()
	if err != nil {
		return nil, err
	}
	return s.Transactions(), nil
}

func (f *Facade) TeamScores() ([]game.TeamScore, error) {
	s, err := f.strategy()
	if err != nil {
		return nil, err
	}
	return s.TeamScores(), nil
}

func (f *Facade) GameActivity() (activity.Report, error) {
	s, err := f.strategy()
	if err != nil {
		return activity.Report{}, err
	}
	return s.GameActivity(), nil
}

func (f *Facade) CreateSession(ctx context.Context, name string, teams []string) (*game.Session, error) {
	s, err := f.strategy()
	if err != nil {
		return nil, err
	}
	sess, err := s.CreateSession(ctx, name, teams)
	if err != nil {
		return nil, err
	}

	// A new session starts with a clean duplicate-prevention scope.
	f.mu.Lock()
	if f.active == s {
		f.resyncMirrorLocked()
	}
	f.mu.Unlock()
	return sess, nil
}

func (f *Facade) CurrentSession() (*game.Session, error) {
	s, err := f.strategy()
	if err != nil {
		return nil, err
	}
	return s.CurrentSession(), nil
}

func (f *Facade) EndSession(ctx context.Context) error {
	s, err := f.strategy()
	if err != nil {
		return err
	}
	return s.EndSession(ctx)
}

func (f *Facade) PauseSession(ctx context.Context) error {
	s, err := f.strategy()
	if err != nil {
		return err
	}
	return s.PauseSession(ctx)
}

func (f *Facade) ResumeSession(ctx context.Context) error {
	s, err := f.strategy()
	if err != nil {
		return err
	}
	return s.ResumeSession(ctx)
}

// Ready reports whether the active strategy can accept mutations.
func (f *Facade) Ready() bool {
	s, err := f.strategy()
	if err != nil {
		return false
	}
	return s.Ready()
}

// Events is the facade's own broker; callers never subscribe to a concrete
// strategy.
func (f *Facade) Events() *Broker { return f.broker }

// Dispose releases the active strategy. The facade can be reused by
// calling Select again.
func (f *Facade) Dispose() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.active == nil {
		return
	}
	f.active.Events().Unsubscribe(f.activeCh)
	f.active.Dispose()
	f.active = nil
	f.activeCh = nil
	f.mode = ""
	f.mirror = make(map[string]bool)
}
