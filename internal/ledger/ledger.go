// Package ledger implements the dual-mode transaction ledger: a Strategy
// contract with a local (offline, authoritative) implementation and a
// networked (server-authoritative cache) implementation, unified behind a
// single facade. Session ownership is exclusive: whichever strategy is
// active owns all transaction, score, scan and session state for its
// lifetime.
package ledger

import (
	"context"

	"github.com/maxepunk/ALNScanner-sub001/internal/activity"
	"github.com/maxepunk/ALNScanner-sub001/internal/game"
)

// Submission is the synchronous result of a mutating ledger call. Pending
// means the command was handed to the transport and the authoritative
// outcome arrives later as a broadcast; the local ledger never returns a
// pending submission.
type Submission struct {
	Transaction *game.Transaction `json:"transaction,omitempty"`
	TeamScore   *game.TeamScore   `json:"teamScore,omitempty"`
	Pending     bool              `json:"pending"`
}

// Strategy is the contract both ledgers satisfy. Validation and state
// errors come back as returned errors (see errors.go); callers that need
// to branch use errors.Is / IsValidation.
type Strategy interface {
	// Initialize prepares the strategy. For the local ledger this loads
	// or creates the day's session; it does not fail on a missing or
	// stale persisted session.
	Initialize(ctx context.Context) error

	AddTransaction(ctx context.Context, tx game.Transaction) (*Submission, error)
	RemoveTransaction(ctx context.Context, id string) (*Submission, error)
	AdjustTeamScore(ctx context.Context, teamID string, delta int, reason string) (*Submission, error)

	// Transactions returns a read-only snapshot.
	Transactions() []game.Transaction
	// TeamScores returns rows sorted by score descending, ties broken by
	// first-seen team order.
	TeamScores() []game.TeamScore
	GameActivity() activity.Report

	CreateSession(ctx context.Context, name string, teams []string) (*game.Session, error)
	CurrentSession() *game.Session
	EndSession(ctx context.Context) error
	PauseSession(ctx context.Context) error
	ResumeSession(ctx context.Context) error

	// TokenScanned reports whether a token is already claimed within the
	// duplicate-prevention scope of the current session.
	TokenScanned(tokenID string) bool
	ScannedTokens() []string

	Ready() bool
	Events() *Broker

	// Dispose releases held resources. Safe to call more than once.
	Dispose()
}

// Transport is the outbound side the networked ledger depends on. The
// surrounding network layer owns connection lifecycle, retries and
// authentication; this interface only submits commands and answers whether
// the link is believed up.
type Transport interface {
	Connected() bool
	Send(ctx context.Context, cmd Command) error
}

// Command is a fire-and-forget request to the orchestrator.
type Command struct {
	Action  string `json:"action"`
	Payload any    `json:"payload,omitempty"`
}

// Command actions understood by the orchestrator.
const (
	CmdTransactionSubmit = "transaction:submit"
	CmdTransactionDelete = "transaction:delete"
	CmdScoreAdjust       = "score:adjust"
	CmdSessionCreate     = "session:create"
	CmdSessionEnd        = "session:end"
	CmdSessionPause      = "session:pause"
	CmdSessionResume     = "session:resume"
)
