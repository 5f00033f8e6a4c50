// Package transport connects a networked station to the orchestrator over a
// websocket. Outbound: fire-and-forget ledger commands. Inbound: broadcast
// messages dispatched into the networked ledger's cache-update methods.
//
// Deliberately thin: no reconnect, no backoff, no auth handshake. If the
// connection drops, the read loop ends, Connected flips to false and the
// ledger starts rejecting mutations until the caller dials again.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/maxepunk/ALNScanner-sub001/internal/game"
	"github.com/maxepunk/ALNScanner-sub001/internal/ledger"
)

// Broadcast event names sent by the orchestrator.
const (
	msgTransactionNew = "transaction:new"
	msgScanNew        = "scan:new"
	msgScoresUpdated  = "scores:updated"
	msgScoresReset    = "scores:reset"
	msgSessionUpdated = "session:updated"
	msgSessionID      = "session:id"
	msgSyncFull       = "sync:full"
)

// envelope is the wire frame for both directions.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// syncPayload is the full-resync broadcast the orchestrator sends right
// after a station (re)connects.
type syncPayload struct {
	Transactions  []game.Transaction `json:"transactions"`
	Scores        []game.TeamScore   `json:"scores"`
	ScannedTokens []string           `json:"scannedTokens"`
	PlayerScans   []game.PlayerScan  `json:"playerScans"`
	Session       *game.Session      `json:"session,omitempty"`
}

// Client is the station side of the orchestrator websocket.
type Client struct {
	url       string
	deviceID  string
	log       *slog.Logger
	ledger    *ledger.NetworkedLedger
	conn      *websocket.Conn
	connected atomic.Bool
}

var _ ledger.Transport = (*Client)(nil)

func NewClient(url, deviceID string, nl *ledger.NetworkedLedger, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{url: url, deviceID: deviceID, log: logger, ledger: nl}
}

// Connect dials the orchestrator and identifies the station. It does not
// start reading; call Run for that.
func (c *Client) Connect(ctx context.Context) error {
	conn, _, err := websocket.Dial(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dialing orchestrator: %w", err)
	}
	c.conn = conn

	hello := envelope{Event: "station:hello"}
	hello.Data, _ = json.Marshal(map[string]string{"deviceId": c.deviceID})
	if err := wsjson.Write(ctx, conn, hello); err != nil {
		conn.CloseNow()
		return fmt.Errorf("announcing station: %w", err)
	}

	c.connected.Store(true)
	c.ledger.ConnectionChanged(true)
	c.log.Info("connected to orchestrator", "url", c.url)
	return nil
}

// Run reads broadcasts until the context ends or the connection drops.
func (c *Client) Run(ctx context.Context) error {
	defer func() {
		c.connected.Store(false)
		c.ledger.ConnectionChanged(false)
	}()

	for {
		var msg envelope
		if err := wsjson.Read(ctx, c.conn, &msg); err != nil {
			c.log.Debug("websocket read ended", "error", err)
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("reading broadcast: %w", err)
		}
		c.dispatch(msg)
	}
}

// dispatch routes one broadcast into the ledger cache. Unknown events are
// logged and skipped so orchestrator upgrades don't kill older stations.
func (c *Client) dispatch(msg envelope) {
	switch msg.Event {
	case msgTransactionNew:
		var tx game.Transaction
		if c.decode(msg, &tx) {
			c.ledger.AddTransactionFromBroadcast(tx)
		}
	case msgScanNew:
		var scan game.PlayerScan
		if c.decode(msg, &scan) {
			c.ledger.AddPlayerScan(scan)
		}
	case msgScoresUpdated:
		var scores []game.TeamScore
		if c.decode(msg, &scores) {
			c.ledger.SetBackendScores(scores)
		}
	case msgScoresReset:
		c.ledger.ClearBackendScores()
	case msgSessionUpdated:
		var sess game.Session
		if c.decode(msg, &sess) {
			c.ledger.ApplySession(sess)
		}
	case msgSessionID:
		var payload struct {
			SessionID string `json:"sessionId"`
		}
		if c.decode(msg, &payload) {
			c.ledger.SetSessionID(payload.SessionID)
		}
	case msgSyncFull:
		var sync syncPayload
		if !c.decode(msg, &sync) {
			return
		}
		c.ledger.SetTransactions(sync.Transactions)
		c.ledger.SetBackendScores(sync.Scores)
		c.ledger.SetScannedTokens(sync.ScannedTokens)
		c.ledger.SetPlayerScans(sync.PlayerScans)
		if sync.Session != nil {
			c.ledger.ApplySession(*sync.Session)
		}
	default:
		c.log.Debug("ignoring unknown broadcast", "event", msg.Event)
	}
}

func (c *Client) decode(msg envelope, v any) bool {
	if err := json.Unmarshal(msg.Data, v); err != nil {
		c.log.Warn("malformed broadcast payload", "event", msg.Event, "error", err)
		return false
	}
	return true
}

// Connected reports whether the link is believed up.
func (c *Client) Connected() bool { return c.connected.Load() }

// Send submits one command. Fire-and-forget: the orchestrator confirms by
// broadcast, never by reply.
func (c *Client) Send(ctx context.Context, cmd ledger.Command) error {
	if !c.connected.Load() {
		return ledger.ErrNotConnected
	}
	data, err := json.Marshal(cmd.Payload)
	if err != nil {
		return fmt.Errorf("encoding %s payload: %w", cmd.Action, err)
	}
	return wsjson.Write(ctx, c.conn, envelope{Event: cmd.Action, Data: data})
}

// Close tears the connection down.
func (c *Client) Close() error {
	c.connected.Store(false)
	if c.conn == nil {
		return nil
	}
	return c.conn.Close(websocket.StatusNormalClosure, "station shutting down")
}
