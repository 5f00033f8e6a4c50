package transport_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/maxepunk/ALNScanner-sub001/internal/game"
	"github.com/maxepunk/ALNScanner-sub001/internal/ledger"
	"github.com/maxepunk/ALNScanner-sub001/internal/transport"
)

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// fakeOrchestrator accepts one station connection and scripts broadcasts.
type fakeOrchestrator struct {
	srv      *httptest.Server
	received chan frame
	send     chan frame
}

func newFakeOrchestrator(t *testing.T) *fakeOrchestrator {
	t.Helper()
	o := &fakeOrchestrator{
		received: make(chan frame, 16),
		send:     make(chan frame, 16),
	}
	o.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			return
		}
		defer conn.CloseNow()

		ctx := r.Context()
		go func() {
			for f := range o.send {
				wsjson.Write(ctx, conn, f)
			}
		}()
		for {
			var f frame
			if err := wsjson.Read(ctx, conn, &f); err != nil {
				return
			}
			o.received <- f
		}
	}))
	t.Cleanup(o.srv.Close)
	return o
}

func (o *fakeOrchestrator) wsURL() string {
	return "ws" + o.srv.URL[len("http"):]
}

func (o *fakeOrchestrator) expect(t *testing.T, event string) frame {
	t.Helper()
	select {
	case f := <-o.received:
		if f.Event != event {
			t.Fatalf("received %q, want %q", f.Event, event)
		}
		return f
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %q", event)
		return frame{}
	}
}

func setup(t *testing.T) (*fakeOrchestrator, *ledger.NetworkedLedger, *transport.Client) {
	t.Helper()
	o := newFakeOrchestrator(t)

	nl := ledger.NewNetworkedLedger(ledger.NetworkedConfig{Tokens: nil})
	c := transport.NewClient(o.wsURL(), "GM_STATION_1", nl, nil)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	if err := c.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	go c.Run(ctx)
	t.Cleanup(func() { c.Close() })

	o.expect(t, "station:hello")
	return o, nl, c
}

func TestSendDeliversCommands(t *testing.T) {
	o, _, c := setup(t)

	if !c.Connected() {
		t.Fatal("client not connected after Connect")
	}

	err := c.Send(context.Background(), ledger.Command{
		Action:  ledger.CmdTransactionSubmit,
		Payload: game.Transaction{TokenID: "solo", TeamID: "Alpha"},
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	f := o.expect(t, ledger.CmdTransactionSubmit)
	var tx game.Transaction
	if err := json.Unmarshal(f.Data, &tx); err != nil {
		t.Fatalf("decoding payload: %v", err)
	}
	if tx.TokenID != "solo" || tx.TeamID != "Alpha" {
		t.Errorf("payload = %+v", tx)
	}
}

func TestBroadcastsReachTheLedger(t *testing.T) {
	o, nl, _ := setup(t)

	data, _ := json.Marshal(game.Transaction{
		ID: "tx1", TokenID: "solo", TeamID: "Alpha", Status: game.StatusAccepted,
	})
	o.send <- frame{Event: "transaction:new", Data: data}

	deadline := time.Now().Add(2 * time.Second)
	for len(nl.Transactions()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("broadcast transaction never reached the ledger")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !nl.TokenScanned("solo") {
		t.Error("broadcast transaction not in the scanned set")
	}
}

func TestFullSyncPopulatesCache(t *testing.T) {
	o, nl, _ := setup(t)

	data, _ := json.Marshal(map[string]any{
		"transactions":  []game.Transaction{{ID: "tx1", TokenID: "gem", TeamID: "Beta", Status: game.StatusAccepted}},
		"scores":        []game.TeamScore{{TeamID: "Beta", Score: 5000}},
		"scannedTokens": []string{"gem"},
		"playerScans":   []game.PlayerScan{{ID: "s1", TokenID: "gem", DeviceID: "phone-1"}},
		"session":       game.Session{ID: "srv-1", Status: game.SessionActive},
	})
	o.send <- frame{Event: "sync:full", Data: data}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if sess := nl.CurrentSession(); sess != nil && sess.ID == "srv-1" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("sync never applied")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if rows := nl.TeamScores(); len(rows) != 1 || rows[0].Score != 5000 {
		t.Errorf("scores = %+v", rows)
	}
	if !nl.TokenScanned("gem") {
		t.Error("scanned set not synced")
	}
	if got := nl.GameActivity().Stats.TotalPlayerScans; got != 1 {
		t.Errorf("TotalPlayerScans = %d, want 1", got)
	}
}

func TestSendWhileDisconnected(t *testing.T) {
	nl := ledger.NewNetworkedLedger(ledger.NetworkedConfig{})
	c := transport.NewClient("ws://127.0.0.1:1/never", "GM_STATION_1", nl, nil)

	err := c.Send(context.Background(), ledger.Command{Action: ledger.CmdSessionEnd})
	if err != ledger.ErrNotConnected {
		t.Errorf("err = %v, want ErrNotConnected", err)
	}
}
