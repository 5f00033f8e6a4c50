package server

import (
	"net/http"
	"strings"

	"github.com/maxepunk/ALNScanner-sub001/internal/game"
	"github.com/maxepunk/ALNScanner-sub001/internal/ledger"
)

type ScanRequest struct {
	TokenID string `json:"tokenId"`
	TeamID  string `json:"teamId"`
	Mode    string `json:"mode"`
}

// ScanResponse echoes the ledger submission. Pending means the claim was
// handed to the orchestrator and will be confirmed by broadcast.
type ScanResponse struct {
	Transaction *game.Transaction `json:"transaction,omitempty"`
	TeamScore   *game.TeamScore   `json:"teamScore,omitempty"`
	Pending     bool              `json:"pending"`
}

func handleScan(facade *ledger.Facade) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ScanRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		mode := strings.TrimSpace(req.Mode)
		if mode == "" {
			mode = game.ModeBlackMarket
		}
		if mode != game.ModeBlackMarket && mode != game.ModeDetective {
			writeError(w, http.StatusBadRequest, "mode must be blackmarket or detective")
			return
		}

		sub, err := facade.AddTransaction(r.Context(), game.Transaction{
			TokenID: strings.TrimSpace(req.TokenID),
			TeamID:  strings.TrimSpace(req.TeamID),
			Mode:    mode,
		})
		if err != nil {
			writeLedgerError(w, err)
			return
		}

		status := http.StatusCreated
		if sub.Pending {
			status = http.StatusAccepted
		}
		writeJSON(w, status, ScanResponse{
			Transaction: sub.Transaction,
			TeamScore:   sub.TeamScore,
			Pending:     sub.Pending,
		})
	}
}
