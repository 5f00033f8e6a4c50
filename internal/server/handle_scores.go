package server

import (
	"net/http"

	"github.com/maxepunk/ALNScanner-sub001/internal/game"
	"github.com/maxepunk/ALNScanner-sub001/internal/ledger"
)

type ScoresResponse struct {
	Scores []game.TeamScore `json:"scores"`
}

func handleScores(facade *ledger.Facade) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scores, err := facade.TeamScores()
		if err != nil {
			writeLedgerError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ScoresResponse{Scores: scores})
	}
}

type AdjustScoreRequest struct {
	TeamID string `json:"teamId"`
	Delta  int    `json:"delta"`
	Reason string `json:"reason"`
}

type AdjustScoreResponse struct {
	TeamScore *game.TeamScore `json:"teamScore,omitempty"`
	Pending   bool            `json:"pending"`
}

func handleAdjustScore(facade *ledger.Facade) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AdjustScoreRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		sub, err := facade.AdjustTeamScore(r.Context(), req.TeamID, req.Delta, req.Reason)
		if err != nil {
			writeLedgerError(w, err)
			return
		}
		status := http.StatusOK
		if sub.Pending {
			status = http.StatusAccepted
		}
		writeJSON(w, status, AdjustScoreResponse{
			TeamScore: sub.TeamScore,
			Pending:   sub.Pending,
		})
	}
}
