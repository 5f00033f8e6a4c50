package server

import (
	"context"
	"net/http"

	"github.com/maxepunk/ALNScanner-sub001/internal/game"
	"github.com/maxepunk/ALNScanner-sub001/internal/ledger"
)

type CreateSessionRequest struct {
	Name  string   `json:"name"`
	Teams []string `json:"teams,omitempty"`
}

type SessionResponse struct {
	Session *game.Session `json:"session"`
}

func handleGetSession(facade *ledger.Facade) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := facade.CurrentSession()
		if err != nil {
			writeLedgerError(w, err)
			return
		}
		if sess == nil {
			writeError(w, http.StatusNotFound, "no session")
			return
		}
		writeJSON(w, http.StatusOK, SessionResponse{Session: sess})
	}
}

func handleCreateSession(facade *ledger.Facade) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateSessionRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		sess, err := facade.CreateSession(r.Context(), req.Name, req.Teams)
		if err != nil {
			writeLedgerError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, SessionResponse{Session: sess})
	}
}

func handlePauseSession(facade *ledger.Facade) http.HandlerFunc {
	return sessionLifecycle(facade, (*ledger.Facade).PauseSession)
}

func handleResumeSession(facade *ledger.Facade) http.HandlerFunc {
	return sessionLifecycle(facade, (*ledger.Facade).ResumeSession)
}

func handleEndSession(facade *ledger.Facade) http.HandlerFunc {
	return sessionLifecycle(facade, (*ledger.Facade).EndSession)
}

func sessionLifecycle(facade *ledger.Facade, op func(*ledger.Facade, context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := op(facade, r.Context()); err != nil {
			writeLedgerError(w, err)
			return
		}
		sess, err := facade.CurrentSession()
		if err != nil {
			writeLedgerError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, SessionResponse{Session: sess})
	}
}
