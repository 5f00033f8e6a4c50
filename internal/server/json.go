package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/maxepunk/ALNScanner-sub001/internal/ledger"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeLedgerError maps the ledger error taxonomy onto HTTP statuses.
// Validation problems and state conflicts carry their message through;
// anything unrecognized is an internal error.
func writeLedgerError(w http.ResponseWriter, err error) {
	switch {
	case ledger.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrDuplicateToken),
		errors.Is(err, ledger.ErrSessionPaused),
		errors.Is(err, ledger.ErrSessionCompleted):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ledger.ErrTransactionMissing):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrNoSession):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ledger.ErrNotConnected):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, ledger.ErrNoStrategy):
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
