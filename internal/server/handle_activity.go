package server

import (
	"net/http"

	"github.com/maxepunk/ALNScanner-sub001/internal/ledger"
)

func handleActivity(facade *ledger.Facade) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := facade.GameActivity()
		if err != nil {
			writeLedgerError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}
