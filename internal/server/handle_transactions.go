package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/maxepunk/ALNScanner-sub001/internal/game"
	"github.com/maxepunk/ALNScanner-sub001/internal/ledger"
)

type TransactionsResponse struct {
	Transactions []game.Transaction `json:"transactions"`
}

func handleListTransactions(facade *ledger.Facade) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		txs, err := facade.Transactions()
		if err != nil {
			writeLedgerError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, TransactionsResponse{Transactions: txs})
	}
}

type DeleteTransactionResponse struct {
	Transaction *game.Transaction `json:"transaction,omitempty"`
	Pending     bool              `json:"pending"`
}

func handleDeleteTransaction(facade *ledger.Facade) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		sub, err := facade.RemoveTransaction(r.Context(), id)
		if err != nil {
			writeLedgerError(w, err)
			return
		}
		status := http.StatusOK
		if sub.Pending {
			status = http.StatusAccepted
		}
		writeJSON(w, status, DeleteTransactionResponse{
			Transaction: sub.Transaction,
			Pending:     sub.Pending,
		})
	}
}
