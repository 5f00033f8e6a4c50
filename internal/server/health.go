package server

import (
	"net/http"

	"github.com/maxepunk/ALNScanner-sub001/internal/ledger"
)

type HealthResponse struct {
	Status string `json:"status"`
	Mode   string `json:"mode"`
	Ready  bool   `json:"ready"`
}

// handleHealth reports whether the active ledger strategy can serve
// reads. A networked station that lost its orchestrator is degraded,
// not down.
func handleHealth(facade *ledger.Facade) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{
			Status: "ok",
			Mode:   facade.Mode(),
			Ready:  facade.Ready(),
		}
		status := http.StatusOK
		if !resp.Ready {
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, resp)
	}
}
