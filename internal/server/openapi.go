package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "GM Station API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Scoring and transaction ledger for game master stations.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Reports the active ledger mode and whether it can serve reads.")
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// POST /api/scan
	postScan, _ := r.NewOperationContext(http.MethodPost, "/api/scan")
	postScan.SetSummary("Record a token scan")
	postScan.SetDescription("Records a token claim for a team. In networked mode the claim is forwarded to the orchestrator and returned as pending.")
	postScan.AddReqStructure(ScanRequest{})
	postScan.AddRespStructure(ScanResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	postScan.AddRespStructure(ScanResponse{}, openapi.WithHTTPStatus(http.StatusAccepted))
	postScan.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postScan.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	postScan.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(postScan)

	// GET /api/transactions
	listTx, _ := r.NewOperationContext(http.MethodGet, "/api/transactions")
	listTx.SetSummary("List transactions")
	listTx.SetDescription("Returns all accepted transactions for the current session.")
	listTx.AddRespStructure(TransactionsResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(listTx)

	// DELETE /api/transactions/{id}
	deleteTx, _ := r.NewOperationContext(http.MethodDelete, "/api/transactions/{id}")
	deleteTx.SetSummary("Remove a transaction")
	deleteTx.SetDescription("Removes a transaction and recomputes the team's score, including group bonuses.")
	deleteTx.AddRespStructure(DeleteTransactionResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	deleteTx.AddRespStructure(DeleteTransactionResponse{}, openapi.WithHTTPStatus(http.StatusAccepted))
	deleteTx.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	deleteTx.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(deleteTx)

	// GET /api/scores
	getScores, _ := r.NewOperationContext(http.MethodGet, "/api/scores")
	getScores.SetSummary("Team scoreboard")
	getScores.SetDescription("Returns team scores sorted by current score, highest first.")
	getScores.AddRespStructure(ScoresResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getScores)

	// POST /api/scores/adjust
	postAdjust, _ := r.NewOperationContext(http.MethodPost, "/api/scores/adjust")
	postAdjust.SetSummary("Adjust a team score")
	postAdjust.SetDescription("Applies a manual delta to a team's score. A reason is required.")
	postAdjust.AddReqStructure(AdjustScoreRequest{})
	postAdjust.AddRespStructure(AdjustScoreResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postAdjust.AddRespStructure(AdjustScoreResponse{}, openapi.WithHTTPStatus(http.StatusAccepted))
	postAdjust.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postAdjust.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postAdjust)

	// GET /api/session
	getSession, _ := r.NewOperationContext(http.MethodGet, "/api/session")
	getSession.SetSummary("Current session")
	getSession.AddRespStructure(SessionResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getSession.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getSession)

	// POST /api/session
	postSession, _ := r.NewOperationContext(http.MethodPost, "/api/session")
	postSession.SetSummary("Create session")
	postSession.SetDescription("Starts a new session, discarding any prior local state.")
	postSession.AddReqStructure(CreateSessionRequest{})
	postSession.AddRespStructure(SessionResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	postSession.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(postSession)

	// POST /api/session/pause
	pauseSession, _ := r.NewOperationContext(http.MethodPost, "/api/session/pause")
	pauseSession.SetSummary("Pause session")
	pauseSession.SetDescription("Pauses the session. Scans are rejected until resume; score adjustments stay allowed.")
	pauseSession.AddRespStructure(SessionResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	pauseSession.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(pauseSession)

	// POST /api/session/resume
	resumeSession, _ := r.NewOperationContext(http.MethodPost, "/api/session/resume")
	resumeSession.SetSummary("Resume session")
	resumeSession.AddRespStructure(SessionResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	resumeSession.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(resumeSession)

	// POST /api/session/end
	endSession, _ := r.NewOperationContext(http.MethodPost, "/api/session/end")
	endSession.SetSummary("End session")
	endSession.SetDescription("Completes the session. All further mutations are rejected.")
	endSession.AddRespStructure(SessionResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	endSession.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(endSession)

	// GET /api/activity
	getActivity, _ := r.NewOperationContext(http.MethodGet, "/api/activity")
	getActivity.SetSummary("Game activity report")
	getActivity.SetDescription("Merged timeline of player scans and claim transactions with per-token status.")
	getActivity.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("application/json"))
	_ = r.AddOperation(getActivity)

	// GET /api/events
	getEvents, _ := r.NewOperationContext(http.MethodGet, "/api/events")
	getEvents.SetSummary("SSE event stream")
	getEvents.SetDescription("Server-Sent Events stream of ledger changes: transactions, scores, session, scans, sync, connection.")
	getEvents.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	_ = r.AddOperation(getEvents)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
