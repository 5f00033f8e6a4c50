package server

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"

	"github.com/maxepunk/ALNScanner-sub001/internal/ledger"
)

func addRoutes(r chi.Router, logger *slog.Logger, facade *ledger.Facade) {
	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("GM Station API", "/openapi.json", "/docs"))
	r.Get("/healthz", handleHealth(facade))

	r.Route("/api", func(r chi.Router) {
		r.Post("/scan", handleScan(facade))

		r.Get("/transactions", handleListTransactions(facade))
		r.Delete("/transactions/{id}", handleDeleteTransaction(facade))

		r.Get("/scores", handleScores(facade))
		r.Post("/scores/adjust", handleAdjustScore(facade))

		r.Get("/session", handleGetSession(facade))
		r.Post("/session", handleCreateSession(facade))
		r.Post("/session/pause", handlePauseSession(facade))
		r.Post("/session/resume", handleResumeSession(facade))
		r.Post("/session/end", handleEndSession(facade))

		r.Get("/activity", handleActivity(facade))
		r.Get("/events", handleEvents(logger, facade))
	})
}
