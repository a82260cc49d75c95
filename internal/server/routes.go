package server

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"

	"github.com/playperu/vrquest/internal/engine"
)

func addRoutes(r chi.Router, logger *slog.Logger, eng *engine.Engine, verifier Verifier) {
	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("VRQuest API", "/openapi.json", "/docs"))

	r.Get("/api/leaderboard", handleLeaderboard(logger, eng))

	r.Route("/api/tours", func(r chi.Router) {
		r.Get("/", handleListTours(logger, eng))
		r.Get("/{tourID}", handleGetTour(logger, eng))

		// Player routes, bearer token required.
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware(verifier))
			r.Post("/{tourID}/session", handleOpenSession(logger, eng))
			r.Delete("/{tourID}/session", handleCloseSession(logger, eng))
			r.Get("/{tourID}/progress", handleProgress(logger, eng))
			r.Post("/{tourID}/scenes/{sceneID}/enter", handleEnterScene(logger, eng))
			r.Get("/{tourID}/pois/{poiID}", handleGetPOI(logger, eng))
			r.Post("/{tourID}/pois/{poiID}/interactions", handleSubmitInteraction(logger, eng))
			r.Post("/{tourID}/pois/{poiID}/retry", handleRetryPending(logger, eng))
		})
	})
}
