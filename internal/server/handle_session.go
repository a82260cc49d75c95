package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/vrquest/internal/engine"
)

type KindProgressResponse struct {
	Resolved int `json:"resolved"`
	Total    int `json:"total"`
}

type SummaryResponse struct {
	UserID        string                          `json:"userId"`
	TourID        string                          `json:"tourId"`
	CurrentScene  string                          `json:"currentScene"`
	VisitedScenes []string                        `json:"visitedScenes"`
	ResolvedPOIs  []string                        `json:"resolvedPois"`
	PendingPOIs   []string                        `json:"pendingPois"`
	Completion    float64                         `json:"completion"`
	TourPoints    int                             `json:"tourPoints"`
	TotalPoints   int                             `json:"totalPoints"`
	ByKind        map[string]KindProgressResponse `json:"byKind"`
}

func summaryResponse(s engine.Summary) SummaryResponse {
	resp := SummaryResponse{
		UserID:        s.UserID,
		TourID:        s.TourID,
		CurrentScene:  s.CurrentScene,
		VisitedScenes: nonNil(s.VisitedScenes),
		ResolvedPOIs:  nonNil(s.ResolvedPOIs),
		PendingPOIs:   nonNil(s.PendingPOIs),
		Completion:    s.Completion,
		TourPoints:    s.TourPoints,
		TotalPoints:   s.TotalPoints,
		ByKind:        make(map[string]KindProgressResponse, len(s.ByKind)),
	}
	for k, kp := range s.ByKind {
		resp.ByKind[string(k)] = KindProgressResponse{Resolved: kp.Resolved, Total: kp.Total}
	}
	return resp
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func handleOpenSession(logger *slog.Logger, eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sum, err := eng.OpenSession(r.Context(), requestActor(r), chi.URLParam(r, "tourID"))
		if err != nil {
			writeEngineError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, summaryResponse(sum))
	}
}

func handleCloseSession(logger *slog.Logger, eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := eng.CloseSession(r.Context(), requestActor(r), chi.URLParam(r, "tourID")); err != nil {
			writeEngineError(w, logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleEnterScene(logger *slog.Logger, eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sum, err := eng.EnterScene(r.Context(), requestActor(r), chi.URLParam(r, "tourID"), chi.URLParam(r, "sceneID"))
		if err != nil {
			writeEngineError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, summaryResponse(sum))
	}
}

func handleProgress(logger *slog.Logger, eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sum, err := eng.ProgressSummary(r.Context(), requestActor(r), chi.URLParam(r, "tourID"))
		if err != nil {
			writeEngineError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, summaryResponse(sum))
	}
}
