package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/vrquest/internal/catalog"
	"github.com/playperu/vrquest/internal/engine"
	"github.com/playperu/vrquest/internal/quest"
)

type RecordResponse struct {
	ID          string    `json:"id"`
	Outcome     string    `json:"outcome"`
	Points      int       `json:"points"`
	CompletedAt time.Time `json:"completedAt"`
}

type POIResponse struct {
	POIMarker
	Description string             `json:"description,omitempty"`
	Content     catalog.ContentDoc `json:"content"`
	State       string             `json:"state"`
	Attempts    int                `json:"attempts"`
	Pending     bool               `json:"pending"`
	Prior       *RecordResponse    `json:"prior,omitempty"`
}

type InteractionRequest struct {
	Answer string `json:"answer,omitempty"`
	Signal string `json:"signal,omitempty"`
}

type InteractionResponse struct {
	Status      string  `json:"status"`
	Outcome     string  `json:"outcome"`
	Points      int     `json:"points"`
	Explanation string  `json:"explanation,omitempty"`
	RecordID    string  `json:"recordId"`
	Persisted   bool    `json:"persisted"`
	Completion  float64 `json:"completion"`
}

func recordResponse(r quest.Record) *RecordResponse {
	return &RecordResponse{
		ID:          r.ID,
		Outcome:     string(r.Outcome),
		Points:      r.Points,
		CompletedAt: r.CompletedAt,
	}
}

func interactionResponse(res engine.Result) InteractionResponse {
	return InteractionResponse{
		Status:      string(res.Status),
		Outcome:     string(res.Outcome),
		Points:      res.Points,
		Explanation: res.Explanation,
		RecordID:    res.Record.ID,
		Persisted:   res.Persisted,
		Completion:  res.Completion,
	}
}

func handleGetPOI(logger *slog.Logger, eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := eng.OpenPOI(r.Context(), requestActor(r), chi.URLParam(r, "tourID"), chi.URLParam(r, "poiID"))
		if err != nil {
			writeEngineError(w, logger, err)
			return
		}

		content := catalog.EncodeContent(view.POI.Content)
		// The answer key stays server-side until the POI is resolved.
		if view.State != quest.StateResolved {
			content.CorrectAnswer = ""
			content.Explanation = ""
		}

		resp := POIResponse{
			POIMarker:   poiMarker(view.POI),
			Description: view.POI.Description,
			Content:     content,
			State:       string(view.State),
			Attempts:    view.Attempts,
			Pending:     view.Pending,
		}
		if view.Prior != nil {
			resp.Prior = recordResponse(*view.Prior)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleSubmitInteraction(logger *slog.Logger, eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req InteractionRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		res, err := eng.SubmitInteraction(r.Context(), requestActor(r),
			chi.URLParam(r, "tourID"), chi.URLParam(r, "poiID"),
			quest.Interaction{Answer: req.Answer, Signal: req.Signal})
		if err != nil {
			writeEngineError(w, logger, err)
			return
		}

		status := http.StatusOK
		if res.Status == engine.StatusPendingPersist {
			status = http.StatusAccepted
		}
		writeJSON(w, status, interactionResponse(res))
	}
}

func handleRetryPending(logger *slog.Logger, eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := eng.RetryPending(r.Context(), requestActor(r), chi.URLParam(r, "tourID"), chi.URLParam(r, "poiID"))
		if err != nil {
			writeEngineError(w, logger, err)
			return
		}
		status := http.StatusOK
		if res.Status == engine.StatusPendingPersist {
			status = http.StatusAccepted
		}
		writeJSON(w, status, interactionResponse(res))
	}
}
