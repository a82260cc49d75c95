package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/vrquest/internal/engine"
	"github.com/playperu/vrquest/internal/quest"
)

type TourResponse struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	City             string     `json:"city,omitempty"`
	Description      string     `json:"description,omitempty"`
	CoverImage       string     `json:"coverImage,omitempty"`
	Active           bool       `json:"active"`
	CompetitionStart *time.Time `json:"competitionStart,omitempty"`
	CompetitionEnd   *time.Time `json:"competitionEnd,omitempty"`
}

type SceneResponse struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Panorama    string `json:"panorama"`
}

// POIMarker is what a viewer needs to place a hotspot. It never carries
// content.
type POIMarker struct {
	ID        string  `json:"id"`
	SceneID   string  `json:"sceneId"`
	Title     string  `json:"title"`
	Kind      string  `json:"kind"`
	Points    int     `json:"points"`
	Order     int     `json:"order"`
	Pitch     float64 `json:"pitch"`
	Yaw       float64 `json:"yaw"`
	NextScene string  `json:"nextScene,omitempty"`
}

type TourDetailResponse struct {
	Tour   TourResponse    `json:"tour"`
	Scenes []SceneResponse `json:"scenes"`
	POIs   []POIMarker     `json:"pois"`
}

func tourResponse(t quest.Tour) TourResponse {
	return TourResponse{
		ID:               t.ID,
		Name:             t.Name,
		City:             t.City,
		Description:      t.Description,
		CoverImage:       t.CoverImage,
		Active:           t.Active,
		CompetitionStart: t.CompetitionStart,
		CompetitionEnd:   t.CompetitionEnd,
	}
}

func poiMarker(p quest.POI) POIMarker {
	return POIMarker{
		ID:        p.ID,
		SceneID:   p.SceneID,
		Title:     p.Title,
		Kind:      string(p.Kind()),
		Points:    p.Points,
		Order:     p.Order,
		Pitch:     p.Position.Pitch,
		Yaw:       p.Position.Yaw,
		NextScene: p.NextScene,
	}
}

func handleListTours(logger *slog.Logger, eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tours, err := eng.ListTours(r.Context())
		if err != nil {
			writeEngineError(w, logger, err)
			return
		}
		resp := make([]TourResponse, 0, len(tours))
		for _, t := range tours {
			resp = append(resp, tourResponse(t))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleGetTour(logger *slog.Logger, eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tour, pois, err := eng.Tour(r.Context(), chi.URLParam(r, "tourID"))
		if err != nil {
			writeEngineError(w, logger, err)
			return
		}

		resp := TourDetailResponse{
			Tour:   tourResponse(tour),
			Scenes: make([]SceneResponse, 0, len(tour.Scenes)),
			POIs:   make([]POIMarker, 0, len(pois)),
		}
		for _, s := range tour.Scenes {
			resp.Scenes = append(resp.Scenes, SceneResponse{
				ID:          s.ID,
				Title:       s.Title,
				Description: s.Description,
				Panorama:    s.Panorama,
			})
		}
		for _, p := range pois {
			resp.POIs = append(resp.POIs, poiMarker(p))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
