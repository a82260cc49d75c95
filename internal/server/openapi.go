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

type HealthCheckResult struct {
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
}

type HealthResponse struct {
	Status string                       `json:"status" enum:"ok,degraded,error"`
	Checks map[string]HealthCheckResult `json:"checks"`
}

type tourPath struct {
	TourID string `path:"tourID"`
}

type scenePath struct {
	TourID  string `path:"tourID"`
	SceneID string `path:"sceneID"`
}

type poiPath struct {
	TourID string `path:"tourID"`
	POIID  string `path:"poiID"`
}

type interactionInput struct {
	poiPath
	InteractionRequest
}

type leaderboardQuery struct {
	Tour string `query:"tour" description:"Tour id; omit for the global board."`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "VRQuest API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Progression and scoring API for gamified 360° virtual tours.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Reports the catalog, progress store, cache and event stream. Optional dependencies only degrade the status.")
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// GET /api/tours
	listTours, _ := r.NewOperationContext(http.MethodGet, "/api/tours")
	listTours.SetSummary("List tours")
	listTours.SetDescription("Returns the active tours.")
	listTours.AddRespStructure([]TourResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(listTours)

	// GET /api/tours/{tourID}
	getTour, _ := r.NewOperationContext(http.MethodGet, "/api/tours/{tourID}")
	getTour.SetSummary("Get tour")
	getTour.SetDescription("Returns a tour with its scenes and today's POI markers. Markers carry no content.")
	getTour.AddReqStructure(tourPath{})
	getTour.AddRespStructure(TourDetailResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getTour.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getTour)

	// POST /api/tours/{tourID}/session
	openSession, _ := r.NewOperationContext(http.MethodPost, "/api/tours/{tourID}/session")
	openSession.SetSummary("Open session")
	openSession.SetDescription("Starts or resumes the caller's session on a tour. Requires Bearer token.")
	openSession.AddReqStructure(tourPath{})
	openSession.AddRespStructure(SummaryResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	openSession.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	openSession.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(openSession)

	// DELETE /api/tours/{tourID}/session
	closeSession, _ := r.NewOperationContext(http.MethodDelete, "/api/tours/{tourID}/session")
	closeSession.SetSummary("Close session")
	closeSession.SetDescription("Drops the caller's session after one last attempt to store pending resolutions.")
	closeSession.AddReqStructure(tourPath{})
	closeSession.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusNoContent))
	closeSession.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(closeSession)

	// GET /api/tours/{tourID}/progress
	getProgress, _ := r.NewOperationContext(http.MethodGet, "/api/tours/{tourID}/progress")
	getProgress.SetSummary("Progress summary")
	getProgress.SetDescription("Visited scenes, resolved POIs, completion and points for the caller.")
	getProgress.AddReqStructure(tourPath{})
	getProgress.AddRespStructure(SummaryResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getProgress.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	getProgress.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getProgress)

	// POST /api/tours/{tourID}/scenes/{sceneID}/enter
	enterScene, _ := r.NewOperationContext(http.MethodPost, "/api/tours/{tourID}/scenes/{sceneID}/enter")
	enterScene.SetSummary("Enter scene")
	enterScene.SetDescription("Marks the scene visited and current.")
	enterScene.AddReqStructure(scenePath{})
	enterScene.AddRespStructure(SummaryResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	enterScene.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(enterScene)

	// GET /api/tours/{tourID}/pois/{poiID}
	getPOI, _ := r.NewOperationContext(http.MethodGet, "/api/tours/{tourID}/pois/{poiID}")
	getPOI.SetSummary("Open POI")
	getPOI.SetDescription("Returns the POI content and the caller's state for it. The answer key is withheld until resolved.")
	getPOI.AddReqStructure(poiPath{})
	getPOI.AddRespStructure(POIResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getPOI.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getPOI)

	// POST /api/tours/{tourID}/pois/{poiID}/interactions
	submit, _ := r.NewOperationContext(http.MethodPost, "/api/tours/{tourID}/pois/{poiID}/interactions")
	submit.SetSummary("Submit interaction")
	submit.SetDescription("Answers a question POI or acknowledges any other kind. Resubmitting a resolved POI returns status duplicate.")
	submit.AddReqStructure(interactionInput{})
	submit.AddRespStructure(InteractionResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	submit.AddRespStructure(InteractionResponse{}, openapi.WithHTTPStatus(http.StatusAccepted))
	submit.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	submit.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	submit.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	submit.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnprocessableEntity))
	_ = r.AddOperation(submit)

	// POST /api/tours/{tourID}/pois/{poiID}/retry
	retry, _ := r.NewOperationContext(http.MethodPost, "/api/tours/{tourID}/pois/{poiID}/retry")
	retry.SetSummary("Retry pending resolution")
	retry.SetDescription("Stores a resolution that was accepted while the progress store was down.")
	retry.AddReqStructure(poiPath{})
	retry.AddRespStructure(InteractionResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	retry.AddRespStructure(InteractionResponse{}, openapi.WithHTTPStatus(http.StatusAccepted))
	retry.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(retry)

	// GET /api/leaderboard
	leaderboard, _ := r.NewOperationContext(http.MethodGet, "/api/leaderboard")
	leaderboard.SetSummary("Leaderboard")
	leaderboard.SetDescription("Ranks users by points. generatedAt tells how old a cached board is.")
	leaderboard.AddReqStructure(leaderboardQuery{})
	leaderboard.AddRespStructure(LeaderboardResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	leaderboard.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(leaderboard)

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
