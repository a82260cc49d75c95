package server

import (
	"log/slog"
	"net/http"

	"github.com/playperu/vrquest/internal/engine"
	"github.com/playperu/vrquest/internal/ranking"
)

type LeaderboardResponse = ranking.Board

func handleLeaderboard(logger *slog.Logger, eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		board, err := eng.Leaderboard(r.Context(), r.URL.Query().Get("tour"))
		if err != nil {
			writeEngineError(w, logger, err)
			return
		}
		if board.Entries == nil {
			board.Entries = []ranking.Entry{}
		}
		writeJSON(w, http.StatusOK, board)
	}
}
