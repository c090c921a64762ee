package routers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"

	"ifcoins/quizroom/internal/metrics"
	"ifcoins/quizroom/internal/middleware"
	"ifcoins/quizroom/internal/models"
	rooms "ifcoins/quizroom/internal/room_management"
	"ifcoins/quizroom/internal/utils"
)

func RoomRoutes(r chi.Router, rm *rooms.RoomManager, jwtSecret string) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequireUser(jwtSecret))

		r.Route("/rooms", func(r chi.Router) {
			r.With(middleware.ValidateRequest[*models.CreateRoomReq]()).Post("/", rm.CreateRoomHandler)
			r.Get("/", rm.ListRoomsHandler)
			r.With(middleware.ValidateRequest[*models.JoinReq]()).Post("/join", rm.JoinRoomHandler)

			r.Route("/{roomId}", func(r chi.Router) {
				r.Get("/", rm.GetRoomHandler)
				r.Delete("/", rm.DeleteRoomHandler)
				r.Get("/players", rm.ListPlayersHandler)
				r.Post("/leave", rm.LeaveRoomHandler)
				r.Post("/start", rm.StartRoomHandler)
				r.With(middleware.ValidateRequest[*models.AdvanceReq]()).Post("/advance", rm.AdvanceQuestionHandler)
				r.Post("/finish", rm.FinishRoomHandler)
				r.Post("/finalize", rm.FinalizeHandler)
				r.Get("/history", rm.RoomHistoryHandler)
				r.Get("/ws", rm.WsHandler)
			})
		})

		r.With(middleware.ValidateRequest[*models.SubmitScoreReq]()).Post("/players/{playerId}/score", rm.SubmitScoreHandler)
		r.Get("/quizzes/{quizId}/history", rm.QuizHistoryHandler)
	})
}

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

// HealthRoutes exposes /healthz, which fails when any check fails, and /metrics.
func HealthRoutes(r chi.Router, checks map[string]HealthCheck) {
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		names := make([]string, 0, len(checks))
		for name := range checks {
			names = append(names, name)
		}
		sort.Strings(names)

		status := map[string]string{}
		healthy := true
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				status[name] = err.Error()
				healthy = false
				continue
			}
			status[name] = "ok"
		}

		code := http.StatusOK
		if !healthy {
			code = http.StatusServiceUnavailable
		}
		utils.WriteJSON(w, code, models.Resp{OK: healthy, Info: status})
	})
	r.Handle("/metrics", metrics.Handler())
}
