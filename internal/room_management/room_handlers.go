package room_management

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"ifcoins/quizroom/internal/middleware"
	"ifcoins/quizroom/internal/models"
	"ifcoins/quizroom/internal/session"
	"ifcoins/quizroom/internal/utils"
)

func (rm *RoomManager) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var domainErr *Error
	if !errors.As(err, &domainErr) {
		rm.logger.Error("unexpected error", zap.String("path", r.URL.Path), zap.Error(err))
		utils.JSONError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	status := HTTPStatus(domainErr)
	if status >= http.StatusInternalServerError {
		rm.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	utils.JSONError(w, status, domainErr.Code, domainErr.Message)
}

func ok(w http.ResponseWriter, status int, info any) {
	utils.WriteJSON(w, status, models.Resp{OK: true, Info: info})
}

// --- Room registry ---

func (rm *RoomManager) CreateRoomHandler(w http.ResponseWriter, r *http.Request) {
	req := middleware.GetValidatedRequest[*models.CreateRoomReq](r)
	room, err := rm.CreateRoom(r.Context(), middleware.GetUserID(r), *req)
	if err != nil {
		rm.writeError(w, r, err)
		return
	}
	ok(w, http.StatusCreated, room)
}

func (rm *RoomManager) ListRoomsHandler(w http.ResponseWriter, r *http.Request) {
	rooms, err := rm.ListActiveRooms(r.Context())
	if err != nil {
		rm.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, rooms)
}

func (rm *RoomManager) GetRoomHandler(w http.ResponseWriter, r *http.Request) {
	snapshot, err := rm.Snapshot(r.Context(), chi.URLParam(r, "roomId"))
	if err != nil {
		rm.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, snapshot)
}

func (rm *RoomManager) DeleteRoomHandler(w http.ResponseWriter, r *http.Request) {
	if err := rm.DeleteRoom(r.Context(), chi.URLParam(r, "roomId"), middleware.GetUserID(r)); err != nil {
		rm.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, "deleted")
}

func (rm *RoomManager) ListPlayersHandler(w http.ResponseWriter, r *http.Request) {
	players, err := rm.ListPlayers(r.Context(), chi.URLParam(r, "roomId"))
	if err != nil {
		rm.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, players)
}

// --- Membership ---

func (rm *RoomManager) JoinRoomHandler(w http.ResponseWriter, r *http.Request) {
	req := middleware.GetValidatedRequest[*models.JoinReq](r)
	player, err := rm.JoinRoomByCode(r.Context(), req.Code, middleware.GetUserID(r))
	if err != nil {
		rm.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, player)
}

func (rm *RoomManager) LeaveRoomHandler(w http.ResponseWriter, r *http.Request) {
	if err := rm.LeaveRoom(r.Context(), chi.URLParam(r, "roomId"), middleware.GetUserID(r)); err != nil {
		rm.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, "left")
}

// --- Question sequencing ---

func (rm *RoomManager) StartRoomHandler(w http.ResponseWriter, r *http.Request) {
	room, err := rm.StartRoom(r.Context(), chi.URLParam(r, "roomId"), middleware.GetUserID(r))
	if err != nil {
		rm.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, room)
}

func (rm *RoomManager) AdvanceQuestionHandler(w http.ResponseWriter, r *http.Request) {
	req := middleware.GetValidatedRequest[*models.AdvanceReq](r)
	room, err := rm.AdvanceQuestion(r.Context(), chi.URLParam(r, "roomId"), middleware.GetUserID(r), *req.QuestionIndex)
	if err != nil {
		rm.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, room)
}

func (rm *RoomManager) FinishRoomHandler(w http.ResponseWriter, r *http.Request) {
	room, err := rm.FinishRoom(r.Context(), chi.URLParam(r, "roomId"), middleware.GetUserID(r))
	if err != nil {
		rm.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, room)
}

// --- Scores and rewards ---

func (rm *RoomManager) SubmitScoreHandler(w http.ResponseWriter, r *http.Request) {
	req := middleware.GetValidatedRequest[*models.SubmitScoreReq](r)
	player, err := rm.SubmitScore(r.Context(), middleware.GetUserID(r), chi.URLParam(r, "playerId"), *req)
	if err != nil {
		rm.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, player)
}

func (rm *RoomManager) FinalizeHandler(w http.ResponseWriter, r *http.Request) {
	result, err := rm.FinalizeAsHost(r.Context(), chi.URLParam(r, "roomId"), middleware.GetUserID(r))
	if err != nil {
		rm.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, result)
}

func (rm *RoomManager) RoomHistoryHandler(w http.ResponseWriter, r *http.Request) {
	history, err := rm.GetMatchHistory(r.Context(), chi.URLParam(r, "roomId"))
	if err != nil {
		rm.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, history)
}

func (rm *RoomManager) QuizHistoryHandler(w http.ResponseWriter, r *http.Request) {
	histories, err := rm.ListQuizHistory(r.Context(), chi.URLParam(r, "quizId"))
	if err != nil {
		rm.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, histories)
}

// --- WebSocket ---

// WsHandler streams snapshots of one room to a host or player. The current state
// is sent right after the upgrade; later snapshots arrive through the hub.
func (rm *RoomManager) WsHandler(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")
	userID := middleware.GetUserID(r)

	room, err := rm.loadRoom(r.Context(), roomID)
	if err != nil {
		rm.writeError(w, r, err)
		return
	}
	if room.HostID != userID {
		if _, err := rm.players.GetByRoomAndUser(r.Context(), roomID, userID); err != nil {
			rm.writeError(w, r, ErrNotMember)
			return
		}
	}
	if rm.hub == nil {
		utils.JSONError(w, http.StatusServiceUnavailable, "live_updates_disabled", "live updates are not available")
		return
	}

	conn, err := rm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		rm.logger.Warn("websocket upgrade failed", zap.String("roomId", roomID), zap.Error(err))
		return
	}
	defer conn.Close()

	client := session.NewClient(conn, userID)
	rm.hub.Join(roomID, client)
	defer rm.hub.Leave(roomID, client)
	rm.logger.Debug("websocket connected", zap.String("roomId", roomID), zap.String("userId", userID))

	if snapshot, err := rm.Snapshot(r.Context(), roomID); err == nil {
		if err := client.Send(snapshot); err != nil {
			return
		}
	}

	// clients only listen; reading detects the disconnect
	for {
		if _, _, err := conn.NextReader(); err != nil {
			rm.logger.Debug("websocket disconnected", zap.String("roomId", roomID), zap.String("userId", userID))
			return
		}
	}
}
