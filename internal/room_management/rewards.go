package room_management

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"ifcoins/quizroom/internal/metrics"
	"ifcoins/quizroom/internal/models"
	"ifcoins/quizroom/internal/repositories"
)

// creditReference identifies one coin credit so the ledger can drop repeats.
func creditReference(roomID string, position int) string {
	return fmt.Sprintf("quizroom:%s:%d", roomID, position)
}

// FinalizeAsHost is FinalizeAndDistributeRewards restricted to the room's host.
func (rm *RoomManager) FinalizeAsHost(ctx context.Context, roomID, callerID string) (*models.FinalizeResp, error) {
	room, err := rm.loadRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if err := requireHost(room, callerID); err != nil {
		return nil, err
	}
	return rm.FinalizeAndDistributeRewards(ctx, roomID)
}

// FinalizeAndDistributeRewards ranks a finished room, pays out its reward policy and
// writes the match history. The rewards_distributed flag is claimed first, so only
// one caller ever reaches distribution; everyone else gets ErrAlreadyDistributed.
func (rm *RoomManager) FinalizeAndDistributeRewards(ctx context.Context, roomID string) (*models.FinalizeResp, error) {
	room, err := rm.loadRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.RewardsDistributed {
		metrics.Finalizations.WithLabelValues("already_distributed").Inc()
		return nil, ErrAlreadyDistributed
	}
	if room.Status != models.RoomStatusFinished {
		return nil, ErrInvalidState
	}

	now := rm.now()
	claimed, err := rm.rooms.ConditionalUpdate(ctx, roomID, map[string]any{
		"rewards_distributed": true,
		"updated_at":          now,
	}, "rewards_distributed = ? AND status = ?", false, models.RoomStatusFinished)
	if err != nil {
		return nil, dependencyError("failed to claim finalization", err)
	}
	if !claimed {
		current, err := rm.loadRoom(ctx, roomID)
		if err != nil {
			return nil, err
		}
		if current.RewardsDistributed {
			metrics.Finalizations.WithLabelValues("already_distributed").Inc()
			return nil, ErrAlreadyDistributed
		}
		return nil, ErrInvalidState
	}

	// From here on the flag is set and the call cannot be repeated, so store
	// reads and the history write are retried and payout failures are recorded.
	logger := rm.logger.With(zap.String("roomId", roomID))

	var players []models.Player
	err = rm.retryStore(ctx, "list_players", func() error {
		var listErr error
		players, listErr = rm.players.ListByRoom(ctx, roomID)
		return listErr
	})
	if err != nil {
		metrics.Finalizations.WithLabelValues("failed").Inc()
		logger.Error("finalization claimed but players could not be read", zap.Error(err))
		return nil, dependencyError("failed to list players", err)
	}
	ranking := RankPlayers(players)

	positions := make(map[string]int, len(ranking))
	for _, entry := range ranking {
		positions[entry.PlayerID] = entry.Position
	}
	if err := rm.players.AssignPositions(ctx, positions); err != nil {
		logger.Error("failed to persist positions", zap.Error(err))
	}

	outcomes := rm.distribute(ctx, room, ranking)

	history := buildHistory(room, ranking, outcomes, now)
	err = rm.retryStore(ctx, "create_history", func() error { return rm.history.Create(ctx, history) })
	if err != nil {
		metrics.Finalizations.WithLabelValues("failed").Inc()
		logger.Error("rewards distributed but match history not saved",
			zap.Any("ranking", ranking), zap.Any("outcomes", outcomes), zap.Error(err))
		return nil, dependencyError("failed to save match history", err)
	}

	status := models.FinalizeStatusDistributed
	if history.PartialFailure {
		status = models.FinalizeStatusPartiallyDistributed
		logger.Warn("some rewards could not be delivered", zap.Any("failed", history.FailedRecipients()))
	}
	metrics.Finalizations.WithLabelValues(status).Inc()
	logger.Info("room finalized", zap.String("status", status), zap.Int("players", len(ranking)))

	rm.publish(ctx, models.EventRewardsDistributed, roomID)
	return &models.FinalizeResp{Status: status, History: history}, nil
}

// distribute pays out the room's reward policy to the ranking.
// One recipient's failure never stops the others.
func (rm *RoomManager) distribute(ctx context.Context, room *models.Room, ranking []models.RankingEntry) []models.RecipientOutcome {
	outcomes := []models.RecipientOutcome{}
	policy := room.RewardPolicy

	switch policy.Type {
	case models.RewardCoins:
		amounts := policy.CoinAmounts()
		for i, entry := range ranking {
			if i >= len(amounts) {
				break
			}
			amount := amounts[i]
			if amount <= 0 {
				continue
			}
			outcome := models.RecipientOutcome{
				UserID:    entry.UserID,
				Position:  entry.Position,
				Kind:      models.RewardCoins,
				Amount:    amount,
				Attempted: true,
			}
			var err error
			if rm.ledger == nil {
				err = errors.New("ledger not configured")
			} else {
				err = rm.ledger.Credit(ctx, entry.UserID, amount, creditReference(room.ID, entry.Position))
			}
			outcomes = append(outcomes, rm.recordOutcome(room.ID, outcome, err))
		}

	case models.RewardCard:
		if len(ranking) == 0 {
			break
		}
		winner := ranking[0]
		outcome := models.RecipientOutcome{
			UserID:    winner.UserID,
			Position:  winner.Position,
			Kind:      models.RewardCard,
			CardID:    policy.CardID,
			Attempted: true,
		}
		var err error
		if rm.cards == nil {
			err = errors.New("card inventory not configured")
		} else {
			err = rm.cards.Grant(ctx, winner.UserID, policy.CardID)
		}
		outcomes = append(outcomes, rm.recordOutcome(room.ID, outcome, err))

	case models.RewardExternal, models.RewardNone:
		// handed out outside the platform, or nothing at all
	}

	return outcomes
}

func (rm *RoomManager) recordOutcome(roomID string, outcome models.RecipientOutcome, err error) models.RecipientOutcome {
	result := "succeeded"
	if err != nil {
		result = "failed"
		outcome.Error = err.Error()
		rm.logger.Warn("reward delivery failed",
			zap.String("roomId", roomID), zap.String("userId", outcome.UserID),
			zap.String("kind", string(outcome.Kind)), zap.Error(err))
	} else {
		outcome.Succeeded = true
	}
	metrics.RewardDispatches.WithLabelValues(string(outcome.Kind), result).Inc()
	return outcome
}

func buildHistory(room *models.Room, ranking []models.RankingEntry, outcomes []models.RecipientOutcome, now time.Time) *models.MatchHistory {
	history := &models.MatchHistory{
		RoomID:            room.ID,
		QuizID:            room.QuizID,
		HostID:            room.HostID,
		TotalPlayers:      len(ranking),
		StartedAt:         room.CreatedAt,
		FinishedAt:        now,
		RewardType:        room.RewardPolicy.Type,
		RewardDescription: room.RewardPolicy.Describe(),
		RankingSnapshot:   datatypes.NewJSONType(ranking),
		RecipientOutcomes: datatypes.NewJSONType(outcomes),
		CreatedAt:         now,
	}
	if room.StartedAt != nil {
		history.StartedAt = *room.StartedAt
	}
	if room.FinishedAt != nil {
		history.FinishedAt = *room.FinishedAt
	}
	if len(ranking) > 0 {
		winner := ranking[0].UserID
		history.WinnerID = &winner
	}
	for _, outcome := range outcomes {
		if outcome.Attempted && !outcome.Succeeded {
			history.PartialFailure = true
		}
	}
	return history
}

func (rm *RoomManager) GetMatchHistory(ctx context.Context, roomID string) (*models.MatchHistory, error) {
	history, err := rm.history.GetByRoomID(ctx, roomID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrHistoryNotFound
	}
	if err != nil {
		return nil, dependencyError("failed to load match history", err)
	}
	return history, nil
}

func (rm *RoomManager) ListQuizHistory(ctx context.Context, quizID string) ([]models.MatchHistory, error) {
	histories, err := rm.history.ListByQuizID(ctx, quizID)
	if err != nil {
		return nil, dependencyError("failed to list match history", err)
	}
	return histories, nil
}

// RefreshActiveSnapshots republishes the state of every waiting or active room so
// clients that missed an event converge. It returns how many rooms were published.
func (rm *RoomManager) RefreshActiveSnapshots(ctx context.Context) (int, error) {
	rooms, err := rm.rooms.ListOpen(ctx)
	if err != nil {
		return 0, dependencyError("failed to list rooms", err)
	}
	for _, room := range rooms {
		rm.publish(ctx, models.EventSnapshotRefresh, room.ID)
	}
	return len(rooms), nil
}
