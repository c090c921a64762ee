package models

import "time"

// Event types carried by room snapshots
const (
	EventRoomCreated        = "room_created"
	EventPlayerJoined       = "player_joined"
	EventPlayerLeft         = "player_left"
	EventRoomStarted        = "room_started"
	EventQuestionAdvanced   = "question_advanced"
	EventScoreSubmitted     = "score_submitted"
	EventRoomFinished       = "room_finished"
	EventRewardsDistributed = "rewards_distributed"
	EventRoomDeleted        = "room_deleted"
	EventSnapshotRefresh    = "snapshot_refresh"
	EventSnapshotSync       = "snapshot_sync"
)

// RoomSnapshot is the complete room state published after every mutation.
// Receivers treat each snapshot as authoritative; there are no deltas.
type RoomSnapshot struct {
	Type             string     `json:"type"`
	Room             Room       `json:"room"`
	Players          []Player   `json:"players"`
	QuestionDeadline *time.Time `json:"questionDeadline,omitempty"`
	Deleted          bool       `json:"deleted,omitempty"`
	PublishedAt      time.Time  `json:"publishedAt"`
}

func NewRoomSnapshot(eventType string, room Room, players []Player, now time.Time) RoomSnapshot {
	if players == nil {
		players = []Player{}
	}
	return RoomSnapshot{
		Type:             eventType,
		Room:             room,
		Players:          players,
		QuestionDeadline: room.QuestionDeadline(),
		PublishedAt:      now,
	}
}
