package models

import (
	"strings"
)

const (
	MaxPlayersLimit            = 100
	MaxTimePerQuestionSeconds  = 600
	DefaultTimePerQuestionSecs = 30
)

type CreateRoomReq struct {
	QuizID                 string       `json:"quizId"`
	MaxPlayers             int          `json:"maxPlayers"`
	TimePerQuestionSeconds int          `json:"timePerQuestionSeconds"`
	RewardPolicy           RewardPolicy `json:"rewardPolicy"`
}

// implements the middleware Validator interface
func (r *CreateRoomReq) Validate() error {
	r.QuizID = strings.TrimSpace(r.QuizID)
	if r.QuizID == "" {
		return &ErrorResponse{Code: "missing_quiz_id", Message: "quizId is required"}
	}
	if r.MaxPlayers < 1 || r.MaxPlayers > MaxPlayersLimit {
		return &ErrorResponse{Code: "invalid_max_players", Message: "maxPlayers must be between 1 and 100"}
	}
	if r.TimePerQuestionSeconds == 0 {
		r.TimePerQuestionSeconds = DefaultTimePerQuestionSecs
	}
	if r.TimePerQuestionSeconds < 1 || r.TimePerQuestionSeconds > MaxTimePerQuestionSeconds {
		return &ErrorResponse{Code: "invalid_time_per_question", Message: "timePerQuestionSeconds must be between 1 and 600"}
	}
	if r.RewardPolicy.Type == "" {
		r.RewardPolicy.Type = RewardNone
	}
	if err := r.RewardPolicy.Validate(); err != nil {
		return &ErrorResponse{Code: "invalid_reward_policy", Message: err.Error()}
	}
	return nil
}

type JoinReq struct {
	Code string `json:"code"`
}

func (r *JoinReq) Validate() error {
	r.Code = strings.ToUpper(strings.TrimSpace(r.Code))
	if r.Code == "" {
		return &ErrorResponse{Code: "missing_code", Message: "code is required"}
	}
	return nil
}

type AdvanceReq struct {
	QuestionIndex *int `json:"questionIndex"`
}

func (r *AdvanceReq) Validate() error {
	if r.QuestionIndex == nil {
		return &ErrorResponse{Code: "missing_question_index", Message: "questionIndex is required"}
	}
	if *r.QuestionIndex < 0 {
		return &ErrorResponse{Code: "invalid_question_index", Message: "questionIndex must not be negative"}
	}
	return nil
}

type SubmitScoreReq struct {
	Score          int  `json:"score"`
	CorrectAnswers int  `json:"correctAnswers"`
	QuestionIndex  int  `json:"questionIndex"`
	Finished       bool `json:"finished"`
}

func (r *SubmitScoreReq) Validate() error {
	if r.Score < 0 || r.CorrectAnswers < 0 || r.QuestionIndex < 0 {
		return &ErrorResponse{Code: "invalid_score", Message: "score, correctAnswers and questionIndex must not be negative"}
	}
	return nil
}
