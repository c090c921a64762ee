package models

type Resp struct {
	OK   bool        `json:"ok"`
	Info interface{} `json:"info"`
}

// uniform error responses
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ErrorResponse) Error() string {
	return e.Message
}

type FinalizeResp struct {
	Status  string        `json:"status"`
	History *MatchHistory `json:"history"`
}

const (
	FinalizeStatusDistributed          = "rewards_distributed"
	FinalizeStatusPartiallyDistributed = "rewards_partially_distributed"
)
