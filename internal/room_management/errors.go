package room_management

import (
	"errors"
	"net/http"
)

type Kind string

const (
	KindValidation    Kind = "validation"
	KindAuthorization Kind = "authorization"
	KindState         Kind = "state"
	KindNotFound      Kind = "not_found"
	KindDependency    Kind = "dependency"
	KindConflict      Kind = "conflict"
)

// Error is the domain error returned by every RoomManager operation.
// Two errors match under errors.Is when their codes are equal.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrNotHost            = &Error{Kind: KindAuthorization, Code: "not_host", Message: "only the host can do this"}
	ErrNotMember          = &Error{Kind: KindAuthorization, Code: "not_member", Message: "caller is not a player of this room"}
	ErrInvalidState       = &Error{Kind: KindState, Code: "invalid_state", Message: "operation not allowed in the room's current status"}
	ErrRoomFull           = &Error{Kind: KindState, Code: "room_full", Message: "room is full"}
	ErrOutOfOrderQuestion = &Error{Kind: KindState, Code: "out_of_order_question", Message: "question index must be greater than the current one"}
	ErrAlreadyDistributed = &Error{Kind: KindState, Code: "already_distributed", Message: "rewards were already distributed"}
	ErrAlreadyFinalized   = &Error{Kind: KindState, Code: "already_finalized", Message: "room is finalized and can no longer change"}
	ErrRoomNotFound       = &Error{Kind: KindNotFound, Code: "room_not_found", Message: "room not found"}
	ErrPlayerNotFound     = &Error{Kind: KindNotFound, Code: "player_not_found", Message: "player not found"}
	ErrHistoryNotFound    = &Error{Kind: KindNotFound, Code: "history_not_found", Message: "room has no match history yet"}
	ErrCodeSpaceExhausted = &Error{Kind: KindConflict, Code: "code_space_exhausted", Message: "could not allocate a free join code"}
)

func validationError(message string) *Error {
	return &Error{Kind: KindValidation, Code: "validation_error", Message: message}
}

func dependencyError(message string, err error) *Error {
	return &Error{Kind: KindDependency, Code: "dependency_error", Message: message, Err: err}
}

// KindOf returns the kind of a domain error, or "" for anything else.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// HTTPStatus maps a domain error to the response status.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthorization:
		return http.StatusForbidden
	case KindState:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindDependency:
		return http.StatusBadGateway
	case KindConflict:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
