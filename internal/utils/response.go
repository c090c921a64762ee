package utils

import (
	"encoding/json"
	"net/http"

	"ifcoins/quizroom/internal/models"
)

// JSON writes a JSON response with status code
func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// WriteJSON wraps the payload in the standard {"ok":..., "info":...} envelope.
func WriteJSON(w http.ResponseWriter, code int, resp models.Resp) {
	JSON(w, code, resp)
}

// JSONError writes an error envelope with a machine readable code.
func JSONError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, models.Resp{OK: false, Info: models.ErrorResponse{Code: code, Message: message}})
}
