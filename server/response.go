package server

import (
	"encoding/json"
	"errors"
	"net/http"

	apperrors "github.com/jrsteele09/go-sso-bridge/internal/errors"
	"github.com/jrsteele09/go-sso-bridge/sso"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Envelope is the body of every JSON API response.
type Envelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func writeJSON(w http.ResponseWriter, statusCode int, body Envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Err(err).Msg("failed to write response body")
	}
}

func writeSuccess(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusOK, Envelope{Status: statusSuccess, Message: message, Data: data})
}

// writeError maps err to a status code and a caller-safe message. Client
// errors are logged at info; server errors at error with the full chain.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	statusCode := apperrors.HTTPStatus(err)

	var event *zerolog.Event
	if statusCode >= http.StatusInternalServerError {
		event = log.Error()
	} else {
		event = log.Info()
	}
	var rejected *sso.RejectedError
	if errors.As(err, &rejected) {
		event = event.Str("stage", string(rejected.Stage))
	}
	event.
		Err(err).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", statusCode).
		Bool("expected", apperrors.IsExpected(err)).
		Msg("request failed")

	writeJSON(w, statusCode, Envelope{Status: statusError, Message: apperrors.PublicMessage(err), Data: nil})
}
