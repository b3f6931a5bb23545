package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cimillas/eventapi/internal/auth"
	"github.com/cimillas/eventapi/internal/domain"
	"go.uber.org/zap"
)

const (
	codeMethodNotAllowed     = "method_not_allowed"
	codeNotFound             = "not_found"
	codeInvalidRequestBody   = "invalid_request_body"
	codeMissingRequiredField = "missing_required_field"
	codeInvalidEventDate     = "invalid_event_date"
	codeInvalidID            = "invalid_id"
	codeEventNameRequired    = "event_name_required"
	codeEventDateRequired    = "event_date_required"
	codeInvalidTotalTickets  = "invalid_total_tickets"
	codeInvalidQuantity      = "invalid_quantity"
	codeInsufficientCapacity = "insufficient_capacity"
	codeEventNotFound        = "event_not_found"
	codeDuplicateEvent       = "duplicate_event"
	codeInvalidEmail         = "invalid_email"
	codePasswordRequired     = "password_required"
	codeInvalidRole          = "invalid_role"
	codeEmailTaken           = "email_taken"
	codeInvalidCredentials   = "invalid_credentials"
	codeMissingToken         = "missing_token"
	codeTokenExpired         = "token_expired"
	codeInvalidToken         = "invalid_token"
	codeForbidden            = "forbidden"
	codeInternalError        = "internal_error"
)

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Available *int   `json:"available,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeErrorBody(w, status, errorResponse{Error: msg, Code: code})
}

func writeErrorBody(w http.ResponseWriter, status int, body errorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(body)
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeServiceError maps service and auth errors to a status and code.
// Anything unrecognised is logged and reported as internal_error.
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var capErr *domain.CapacityError
	switch {
	case errors.As(err, &capErr):
		available := capErr.Available
		writeErrorBody(w, http.StatusBadRequest, errorResponse{
			Error:     capErr.Error(),
			Code:      codeInsufficientCapacity,
			Available: &available,
		})
	case errors.Is(err, domain.ErrInsufficientCapacity):
		writeError(w, http.StatusBadRequest, codeInsufficientCapacity, domain.ErrInsufficientCapacity.Error())
	case errors.Is(err, domain.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, codeInvalidQuantity, domain.ErrInvalidQuantity.Error())
	case errors.Is(err, domain.ErrEventNotFound):
		writeError(w, http.StatusNotFound, codeEventNotFound, domain.ErrEventNotFound.Error())
	case errors.Is(err, domain.ErrInvalidID):
		writeError(w, http.StatusNotFound, codeInvalidID, domain.ErrInvalidID.Error())
	case errors.Is(err, domain.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, codeForbidden, domain.ErrPermissionDenied.Error())
	case errors.Is(err, domain.ErrDuplicateEvent):
		writeError(w, http.StatusConflict, codeDuplicateEvent, domain.ErrDuplicateEvent.Error())
	case errors.Is(err, domain.ErrEventNameRequired):
		writeError(w, http.StatusBadRequest, codeEventNameRequired, domain.ErrEventNameRequired.Error())
	case errors.Is(err, domain.ErrEventDateRequired):
		writeError(w, http.StatusBadRequest, codeEventDateRequired, domain.ErrEventDateRequired.Error())
	case errors.Is(err, domain.ErrInvalidTotalTickets):
		writeError(w, http.StatusBadRequest, codeInvalidTotalTickets, domain.ErrInvalidTotalTickets.Error())
	case errors.Is(err, domain.ErrInvalidEmail):
		writeError(w, http.StatusBadRequest, codeInvalidEmail, domain.ErrInvalidEmail.Error())
	case errors.Is(err, domain.ErrPasswordRequired):
		writeError(w, http.StatusBadRequest, codePasswordRequired, domain.ErrPasswordRequired.Error())
	case errors.Is(err, domain.ErrInvalidRole):
		writeError(w, http.StatusBadRequest, codeInvalidRole, domain.ErrInvalidRole.Error())
	case errors.Is(err, domain.ErrEmailTaken):
		writeError(w, http.StatusConflict, codeEmailTaken, domain.ErrEmailTaken.Error())
	case errors.Is(err, domain.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, codeInvalidCredentials, domain.ErrInvalidCredentials.Error())
	case errors.Is(err, auth.ErrNoToken):
		writeError(w, http.StatusUnauthorized, codeMissingToken, auth.ErrNoToken.Error())
	case errors.Is(err, auth.ErrTokenExpired):
		writeError(w, http.StatusUnauthorized, codeTokenExpired, auth.ErrTokenExpired.Error())
	case errors.Is(err, auth.ErrTokenInvalid), errors.Is(err, domain.ErrUserNotFound):
		writeError(w, http.StatusUnauthorized, codeInvalidToken, auth.ErrTokenInvalid.Error())
	default:
		logger.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}
