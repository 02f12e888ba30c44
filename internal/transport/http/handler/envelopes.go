package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/citizen-services/auth-api/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// CaptchaEnvelope wraps freshly issued captcha challenges. The text is
// returned in the clear; rendering it as an image is the client's concern.
type CaptchaEnvelope struct {
	CaptchaID   string `json:"captcha_id"`
	CaptchaText string `json:"captcha_text"`
	ExpiresIn   int64  `json:"expires_in"`
}

// TokenEnvelope wraps login and refresh responses.
type TokenEnvelope struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	AccountID    string `json:"account_id,omitempty"`
	Role         string `json:"role,omitempty"`
}

// AccountEnvelope wraps account responses.
type AccountEnvelope struct {
	Account *domain.Account `json:"account,omitempty"`
	Message string          `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

// httpError maps service errors onto HTTP statuses by error identity.
// Unrecognised errors become 500s with a generic body so internals never
// leak to clients.
func httpError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrInvalidCaptcha),
		errors.Is(err, domain.ErrInvalidOTP),
		errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrExpiredToken),
		errors.Is(err, domain.ErrMalformedToken):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrAccountInactive), errors.Is(err, domain.ErrRoleMismatch):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrAccountNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrTooManyRequests):
		writeError(w, http.StatusTooManyRequests, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
