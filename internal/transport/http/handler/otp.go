package handler

import (
	"encoding/json"
	"net/http"

	"github.com/citizen-services/auth-api/internal/application/otp"
	"github.com/citizen-services/auth-api/internal/domain"
	"github.com/citizen-services/auth-api/internal/pkg/validate"
)

// OTPHandler handles one-time passcode requests.
type OTPHandler struct {
	svc otp.Service
}

func NewOTPHandler(svc otp.Service) *OTPHandler {
	return &OTPHandler{svc: svc}
}

type requestOTPBody struct {
	MobileNumber string `json:"mobile_number" validate:"required,len=10,numeric"`
	Role         string `json:"role" validate:"required"`
}

// Request issues a new passcode for the given mobile and role. The code
// itself travels only over the notification channel, never in the response.
func (h *OTPHandler) Request(w http.ResponseWriter, r *http.Request) {
	var body requestOTPBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	role, err := domain.ParseRole(body.Role)
	if err != nil {
		httpError(w, err)
		return
	}
	if _, err := h.svc.Issue(r.Context(), body.MobileNumber, role, false); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "otp sent to registered mobile number"})
}
