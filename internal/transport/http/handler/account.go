package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/citizen-services/auth-api/internal/application/account"
	"github.com/citizen-services/auth-api/internal/domain"
	"github.com/citizen-services/auth-api/internal/pkg/validate"
	"github.com/citizen-services/auth-api/internal/transport/http/middleware"
)

// AccountGetter is the read slice of the account store used by Me.
type AccountGetter interface {
	Get(ctx context.Context, accountID string) (*domain.Account, error)
}

// AccountHandler handles registration, mobile verification and profile reads.
type AccountHandler struct {
	svc      account.Service
	accounts AccountGetter
}

func NewAccountHandler(svc account.Service, accounts AccountGetter) *AccountHandler {
	return &AccountHandler{svc: svc, accounts: accounts}
}

func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	a, err := h.svc.Register(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, AccountEnvelope{
		Account: a,
		Message: "account created, verify mobile number to activate",
	})
}

type verifyMobileBody struct {
	MobileNumber string `json:"mobile_number" validate:"required,len=10,numeric"`
	OTP          string `json:"otp" validate:"required"`
}

func (h *AccountHandler) VerifyMobile(w http.ResponseWriter, r *http.Request) {
	var body verifyMobileBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.VerifyMobile(r.Context(), body.MobileNumber, body.OTP); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "mobile verified, account active"})
}

// Me returns the account behind the presented access token.
func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	a, err := h.accounts.Get(r.Context(), claims.AccountID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AccountEnvelope{Account: a})
}
