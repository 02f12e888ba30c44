package handler

import (
	"net/http"
	"time"

	"github.com/citizen-services/auth-api/internal/application/captcha"
	"github.com/citizen-services/auth-api/internal/transport/http/middleware"
)

// CaptchaHandler issues captcha challenges.
type CaptchaHandler struct {
	svc captcha.Service
	ttl time.Duration
}

func NewCaptchaHandler(svc captcha.Service, ttl time.Duration) *CaptchaHandler {
	return &CaptchaHandler{svc: svc, ttl: ttl}
}

func (h *CaptchaHandler) Issue(w http.ResponseWriter, r *http.Request) {
	id, text, err := h.svc.Issue(r.Context(), middleware.RealIP(r))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, CaptchaEnvelope{
		CaptchaID:   id,
		CaptchaText: text,
		ExpiresIn:   int64(h.ttl.Seconds()),
	})
}
