package http

import (
	"net/http"

	"github.com/citizen-services/auth-api/internal/application/account"
	"github.com/citizen-services/auth-api/internal/application/auth"
	"github.com/citizen-services/auth-api/internal/application/captcha"
	"github.com/citizen-services/auth-api/internal/application/notify"
	"github.com/citizen-services/auth-api/internal/application/otp"
	"github.com/citizen-services/auth-api/internal/config"
	"github.com/citizen-services/auth-api/internal/transport/http/handler"
	appmiddleware "github.com/citizen-services/auth-api/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}

	// 5 requests/second, burst of 10 — applied to sensitive public endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	dispatcher := notify.NewDispatcher(deps.SMSSender, deps.Mailer)
	captchaSvc := captcha.NewService(deps.CaptchaRepo, cfg.CaptchaTTL)
	otpSvc := otp.NewService(deps.OTPRepo, deps.AccountRepo, dispatcher, cfg.OTPTTL, cfg.OTPLength, otp.RateLimit{
		Enabled: cfg.OTPRateLimitEnabled,
		Max:     cfg.OTPRateLimitMax,
		Window:  cfg.OTPRateLimitWindow,
	})
	authSvc := auth.NewService(deps.AccountRepo, captchaSvc, otpSvc, deps.JWTProvider, auth.BcryptVerifier{}, cfg.AccessTokenTTL)
	accountSvc := account.NewService(deps.AccountRepo, otpSvc)

	healthH := handler.NewHealthHandler()
	captchaH := handler.NewCaptchaHandler(captchaSvc, cfg.CaptchaTTL)
	otpH := handler.NewOTPHandler(otpSvc)
	authH := handler.NewAuthHandler(authSvc)
	accountH := handler.NewAccountHandler(accountSvc, deps.AccountRepo)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check", healthH.Ping)
		r.Post("/captcha", captchaH.Issue)
		r.With(sensitiveRL.Limit).Post("/otp/request", otpH.Request)
		r.With(sensitiveRL.Limit).Post("/auth/login", authH.Login)
		r.With(sensitiveRL.Limit).Post("/auth/login-otp", authH.LoginOTP)
		r.Post("/auth/refresh", authH.Refresh)
		r.With(sensitiveRL.Limit).Post("/accounts", accountH.Register)
		r.With(sensitiveRL.Limit).Post("/accounts/verify-mobile", accountH.VerifyMobile)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/accounts/me", accountH.Me)
		})
	})

	return r
}
