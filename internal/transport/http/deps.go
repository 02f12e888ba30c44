package http

import (
	"github.com/citizen-services/auth-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/citizen-services/auth-api/internal/infrastructure/jwt"
	"github.com/citizen-services/auth-api/internal/infrastructure/smtp"
	"github.com/citizen-services/auth-api/internal/infrastructure/sns"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	AccountRepo *dynamo.AccountRepo
	CaptchaRepo *dynamo.CaptchaRepo
	OTPRepo     *dynamo.OTPRepo
	Mailer      smtp.Mailer
	SMSSender   sns.SMSSender
	JWTProvider *jwtinfra.Provider
}
