package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/citizen-services/auth-api/internal/domain"
	jwtinfra "github.com/citizen-services/auth-api/internal/infrastructure/jwt"
	"github.com/citizen-services/auth-api/internal/pkg/mask"
	"golang.org/x/crypto/bcrypt"
)

type PasswordLoginRequest struct {
	Username    string `json:"username" validate:"required"`
	Password    string `json:"password" validate:"required"`
	CaptchaID   string `json:"captcha_id" validate:"required"`
	CaptchaText string `json:"captcha_text" validate:"required"`
	Role        string `json:"role" validate:"required"`
}

type OTPLoginRequest struct {
	MobileNumber string `json:"mobile_number" validate:"required,len=10,numeric"`
	OTP          string `json:"otp" validate:"required"`
	CaptchaID    string `json:"captcha_id" validate:"required"`
	CaptchaText  string `json:"captcha_text" validate:"required"`
	Role         string `json:"role" validate:"required"`
}

// LoginResult is returned by all three coordinator operations.
type LoginResult struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	AccountID    string      `json:"account_id"`
	Role         domain.Role `json:"role"`
	Email        string      `json:"email"`
	MobileNumber string      `json:"mobile_number"`
	ExpiresIn    int64       `json:"expires_in"`
}

// AccountStore resolves accounts for credential verification.
type AccountStore interface {
	Get(ctx context.Context, accountID string) (*domain.Account, error)
	GetByMobile(ctx context.Context, mobile string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
}

// CaptchaGate validates and consumes captcha challenges.
type CaptchaGate interface {
	Check(ctx context.Context, id, text string) bool
	Consume(ctx context.Context, id, text string) error
}

// OTPGate validates and consumes passcodes.
type OTPGate interface {
	Verify(ctx context.Context, mobile, code string, role domain.Role) bool
	Consume(ctx context.Context, mobile, code string, role domain.Role) error
}

// TokenIssuer mints and inspects signed tokens.
type TokenIssuer interface {
	MintAccess(accountID, contact string, role domain.Role) (string, error)
	MintRefresh(accountID, contact string) (string, error)
	VerifyRefresh(token string) bool
	Claims(token string) (*jwtinfra.Claims, error)
}

// PasswordVerifier checks a plaintext password against a stored hash. The
// hash format is opaque to this package.
type PasswordVerifier interface {
	Verify(plain, hash string) bool
}

// BcryptVerifier is the default PasswordVerifier.
type BcryptVerifier struct{}

func (BcryptVerifier) Verify(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// Service is the session coordinator: it runs the credential-verification
// flows and mints tokens. Each call is stateless end-to-end.
type Service interface {
	LoginWithPassword(ctx context.Context, req PasswordLoginRequest) (*LoginResult, error)
	LoginWithOTP(ctx context.Context, req OTPLoginRequest) (*LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*LoginResult, error)
}

type service struct {
	accounts  AccountStore
	captchas  CaptchaGate
	otps      OTPGate
	tokens    TokenIssuer
	passwords PasswordVerifier
	accessTTL time.Duration
}

func NewService(accounts AccountStore, captchas CaptchaGate, otps OTPGate, tokens TokenIssuer, passwords PasswordVerifier, accessTTL time.Duration) Service {
	return &service{
		accounts:  accounts,
		captchas:  captchas,
		otps:      otps,
		tokens:    tokens,
		passwords: passwords,
		accessTTL: accessTTL,
	}
}

// LoginWithPassword runs the password flow. The captcha is validated and
// consumed before any account lookup so automated abuse is rejected before
// touching the account store. "Account not found" and "wrong password"
// surface the same ErrInvalidCredentials to avoid leaking which identifiers
// are registered; an inactive account is reported distinctly because the
// caller can act on it (verify the mobile number).
func (s *service) LoginWithPassword(ctx context.Context, req PasswordLoginRequest) (*LoginResult, error) {
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		return nil, err
	}
	if err := s.gateCaptcha(ctx, req.CaptchaID, req.CaptchaText); err != nil {
		return nil, err
	}

	username := strings.TrimSpace(req.Username)
	account, err := s.findByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			slog.Warn("password login failed: account not found", "username", mask.Contact(username))
			return nil, fmt.Errorf("unknown account: %w", domain.ErrInvalidCredentials)
		}
		return nil, err
	}
	if account.Role != role {
		slog.Warn("password login failed: role mismatch", "account_id", account.AccountID)
		return nil, fmt.Errorf("role mismatch: %w", domain.ErrInvalidCredentials)
	}
	if !account.IsActive {
		slog.Warn("password login failed: inactive account", "account_id", account.AccountID)
		return nil, fmt.Errorf("account not active: %w", domain.ErrAccountInactive)
	}
	if !s.passwords.Verify(req.Password, account.PasswordHash) {
		slog.Warn("password login failed: bad password", "account_id", account.AccountID)
		return nil, fmt.Errorf("bad password: %w", domain.ErrInvalidCredentials)
	}

	res, err := s.issueTokens(account)
	if err != nil {
		return nil, err
	}
	slog.Info("password login", "account_id", account.AccountID, "role", account.Role)
	return res, nil
}

// LoginWithOTP runs the OTP flow: captcha first, then passcode, then the
// account checks, and only then is the passcode consumed.
func (s *service) LoginWithOTP(ctx context.Context, req OTPLoginRequest) (*LoginResult, error) {
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		return nil, err
	}
	if err := s.gateCaptcha(ctx, req.CaptchaID, req.CaptchaText); err != nil {
		return nil, err
	}

	mobile := strings.TrimSpace(req.MobileNumber)
	code := strings.TrimSpace(req.OTP)
	if !s.otps.Verify(ctx, mobile, code, role) {
		slog.Warn("otp login failed: invalid otp", "mobile", mask.Contact(mobile))
		return nil, fmt.Errorf("otp rejected: %w", domain.ErrInvalidOTP)
	}

	account, err := s.accounts.GetByMobile(ctx, mobile)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			slog.Warn("otp login failed: account not found", "mobile", mask.Contact(mobile))
			return nil, fmt.Errorf("unknown account: %w", domain.ErrInvalidCredentials)
		}
		return nil, err
	}
	if account.Role != role {
		slog.Warn("otp login failed: role mismatch", "account_id", account.AccountID)
		return nil, fmt.Errorf("role mismatch: %w", domain.ErrInvalidCredentials)
	}
	if !account.IsActive {
		slog.Warn("otp login failed: inactive account", "account_id", account.AccountID)
		return nil, fmt.Errorf("account not active: %w", domain.ErrAccountInactive)
	}

	if err := s.otps.Consume(ctx, mobile, code, role); err != nil {
		return nil, err
	}

	res, err := s.issueTokens(account)
	if err != nil {
		return nil, err
	}
	slog.Info("otp login", "account_id", account.AccountID, "role", account.Role)
	return res, nil
}

// Refresh mints a new access token from a valid refresh token. The account
// is re-resolved so the fresh access token carries the current role and
// contact. The refresh token itself is echoed back unchanged; there is no
// rotation in this design.
func (s *service) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	if !s.tokens.VerifyRefresh(refreshToken) {
		return nil, fmt.Errorf("refresh token rejected: %w", domain.ErrInvalidCredentials)
	}
	claims, err := s.tokens.Claims(refreshToken)
	if err != nil {
		return nil, err
	}

	account, err := s.accounts.Get(ctx, claims.AccountID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			slog.Warn("refresh failed: account vanished", "account_id", claims.AccountID)
			return nil, fmt.Errorf("unknown account: %w", domain.ErrInvalidCredentials)
		}
		return nil, err
	}

	accessToken, err := s.tokens.MintAccess(account.AccountID, contactOf(account), account.Role)
	if err != nil {
		return nil, err
	}
	slog.Info("token refreshed", "account_id", account.AccountID)
	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		AccountID:    account.AccountID,
		Role:         account.Role,
		Email:        account.Email,
		MobileNumber: account.MobileNumber,
		ExpiresIn:    int64(s.accessTTL.Seconds()),
	}, nil
}

// gateCaptcha validates and consumes the challenge in one step, failing
// closed with ErrInvalidCaptcha.
func (s *service) gateCaptcha(ctx context.Context, id, text string) error {
	if !s.captchas.Check(ctx, id, text) {
		slog.Warn("login failed: invalid captcha", "captcha_id", id)
		return fmt.Errorf("captcha rejected: %w", domain.ErrInvalidCaptcha)
	}
	return s.captchas.Consume(ctx, id, text)
}

// findByUsername disambiguates mobile numbers from email addresses by shape:
// a 10-digit string starting 6-9 is a mobile number, anything else an email.
func (s *service) findByUsername(ctx context.Context, username string) (*domain.Account, error) {
	if domain.IsMobileNumber(username) {
		return s.accounts.GetByMobile(ctx, username)
	}
	return s.accounts.GetByEmail(ctx, strings.ToLower(username))
}

func (s *service) issueTokens(account *domain.Account) (*LoginResult, error) {
	contact := contactOf(account)
	accessToken, err := s.tokens.MintAccess(account.AccountID, contact, account.Role)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.tokens.MintRefresh(account.AccountID, contact)
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		AccountID:    account.AccountID,
		Role:         account.Role,
		Email:        account.Email,
		MobileNumber: account.MobileNumber,
		ExpiresIn:    int64(s.accessTTL.Seconds()),
	}, nil
}

func contactOf(a *domain.Account) string {
	if a.Email != "" {
		return a.Email
	}
	return a.MobileNumber
}
