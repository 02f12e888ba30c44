package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/citizen-services/auth-api/internal/domain"
	"github.com/citizen-services/auth-api/internal/pkg/id"
	"github.com/citizen-services/auth-api/internal/pkg/mask"
)

// Store is the persistence contract for passcode rows.
type Store interface {
	Put(ctx context.Context, o *domain.OTP) error
	LatestValid(ctx context.Context, mobile, code string, role domain.Role, now int64) (*domain.OTP, error)
	MarkUsed(ctx context.Context, mobile, otpID string, now int64) (bool, error)
	CountRecent(ctx context.Context, mobile string, role domain.Role, since int64) (int64, error)
	DeleteExpired(ctx context.Context, now int64) (int, error)
}

// AccountReader looks up accounts by mobile number.
type AccountReader interface {
	GetByMobile(ctx context.Context, mobile string) (*domain.Account, error)
}

// Sink accepts a message for asynchronous delivery.
type Sink interface {
	Send(contact, subject, message string)
}

// RateLimit configures the issuance cap per contact+role inside a sliding
// window. The recent-issuance count is queried on every Issue regardless of
// Enabled, so turning enforcement on needs no schema change.
type RateLimit struct {
	Enabled bool
	Max     int
	Window  time.Duration
}

// Service implements the passcode lifecycle: issue, verify, consume, reclaim.
type Service interface {
	// Issue validates the contact and account state, persists a fresh code
	// and hands it to the notification sink. allowInactive relaxes the
	// account checks for the registration-verification flow. The code is
	// returned to the caller; transport layers must not expose it.
	Issue(ctx context.Context, mobile string, role domain.Role, allowInactive bool) (string, error)
	Verify(ctx context.Context, mobile, code string, role domain.Role) bool
	Consume(ctx context.Context, mobile, code string, role domain.Role) error
	Reclaim(ctx context.Context, now time.Time) (int, error)
}

type service struct {
	store     Store
	accounts  AccountReader
	sink      Sink
	ttl       time.Duration
	length    int
	rateLimit RateLimit
}

func NewService(store Store, accounts AccountReader, sink Sink, ttl time.Duration, length int, rl RateLimit) Service {
	if length < 4 {
		length = 6
	}
	return &service{store: store, accounts: accounts, sink: sink, ttl: ttl, length: length, rateLimit: rl}
}

func (s *service) Issue(ctx context.Context, mobile string, role domain.Role, allowInactive bool) (string, error) {
	if !domain.IsMobileNumber(mobile) {
		return "", fmt.Errorf("invalid mobile number: %w", domain.ErrBadRequest)
	}

	now := time.Now()

	// The count runs even while enforcement is off so the query path stays
	// exercised and the cap can be enabled by configuration alone. A count
	// failure never blocks issuance.
	since := now.Add(-s.rateLimit.Window).Unix()
	recent, err := s.store.CountRecent(ctx, mobile, role, since)
	if err != nil {
		slog.Warn("otp issuance count failed", "mobile", mask.Contact(mobile), "err", err)
	} else if s.rateLimit.Enabled && recent >= int64(s.rateLimit.Max) {
		slog.Warn("otp rate limit exceeded", "mobile", mask.Contact(mobile), "role", role)
		return "", fmt.Errorf("otp issuance rate exceeded: %w", domain.ErrTooManyRequests)
	}

	account, err := s.accounts.GetByMobile(ctx, mobile)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		if !allowInactive {
			slog.Warn("otp request for unregistered mobile", "mobile", mask.Contact(mobile))
			return "", fmt.Errorf("mobile number not registered: %w", domain.ErrAccountNotFound)
		}
		// Registration verification: the account row may not be visible
		// yet. The code is stored keyed by contact and will match once the
		// account exists.
		slog.Warn("otp issued for mobile without visible account", "mobile", mask.Contact(mobile))
	case err != nil:
		return "", fmt.Errorf("look up account: %w", err)
	default:
		if account.Role != role {
			slog.Warn("otp request role mismatch", "mobile", mask.Contact(mobile), "want", role, "have", account.Role)
			return "", fmt.Errorf("account role does not match: %w", domain.ErrRoleMismatch)
		}
		if !allowInactive && !account.IsActive {
			slog.Warn("otp request for inactive account", "mobile", mask.Contact(mobile))
			return "", fmt.Errorf("account is inactive: %w", domain.ErrAccountInactive)
		}
	}

	code, err := randomCode(s.length)
	if err != nil {
		return "", err
	}
	row := &domain.OTP{
		MobileNumber: mobile,
		OTPID:        id.New(),
		Role:         role,
		Code:         code,
		IsUsed:       false,
		CreatedAt:    now.Unix(),
		ExpiresAt:    now.Add(s.ttl).Unix(),
	}
	if err := s.store.Put(ctx, row); err != nil {
		return "", fmt.Errorf("store otp: %w", err)
	}

	// Delivery is best-effort: the code stays valid even if the SMS never
	// arrives, so the caller can retry delivery out of band.
	msg := fmt.Sprintf("Your verification code is %s. Valid for %d minutes.", code, int(s.ttl.Minutes()))
	s.sink.Send(mobile, "Verification code", msg)

	slog.Info("otp issued", "mobile", mask.Contact(mobile), "role", role)
	return code, nil
}

func (s *service) Verify(ctx context.Context, mobile, code string, role domain.Role) bool {
	if mobile == "" || code == "" {
		return false
	}
	_, err := s.store.LatestValid(ctx, mobile, code, role, time.Now().Unix())
	return err == nil
}

// Consume marks the most recent matching valid row used. Missing or
// already-consumed rows are a no-op, not an error.
func (s *service) Consume(ctx context.Context, mobile, code string, role domain.Role) error {
	now := time.Now().Unix()
	row, err := s.store.LatestValid(ctx, mobile, code, role, now)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	consumed, err := s.store.MarkUsed(ctx, mobile, row.OTPID, now)
	if err != nil {
		return fmt.Errorf("consume otp: %w", err)
	}
	if consumed {
		slog.Debug("otp consumed", "mobile", mask.Contact(mobile))
	}
	return nil
}

func (s *service) Reclaim(ctx context.Context, now time.Time) (int, error) {
	return s.store.DeleteExpired(ctx, now.Unix())
}

// randomCode returns a uniformly random n-digit code with no leading zero,
// e.g. 100000-999999 for n=6.
func randomCode(n int) (string, error) {
	min := int64(1)
	for i := 1; i < n; i++ {
		min *= 10
	}
	v, err := rand.Int(rand.Reader, big.NewInt(9*min))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", min+v.Int64()), nil
}
