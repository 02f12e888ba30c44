package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/citizen-services/auth-api/internal/domain"
	"github.com/citizen-services/auth-api/internal/pkg/id"
	"github.com/citizen-services/auth-api/internal/pkg/mask"
	"github.com/citizen-services/auth-api/internal/pkg/validate"
	"golang.org/x/crypto/bcrypt"
)

// Store is the persistence contract for accounts.
type Store interface {
	Put(ctx context.Context, a *domain.Account) error
	GetByMobile(ctx context.Context, mobile string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	Update(ctx context.Context, accountID string, updates map[string]interface{}) error
}

// OTPIssuer is the slice of the passcode service needed for registration.
type OTPIssuer interface {
	Issue(ctx context.Context, mobile string, role domain.Role, allowInactive bool) (string, error)
	Verify(ctx context.Context, mobile, code string, role domain.Role) bool
	Consume(ctx context.Context, mobile, code string, role domain.Role) error
}

// Service handles citizen self-registration and mobile verification.
// Accounts start inactive and activate once the registration passcode is
// verified.
type Service interface {
	Register(ctx context.Context, req domain.RegisterAccountRequest) (*domain.Account, error)
	VerifyMobile(ctx context.Context, mobile, code string) error
}

type service struct {
	store Store
	otps  OTPIssuer
}

func NewService(store Store, otps OTPIssuer) Service {
	return &service{store: store, otps: otps}
}

func (s *service) Register(ctx context.Context, req domain.RegisterAccountRequest) (*domain.Account, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}
	mobile := strings.TrimSpace(req.MobileNumber)
	if !domain.IsMobileNumber(mobile) {
		return nil, fmt.Errorf("mobile number must be 10 digits starting with 6-9: %w", domain.ErrBadRequest)
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if _, err := s.store.GetByMobile(ctx, mobile); err == nil {
		return nil, fmt.Errorf("mobile number already registered: %w", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if _, err := s.store.GetByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("email already registered: %w", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	a := &domain.Account{
		AccountID:    id.New(),
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Email:        email,
		MobileNumber: mobile,
		PasswordHash: string(hash),
		Role:         domain.RoleCitizen,
		District:     strings.TrimSpace(req.District),
		Pincode:      strings.TrimSpace(req.Pincode),
		Address:      strings.TrimSpace(req.Address),
		IsActive:     false, // activated after mobile verification
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Put(ctx, a); err != nil {
		return nil, fmt.Errorf("store account: %w", err)
	}

	// allowInactive: the account was just created and is still inactive;
	// the row may not even be visible to the otp service's lookup yet.
	if _, err := s.otps.Issue(ctx, mobile, domain.RoleCitizen, true); err != nil {
		// The account exists; the caller can re-request the code.
		slog.Warn("registration otp issuance failed", "mobile", mask.Contact(mobile), "err", err)
	}

	slog.Info("account registered", "account_id", a.AccountID, "mobile", mask.Contact(mobile))
	return a, nil
}

func (s *service) VerifyMobile(ctx context.Context, mobile, code string) error {
	mobile = strings.TrimSpace(mobile)
	if !s.otps.Verify(ctx, mobile, code, domain.RoleCitizen) {
		return fmt.Errorf("verification code rejected: %w", domain.ErrInvalidOTP)
	}
	a, err := s.store.GetByMobile(ctx, mobile)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("no account for mobile: %w", domain.ErrAccountNotFound)
		}
		return err
	}
	if err := s.otps.Consume(ctx, mobile, code, domain.RoleCitizen); err != nil {
		return err
	}
	if err := s.store.Update(ctx, a.AccountID, map[string]interface{}{
		"is_active":          true,
		"is_mobile_verified": true,
	}); err != nil {
		return fmt.Errorf("activate account: %w", err)
	}
	slog.Info("mobile verified, account activated", "account_id", a.AccountID)
	return nil
}
