package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/citizen-services/auth-api/internal/domain"
	jwtinfra "github.com/citizen-services/auth-api/internal/infrastructure/jwt"
	"github.com/citizen-services/auth-api/internal/transport/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAccountSvc struct{ mock.Mock }

func (m *mockAccountSvc) Register(ctx context.Context, req domain.RegisterAccountRequest) (*domain.Account, error) {
	args := m.Called(ctx, req)
	if a, _ := args.Get(0).(*domain.Account); a != nil {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAccountSvc) VerifyMobile(ctx context.Context, mobile, code string) error {
	return m.Called(ctx, mobile, code).Error(0)
}

type mockAccountGetter struct{ mock.Mock }

func (m *mockAccountGetter) Get(ctx context.Context, accountID string) (*domain.Account, error) {
	args := m.Called(ctx, accountID)
	if a, _ := args.Get(0).(*domain.Account); a != nil {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

func TestRegisterHandler(t *testing.T) {
	body := domain.RegisterAccountRequest{
		FirstName:    "Asha",
		LastName:     "Verma",
		Email:        "asha@example.com",
		MobileNumber: "9876543210",
		Password:     "s3cret-pass",
	}

	t.Run("created", func(t *testing.T) {
		svc := new(mockAccountSvc)
		svc.On("Register", mock.Anything, body).Return(&domain.Account{AccountID: "a1", Role: domain.RoleCitizen}, nil)

		h := NewAccountHandler(svc, new(mockAccountGetter))
		rr := postJSON(t, h.Register, "/v1/accounts", body)

		assert.Equal(t, http.StatusCreated, rr.Code)
		var env AccountEnvelope
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
		assert.Equal(t, "a1", env.Account.AccountID)
		assert.Empty(t, env.Account.PasswordHash)
	})

	t.Run("duplicate maps to 409", func(t *testing.T) {
		svc := new(mockAccountSvc)
		svc.On("Register", mock.Anything, mock.Anything).Return(nil, domain.ErrConflict)

		h := NewAccountHandler(svc, new(mockAccountGetter))
		rr := postJSON(t, h.Register, "/v1/accounts", body)
		assert.Equal(t, http.StatusConflict, rr.Code)
	})
}

func TestVerifyMobileHandler(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		svc := new(mockAccountSvc)
		svc.On("VerifyMobile", mock.Anything, "9876543210", "654321").Return(nil)

		h := NewAccountHandler(svc, new(mockAccountGetter))
		rr := postJSON(t, h.VerifyMobile, "/v1/accounts/verify-mobile", map[string]string{
			"mobile_number": "9876543210",
			"otp":           "654321",
		})
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("invalid code maps to 401", func(t *testing.T) {
		svc := new(mockAccountSvc)
		svc.On("VerifyMobile", mock.Anything, "9876543210", "000000").Return(domain.ErrInvalidOTP)

		h := NewAccountHandler(svc, new(mockAccountGetter))
		rr := postJSON(t, h.VerifyMobile, "/v1/accounts/verify-mobile", map[string]string{
			"mobile_number": "9876543210",
			"otp":           "000000",
		})
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("short mobile rejected", func(t *testing.T) {
		svc := new(mockAccountSvc)
		h := NewAccountHandler(svc, new(mockAccountGetter))
		rr := postJSON(t, h.VerifyMobile, "/v1/accounts/verify-mobile", map[string]string{
			"mobile_number": "98765",
			"otp":           "654321",
		})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		svc.AssertNotCalled(t, "VerifyMobile", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestMe(t *testing.T) {
	t.Run("returns the token's account", func(t *testing.T) {
		getter := new(mockAccountGetter)
		getter.On("Get", mock.Anything, "a1").Return(&domain.Account{AccountID: "a1", Email: "asha@example.com"}, nil)

		h := NewAccountHandler(new(mockAccountSvc), getter)

		p, err := jwtinfra.NewProvider("me-handler-test-secret", time.Hour, 24*time.Hour)
		require.NoError(t, err)
		token, err := p.MintAccess("a1", "asha@example.com", domain.RoleCitizen)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/v1/accounts/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		middleware.Auth(p)(http.HandlerFunc(h.Me)).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		var env AccountEnvelope
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
		assert.Equal(t, "a1", env.Account.AccountID)
	})

	t.Run("no claims in context", func(t *testing.T) {
		h := NewAccountHandler(new(mockAccountSvc), new(mockAccountGetter))
		req := httptest.NewRequest(http.MethodGet, "/v1/accounts/me", nil)
		rr := httptest.NewRecorder()
		h.Me(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}
