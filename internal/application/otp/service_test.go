package otp

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/citizen-services/auth-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockStore struct{ mock.Mock }

func (m *mockStore) Put(ctx context.Context, o *domain.OTP) error {
	return m.Called(ctx, o).Error(0)
}
func (m *mockStore) LatestValid(ctx context.Context, mobile, code string, role domain.Role, now int64) (*domain.OTP, error) {
	args := m.Called(ctx, mobile, code, role, now)
	if o, _ := args.Get(0).(*domain.OTP); o != nil {
		return o, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockStore) MarkUsed(ctx context.Context, mobile, otpID string, now int64) (bool, error) {
	args := m.Called(ctx, mobile, otpID, now)
	return args.Bool(0), args.Error(1)
}
func (m *mockStore) CountRecent(ctx context.Context, mobile string, role domain.Role, since int64) (int64, error) {
	args := m.Called(ctx, mobile, role, since)
	return args.Get(0).(int64), args.Error(1)
}
func (m *mockStore) DeleteExpired(ctx context.Context, now int64) (int, error) {
	args := m.Called(ctx, now)
	return args.Int(0), args.Error(1)
}

type mockAccounts struct{ mock.Mock }

func (m *mockAccounts) GetByMobile(ctx context.Context, mobile string) (*domain.Account, error) {
	args := m.Called(ctx, mobile)
	if a, _ := args.Get(0).(*domain.Account); a != nil {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockSink struct{ mock.Mock }

func (m *mockSink) Send(contact, subject, message string) {
	m.Called(contact, subject, message)
}

// --- helpers ---

const testMobile = "9876543210"

func activeCitizen() *domain.Account {
	return &domain.Account{
		AccountID:    "acc-1",
		MobileNumber: testMobile,
		Email:        "alice@example.com",
		Role:         domain.RoleCitizen,
		IsActive:     true,
	}
}

func newSvc(st *mockStore, ac *mockAccounts, sink *mockSink, rl RateLimit) Service {
	return NewService(st, ac, sink, 5*time.Minute, 6, rl)
}

func noRateLimit() RateLimit {
	return RateLimit{Enabled: false, Max: 3, Window: 15 * time.Minute}
}

// --- Issue ---

func TestIssue_HappyPath(t *testing.T) {
	st, ac, sink := &mockStore{}, &mockAccounts{}, &mockSink{}
	st.On("CountRecent", mock.Anything, testMobile, domain.RoleCitizen, mock.AnythingOfType("int64")).Return(int64(0), nil)
	ac.On("GetByMobile", mock.Anything, testMobile).Return(activeCitizen(), nil)

	var stored *domain.OTP
	st.On("Put", mock.Anything, mock.AnythingOfType("*domain.OTP")).
		Run(func(args mock.Arguments) { stored = args.Get(1).(*domain.OTP) }).
		Return(nil)
	sink.On("Send", testMobile, mock.Anything, mock.Anything).Return()

	code, err := newSvc(st, ac, sink, noRateLimit()).Issue(context.Background(), testMobile, domain.RoleCitizen, false)
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^[1-9]\d{5}$`), code)
	require.NotNil(t, stored)
	assert.Equal(t, code, stored.Code)
	assert.Equal(t, domain.RoleCitizen, stored.Role)
	assert.False(t, stored.IsUsed)
	assert.Greater(t, stored.ExpiresAt, stored.CreatedAt)
	sink.AssertCalled(t, "Send", testMobile, mock.Anything, mock.Anything)
}

func TestIssue_MalformedMobile(t *testing.T) {
	svc := newSvc(&mockStore{}, &mockAccounts{}, &mockSink{}, noRateLimit())

	for _, bad := range []string{"12345", "1234567890", "987654321a", ""} {
		_, err := svc.Issue(context.Background(), bad, domain.RoleCitizen, false)
		assert.ErrorIs(t, err, domain.ErrBadRequest, "mobile %q", bad)
	}
}

func TestIssue_UnknownAccount(t *testing.T) {
	st, ac := &mockStore{}, &mockAccounts{}
	st.On("CountRecent", mock.Anything, testMobile, domain.RoleCitizen, mock.AnythingOfType("int64")).Return(int64(0), nil)
	ac.On("GetByMobile", mock.Anything, testMobile).Return(nil, domain.ErrNotFound)

	_, err := newSvc(st, ac, &mockSink{}, noRateLimit()).Issue(context.Background(), testMobile, domain.RoleCitizen, false)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	st.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestIssue_UnknownAccountAllowedForRegistration(t *testing.T) {
	// Registration verification proceeds even when the account row is not
	// visible yet; the code is stored keyed by contact.
	st, ac, sink := &mockStore{}, &mockAccounts{}, &mockSink{}
	st.On("CountRecent", mock.Anything, testMobile, domain.RoleCitizen, mock.AnythingOfType("int64")).Return(int64(0), nil)
	ac.On("GetByMobile", mock.Anything, testMobile).Return(nil, domain.ErrNotFound)
	st.On("Put", mock.Anything, mock.AnythingOfType("*domain.OTP")).Return(nil)
	sink.On("Send", testMobile, mock.Anything, mock.Anything).Return()

	code, err := newSvc(st, ac, sink, noRateLimit()).Issue(context.Background(), testMobile, domain.RoleCitizen, true)
	require.NoError(t, err)
	assert.Len(t, code, 6)
}

func TestIssue_RoleMismatch(t *testing.T) {
	st, ac := &mockStore{}, &mockAccounts{}
	st.On("CountRecent", mock.Anything, testMobile, domain.RoleOperator, mock.AnythingOfType("int64")).Return(int64(0), nil)
	ac.On("GetByMobile", mock.Anything, testMobile).Return(activeCitizen(), nil)

	_, err := newSvc(st, ac, &mockSink{}, noRateLimit()).Issue(context.Background(), testMobile, domain.RoleOperator, false)
	assert.ErrorIs(t, err, domain.ErrRoleMismatch)
}

func TestIssue_InactiveAccount(t *testing.T) {
	inactive := activeCitizen()
	inactive.IsActive = false

	st, ac := &mockStore{}, &mockAccounts{}
	st.On("CountRecent", mock.Anything, testMobile, domain.RoleCitizen, mock.AnythingOfType("int64")).Return(int64(0), nil)
	ac.On("GetByMobile", mock.Anything, testMobile).Return(inactive, nil)

	_, err := newSvc(st, ac, &mockSink{}, noRateLimit()).Issue(context.Background(), testMobile, domain.RoleCitizen, false)
	assert.ErrorIs(t, err, domain.ErrAccountInactive)
}

func TestIssue_InactiveAccountAllowedForRegistration(t *testing.T) {
	inactive := activeCitizen()
	inactive.IsActive = false

	st, ac, sink := &mockStore{}, &mockAccounts{}, &mockSink{}
	st.On("CountRecent", mock.Anything, testMobile, domain.RoleCitizen, mock.AnythingOfType("int64")).Return(int64(0), nil)
	ac.On("GetByMobile", mock.Anything, testMobile).Return(inactive, nil)
	st.On("Put", mock.Anything, mock.AnythingOfType("*domain.OTP")).Return(nil)
	sink.On("Send", testMobile, mock.Anything, mock.Anything).Return()

	_, err := newSvc(st, ac, sink, noRateLimit()).Issue(context.Background(), testMobile, domain.RoleCitizen, true)
	assert.NoError(t, err)
}

func TestIssue_RateLimitEnforcedOnlyWhenEnabled(t *testing.T) {
	limited := RateLimit{Enabled: true, Max: 3, Window: 15 * time.Minute}

	st, ac := &mockStore{}, &mockAccounts{}
	st.On("CountRecent", mock.Anything, testMobile, domain.RoleCitizen, mock.AnythingOfType("int64")).Return(int64(3), nil)

	_, err := newSvc(st, ac, &mockSink{}, limited).Issue(context.Background(), testMobile, domain.RoleCitizen, false)
	assert.ErrorIs(t, err, domain.ErrTooManyRequests)

	// Same count with enforcement off: issuance proceeds.
	st2, ac2, sink2 := &mockStore{}, &mockAccounts{}, &mockSink{}
	st2.On("CountRecent", mock.Anything, testMobile, domain.RoleCitizen, mock.AnythingOfType("int64")).Return(int64(3), nil)
	ac2.On("GetByMobile", mock.Anything, testMobile).Return(activeCitizen(), nil)
	st2.On("Put", mock.Anything, mock.AnythingOfType("*domain.OTP")).Return(nil)
	sink2.On("Send", testMobile, mock.Anything, mock.Anything).Return()

	_, err = newSvc(st2, ac2, sink2, noRateLimit()).Issue(context.Background(), testMobile, domain.RoleCitizen, false)
	assert.NoError(t, err)
}

func TestIssue_CountFailureDoesNotBlock(t *testing.T) {
	st, ac, sink := &mockStore{}, &mockAccounts{}, &mockSink{}
	st.On("CountRecent", mock.Anything, testMobile, domain.RoleCitizen, mock.AnythingOfType("int64")).
		Return(int64(0), errors.New("throttled"))
	ac.On("GetByMobile", mock.Anything, testMobile).Return(activeCitizen(), nil)
	st.On("Put", mock.Anything, mock.AnythingOfType("*domain.OTP")).Return(nil)
	sink.On("Send", testMobile, mock.Anything, mock.Anything).Return()

	_, err := newSvc(st, ac, sink, RateLimit{Enabled: true, Max: 3, Window: 15 * time.Minute}).
		Issue(context.Background(), testMobile, domain.RoleCitizen, false)
	assert.NoError(t, err)
}

// --- Verify / Consume ---

func TestVerify_MatchesLatestValidRow(t *testing.T) {
	st := &mockStore{}
	st.On("LatestValid", mock.Anything, testMobile, "123456", domain.RoleCitizen, mock.AnythingOfType("int64")).
		Return(&domain.OTP{MobileNumber: testMobile, OTPID: "otp-1", Code: "123456"}, nil)
	st.On("LatestValid", mock.Anything, testMobile, "123456", domain.RoleOperator, mock.AnythingOfType("int64")).
		Return(nil, domain.ErrNotFound)

	svc := newSvc(st, &mockAccounts{}, &mockSink{}, noRateLimit())
	assert.True(t, svc.Verify(context.Background(), testMobile, "123456", domain.RoleCitizen))
	// A citizen code never validates an operator request.
	assert.False(t, svc.Verify(context.Background(), testMobile, "123456", domain.RoleOperator))
	assert.False(t, svc.Verify(context.Background(), testMobile, "", domain.RoleCitizen))
}

func TestConsume_MarksLatestRowUsed(t *testing.T) {
	st := &mockStore{}
	st.On("LatestValid", mock.Anything, testMobile, "123456", domain.RoleCitizen, mock.AnythingOfType("int64")).
		Return(&domain.OTP{MobileNumber: testMobile, OTPID: "otp-9", Code: "123456"}, nil)
	st.On("MarkUsed", mock.Anything, testMobile, "otp-9", mock.AnythingOfType("int64")).Return(true, nil)

	svc := newSvc(st, &mockAccounts{}, &mockSink{}, noRateLimit())
	require.NoError(t, svc.Consume(context.Background(), testMobile, "123456", domain.RoleCitizen))
	st.AssertCalled(t, "MarkUsed", mock.Anything, testMobile, "otp-9", mock.AnythingOfType("int64"))
}

func TestConsume_NoopWhenNoMatch(t *testing.T) {
	st := &mockStore{}
	st.On("LatestValid", mock.Anything, testMobile, "000000", domain.RoleCitizen, mock.AnythingOfType("int64")).
		Return(nil, domain.ErrNotFound)

	svc := newSvc(st, &mockAccounts{}, &mockSink{}, noRateLimit())
	assert.NoError(t, svc.Consume(context.Background(), testMobile, "000000", domain.RoleCitizen))
	st.AssertNotCalled(t, "MarkUsed", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestConsume_LostRaceIsNotAnError(t *testing.T) {
	st := &mockStore{}
	st.On("LatestValid", mock.Anything, testMobile, "123456", domain.RoleCitizen, mock.AnythingOfType("int64")).
		Return(&domain.OTP{MobileNumber: testMobile, OTPID: "otp-9", Code: "123456"}, nil)
	st.On("MarkUsed", mock.Anything, testMobile, "otp-9", mock.AnythingOfType("int64")).Return(false, nil)

	svc := newSvc(st, &mockAccounts{}, &mockSink{}, noRateLimit())
	assert.NoError(t, svc.Consume(context.Background(), testMobile, "123456", domain.RoleCitizen))
}

// --- misc ---

func TestRandomCode_Range(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := randomCode(6)
		require.NoError(t, err)
		assert.Regexp(t, regexp.MustCompile(`^[1-9]\d{5}$`), code)
	}
}

func TestReclaim_DelegatesToStore(t *testing.T) {
	st := &mockStore{}
	now := time.Now()
	st.On("DeleteExpired", mock.Anything, now.Unix()).Return(7, nil)

	svc := newSvc(st, &mockAccounts{}, &mockSink{}, noRateLimit())
	n, err := svc.Reclaim(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}
