package captcha

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/citizen-services/auth-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockStore struct{ mock.Mock }

func (m *mockStore) Put(ctx context.Context, c *domain.Captcha) error {
	return m.Called(ctx, c).Error(0)
}
func (m *mockStore) Get(ctx context.Context, captchaID string) (*domain.Captcha, error) {
	args := m.Called(ctx, captchaID)
	if c, _ := args.Get(0).(*domain.Captcha); c != nil {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockStore) MarkUsed(ctx context.Context, captchaID string, now int64) (bool, error) {
	args := m.Called(ctx, captchaID, now)
	return args.Bool(0), args.Error(1)
}
func (m *mockStore) DeleteExpired(ctx context.Context, now int64) (int, error) {
	args := m.Called(ctx, now)
	return args.Int(0), args.Error(1)
}

func validCaptcha(id, text string) *domain.Captcha {
	now := time.Now()
	return &domain.Captcha{
		CaptchaID: id,
		Text:      text,
		IsUsed:    false,
		CreatedAt: now.Unix(),
		ExpiresAt: now.Add(10 * time.Minute).Unix(),
	}
}

func TestIssue_GeneratesUnambiguousText(t *testing.T) {
	st := &mockStore{}
	var stored *domain.Captcha
	st.On("Put", mock.Anything, mock.AnythingOfType("*domain.Captcha")).
		Run(func(args mock.Arguments) { stored = args.Get(1).(*domain.Captcha) }).
		Return(nil)

	svc := NewService(st, 10*time.Minute)
	id, text, err := svc.Issue(context.Background(), "203.0.113.7")
	require.NoError(t, err)

	assert.NotEmpty(t, id)
	assert.Len(t, text, captchaLength)
	for _, r := range text {
		assert.True(t, strings.ContainsRune(alphabet, r), "character %q outside alphabet", r)
	}
	require.NotNil(t, stored)
	assert.Equal(t, id, stored.CaptchaID)
	assert.False(t, stored.IsUsed)
	assert.Equal(t, "203.0.113.7", stored.IPAddress)
	assert.Greater(t, stored.ExpiresAt, stored.CreatedAt)
}

func TestCheck_CaseInsensitive(t *testing.T) {
	st := &mockStore{}
	st.On("Get", mock.Anything, "c1").Return(validCaptcha("c1", "AB12CD"), nil)

	svc := NewService(st, 10*time.Minute)
	assert.True(t, svc.Check(context.Background(), "c1", "ab12cd"))
	assert.True(t, svc.Check(context.Background(), "c1", "AB12CD"))
	assert.False(t, svc.Check(context.Background(), "c1", "XY34ZW"))
}

func TestCheck_UsedOrExpired(t *testing.T) {
	used := validCaptcha("c1", "AB12CD")
	used.IsUsed = true
	expired := validCaptcha("c2", "AB12CD")
	expired.ExpiresAt = time.Now().Add(-time.Minute).Unix()

	st := &mockStore{}
	st.On("Get", mock.Anything, "c1").Return(used, nil)
	st.On("Get", mock.Anything, "c2").Return(expired, nil)
	st.On("Get", mock.Anything, "missing").Return(nil, domain.ErrNotFound)

	svc := NewService(st, 10*time.Minute)
	assert.False(t, svc.Check(context.Background(), "c1", "AB12CD"))
	assert.False(t, svc.Check(context.Background(), "c2", "AB12CD"))
	assert.False(t, svc.Check(context.Background(), "missing", "AB12CD"))
	assert.False(t, svc.Check(context.Background(), "", "AB12CD"))
}

func TestConsume_MarksUsedOnce(t *testing.T) {
	st := &mockStore{}
	st.On("Get", mock.Anything, "c1").Return(validCaptcha("c1", "AB12CD"), nil)
	st.On("MarkUsed", mock.Anything, "c1", mock.AnythingOfType("int64")).Return(true, nil)

	svc := NewService(st, 10*time.Minute)
	require.NoError(t, svc.Consume(context.Background(), "c1", "ab12cd"))
	st.AssertCalled(t, "MarkUsed", mock.Anything, "c1", mock.AnythingOfType("int64"))
}

func TestConsume_NoopOnMismatchOrMissing(t *testing.T) {
	st := &mockStore{}
	st.On("Get", mock.Anything, "c1").Return(validCaptcha("c1", "AB12CD"), nil)
	st.On("Get", mock.Anything, "missing").Return(nil, domain.ErrNotFound)

	svc := NewService(st, 10*time.Minute)
	assert.NoError(t, svc.Consume(context.Background(), "c1", "WRONG1"))
	assert.NoError(t, svc.Consume(context.Background(), "missing", "AB12CD"))
	st.AssertNotCalled(t, "MarkUsed", mock.Anything, mock.Anything, mock.Anything)
}

func TestConsume_ReadFailurePropagates(t *testing.T) {
	// Only a missing record is a no-op; a failed read must surface so the
	// caller doesn't treat an unreachable store as a consumed challenge.
	st := &mockStore{}
	st.On("Get", mock.Anything, "c1").Return(nil, assert.AnError)

	svc := NewService(st, 10*time.Minute)
	err := svc.Consume(context.Background(), "c1", "AB12CD")
	assert.ErrorIs(t, err, assert.AnError)
	st.AssertNotCalled(t, "MarkUsed", mock.Anything, mock.Anything, mock.Anything)
}

func TestConsume_AlreadyUsedIsNotAnError(t *testing.T) {
	// The conditional write losing the race reports consumed=false; the
	// caller sees no error either way.
	st := &mockStore{}
	st.On("Get", mock.Anything, "c1").Return(validCaptcha("c1", "AB12CD"), nil)
	st.On("MarkUsed", mock.Anything, "c1", mock.AnythingOfType("int64")).Return(false, nil)

	svc := NewService(st, 10*time.Minute)
	assert.NoError(t, svc.Consume(context.Background(), "c1", "AB12CD"))
}

func TestReclaim_DelegatesToStore(t *testing.T) {
	st := &mockStore{}
	now := time.Now()
	st.On("DeleteExpired", mock.Anything, now.Unix()).Return(3, nil)

	svc := NewService(st, 10*time.Minute)
	n, err := svc.Reclaim(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
