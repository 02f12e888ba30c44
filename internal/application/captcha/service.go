package captcha

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/citizen-services/auth-api/internal/domain"
	"github.com/google/uuid"
)

// alphabet excludes visually confusing characters (0/O, 1/I).
const (
	alphabet      = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	captchaLength = 6
)

// Store is the persistence contract for captcha challenges.
type Store interface {
	Put(ctx context.Context, c *domain.Captcha) error
	Get(ctx context.Context, captchaID string) (*domain.Captcha, error)
	MarkUsed(ctx context.Context, captchaID string, now int64) (bool, error)
	DeleteExpired(ctx context.Context, now int64) (int, error)
}

// Service implements the captcha challenge lifecycle: issue, check, consume,
// reclaim. Challenges are single-use and expire after the configured TTL.
type Service interface {
	Issue(ctx context.Context, origin string) (id, text string, err error)
	Check(ctx context.Context, id, text string) bool
	Consume(ctx context.Context, id, text string) error
	Reclaim(ctx context.Context, now time.Time) (int, error)
}

type service struct {
	store Store
	ttl   time.Duration
}

func NewService(store Store, ttl time.Duration) Service {
	return &service{store: store, ttl: ttl}
}

// Issue generates a challenge and returns its id and plaintext. The text is
// shown to the caller directly; this is a typed challenge, not a rendered
// image. The origin tag is stored best-effort and never used in validation.
func (s *service) Issue(ctx context.Context, origin string) (string, string, error) {
	text, err := randomText(captchaLength)
	if err != nil {
		return "", "", err
	}
	now := time.Now()
	c := &domain.Captcha{
		CaptchaID: uuid.NewString(),
		Text:      text,
		IsUsed:    false,
		IPAddress: origin,
		CreatedAt: now.Unix(),
		ExpiresAt: now.Add(s.ttl).Unix(),
	}
	if err := s.store.Put(ctx, c); err != nil {
		return "", "", fmt.Errorf("store captcha: %w", err)
	}
	slog.Debug("captcha issued", "captcha_id", c.CaptchaID)
	return c.CaptchaID, c.Text, nil
}

// Check reports whether the challenge is currently consumable with the given
// text. Comparison is case-insensitive. Read-only: check and consume are
// separate so a caller can validate before committing to a multi-step flow.
func (s *service) Check(ctx context.Context, id, text string) bool {
	if id == "" || text == "" {
		return false
	}
	c, err := s.store.Get(ctx, id)
	if err != nil {
		return false
	}
	if c.IsUsed || c.ExpiresAt <= time.Now().Unix() {
		return false
	}
	return strings.EqualFold(c.Text, text)
}

// Consume marks the challenge used. A challenge that is missing, already
// used, expired, or whose text does not match is left alone without error;
// callers are expected to have run Check first.
func (s *service) Consume(ctx context.Context, id, text string) error {
	c, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("consume captcha: %w", err)
	}
	if !strings.EqualFold(c.Text, text) {
		return nil
	}
	consumed, err := s.store.MarkUsed(ctx, id, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("consume captcha: %w", err)
	}
	if consumed {
		slog.Debug("captcha consumed", "captcha_id", id)
	}
	return nil
}

// Reclaim deletes challenges past expiry.
func (s *service) Reclaim(ctx context.Context, now time.Time) (int, error) {
	return s.store.DeleteExpired(ctx, now.Unix())
}

func randomText(n int) (string, error) {
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
		if err != nil {
			return "", err
		}
		b[i] = alphabet[idx.Int64()]
	}
	return string(b), nil
}
