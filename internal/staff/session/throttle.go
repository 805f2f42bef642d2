package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ms-checkin/internal/apperrors"

	"github.com/go-redis/redis/v8"
)

var ErrTooManyAttempts = apperrors.New(apperrors.ErrTooManyRequests, "Too many failed attempts. Please try again later.")

// Throttle counts failed passcode attempts per company and event code.
type Throttle struct {
	Client      *redis.Client
	MaxAttempts int
	Window      time.Duration
}

func NewThrottle(client *redis.Client, maxAttempts int, window time.Duration) *Throttle {
	return &Throttle{Client: client, MaxAttempts: maxAttempts, Window: window}
}

func throttleKey(companyCode, eventCode string) string {
	return fmt.Sprintf("staff_login_failures:%s:%s",
		strings.ToLower(strings.TrimSpace(companyCode)),
		strings.ToLower(strings.TrimSpace(eventCode)))
}

// Allow fails once MaxAttempts failures were recorded inside the window.
func (t *Throttle) Allow(ctx context.Context, companyCode, eventCode string) error {
	n, err := t.Client.Get(ctx, throttleKey(companyCode, eventCode)).Int()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return apperrors.Internal(err)
	}
	if n >= t.MaxAttempts {
		return ErrTooManyAttempts
	}
	return nil
}

// Fail records one failed attempt. The window starts at the first failure.
func (t *Throttle) Fail(ctx context.Context, companyCode, eventCode string) error {
	k := throttleKey(companyCode, eventCode)
	n, err := t.Client.Incr(ctx, k).Result()
	if err != nil {
		return err
	}
	if n == 1 {
		return t.Client.Expire(ctx, k, t.Window).Err()
	}
	return nil
}

// Reset clears the counter after a successful login.
func (t *Throttle) Reset(ctx context.Context, companyCode, eventCode string) error {
	return t.Client.Del(ctx, throttleKey(companyCode, eventCode)).Err()
}
