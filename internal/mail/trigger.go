package mail

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"ms-checkin/internal/logger"
)

// Trigger pokes the external mail processor so freshly queued jobs go out
// without waiting for its next scheduled run.
type Trigger struct {
	URL     string
	Secret  string
	Timeout time.Duration
	Client  *http.Client
	Logger  *logger.Logger
}

func NewTrigger(url, secret string, timeout time.Duration, log *logger.Logger) *Trigger {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Trigger{
		URL:     url,
		Secret:  secret,
		Timeout: timeout,
		Client:  &http.Client{Timeout: timeout},
		Logger:  log,
	}
}

// Fire sends the request in the background and never reports failure to the
// caller. It returns a channel closed once the attempt has finished.
func (t *Trigger) Fire() <-chan struct{} {
	done := make(chan struct{})
	if t == nil || t.URL == "" {
		close(done)
		return done
	}

	go func() {
		defer close(done)
		if err := t.call(); err != nil && t.Logger != nil {
			t.Logger.Debug("MAIL", fmt.Sprintf("Mail processor trigger failed: %v", err))
		}
	}()
	return done
}

func (t *Trigger) call() error {
	ctx, cancel := context.WithTimeout(context.Background(), t.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.URL, nil)
	if err != nil {
		return err
	}
	if t.Secret != "" {
		req.Header.Set("Authorization", "Bearer "+t.Secret)
	}
	req.Header.Set("Cache-Control", "no-store")

	resp, err := t.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("mail processor returned %d", resp.StatusCode)
	}
	return nil
}
