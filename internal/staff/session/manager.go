package session

import (
	"context"
	"fmt"

	"ms-checkin/internal/apperrors"
	"ms-checkin/internal/logger"
	"ms-checkin/internal/metrics"
	"ms-checkin/internal/models"
)

type Verifier interface {
	VerifyStaffLogin(ctx context.Context, companyCode, eventCode, passcode string) (*models.StaffSession, error)
}

// Manager issues and ends staff sessions.
type Manager struct {
	Verifier Verifier
	Store    *Store
	Throttle *Throttle
	Metrics  *metrics.Metrics
	Logger   *logger.Logger
}

func NewManager(v Verifier, store *Store, throttle *Throttle, m *metrics.Metrics, log *logger.Logger) *Manager {
	return &Manager{Verifier: v, Store: store, Throttle: throttle, Metrics: m, Logger: log}
}

// Login checks the event passcode and stores a new session scoped to that
// event. Wrong passcodes count towards the throttle.
func (m *Manager) Login(ctx context.Context, companyCode, eventCode, passcode string) (*models.StaffSession, error) {
	if err := m.Throttle.Allow(ctx, companyCode, eventCode); err != nil {
		if m.Logger != nil && apperrors.Is(err, apperrors.ErrTooManyRequests) {
			m.Logger.LogSecurity("STAFF_LOGIN_THROTTLED", fmt.Sprintf("company=%s event=%s", companyCode, eventCode))
		}
		return nil, err
	}

	sess, err := m.Verifier.VerifyStaffLogin(ctx, companyCode, eventCode, passcode)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrUnauthorized) {
			m.Metrics.IncStaffLoginFailure()
			if ferr := m.Throttle.Fail(ctx, companyCode, eventCode); ferr != nil && m.Logger != nil {
				m.Logger.Warn("SESSION", fmt.Sprintf("failed to record login failure: %v", ferr))
			}
		}
		return nil, err
	}
	if err := m.Throttle.Reset(ctx, companyCode, eventCode); err != nil && m.Logger != nil {
		m.Logger.Warn("SESSION", fmt.Sprintf("failed to reset login failures: %v", err))
	}

	if _, err := m.Store.Create(ctx, sess); err != nil {
		return nil, apperrors.Internal(err)
	}
	return sess, nil
}

func (m *Manager) Logout(ctx context.Context, id string) error {
	if err := m.Store.Delete(ctx, id); err != nil {
		return apperrors.Internal(err)
	}
	return nil
}
