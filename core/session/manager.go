package session

import (
	"errors"
	"time"

	"fstt-incidents/config"
	"fstt-incidents/core/utils"

	"github.com/gofrs/uuid/v5"
)

var ErrUnknownSession = errors.New("session not found")

// Manager issues and validates opaque session tokens on top of a Store.
type Manager struct {
	store  Store
	cfg    *config.AppConfig
	logger *utils.Logger
	now    func() time.Time
}

func NewManager(store Store, cfg *config.AppConfig, logger *utils.Logger) *Manager {
	return &Manager{store: store, cfg: cfg, logger: logger, now: utils.NowUTC}
}

func (m *Manager) Create(userID int64) (string, error) {
	token, err := utils.RandString(32)
	if err != nil {
		return "", err
	}
	m.store.Save(&Session{
		Token:     token,
		UserID:    userID,
		CreatedAt: m.now(),
	})
	return token, nil
}

// CreatePageToken records a fresh page token against the session. The
// latest token wins: an older dashboard load becomes stale as soon as
// a newer one is issued.
func (m *Manager) CreatePageToken(token string) (string, error) {
	pageToken := uuid.Must(uuid.NewV4()).String()
	if !m.store.SetPageToken(token, pageToken) {
		return "", ErrUnknownSession
	}
	return pageToken, nil
}

// Validate checks token against expectedUserID. Expired entries are
// evicted on the way out, so a second attempt fails identically.
func (m *Manager) Validate(token string, expectedUserID int64) (bool, *Session) {
	if token == "" {
		return false, nil
	}
	sess := m.store.Get(token)
	if sess == nil {
		return false, nil
	}
	if sess.UserID != expectedUserID {
		return false, nil
	}
	if sess.ExpiredAt(m.now(), m.cfg.EffectiveSessionTTL()) {
		m.logger.Debugf("SESSION expired user=%d", sess.UserID)
		m.store.Delete(token)
		return false, nil
	}
	return true, sess
}

// Current returns the session for token without touching expiry state.
func (m *Manager) Current(token string) *Session {
	if token == "" {
		return nil
	}
	return m.store.Get(token)
}

func (m *Manager) Invalidate(token string) {
	if token == "" {
		return
	}
	m.store.Delete(token)
}
