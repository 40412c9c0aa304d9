package platformfake

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

const refreshTokenBytes = 32

// storedRefreshToken is the server-side record behind an opaque refresh token.
type storedRefreshToken struct {
	Token  string
	UserID int64
	Iat    time.Time
}

// RefreshManager creates, rotates and revokes refresh tokens. Each user holds
// at most one live refresh token.
type RefreshManager struct {
	mu     sync.Mutex
	byTok  map[string]*storedRefreshToken
	byUser map[int64]string
	ttl    time.Duration
}

func NewRefreshManager(ttl time.Duration) *RefreshManager {
	return &RefreshManager{
		byTok:  make(map[string]*storedRefreshToken),
		byUser: make(map[int64]string),
		ttl:    ttl,
	}
}

// Create issues a new refresh token for userID, replacing any existing one.
func (m *RefreshManager) Create(userID int64) (string, error) {
	tokenBytes := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	token := hex.EncodeToString(tokenBytes)

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.byUser[userID]; ok {
		delete(m.byTok, existing)
	}
	m.byTok[token] = &storedRefreshToken{Token: token, UserID: userID, Iat: NowTimeFunc()}
	m.byUser[userID] = token
	return token, nil
}

// Rotate consumes token and issues its replacement. A token can be rotated
// once; reuse fails.
func (m *RefreshManager) Rotate(token string) (userID int64, next string, err error) {
	m.mu.Lock()
	stored, ok := m.byTok[token]
	if ok {
		delete(m.byTok, token)
		delete(m.byUser, stored.UserID)
	}
	m.mu.Unlock()

	if !ok {
		return 0, "", fmt.Errorf("refresh token not found")
	}
	if NowTimeFunc().Sub(stored.Iat) > m.ttl {
		return 0, "", fmt.Errorf("refresh token expired")
	}
	next, err = m.Create(stored.UserID)
	if err != nil {
		return 0, "", err
	}
	return stored.UserID, next, nil
}

// Revoke removes the refresh token held by userID.
func (m *RefreshManager) Revoke(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if token, ok := m.byUser[userID]; ok {
		delete(m.byTok, token)
		delete(m.byUser, userID)
	}
}

// RevokeAll drops every refresh token.
func (m *RefreshManager) RevokeAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byTok = make(map[string]*storedRefreshToken)
	m.byUser = make(map[int64]string)
}
