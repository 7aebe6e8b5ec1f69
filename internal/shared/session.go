package shared

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SessionStore resolves session tokens minted after the identity provider
// callback into owners. Sessions live in Redis under session:<token> and slide
// their expiry on every successful lookup.
type SessionStore struct {
	client     *redis.Client
	cookieName string
	ttl        time.Duration
}

type sessionPayload struct {
	OwnerID  string    `json:"owner_id"`
	Email    string    `json:"email,omitempty"`
	IssuedAt time.Time `json:"issued_at"`
}

// NewSessionStore constructs a SessionStore.
func NewSessionStore(client *redis.Client, cookieName string, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:     client,
		cookieName: cookieName,
		ttl:        ttl,
	}
}

// Resolve reads the session token from the cookie or a bearer header and
// returns the owner it belongs to.
func (s *SessionStore) Resolve(ctx context.Context, r *http.Request) (Owner, error) {
	token := s.token(r)
	if token == "" {
		return Owner{}, ErrNoSession
	}
	payload, err := s.client.Get(ctx, redisKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Owner{}, ErrSessionUnknown
		}
		return Owner{}, fmt.Errorf("session: load: %w", err)
	}
	var stored sessionPayload
	if err := json.Unmarshal(payload, &stored); err != nil {
		return Owner{}, fmt.Errorf("session: decode: %w", err)
	}
	if stored.OwnerID == "" {
		return Owner{}, ErrSessionUnknown
	}
	if s.ttl > 0 {
		_ = s.client.Expire(ctx, redisKey(token), s.ttl).Err()
	}
	return Owner{ID: stored.OwnerID, Email: stored.Email}, nil
}

// Issue stores a new session for the owner and returns its token.
func (s *SessionStore) Issue(ctx context.Context, owner Owner) (string, error) {
	if owner.ID == "" {
		return "", errors.New("session: owner id required")
	}
	token := uuid.NewString()
	data, err := json.Marshal(sessionPayload{OwnerID: owner.ID, Email: owner.Email, IssuedAt: time.Now().UTC()})
	if err != nil {
		return "", err
	}
	if err := s.client.Set(ctx, redisKey(token), data, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("session: store: %w", err)
	}
	return token, nil
}

// Revoke deletes the session token.
func (s *SessionStore) Revoke(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, redisKey(token)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

// CookieName returns the cookie identifier used for sessions.
func (s *SessionStore) CookieName() string {
	return s.cookieName
}

func (s *SessionStore) token(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if bearer, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(bearer)
		}
	}
	if cookie, err := r.Cookie(s.cookieName); err == nil {
		return cookie.Value
	}
	return ""
}

func redisKey(token string) string {
	return "session:" + token
}
