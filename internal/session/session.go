// Package session tracks who is logged in. A session is a single persisted
// value, the user id, stored under a random session id. A missing session
// means logged out.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrNoSession    = errors.New("no active session")
	ErrInvalidToken = errors.New("invalid token")
)

// Session is the context handed to request handlers once authenticated.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Store persists session id to user id.
type Store interface {
	Put(ctx context.Context, sessionID, userID string, ttl time.Duration) error
	Get(ctx context.Context, sessionID string) (string, error)
	Delete(ctx context.Context, sessionID string) error
}

const redisKeyPrefix = "saleflow:session:"

type RedisStore struct {
	client *redis.Client
}

// NewRedisClient connects and pings, failing fast when redis is unreachable.
func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Put(ctx context.Context, sessionID, userID string, ttl time.Duration) error {
	return s.client.Set(ctx, redisKeyPrefix+sessionID, userID, ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, sessionID string) (string, error) {
	v, err := s.client.Get(ctx, redisKeyPrefix+sessionID).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoSession
	}
	return v, err
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, redisKeyPrefix+sessionID).Err()
}

type memoryEntry struct {
	userID    string
	expiresAt time.Time
}

// MemoryStore is used when no redis address is configured.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), now: time.Now}
}

func (s *MemoryStore) Put(_ context.Context, sessionID, userID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[sessionID] = memoryEntry{userID: userID, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, sessionID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[sessionID]
	if !ok {
		return "", ErrNoSession
	}
	if s.now().After(e.expiresAt) {
		delete(s.entries, sessionID)
		return "", ErrNoSession
	}
	return e.userID, nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, sessionID)
	return nil
}

// Manager issues and resolves bearer tokens backed by a Store.
type Manager struct {
	store  Store
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewManager(store Store, secret []byte, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{store: store, secret: secret, ttl: ttl, now: time.Now}
}

// Begin starts a session for userID and returns it with its signed token.
func (m *Manager) Begin(ctx context.Context, userID string) (Session, string, error) {
	sess := Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		ExpiresAt: m.now().Add(m.ttl),
	}
	if err := m.store.Put(ctx, sess.ID, userID, m.ttl); err != nil {
		return Session{}, "", fmt.Errorf("store session: %w", err)
	}
	claims := jwt.MapClaims{
		"user_id": userID,
		"sid":     sess.ID,
		"exp":     sess.ExpiresAt.Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return Session{}, "", err
	}
	return sess, token, nil
}

// Resolve validates a token and confirms its session is still live.
func (m *Manager) Resolve(ctx context.Context, tokenString string) (Session, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil || !token.Valid {
		return Session{}, ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Session{}, ErrInvalidToken
	}
	sid, _ := claims["sid"].(string)
	userID, _ := claims["user_id"].(string)
	if sid == "" || userID == "" {
		return Session{}, ErrInvalidToken
	}

	stored, err := m.store.Get(ctx, sid)
	if err != nil {
		return Session{}, err
	}
	if stored != userID {
		return Session{}, ErrInvalidToken
	}
	sess := Session{ID: sid, UserID: userID}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		sess.ExpiresAt = exp.Time
	}
	return sess, nil
}

// End clears the session. Ending an unknown session is not an error.
func (m *Manager) End(ctx context.Context, sessionID string) error {
	return m.store.Delete(ctx, sessionID)
}
