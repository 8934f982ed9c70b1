package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"cinematch-llm/internal/domain"
)

// ErrSessionNotFound indica una sesion inexistente o expirada.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore persiste el estado vivo de las sesiones. Las sesiones se
// serializan como JSON en ambos backends, asi el snapshot guardado siempre es
// una copia y no un alias del estado en memoria.
type SessionStore interface {
	Save(ctx context.Context, sess *domain.Session) error
	Get(ctx context.Context, id string) (*domain.Session, error)
	Delete(ctx context.Context, id string) error
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

type memorySessionStore struct {
	mu    sync.Mutex
	items map[string]memoryEntry
	ttl   time.Duration
}

// NewMemorySessionStore es el backend por defecto cuando no hay Redis configurado.
func NewMemorySessionStore(ttl time.Duration) SessionStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &memorySessionStore{
		items: make(map[string]memoryEntry),
		ttl:   ttl,
	}
}

func (s *memorySessionStore) Save(ctx context.Context, sess *domain.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[sess.ID] = memoryEntry{data: data, expiresAt: time.Now().UTC().Add(s.ttl)}
	return nil
}

func (s *memorySessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	s.mu.Lock()
	entry, ok := s.items[id]
	if ok && time.Now().UTC().After(entry.expiresAt) {
		delete(s.items, id)
		ok = false
	}
	s.mu.Unlock()

	if !ok {
		return nil, ErrSessionNotFound
	}
	var sess domain.Session
	if err := json.Unmarshal(entry.data, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &sess, nil
}

func (s *memorySessionStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	return nil
}

type redisSessionStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisSessionStore guarda sesiones en Redis con TTL, para sobrevivir
// reinicios del proceso y compartir sesiones entre instancias.
func NewRedisSessionStore(client *redis.Client, ttl time.Duration) SessionStore {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &redisSessionStore{
		client: client,
		prefix: "cinematch:session:",
		ttl:    ttl,
	}
}

func (s *redisSessionStore) Save(ctx context.Context, sess *domain.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return s.client.Set(ctx, s.prefix+sess.ID, data, s.ttl).Err()
}

func (s *redisSessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	data, err := s.client.Get(ctx, s.prefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	var sess domain.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &sess, nil
}

func (s *redisSessionStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, s.prefix+id).Err()
}
