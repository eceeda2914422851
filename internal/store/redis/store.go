package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/heydayle/next-gen-ai/internal/config"
	"github.com/heydayle/next-gen-ai/internal/domain"
)

// Store implements domain.SessionStore on Redis. Records are stored as JSON
// under "<collection>:<sessionId>"; every operation is a single command and
// therefore atomic on its own.
type Store struct {
	rdb    *redis.Client
	cfg    config.RedisConfig
	prefix string
}

// NewStore creates a Redis-backed session store
func NewStore(cfg config.RedisConfig, collection string) *Store {
	return &Store{
		cfg:    cfg,
		prefix: collection + ":",
	}
}

// Open connects to Redis and verifies the connection
func (s *Store) Open(ctx context.Context) error {
	if s.rdb != nil {
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     s.cfg.Addr(),
		Password: s.cfg.Password,
		DB:       s.cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	s.rdb = rdb
	return nil
}

// Close closes the Redis connection
func (s *Store) Close() error {
	if s.rdb != nil {
		err := s.rdb.Close()
		s.rdb = nil
		return err
	}
	return nil
}

func (s *Store) key(id string) string {
	return s.prefix + id
}

func (s *Store) Add(ctx context.Context, session *domain.ChatSession) (string, error) {
	if s.rdb == nil {
		return "", domain.ErrNotInitialized
	}

	data, err := json.Marshal(session)
	if err != nil {
		return "", fmt.Errorf("failed to marshal session: %w", err)
	}

	ok, err := s.rdb.SetNX(ctx, s.key(session.SessionID), data, 0).Result()
	if err != nil {
		return "", fmt.Errorf("failed to add session: %w", err)
	}
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrDuplicateKey, session.SessionID)
	}
	return session.SessionID, nil
}

func (s *Store) Get(ctx context.Context, id string) (*domain.ChatSession, error) {
	if s.rdb == nil {
		return nil, domain.ErrNotInitialized
	}

	data, err := s.rdb.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var session domain.ChatSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session %s: %w", id, err)
	}
	return &session, nil
}

func (s *Store) GetAll(ctx context.Context) ([]domain.ChatSession, error) {
	if s.rdb == nil {
		return nil, domain.ErrNotInitialized
	}

	var (
		sessions []domain.ChatSession
		cursor   uint64
	)
	for {
		keys, nextCursor, err := s.rdb.Scan(ctx, cursor, s.prefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan keys: %w", err)
		}

		if len(keys) > 0 {
			values, err := s.rdb.MGet(ctx, keys...).Result()
			if err != nil {
				return nil, fmt.Errorf("failed to fetch sessions: %w", err)
			}
			for i, v := range values {
				raw, ok := v.(string)
				if !ok {
					continue // key expired between SCAN and MGET
				}
				var session domain.ChatSession
				if err := json.Unmarshal([]byte(raw), &session); err != nil {
					return nil, fmt.Errorf("failed to unmarshal session %s: %w", keys[i], err)
				}
				sessions = append(sessions, session)
			}
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
	return sessions, nil
}

func (s *Store) Update(ctx context.Context, session *domain.ChatSession) error {
	if s.rdb == nil {
		return domain.ErrNotInitialized
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := s.rdb.Set(ctx, s.key(session.SessionID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, id string) error {
	if s.rdb == nil {
		return domain.ErrNotInitialized
	}

	if err := s.rdb.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("failed to remove session: %w", err)
	}
	return nil
}
