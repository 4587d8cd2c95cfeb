package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/emesedutech/cbt-akm/internal/model"
)

// RedisStore keeps progress snapshots in Redis, one string key per attempt.
type RedisStore struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewRedisStore creates a RedisStore.
func NewRedisStore(rdb *redis.Client, log zerolog.Logger) *RedisStore {
	return &RedisStore{
		rdb: rdb,
		log: log.With().Str("component", "progress_store").Logger(),
	}
}

// Save overwrites the slot with a JSON snapshot of the answers.
func (s *RedisStore) Save(ctx context.Context, key string, answers model.Answers) error {
	data, err := json.Marshal(answers)
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}
	if err := s.rdb.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("write progress: %w", err)
	}
	return nil
}

// Load reads the slot back. A missing key, a read failure or a corrupt value
// all surface as ErrNoProgress; corrupt entries are deleted.
func (s *RedisStore) Load(ctx context.Context, key string) (model.Answers, error) {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Warn().Err(err).Str("key", key).Msg("Progress read failed")
		}
		return nil, ErrNoProgress
	}

	var answers model.Answers
	if err := json.Unmarshal(data, &answers); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Corrupt progress entry, deleting")
		_ = s.rdb.Del(ctx, key).Err()
		return nil, ErrNoProgress
	}
	return answers, nil
}

// Clear deletes the slot.
func (s *RedisStore) Clear(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}
