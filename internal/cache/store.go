package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"schulmanager-sync/internal/config"
	"schulmanager-sync/internal/logger"
	"schulmanager-sync/internal/model"
)

const defaultKeyPrefix = "schulmanager"

// Store keeps the latest snapshot, the seen-item sets and the new-item
// event channels in Redis. The seen sets are the only state that survives
// a restart; the snapshot itself is rebuilt in full every cycle.
type Store struct {
	client *redis.Client
	cfg    *config.Config
	prefix string
	log    zerolog.Logger
}

func NewStore(redisClient *RedisClient, cfg *config.Config) *Store {
	prefix := cfg.Redis.KeyPrefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &Store{
		client: redisClient.Client(),
		cfg:    cfg,
		prefix: prefix,
		log:    logger.Component("cache"),
	}
}

func (s *Store) snapshotKey() string {
	return s.prefix + ":snapshot"
}

func (s *Store) seenKey(kind string) string {
	return s.prefix + ":seen:" + kind
}

func (s *Store) SaveSnapshot(ctx context.Context, data *model.IntegrationData) error {
	buf, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return s.client.Set(ctx, s.snapshotKey(), buf, 0).Err()
}

// LoadSnapshot returns the last stored snapshot, or nil when none exists.
func (s *Store) LoadSnapshot(ctx context.Context) (*model.IntegrationData, error) {
	raw, err := s.client.Get(ctx, s.snapshotKey()).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var data model.IntegrationData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &data, nil
}

func (s *Store) SeenKeys(ctx context.Context, kind string) (map[string]bool, error) {
	members, err := s.client.SMembers(ctx, s.seenKey(kind)).Result()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(members))
	for _, m := range members {
		seen[m] = true
	}
	return seen, nil
}

func (s *Store) MarkSeen(ctx context.Context, kind string, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	members := make([]interface{}, len(keys))
	for i, k := range keys {
		members[i] = k
	}
	return s.client.SAdd(ctx, s.seenKey(kind), members...).Err()
}

// PublishEvent pushes one new-item event onto a pub/sub channel so
// downstream automation can react without polling the snapshot.
func (s *Store) PublishEvent(ctx context.Context, channel string, payload any) error {
	buf, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return s.client.Publish(ctx, channel, buf).Err()
}

func (s *Store) HomeworkChannel() string {
	if s.cfg.Redis.HomeworkChannel != "" {
		return s.cfg.Redis.HomeworkChannel
	}
	return s.prefix + ".homework.new"
}

func (s *Store) GradeChannel() string {
	if s.cfg.Redis.GradeChannel != "" {
		return s.cfg.Redis.GradeChannel
	}
	return s.prefix + ".grade.new"
}
