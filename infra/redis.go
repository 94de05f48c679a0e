package infra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/config"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/entity"
)

var ErrCacheMiss = errors.New("key not found in cache")

type RedisClient struct {
	Client *redis.Client
}

func InitRedisClient(cfg *config.EnvConfig) *RedisClient {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.RedisHost + ":" + cfg.Redis.RedisPort,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.Database,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("Redis connection failed: %v", err)
	}

	log.Println("Connected to Redis:", cfg.Redis.RedisPort+" on "+cfg.Redis.RedisHost)

	return &RedisClient{Client: client}
}

func (r *RedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.Client.Set(ctx, key, data, expiration).Err()
}

func (r *RedisClient) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := r.Client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		return err
	}
	return json.Unmarshal(data, dest)
}

func (r *RedisClient) Delete(ctx context.Context, keys ...string) error {
	return r.Client.Del(ctx, keys...).Err()
}

func (r *RedisClient) Ping(ctx context.Context) error {
	return r.Client.Ping(ctx).Err()
}

// RedisSessionStore persists the current job id of each booking session
type RedisSessionStore struct {
	redis *RedisClient
	ttl   time.Duration
}

func NewRedisSessionStore(client *RedisClient, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{redis: client, ttl: ttl}
}

func sessionKey(role entity.ActorRole, actorID uuid.UUID) string {
	return fmt.Sprintf("session:%s:%s:job", role, actorID)
}

// Load reports false when no job id is persisted for the session.
func (s *RedisSessionStore) Load(ctx context.Context, role entity.ActorRole, actorID uuid.UUID) (uuid.UUID, bool, error) {
	var raw string
	if err := s.redis.Get(ctx, sessionKey(role, actorID), &raw); err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return uuid.Nil, false, nil
		}
		return uuid.Nil, false, err
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		// unreadable value is as good as none
		return uuid.Nil, false, nil
	}
	return id, true, nil
}

func (s *RedisSessionStore) Save(ctx context.Context, role entity.ActorRole, actorID, jobID uuid.UUID) error {
	return s.redis.Set(ctx, sessionKey(role, actorID), jobID.String(), s.ttl)
}

func (s *RedisSessionStore) Clear(ctx context.Context, role entity.ActorRole, actorID uuid.UUID) error {
	return s.redis.Delete(ctx, sessionKey(role, actorID))
}
