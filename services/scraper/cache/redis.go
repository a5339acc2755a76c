package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"xscrape-backend/lib/records"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/codes"
)

const redisKeyPrefix = "xscrape:result:"

// redisEnvelope wraps the stored result with its write time so hits
// can report their age; redis owns expiry via the key ttl.
type redisEnvelope struct {
	Result    records.ScrapeResult `json:"result"`
	CreatedAt float64              `json:"created_at"`
}

// RedisStore keeps results in redis, letting several scraper processes
// share one cache.
type RedisStore struct {
	client     *redis.Client
	defaultTTL time.Duration

	closeOnce sync.Once
	closeErr  error

	now func() time.Time
}

// NewRedisStore connects to the redis instance named by url, e.g.
// "redis://localhost:6379/0".
func NewRedisStore(url string, defaultTTL time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	return &RedisStore{
		client:     redis.NewClient(opts),
		defaultTTL: defaultTTL,
		now:        time.Now,
	}, nil
}

func redisKey(identity string) string {
	return redisKeyPrefix + records.NormalizeIdentity(identity)
}

func (s *RedisStore) Get(ctx context.Context, identity string) (*records.ScrapeResult, error) {
	ctx, span := tracer.Start(ctx, "RedisStore.Get")
	defer span.End()

	raw, err := s.client.Get(ctx, redisKey(identity)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var envelope redisEnvelope
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		err = fmt.Errorf("decode cached result: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	now := float64(s.now().UnixNano()) / float64(time.Second)
	age := time.Duration((now - envelope.CreatedAt) * float64(time.Second))
	result := envelope.Result
	annotateHit(&result, age)
	return &result, nil
}

func (s *RedisStore) Set(ctx context.Context, identity string, result records.ScrapeResult, ttl ...time.Duration) error {
	ctx, span := tracer.Start(ctx, "RedisStore.Set")
	defer span.End()

	effective := effectiveTTL(s.defaultTTL, ttl)
	if effective <= 0 {
		// an already-expired entry must shadow any previous value
		err := s.client.Del(ctx, redisKey(identity)).Err()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return err
	}

	encoded, err := json.Marshal(redisEnvelope{
		Result:    result,
		CreatedAt: float64(s.now().UnixNano()) / float64(time.Second),
	})
	if err != nil {
		err = fmt.Errorf("encode result: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if err := s.client.Set(ctx, redisKey(identity), encoded, effective).Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (s *RedisStore) Invalidate(ctx context.Context, identity string) (bool, error) {
	ctx, span := tracer.Start(ctx, "RedisStore.Invalidate")
	defer span.End()

	removed, err := s.client.Del(ctx, redisKey(identity)).Result()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, err
	}
	return removed > 0, nil
}

func (s *RedisStore) Clear(ctx context.Context) (int64, error) {
	ctx, span := tracer.Start(ctx, "RedisStore.Clear")
	defer span.End()

	var removed int64
	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		n, err := s.client.Del(ctx, iter.Val()).Result()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return removed, err
		}
		removed += n
	}
	if err := iter.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return removed, err
	}
	return removed, nil
}

func (s *RedisStore) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.client.Close()
	})
	return s.closeErr
}
