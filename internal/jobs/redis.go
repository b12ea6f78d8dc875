package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/simonhull/firebird-suite/nest/internal/apperr"
)

var tracer = otel.Tracer("nest/jobs")

const keyPrefix = "nest:job:"

// RedisStore keeps jobs in redis with SET ... EX ttl.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStore connects to addr and verifies the connection.
func NewRedisStore(ctx context.Context, addr string, db int, ttl time.Duration) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		DB:          db,
		DialTimeout: 2 * time.Second,
		MaxRetries:  -1,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, apperr.Wrap(fmt.Errorf("failed to ping redis at %s: %w", addr, err), apperr.KindIO, "job store unavailable")
	}

	return &RedisStore{rdb: rdb, ttl: ttl}, nil
}

func key(taskID string) string {
	return keyPrefix + taskID
}

// Put serializes job as JSON and sets it with the store TTL.
func (s *RedisStore) Put(ctx context.Context, job *Job) error {
	ctx, span := tracer.Start(ctx, "jobs.Put",
		trace.WithAttributes(
			attribute.String("job.id", job.TaskID),
			attribute.Int64("job.ttl_ms", s.ttl.Milliseconds()),
		))
	defer span.End()

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	if err := s.rdb.Set(ctx, key(job.TaskID), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return apperr.Wrap(err, apperr.KindIO, "failed to store job")
	}
	return nil
}

// Get loads a job.
func (s *RedisStore) Get(ctx context.Context, taskID string) (*Job, error) {
	ctx, span := tracer.Start(ctx, "jobs.Get",
		trace.WithAttributes(attribute.String("job.id", taskID)))
	defer span.End()

	data, err := s.rdb.Get(ctx, key(taskID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, notFound(taskID)
	}
	if err != nil {
		span.RecordError(err)
		return nil, apperr.Wrap(err, apperr.KindIO, "failed to load job")
	}

	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, apperr.Wrap(err, apperr.KindInternal, "stored job is corrupt")
	}
	return &job, nil
}

// Delete removes a job.
func (s *RedisStore) Delete(ctx context.Context, taskID string) error {
	if err := s.rdb.Del(ctx, key(taskID)).Err(); err != nil {
		return apperr.Wrap(err, apperr.KindIO, "failed to delete job")
	}
	return nil
}

// Sweep is a no-op: redis expires keys on its own.
func (s *RedisStore) Sweep(context.Context) (int, error) {
	return 0, nil
}

// Close closes the client.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
