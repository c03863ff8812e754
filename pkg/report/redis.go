package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

// Prometheus metrics for the report mirror.
var (
	mirrorWritesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "collector_report_mirror_writes_total",
		Help: "Total reports mirrored to Redis",
	})

	mirrorErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collector_report_mirror_errors_total",
		Help: "Total report mirror errors by operation",
	}, []string{"operation"})
)

// RedisKeyLatestReport is the key holding the most recent run report.
const RedisKeyLatestReport = "telemetry:report:latest"

// ErrNoReport indicates no report has been mirrored yet (or it expired).
var ErrNoReport = errors.New("no report stored")

// RedisStore mirrors the latest run report to Redis so dashboards can read
// the newest run without touching the output file. The file store remains
// the durable record; the mirror is best-effort.
type RedisStore struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewRedisStore creates a report mirror with the given retention TTL.
// A non-positive TTL keeps the report until the next run overwrites it.
func NewRedisStore(redisClient *redis.Client, ttl time.Duration) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{
		redis: redisClient,
		ttl:   ttl,
	}
}

// Save publishes the report under the latest-report key.
func (s *RedisStore) Save(ctx context.Context, rep *Report) error {
	if rep == nil {
		return fmt.Errorf("report cannot be nil")
	}

	data, err := json.Marshal(rep)
	if err != nil {
		mirrorErrorsTotal.WithLabelValues("save").Inc()
		return fmt.Errorf("marshal report: %w", err)
	}

	if err := s.redis.Set(ctx, RedisKeyLatestReport, data, s.ttl).Err(); err != nil {
		mirrorErrorsTotal.WithLabelValues("save").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	mirrorWritesTotal.Inc()
	return nil
}

// Latest retrieves the most recently mirrored report.
// Returns ErrNoReport if nothing is stored.
func (s *RedisStore) Latest(ctx context.Context) (*Report, error) {
	data, err := s.redis.Get(ctx, RedisKeyLatestReport).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNoReport
		}
		mirrorErrorsTotal.WithLabelValues("latest").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var rep Report
	if err := json.Unmarshal(data, &rep); err != nil {
		mirrorErrorsTotal.WithLabelValues("latest").Inc()
		return nil, fmt.Errorf("unmarshal report: %w", err)
	}
	return &rep, nil
}
