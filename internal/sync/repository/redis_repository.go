package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"kithbook-backend/internal/sync/domain"

	"github.com/redis/go-redis/v9"
)

// JobTTL is how long finished and pending jobs stay readable
const JobTTL = 24 * time.Hour

type redisJobRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisJobRepository(client *redis.Client) JobRepository {
	return &redisJobRepository{client: client, ttl: JobTTL}
}

func jobKey(id string) string {
	return "sync:job:" + id
}

func latestKey(userID string) string {
	return "sync:user:" + userID + ":latest"
}

func (r *redisJobRepository) Save(ctx context.Context, job *domain.SyncJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal sync job: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, jobKey(job.ID), data, r.ttl)
	pipe.Set(ctx, latestKey(job.UserID), job.ID, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save sync job: %w", err)
	}
	return nil
}

func (r *redisJobRepository) Update(ctx context.Context, job *domain.SyncJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal sync job: %w", err)
	}
	if err := r.client.Set(ctx, jobKey(job.ID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("update sync job: %w", err)
	}
	return nil
}

func (r *redisJobRepository) FindByID(ctx context.Context, id string) (*domain.SyncJob, error) {
	data, err := r.client.Get(ctx, jobKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get sync job: %w", err)
	}

	var job domain.SyncJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("decode sync job %s: %w", id, err)
	}
	return &job, nil
}

func (r *redisJobRepository) FindLatest(ctx context.Context, userID string) (*domain.SyncJob, error) {
	id, err := r.client.Get(ctx, latestKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get latest sync job: %w", err)
	}
	return r.FindByID(ctx, id)
}
