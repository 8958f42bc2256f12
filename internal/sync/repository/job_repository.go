package repository

import (
	"context"

	"kithbook-backend/internal/sync/domain"
)

// JobRepository keeps sync job status for polling clients
type JobRepository interface {
	// Save writes the job and marks it as the user's latest
	Save(ctx context.Context, job *domain.SyncJob) error
	// Update rewrites the job without touching the latest pointer
	Update(ctx context.Context, job *domain.SyncJob) error
	// FindByID returns nil, nil for an unknown or expired job
	FindByID(ctx context.Context, id string) (*domain.SyncJob, error)
	// FindLatest returns the newest job of the user, or nil, nil
	FindLatest(ctx context.Context, userID string) (*domain.SyncJob, error)
}
