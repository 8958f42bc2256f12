package dto

import "kithbook-backend/internal/sync/domain"

// SyncRequest starts a sync. An empty kind means a full sync.
type SyncRequest struct {
	Kind string `json:"kind"`
}

type JobResponse struct {
	Success bool            `json:"success"`
	Job     *domain.SyncJob `json:"job"`
}
