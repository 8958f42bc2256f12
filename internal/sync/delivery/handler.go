package delivery

import (
	"context"
	"errors"
	"io"
	"net/http"

	authdelivery "kithbook-backend/internal/auth/delivery"
	"kithbook-backend/internal/sync/domain"
	syncdto "kithbook-backend/internal/sync/dto"
	"kithbook-backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

// JobService queues sync jobs and reports their status
type JobService interface {
	Enqueue(ctx context.Context, userID string, kind domain.JobKind) (*domain.SyncJob, error)
	Status(ctx context.Context, userID, jobID string) (*domain.SyncJob, error)
	Latest(ctx context.Context, userID string) (*domain.SyncJob, error)
}

type SyncHandler struct {
	jobs JobService
}

func NewSyncHandler(jobs JobService) *SyncHandler {
	return &SyncHandler{jobs: jobs}
}

func respondError(c *gin.Context, err error) {
	c.JSON(apperrors.HTTPStatus(err), gin.H{"success": false, "error": err.Error()})
}

// StartSync queues a sync for the current user and answers 202 with the job
func (h *SyncHandler) StartSync(c *gin.Context) {
	user, ok := authdelivery.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "not authenticated"})
		return
	}
	if !user.HasGoogleAccount() {
		respondError(c, apperrors.ErrNoGoogleAccount)
		return
	}

	var req syncdto.SyncRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request data"})
		return
	}
	kind := domain.JobFull
	if req.Kind != "" {
		kind = domain.JobKind(req.Kind)
	}
	if !kind.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "unknown sync kind"})
		return
	}

	job, err := h.jobs.Enqueue(c.Request.Context(), user.ID, kind)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, syncdto.JobResponse{Success: true, Job: job})
}

func (h *SyncHandler) GetJob(c *gin.Context) {
	user, ok := authdelivery.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "not authenticated"})
		return
	}

	job, err := h.jobs.Status(c.Request.Context(), user.ID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, syncdto.JobResponse{Success: true, Job: job})
}

// GetStatus returns the newest sync job of the current user
func (h *SyncHandler) GetStatus(c *gin.Context) {
	user, ok := authdelivery.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "not authenticated"})
		return
	}

	job, err := h.jobs.Latest(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, syncdto.JobResponse{Success: true, Job: job})
}
