package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"kithbook-backend/internal/sync/domain"
	"kithbook-backend/internal/sync/repository"
	"kithbook-backend/pkg/apperrors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultQueueSize = 500

// SyncWorkerService runs sync jobs on a bounded pool of workers
type SyncWorkerService struct {
	syncUc      SyncUsecase
	jobRepo     repository.JobRepository
	logger      *zap.Logger
	jobQueue    chan *domain.SyncJob
	workerWg    sync.WaitGroup
	workerCount int
	jobTimeout  time.Duration
	started     bool
	stopped     bool
	mu          sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	now         func() time.Time
}

// NewSyncWorkerService creates a new sync worker service
func NewSyncWorkerService(syncUc SyncUsecase, jobRepo repository.JobRepository, workerCount int, logger *zap.Logger) *SyncWorkerService {
	if workerCount <= 0 {
		workerCount = 3
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &SyncWorkerService{
		syncUc:      syncUc,
		jobRepo:     jobRepo,
		logger:      logger.Named("sync-worker"),
		jobQueue:    make(chan *domain.SyncJob, defaultQueueSize),
		workerCount: workerCount,
		jobTimeout:  15 * time.Minute,
		ctx:         ctx,
		cancel:      cancel,
		now:         time.Now,
	}
}

// Start starts the sync workers
func (s *SyncWorkerService) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return
	}

	for i := 0; i < s.workerCount; i++ {
		s.workerWg.Add(1)
		go s.worker(i)
	}
	s.started = true
	s.logger.Info("Started sync workers", zap.Int("workers", s.workerCount))
}

// Stop cancels running jobs and waits for every worker to exit
func (s *SyncWorkerService) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	close(s.jobQueue)
	s.mu.Unlock()

	s.cancel()
	s.workerWg.Wait()
	s.logger.Info("All sync workers stopped")
}

// Enqueue records a queued job and hands it to the pool. Returns
// apperrors.ErrQueueFull when no slot is free.
func (s *SyncWorkerService) Enqueue(ctx context.Context, userID string, kind domain.JobKind) (*domain.SyncJob, error) {
	if !kind.Valid() {
		return nil, apperrors.ErrInvalidInput
	}

	now := s.now()
	job := &domain.SyncJob{
		ID:        uuid.New().String(),
		UserID:    userID,
		Kind:      kind,
		State:     domain.JobQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil, apperrors.ErrQueueFull
	}
	if len(s.jobQueue) == cap(s.jobQueue) {
		return nil, apperrors.ErrQueueFull
	}

	if err := s.jobRepo.Save(ctx, job); err != nil {
		return nil, err
	}

	queued := *job
	select {
	case s.jobQueue <- job:
	default:
		return nil, apperrors.ErrQueueFull
	}

	s.logger.Debug("Queued sync job", zap.String("job_id", job.ID), zap.String("user_id", userID), zap.String("kind", string(kind)))
	return &queued, nil
}

// Status returns a job by id, scoped to its owner
func (s *SyncWorkerService) Status(ctx context.Context, userID, jobID string) (*domain.SyncJob, error) {
	job, err := s.jobRepo.FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil || job.UserID != userID {
		return nil, apperrors.ErrNotFound
	}
	return job, nil
}

// Latest returns the newest job of a user
func (s *SyncWorkerService) Latest(ctx context.Context, userID string) (*domain.SyncJob, error) {
	job, err := s.jobRepo.FindLatest(ctx, userID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, apperrors.ErrNotFound
	}
	return job, nil
}

func (s *SyncWorkerService) worker(id int) {
	defer s.workerWg.Done()

	for job := range s.jobQueue {
		s.processJob(job)
	}

	s.logger.Debug("Sync worker stopped", zap.Int("worker", id))
}

func (s *SyncWorkerService) processJob(job *domain.SyncJob) {
	log := s.logger.With(zap.String("job_id", job.ID), zap.String("user_id", job.UserID), zap.String("kind", string(job.Kind)))

	if s.ctx.Err() != nil {
		s.finish(job, nil, s.ctx.Err(), log)
		return
	}

	job.State = domain.JobRunning
	job.UpdatedAt = s.now()
	s.save(job, log)

	ctx, cancel := context.WithTimeout(s.ctx, s.jobTimeout)
	defer cancel()

	result, err := s.syncUc.Run(ctx, job.UserID, job.Kind)
	s.finish(job, result, err, log)
}

func (s *SyncWorkerService) finish(job *domain.SyncJob, result *domain.SyncResult, err error, log *zap.Logger) {
	job.Result = result
	job.UpdatedAt = s.now()
	if err != nil {
		job.State = domain.JobFailed
		job.Error = err.Error()
		if errors.Is(err, context.Canceled) {
			log.Warn("Sync job cancelled")
		} else {
			log.Error("Sync job failed", zap.Error(err))
		}
	} else {
		job.State = domain.JobCompleted
		log.Info("Sync job completed")
	}
	s.save(job, log)
}

func (s *SyncWorkerService) save(job *domain.SyncJob, log *zap.Logger) {
	// status writes must land even while shutting down
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.jobRepo.Update(ctx, job); err != nil {
		log.Error("Failed to record sync job state", zap.String("state", string(job.State)), zap.Error(err))
	}
}
