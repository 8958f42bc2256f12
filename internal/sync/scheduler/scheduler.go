package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	authrepo "kithbook-backend/internal/auth/repository"
	"kithbook-backend/internal/sync/domain"
	"kithbook-backend/pkg/apperrors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Enqueuer hands a job to the worker pool
type Enqueuer interface {
	Enqueue(ctx context.Context, userID string, kind domain.JobKind) (*domain.SyncJob, error)
}

// Reconciler recounts the contacts of one user
type Reconciler interface {
	RecalculateAllInteractionCounts(ctx context.Context, userID string) error
}

// Scheduler periodically queues full syncs and reconciles every user
type Scheduler struct {
	userRepo          authrepo.UserRepository
	enqueuer          Enqueuer
	reconciler        Reconciler
	syncInterval      time.Duration
	reconcileInterval time.Duration
	concurrency       int
	logger            *zap.Logger
	stopChan          chan struct{}
	stopOnce          sync.Once
	wg                sync.WaitGroup
}

func NewScheduler(
	userRepo authrepo.UserRepository,
	enqueuer Enqueuer,
	reconciler Reconciler,
	syncInterval, reconcileInterval time.Duration,
	concurrency int,
	logger *zap.Logger,
) *Scheduler {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Scheduler{
		userRepo:          userRepo,
		enqueuer:          enqueuer,
		reconciler:        reconciler,
		syncInterval:      syncInterval,
		reconcileInterval: reconcileInterval,
		concurrency:       concurrency,
		logger:            logger.Named("scheduler"),
		stopChan:          make(chan struct{}),
	}
}

// Start begins the scheduler loops. A non-positive interval disables its loop.
func (s *Scheduler) Start() {
	s.logger.Info("Starting sync scheduler",
		zap.Duration("sync_interval", s.syncInterval),
		zap.Duration("reconcile_interval", s.reconcileInterval),
	)
	s.loop(s.syncInterval, s.QueueSyncs)
	s.loop(s.reconcileInterval, s.ReconcileAll)
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	s.logger.Info("Scheduler stopped")
}

func (s *Scheduler) loop(interval time.Duration, run func(ctx context.Context) error) {
	if interval <= 0 {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			select {
			case <-s.stopChan:
				cancel()
			case <-ctx.Done():
			}
		}()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					s.logger.Error("Scheduled run failed", zap.Error(err))
				}
			case <-s.stopChan:
				return
			}
		}
	}()
}

// QueueSyncs enqueues a full sync for every user with a Google account
func (s *Scheduler) QueueSyncs(ctx context.Context) error {
	users, err := s.userRepo.ListWithGoogleAccount(ctx)
	if err != nil {
		return err
	}

	queued := 0
	for _, user := range users {
		if _, err := s.enqueuer.Enqueue(ctx, user.ID, domain.JobFull); err != nil {
			if errors.Is(err, apperrors.ErrQueueFull) {
				s.logger.Warn("Sync queue full, deferring remaining users to next tick", zap.Int("remaining", len(users)-queued))
				break
			}
			s.logger.Error("Failed to queue sync", zap.String("user_id", user.ID), zap.Error(err))
			continue
		}
		queued++
	}

	s.logger.Info("Queued scheduled syncs", zap.Int("queued", queued), zap.Int("users", len(users)))
	return nil
}

// ReconcileAll reconciles every user, bounded by the configured concurrency.
// One user's failure does not stop the others.
func (s *Scheduler) ReconcileAll(ctx context.Context) error {
	users, err := s.userRepo.ListWithGoogleAccount(ctx)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	var mu sync.Mutex
	failed := 0
	for _, user := range users {
		userID := user.ID
		g.Go(func() error {
			if err := s.reconciler.RecalculateAllInteractionCounts(gctx, userID); err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				s.logger.Warn("Reconciliation incomplete", zap.String("user_id", userID), zap.Error(err))
				mu.Lock()
				failed++
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	s.logger.Info("Reconciled users", zap.Int("users", len(users)), zap.Int("failed", failed))
	return nil
}
