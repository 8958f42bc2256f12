package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	authdomain "kithbook-backend/internal/auth/domain"
	authrepo "kithbook-backend/internal/auth/repository"
	"kithbook-backend/internal/sync/domain"
	"kithbook-backend/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeUsers struct {
	authrepo.UserRepository
	users []*authdomain.User
}

func (f *fakeUsers) ListWithGoogleAccount(context.Context) ([]*authdomain.User, error) {
	return f.users, nil
}

type fakeEnqueuer struct {
	mu    sync.Mutex
	limit int
	jobs  []string
}

func (f *fakeEnqueuer) Enqueue(_ context.Context, userID string, kind domain.JobKind) (*domain.SyncJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.limit > 0 && len(f.jobs) == f.limit {
		return nil, apperrors.ErrQueueFull
	}
	f.jobs = append(f.jobs, userID)
	return &domain.SyncJob{UserID: userID, Kind: kind}, nil
}

type fakeReconciler struct {
	inFlight atomic.Int32
	peak     atomic.Int32
	calls    atomic.Int32
	failFor  string
}

func (f *fakeReconciler) RecalculateAllInteractionCounts(_ context.Context, userID string) error {
	f.calls.Add(1)
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		peak := f.peak.Load()
		if n <= peak || f.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	if userID == f.failFor {
		return errors.New("contact x@y.z: store down")
	}
	return nil
}

func users(n int) []*authdomain.User {
	out := make([]*authdomain.User, n)
	for i := range out {
		out[i] = &authdomain.User{ID: fmt.Sprintf("user-%d", i)}
	}
	return out
}

func TestQueueSyncs_StopsWhenQueueFull(t *testing.T) {
	enq := &fakeEnqueuer{limit: 2}
	s := NewScheduler(&fakeUsers{users: users(5)}, enq, &fakeReconciler{}, time.Minute, time.Minute, 2, zap.NewNop())

	require.NoError(t, s.QueueSyncs(context.Background()))
	assert.Equal(t, []string{"user-0", "user-1"}, enq.jobs)
}

func TestReconcileAll_BoundedConcurrency(t *testing.T) {
	rec := &fakeReconciler{failFor: "user-3"}
	s := NewScheduler(&fakeUsers{users: users(10)}, &fakeEnqueuer{}, rec, time.Minute, time.Minute, 3, zap.NewNop())

	require.NoError(t, s.ReconcileAll(context.Background()))
	assert.Equal(t, int32(10), rec.calls.Load(), "a failing user does not stop the others")
	assert.LessOrEqual(t, rec.peak.Load(), int32(3))
}

func TestScheduler_TicksAndStops(t *testing.T) {
	enq := &fakeEnqueuer{}
	s := NewScheduler(&fakeUsers{users: users(1)}, enq, &fakeReconciler{}, 10*time.Millisecond, 0, 1, zap.NewNop())
	s.Start()

	require.Eventually(t, func() bool {
		enq.mu.Lock()
		defer enq.mu.Unlock()
		return len(enq.jobs) >= 2
	}, time.Second, 5*time.Millisecond)

	s.Stop()
	s.Stop()
}
