package usecase

import (
	"context"

	"kithbook-backend/internal/sync/domain"
)

// SyncUsecase pulls provider data for a user and feeds it into the contact pipeline
type SyncUsecase interface {
	// IngestEvent stores the event and upserts its organizer and attendees.
	// Returns whether the event was new.
	IngestEvent(ctx context.Context, userID string, rec domain.EventRecord) (bool, error)
	// IngestMessage stores an unseen message and upserts its sender and recipients
	// that are present in known. Returns whether the message was stored.
	IngestMessage(ctx context.Context, userID string, rec domain.MessageRecord, known map[string]struct{}) (bool, error)

	SyncCalendar(ctx context.Context, userID string) (*domain.SyncResult, error)
	SyncGmail(ctx context.Context, userID string) (*domain.SyncResult, error)
	// SyncUser runs calendar, then Gmail, then one reconciliation pass
	SyncUser(ctx context.Context, userID string) (*domain.SyncResult, error)
	Reconcile(ctx context.Context, userID string) (*domain.SyncResult, error)

	// Run dispatches on the job kind
	Run(ctx context.Context, userID string, kind domain.JobKind) (*domain.SyncResult, error)
}

// Options tunes provider queries
type Options struct {
	CalendarWindowDays int
	ContactBatchSize   int
	MaxResults         int64
}
