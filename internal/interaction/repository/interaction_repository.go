package repository

import (
	"context"

	"kithbook-backend/internal/interaction/domain"
)

// InteractionRepository stores the raw email and calendar records that contacts
// are derived from. Address arguments must already be normalized.
type InteractionRepository interface {
	// EmailExists reports whether a message with this provider id is already stored
	EmailExists(ctx context.Context, userID, externalID string) (bool, error)
	// CreateEmail stores a message and its recipients. Returns apperrors.ErrConflict
	// when the (user, external id) pair already exists.
	CreateEmail(ctx context.Context, email *domain.Email) error
	// UpsertCalendarEvent creates the event or fully replaces its fields and attendees
	UpsertCalendarEvent(ctx context.Context, event *domain.CalendarEvent) (created bool, err error)

	// CountForAddress counts emails where the address is sender or recipient and
	// events where it is organizer or attendee
	CountForAddress(ctx context.Context, userID, address string) (emails int64, events int64, err error)

	// FindEmailsForAddress returns matching emails, newest first
	FindEmailsForAddress(ctx context.Context, userID, address string) ([]*domain.Email, error)
	// FindEventsForAddress returns matching events, latest start first
	FindEventsForAddress(ctx context.Context, userID, address string) ([]*domain.CalendarEvent, error)

	// FindAllEmails returns every email of the user with recipients loaded
	FindAllEmails(ctx context.Context, userID string) ([]*domain.Email, error)
	// FindAllEvents returns every calendar event of the user with attendees loaded
	FindAllEvents(ctx context.Context, userID string) ([]*domain.CalendarEvent, error)
}
