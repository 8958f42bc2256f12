package usecase

import (
	"context"
	"time"

	"kithbook-backend/internal/contact/domain"
)

// ContactUsecase defines the interface for contact use cases
type ContactUsecase interface {
	// CreateOrUpdateContact records one observed interaction with email. It returns
	// nil without error when there is nothing to do or the store failed; only a
	// cancelled context surfaces as an error.
	CreateOrUpdateContact(ctx context.Context, userID, email, name string, at time.Time) (*domain.Contact, error)
	// RecalculateAllInteractionCounts recounts every active contact. Failures are
	// collected per contact and joined into the returned error.
	RecalculateAllInteractionCounts(ctx context.Context, userID string) error

	GetContactTimeline(ctx context.Context, userID, contactEmail string) ([]domain.TimelineItem, error)
	GetContactTimelineByID(ctx context.Context, userID, contactID string) ([]domain.TimelineItem, error)

	ListContacts(ctx context.Context, userID string) ([]*domain.Contact, error)
	SearchContacts(ctx context.Context, userID, term string) ([]*domain.Contact, error)
	ArchiveContact(ctx context.Context, userID, contactID string) (*domain.Contact, error)
	UnarchiveContact(ctx context.Context, userID, contactID string) (*domain.Contact, error)
	UpdateContact(ctx context.Context, userID, contactID string, name, email *string) (*domain.Contact, error)
}

// GraphUsecase builds the relationship network of a user
type GraphUsecase interface {
	GetNetworkGraphData(ctx context.Context, userID string) (*domain.NetworkGraph, error)
}
