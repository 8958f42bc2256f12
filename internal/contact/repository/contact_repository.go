package repository

import (
	"context"
	"time"

	"kithbook-backend/internal/contact/domain"
)

// ContactRepository stores contacts. Emails passed in must already be normalized.
type ContactRepository interface {
	// Create inserts a new contact. Returns apperrors.ErrConflict when (user, email) exists.
	Create(ctx context.Context, contact *domain.Contact) error
	FindByID(ctx context.Context, userID, id string) (*domain.Contact, error)
	FindByEmail(ctx context.Context, userID, email string) (*domain.Contact, error)

	// UpdateDerived writes the pipeline-owned fields of an active contact. Returns
	// false without writing when the contact is archived or gone.
	UpdateDerived(ctx context.Context, contact *domain.Contact) (bool, error)
	// SetInteractionCount unconditionally stores a recomputed count
	SetInteractionCount(ctx context.Context, id string, count int) error
	// Update writes user-editable fields (name, email)
	Update(ctx context.Context, contact *domain.Contact) error
	// SetArchived toggles archival. Returns apperrors.ErrNotFound for unknown ids.
	SetArchived(ctx context.Context, userID, id string, archived bool, at time.Time) (*domain.Contact, error)

	// ListActive returns non-archived contacts, most recent interaction first
	ListActive(ctx context.Context, userID string) ([]*domain.Contact, error)
	// Search matches term case-insensitively against name or email of active contacts
	Search(ctx context.Context, userID, term string, limit int) ([]*domain.Contact, error)
}
