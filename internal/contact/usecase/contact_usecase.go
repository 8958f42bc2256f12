package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	authrepo "kithbook-backend/internal/auth/repository"
	"kithbook-backend/internal/contact/domain"
	"kithbook-backend/internal/contact/identity"
	"kithbook-backend/internal/contact/repository"
	interactionrepo "kithbook-backend/internal/interaction/repository"
	"kithbook-backend/pkg/apperrors"

	"go.uber.org/zap"
)

const (
	searchLimit     = 20
	maxSearchLength = 100
)

// contactUsecase implements ContactUsecase interface
type contactUsecase struct {
	contactRepo     repository.ContactRepository
	interactionRepo interactionrepo.InteractionRepository
	userRepo        authrepo.UserRepository
	classifier      *identity.Classifier
	logger          *zap.Logger
	now             func() time.Time
}

// NewContactUsecase creates a new instance of contactUsecase
func NewContactUsecase(
	contactRepo repository.ContactRepository,
	interactionRepo interactionrepo.InteractionRepository,
	userRepo authrepo.UserRepository,
	classifier *identity.Classifier,
	logger *zap.Logger,
) ContactUsecase {
	return &contactUsecase{
		contactRepo:     contactRepo,
		interactionRepo: interactionRepo,
		userRepo:        userRepo,
		classifier:      classifier,
		logger:          logger.Named("contact-service"),
		now:             time.Now,
	}
}

func (u *contactUsecase) CreateOrUpdateContact(ctx context.Context, userID, email, name string, at time.Time) (*domain.Contact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if u.classifier.IsAutomated(email, name) {
		return nil, nil
	}

	clean := identity.NormalizeEmail(email)

	user, err := u.userRepo.FindByID(ctx, userID)
	if err != nil {
		return u.swallow(ctx, err, userID, clean)
	}
	if user != nil && identity.NormalizeEmail(user.Email) == clean {
		u.logger.Debug("Skipping user's own address", zap.String("user_id", userID), zap.String("email", clean))
		return nil, nil
	}

	contact, err := u.upsert(ctx, userID, clean, name, at)
	if err != nil {
		return u.swallow(ctx, err, userID, clean)
	}
	return contact, nil
}

// swallow logs a store failure and turns it into a nil result so the caller's
// ingestion loop can move on. Cancellation is the one error passed through.
func (u *contactUsecase) swallow(ctx context.Context, err error, userID, email string) (*domain.Contact, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	u.logger.Error("Failed to create or update contact",
		zap.String("user_id", userID),
		zap.String("email", email),
		zap.Error(err),
	)
	return nil, nil
}

func (u *contactUsecase) upsert(ctx context.Context, userID, email, name string, at time.Time) (*domain.Contact, error) {
	existing, err := u.contactRepo.FindByEmail(ctx, userID, email)
	if err != nil {
		return nil, fmt.Errorf("find contact: %w", err)
	}

	if existing == nil {
		// Provisional count; corrected by the next observation or a reconcile pass
		contact := &domain.Contact{
			UserID:            userID,
			Email:             email,
			Name:              name,
			LastInteractionAt: at,
			InteractionCount:  1,
		}
		err := u.contactRepo.Create(ctx, contact)
		if err == nil {
			return contact, nil
		}
		if !errors.Is(err, apperrors.ErrConflict) {
			return nil, fmt.Errorf("create contact: %w", err)
		}

		// A concurrent upsert created it first; continue as an update
		existing, err = u.contactRepo.FindByEmail(ctx, userID, email)
		if err != nil {
			return nil, fmt.Errorf("find contact: %w", err)
		}
		if existing == nil {
			return nil, fmt.Errorf("contact %s vanished after conflict", email)
		}
	}

	if existing.Archived {
		u.logger.Debug("Skipping archived contact", zap.String("user_id", userID), zap.String("email", email))
		return nil, nil
	}

	count, err := u.countInteractions(ctx, userID, email)
	if err != nil {
		return nil, err
	}

	existing.Name = identity.BestName(existing.Name, name)
	if at.After(existing.LastInteractionAt) {
		existing.LastInteractionAt = at
	}
	existing.InteractionCount = count

	updated, err := u.contactRepo.UpdateDerived(ctx, existing)
	if err != nil {
		return nil, fmt.Errorf("update contact: %w", err)
	}
	if !updated {
		u.logger.Debug("Contact archived during update", zap.String("user_id", userID), zap.String("email", email))
		return nil, nil
	}
	return existing, nil
}

// countInteractions is the live interaction count for one address. The same
// predicate backs upserts, reconciliation and timelines.
func (u *contactUsecase) countInteractions(ctx context.Context, userID, email string) (int, error) {
	emails, events, err := u.interactionRepo.CountForAddress(ctx, userID, email)
	if err != nil {
		return 0, fmt.Errorf("count interactions: %w", err)
	}
	return int(emails + events), nil
}

func (u *contactUsecase) ListContacts(ctx context.Context, userID string) ([]*domain.Contact, error) {
	return u.contactRepo.ListActive(ctx, userID)
}

func (u *contactUsecase) SearchContacts(ctx context.Context, userID, term string) ([]*domain.Contact, error) {
	term = strings.TrimSpace(term)
	n := utf8.RuneCountInString(term)
	if n < 1 || n > maxSearchLength {
		return nil, fmt.Errorf("search term must be between 1 and %d characters: %w", maxSearchLength, apperrors.ErrInvalidInput)
	}
	return u.contactRepo.Search(ctx, userID, term, searchLimit)
}

func (u *contactUsecase) ArchiveContact(ctx context.Context, userID, contactID string) (*domain.Contact, error) {
	return u.contactRepo.SetArchived(ctx, userID, contactID, true, u.now())
}

func (u *contactUsecase) UnarchiveContact(ctx context.Context, userID, contactID string) (*domain.Contact, error) {
	return u.contactRepo.SetArchived(ctx, userID, contactID, false, u.now())
}

func (u *contactUsecase) UpdateContact(ctx context.Context, userID, contactID string, name, email *string) (*domain.Contact, error) {
	contact, err := u.contactRepo.FindByID(ctx, userID, contactID)
	if err != nil {
		return nil, err
	}
	if contact == nil {
		return nil, apperrors.ErrNotFound
	}

	if name != nil {
		contact.Name = strings.TrimSpace(*name)
	}
	if email != nil {
		clean := identity.NormalizeEmail(*email)
		if !identity.IsAddress(clean) {
			return nil, fmt.Errorf("invalid email %q: %w", *email, apperrors.ErrInvalidInput)
		}
		if clean != contact.Email {
			other, err := u.contactRepo.FindByEmail(ctx, userID, clean)
			if err != nil {
				return nil, err
			}
			if other != nil {
				return nil, fmt.Errorf("a contact with this email already exists: %w", apperrors.ErrConflict)
			}
			contact.Email = clean
		}
	}

	if err := u.contactRepo.Update(ctx, contact); err != nil {
		return nil, err
	}
	return contact, nil
}
