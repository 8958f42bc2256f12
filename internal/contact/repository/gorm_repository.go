package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"kithbook-backend/internal/contact/domain"
	"kithbook-backend/pkg/apperrors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// gormContactRepository implements ContactRepository using GORM
type gormContactRepository struct {
	db *gorm.DB
}

// NewGormContactRepository creates a new GORM-based ContactRepository
func NewGormContactRepository(db *gorm.DB) ContactRepository {
	return &gormContactRepository{db: db}
}

func (r *gormContactRepository) Create(ctx context.Context, contact *domain.Contact) error {
	contact.ID = uuid.New().String()
	now := time.Now()
	contact.CreatedAt = now
	contact.UpdatedAt = now

	err := r.db.WithContext(ctx).Create(contact).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("contact %s: %w", contact.Email, apperrors.ErrConflict)
	}
	return err
}

func (r *gormContactRepository) FindByID(ctx context.Context, userID, id string) (*domain.Contact, error) {
	var contact domain.Contact
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&contact).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &contact, nil
}

func (r *gormContactRepository) FindByEmail(ctx context.Context, userID, email string) (*domain.Contact, error) {
	var contact domain.Contact
	err := r.db.WithContext(ctx).Where("user_id = ? AND email = ?", userID, email).First(&contact).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &contact, nil
}

func (r *gormContactRepository) UpdateDerived(ctx context.Context, contact *domain.Contact) (bool, error) {
	contact.UpdatedAt = time.Now()
	res := r.db.WithContext(ctx).Model(&domain.Contact{}).
		Where("id = ? AND archived = ?", contact.ID, false).
		Updates(map[string]any{
			"name":                contact.Name,
			"last_interaction_at": contact.LastInteractionAt,
			"interaction_count":   contact.InteractionCount,
			"updated_at":          contact.UpdatedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *gormContactRepository) SetInteractionCount(ctx context.Context, id string, count int) error {
	return r.db.WithContext(ctx).Model(&domain.Contact{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"interaction_count": count,
			"updated_at":        time.Now(),
		}).Error
}

func (r *gormContactRepository) Update(ctx context.Context, contact *domain.Contact) error {
	contact.UpdatedAt = time.Now()
	err := r.db.WithContext(ctx).Model(&domain.Contact{}).
		Where("id = ? AND user_id = ?", contact.ID, contact.UserID).
		Updates(map[string]any{
			"name":       contact.Name,
			"email":      contact.Email,
			"updated_at": contact.UpdatedAt,
		}).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("contact %s: %w", contact.Email, apperrors.ErrConflict)
	}
	return err
}

func (r *gormContactRepository) SetArchived(ctx context.Context, userID, id string, archived bool, at time.Time) (*domain.Contact, error) {
	var archivedAt *time.Time
	if archived {
		archivedAt = &at
	}

	res := r.db.WithContext(ctx).Model(&domain.Contact{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]any{
			"archived":    archived,
			"archived_at": archivedAt,
			"updated_at":  time.Now(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.ErrNotFound
	}
	return r.FindByID(ctx, userID, id)
}

func (r *gormContactRepository) ListActive(ctx context.Context, userID string) ([]*domain.Contact, error) {
	var contacts []*domain.Contact
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND archived = ?", userID, false).
		Order("last_interaction_at DESC").
		Find(&contacts).Error
	return contacts, err
}

func (r *gormContactRepository) Search(ctx context.Context, userID, term string, limit int) ([]*domain.Contact, error) {
	var contacts []*domain.Contact
	pattern := "%" + escapeLike(strings.ToLower(term)) + "%"
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND archived = ?", userID, false).
		Where("LOWER(name) LIKE ? OR email LIKE ?", pattern, pattern).
		Order("last_interaction_at DESC").
		Limit(limit).
		Find(&contacts).Error
	return contacts, err
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
