package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kithbook-backend/internal/interaction/domain"
	"kithbook-backend/pkg/apperrors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	emailParticipantClause = "emails.from_email = ? OR EXISTS (SELECT 1 FROM email_recipients er WHERE er.email_id = emails.id AND er.address = ?)"
	eventParticipantClause = "calendar_events.organizer = ? OR EXISTS (SELECT 1 FROM event_attendees ea WHERE ea.event_id = calendar_events.id AND ea.email = ?)"
)

// gormInteractionRepository implements InteractionRepository using GORM
type gormInteractionRepository struct {
	db *gorm.DB
}

// NewGormInteractionRepository creates a new GORM-based InteractionRepository
func NewGormInteractionRepository(db *gorm.DB) InteractionRepository {
	return &gormInteractionRepository{db: db}
}

func (r *gormInteractionRepository) EmailExists(ctx context.Context, userID, externalID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Email{}).
		Where("user_id = ? AND external_id = ?", userID, externalID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *gormInteractionRepository) CreateEmail(ctx context.Context, email *domain.Email) error {
	if email.ID == "" {
		email.ID = uuid.New().String()
	}
	now := time.Now()
	email.CreatedAt = now
	email.UpdatedAt = now
	if email.Labels == nil {
		email.Labels = []string{}
	}
	for i := range email.Recipients {
		email.Recipients[i].EmailID = email.ID
		email.Recipients[i].Position = i
	}

	err := r.db.WithContext(ctx).Create(email).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("email %s: %w", email.ExternalID, apperrors.ErrConflict)
	}
	return err
}

func (r *gormInteractionRepository) UpsertCalendarEvent(ctx context.Context, event *domain.CalendarEvent) (bool, error) {
	created := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing domain.CalendarEvent
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND external_id = ?", event.UserID, event.ExternalID).
			First(&existing).Error

		now := time.Now()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			event.ID = uuid.New().String()
			event.CreatedAt = now
			event.UpdatedAt = now
			setAttendeePositions(event)
			created = true
			return tx.Create(event).Error
		}
		if err != nil {
			return err
		}

		event.ID = existing.ID
		event.CreatedAt = existing.CreatedAt
		event.UpdatedAt = now
		setAttendeePositions(event)

		if err := tx.Where("event_id = ?", event.ID).Delete(&domain.EventAttendee{}).Error; err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Save(event).Error; err != nil {
			return err
		}
		if len(event.Attendees) > 0 {
			return tx.Create(&event.Attendees).Error
		}
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return false, fmt.Errorf("calendar event %s: %w", event.ExternalID, apperrors.ErrConflict)
	}
	return created, err
}

func setAttendeePositions(event *domain.CalendarEvent) {
	for i := range event.Attendees {
		event.Attendees[i].EventID = event.ID
		event.Attendees[i].Position = i
	}
}

func (r *gormInteractionRepository) CountForAddress(ctx context.Context, userID, address string) (int64, int64, error) {
	var emailCount, eventCount int64

	err := r.db.WithContext(ctx).Model(&domain.Email{}).
		Where("user_id = ?", userID).
		Where(emailParticipantClause, address, address).
		Count(&emailCount).Error
	if err != nil {
		return 0, 0, fmt.Errorf("count emails: %w", err)
	}

	err = r.db.WithContext(ctx).Model(&domain.CalendarEvent{}).
		Where("user_id = ?", userID).
		Where(eventParticipantClause, address, address).
		Count(&eventCount).Error
	if err != nil {
		return 0, 0, fmt.Errorf("count calendar events: %w", err)
	}

	return emailCount, eventCount, nil
}

func (r *gormInteractionRepository) FindEmailsForAddress(ctx context.Context, userID, address string) ([]*domain.Email, error) {
	var emails []*domain.Email
	err := r.db.WithContext(ctx).
		Preload("Recipients", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Where("user_id = ?", userID).
		Where(emailParticipantClause, address, address).
		Order("received_at DESC").
		Find(&emails).Error
	return emails, err
}

func (r *gormInteractionRepository) FindEventsForAddress(ctx context.Context, userID, address string) ([]*domain.CalendarEvent, error) {
	var events []*domain.CalendarEvent
	err := r.db.WithContext(ctx).
		Preload("Attendees", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Where("user_id = ?", userID).
		Where(eventParticipantClause, address, address).
		Order("start_time DESC").
		Find(&events).Error
	return events, err
}

func (r *gormInteractionRepository) FindAllEmails(ctx context.Context, userID string) ([]*domain.Email, error) {
	var emails []*domain.Email
	err := r.db.WithContext(ctx).
		Preload("Recipients").
		Select("id", "user_id", "external_id", "subject", "from_email", "received_at").
		Where("user_id = ?", userID).
		Find(&emails).Error
	return emails, err
}

func (r *gormInteractionRepository) FindAllEvents(ctx context.Context, userID string) ([]*domain.CalendarEvent, error) {
	var events []*domain.CalendarEvent
	err := r.db.WithContext(ctx).
		Preload("Attendees").
		Select("id", "user_id", "external_id", "title", "organizer", "start_time").
		Where("user_id = ?", userID).
		Find(&events).Error
	return events, err
}
