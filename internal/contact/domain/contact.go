package domain

import "time"

// Contact is one real-world person known to one user, keyed by (UserID, Email).
// Email is always stored normalized. InteractionCount is derived from stored
// emails and calendar events, never incremented.
type Contact struct {
	ID                string     `json:"id" gorm:"primaryKey"`
	UserID            string     `json:"user_id" gorm:"not null"`
	Email             string     `json:"email" gorm:"not null"`
	Name              string     `json:"name"`
	LastInteractionAt time.Time  `json:"last_interaction_at"`
	InteractionCount  int        `json:"interaction_count"`
	Archived          bool       `json:"archived"`
	ArchivedAt        *time.Time `json:"archived_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}
