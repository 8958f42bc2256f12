package dto

import "kithbook-backend/internal/contact/domain"

type ContactsResponse struct {
	Success  bool              `json:"success"`
	Contacts []*domain.Contact `json:"contacts"`
}

type ContactResponse struct {
	Success bool            `json:"success"`
	Contact *domain.Contact `json:"contact"`
}

// UpdateContactRequest carries a partial edit; absent fields stay unchanged.
type UpdateContactRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email" binding:"omitempty,email"`
}

type TimelineResponse struct {
	Success  bool                  `json:"success"`
	Timeline []domain.TimelineItem `json:"timeline"`
}

type NetworkResponse struct {
	Success bool                 `json:"success"`
	Data    *domain.NetworkGraph `json:"data"`
}

type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
