package domain

import "time"

type User struct {
	ID                 string     `json:"id"`
	Email              string     `json:"email"`
	Name               string     `json:"name"`
	AvatarURL          string     `json:"avatar_url,omitempty"`
	GoogleAccessToken  string     `json:"-"` // Never return tokens in JSON
	GoogleRefreshToken string     `json:"-"`
	GoogleTokenExpiry  *time.Time `json:"-"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// HasGoogleAccount reports whether the user granted mail and calendar access.
func (u *User) HasGoogleAccount() bool {
	return u.GoogleAccessToken != "" || u.GoogleRefreshToken != ""
}

type RefreshToken struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}
