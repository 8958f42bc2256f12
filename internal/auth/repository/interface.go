package repository

import (
	"context"
	"time"

	authdomain "kithbook-backend/internal/auth/domain"
)

// UserRepository defines persistence for users and their session refresh tokens
type UserRepository interface {
	Create(ctx context.Context, user *authdomain.User) error
	FindByEmail(ctx context.Context, email string) (*authdomain.User, error)
	FindByID(ctx context.Context, id string) (*authdomain.User, error)
	Update(ctx context.Context, user *authdomain.User) error
	// UpdateGoogleTokens stores a refreshed token pair. An empty refresh token keeps the stored one.
	UpdateGoogleTokens(ctx context.Context, userID, accessToken, refreshToken string, expiry time.Time) error
	// ListWithGoogleAccount returns every user that can be synced
	ListWithGoogleAccount(ctx context.Context) ([]*authdomain.User, error)

	SaveRefreshToken(ctx context.Context, token *authdomain.RefreshToken) error
	FindRefreshToken(ctx context.Context, token string) (*authdomain.RefreshToken, error)
	DeleteRefreshToken(ctx context.Context, token string) error
	DeleteRefreshTokensByUser(ctx context.Context, userID string) error
	ReplaceRefreshToken(ctx context.Context, token *authdomain.RefreshToken) error
}
