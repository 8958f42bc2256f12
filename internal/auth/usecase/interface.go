package usecase

import (
	"context"
	"time"

	authdomain "kithbook-backend/internal/auth/domain"
	authdto "kithbook-backend/internal/auth/dto"

	"golang.org/x/oauth2"
)

// AuthUsecase defines the interface for authentication use cases
type AuthUsecase interface {
	GoogleSignIn(ctx context.Context, req *authdto.GoogleSignInRequest) (*authdto.TokenResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*authdto.TokenResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	ValidateToken(ctx context.Context, token string) (*authdomain.User, error)
	// UpdateGoogleTokens persists a refreshed Google token for the user
	UpdateGoogleTokens(ctx context.Context, userID string, token *oauth2.Token) error
	SetSignInCallback(fn func(userID string))
}

// GoogleIdentity is a verified Google account plus the tokens granted for it
type GoogleIdentity struct {
	Email   string
	Name    string
	Picture string
	Token   *oauth2.Token
}

// GoogleExchanger trades an authorization code for a verified identity
type GoogleExchanger interface {
	Exchange(ctx context.Context, code, redirectURI string) (*GoogleIdentity, error)
}

func tokenExpiry(t *oauth2.Token) time.Time {
	if t.Expiry.IsZero() {
		return time.Now().Add(time.Hour)
	}
	return t.Expiry
}
