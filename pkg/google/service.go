package google

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	authdomain "kithbook-backend/internal/auth/domain"
	"kithbook-backend/pkg/apperrors"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/gmail/v1"
)

// TokenUpdateFunc persists a refreshed token for a user
type TokenUpdateFunc func(ctx context.Context, userID string, token *oauth2.Token) error

// Scopes requested at sign-in
var Scopes = []string{
	"openid",
	"email",
	"profile",
	gmail.GmailReadonlyScope,
	calendar.CalendarReadonlyScope,
}

// Service talks to Gmail and Calendar on behalf of stored users
type Service struct {
	oauth          *oauth2.Config
	onTokenRefresh TokenUpdateFunc
	logger         *zap.Logger
}

func NewService(clientID, clientSecret, redirectURL string, logger *zap.Logger) *Service {
	return &Service{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     google.Endpoint,
			Scopes:       Scopes,
		},
		logger: logger.Named("google"),
	}
}

// SetTokenRefreshCallback registers where refreshed tokens are written back
func (s *Service) SetTokenRefreshCallback(fn TokenUpdateFunc) {
	s.onTokenRefresh = fn
}

type notifyTokenSource struct {
	mu       sync.Mutex
	ctx      context.Context
	userID   string
	src      oauth2.TokenSource
	current  *oauth2.Token
	callback TokenUpdateFunc
	logger   *zap.Logger
}

func (s *notifyTokenSource) Token() (*oauth2.Token, error) {
	t, err := s.src.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.callback != nil && s.current.AccessToken != t.AccessToken {
		s.current = t
		if err := s.callback(s.ctx, s.userID, t); err != nil {
			s.logger.Error("Failed to persist refreshed token", zap.String("user_id", s.userID), zap.Error(err))
		}
	}
	return t, nil
}

// httpClient returns an authorized client for user, refreshing its token as needed
func (s *Service) httpClient(ctx context.Context, user *authdomain.User) (*http.Client, error) {
	if !user.HasGoogleAccount() {
		return nil, fmt.Errorf("user %s: %w", user.ID, apperrors.ErrNoGoogleAccount)
	}

	token := &oauth2.Token{
		AccessToken:  user.GoogleAccessToken,
		RefreshToken: user.GoogleRefreshToken,
		TokenType:    "Bearer",
	}
	if user.GoogleTokenExpiry != nil {
		token.Expiry = *user.GoogleTokenExpiry
	}

	wrapped := &notifyTokenSource{
		ctx:      ctx,
		userID:   user.ID,
		src:      s.oauth.TokenSource(ctx, token),
		current:  token,
		callback: s.onTokenRefresh,
		logger:   s.logger,
	}
	return oauth2.NewClient(ctx, wrapped), nil
}
