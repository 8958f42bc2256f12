package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	authdomain "kithbook-backend/internal/auth/domain"
	authdto "kithbook-backend/internal/auth/dto"
	"kithbook-backend/internal/auth/repository"
	"kithbook-backend/pkg/apperrors"
	"kithbook-backend/pkg/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	accessTokenType  = "access"
	refreshTokenType = "refresh"
)

// authUsecase implements AuthUsecase interface
type authUsecase struct {
	userRepo  repository.UserRepository
	exchanger GoogleExchanger
	config    *config.Config
	logger    *zap.Logger
	onSignIn  func(userID string)
}

// NewAuthUsecase creates a new instance of authUsecase
func NewAuthUsecase(userRepo repository.UserRepository, exchanger GoogleExchanger, cfg *config.Config, logger *zap.Logger) AuthUsecase {
	return &authUsecase{
		userRepo:  userRepo,
		exchanger: exchanger,
		config:    cfg,
		logger:    logger.Named("auth"),
	}
}

// SetSignInCallback registers a hook run after each successful Google sign-in
func (u *authUsecase) SetSignInCallback(fn func(userID string)) {
	u.onSignIn = fn
}

func (u *authUsecase) GoogleSignIn(ctx context.Context, req *authdto.GoogleSignInRequest) (*authdto.TokenResponse, error) {
	identity, err := u.exchanger.Exchange(ctx, req.Code, req.RedirectURI)
	if err != nil {
		return nil, fmt.Errorf("google sign-in: %w: %v", apperrors.ErrUnauthorized, err)
	}

	user, err := u.userRepo.FindByEmail(ctx, identity.Email)
	if err != nil {
		return nil, err
	}

	expiry := tokenExpiry(identity.Token)
	if user == nil {
		user = &authdomain.User{
			Email:              identity.Email,
			Name:               identity.Name,
			AvatarURL:          identity.Picture,
			GoogleAccessToken:  identity.Token.AccessToken,
			GoogleRefreshToken: identity.Token.RefreshToken,
			GoogleTokenExpiry:  &expiry,
		}
		if err := u.userRepo.Create(ctx, user); err != nil {
			return nil, err
		}
	} else {
		user.Name = identity.Name
		user.AvatarURL = identity.Picture
		user.GoogleAccessToken = identity.Token.AccessToken
		// Google only issues a refresh token on first consent
		if identity.Token.RefreshToken != "" {
			user.GoogleRefreshToken = identity.Token.RefreshToken
		}
		user.GoogleTokenExpiry = &expiry
		if err := u.userRepo.Update(ctx, user); err != nil {
			return nil, err
		}
	}

	resp, err := u.generateTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	u.logger.Info("User signed in", zap.String("user_id", user.ID))
	if u.onSignIn != nil {
		u.onSignIn(user.ID)
	}
	return resp, nil
}

func (u *authUsecase) RefreshToken(ctx context.Context, refreshToken string) (*authdto.TokenResponse, error) {
	claims, err := u.parse(refreshToken, refreshTokenType)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh token: %w", apperrors.ErrUnauthorized)
	}

	storedToken, err := u.userRepo.FindRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	if storedToken == nil || storedToken.ExpiresAt.Before(time.Now()) {
		return nil, fmt.Errorf("refresh token expired: %w", apperrors.ErrUnauthorized)
	}

	userID, ok := claims["user_id"].(string)
	if !ok {
		return nil, fmt.Errorf("invalid token claims: %w", apperrors.ErrUnauthorized)
	}

	user, err := u.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if user == nil {
		return nil, fmt.Errorf("user not found: %w", apperrors.ErrUnauthorized)
	}

	// Rotate: the presented token is single use
	if err := u.userRepo.DeleteRefreshToken(ctx, refreshToken); err != nil {
		return nil, err
	}

	return u.generateTokens(ctx, user)
}

func (u *authUsecase) Logout(ctx context.Context, refreshToken string) error {
	return u.userRepo.DeleteRefreshToken(ctx, refreshToken)
}

func (u *authUsecase) UpdateGoogleTokens(ctx context.Context, userID string, token *oauth2.Token) error {
	return u.userRepo.UpdateGoogleTokens(ctx, userID, token.AccessToken, token.RefreshToken, tokenExpiry(token))
}

func (u *authUsecase) generateTokens(ctx context.Context, user *authdomain.User) (*authdto.TokenResponse, error) {
	accessToken, err := u.generateAccessToken(user)
	if err != nil {
		return nil, err
	}

	refreshToken, err := u.generateRefreshToken(user)
	if err != nil {
		return nil, err
	}

	refreshTokenEntity := &authdomain.RefreshToken{
		Token:     refreshToken,
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(u.config.JWTRefreshExpiry),
	}
	if err := u.userRepo.ReplaceRefreshToken(ctx, refreshTokenEntity); err != nil {
		return nil, err
	}

	return &authdto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user,
	}, nil
}

func (u *authUsecase) generateAccessToken(user *authdomain.User) (string, error) {
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"type":    accessTokenType,
		"exp":     time.Now().Add(u.config.JWTAccessExpiry).Unix(),
		"iat":     time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(u.config.JWTSecret))
}

func (u *authUsecase) generateRefreshToken(user *authdomain.User) (string, error) {
	claims := jwt.MapClaims{
		"user_id":  user.ID,
		"token_id": uuid.New().String(),
		"type":     refreshTokenType,
		"exp":      time.Now().Add(u.config.JWTRefreshExpiry).Unix(),
		"iat":      time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(u.config.JWTSecret))
}

func (u *authUsecase) parse(tokenString, tokenType string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(u.config.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims["type"] != tokenType {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

func (u *authUsecase) ValidateToken(ctx context.Context, tokenString string) (*authdomain.User, error) {
	claims, err := u.parse(tokenString, accessTokenType)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, apperrors.ErrUnauthorized)
	}

	userID, ok := claims["user_id"].(string)
	if !ok {
		return nil, fmt.Errorf("invalid token claims: %w", apperrors.ErrUnauthorized)
	}

	user, err := u.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if user == nil {
		return nil, fmt.Errorf("user not found: %w", apperrors.ErrUnauthorized)
	}

	return user, nil
}
