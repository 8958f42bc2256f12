package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	authusecase "kithbook-backend/internal/auth/usecase"
)

const tokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"

// tokenInfo is the response from Google's tokeninfo endpoint
type tokenInfo struct {
	Email         string `json:"email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	EmailVerified string `json:"email_verified"` // "true" or "false"
	Aud           string `json:"aud"`
}

// Exchange trades an authorization code for tokens and verifies the ID token.
func (s *Service) Exchange(ctx context.Context, code, redirectURI string) (*authusecase.GoogleIdentity, error) {
	cfg := *s.oauth
	if redirectURI != "" {
		cfg.RedirectURL = redirectURI
	}

	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	idToken, _ := token.Extra("id_token").(string)
	if idToken == "" {
		return nil, errors.New("token response has no id_token")
	}

	info, err := s.verifyIDToken(ctx, idToken)
	if err != nil {
		return nil, err
	}

	return &authusecase.GoogleIdentity{
		Email:   info.Email,
		Name:    info.Name,
		Picture: info.Picture,
		Token:   token,
	}, nil
}

func (s *Service) verifyIDToken(ctx context.Context, idToken string) (*tokenInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tokenInfoURL+"?id_token="+url.QueryEscape(idToken), nil)
	if err != nil {
		return nil, err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to verify Google token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to verify Google token: status %d, body: %s", resp.StatusCode, string(body))
	}

	var info tokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode Google token info: %w", err)
	}

	if info.EmailVerified != "true" {
		return nil, errors.New("google email is not verified")
	}
	if info.Aud != s.oauth.ClientID {
		return nil, errors.New("google token issued for another client")
	}
	return &info, nil
}
