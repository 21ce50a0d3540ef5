package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"socialite/internal/config"
	"socialite/internal/model"
	"socialite/internal/repository"
)

// Refresh tokens fully expired for longer than this are eligible for purge.
const tokenPurgeGrace = 24 * time.Hour

// AuthService issues short-lived JWT access tokens backed by rotating,
// single-use refresh tokens. Presenting an already-rotated refresh token is
// treated as theft: the whole family is revoked.
type AuthService struct {
	tokens repository.RefreshTokenRepository
	config *config.Config
}

func NewAuthService(tokens repository.RefreshTokenRepository, cfg *config.Config) *AuthService {
	return &AuthService{
		tokens: tokens,
		config: cfg,
	}
}

// IssueTokens mints an access/refresh pair for a fresh login.
func (s *AuthService) IssueTokens(ctx context.Context, userID int64, client model.ClientInfo) (*model.TokenPair, error) {
	pair, _, err := s.issue(ctx, userID, client)
	return pair, err
}

// Rotate exchanges a refresh token for a new pair and revokes the old one,
// linking it to its replacement.
func (s *AuthService) Rotate(ctx context.Context, refreshTokenRaw string, client model.ClientInfo) (*model.TokenPair, error) {
	token, err := s.tokens.GetByHash(ctx, hashRefreshToken(refreshTokenRaw))
	if err != nil {
		return nil, model.ErrRefreshTokenNotFound
	}

	if token.IsRevoked() {
		// A rotated token coming back means it leaked or was replayed.
		if err := s.tokens.RevokeAllForUser(ctx, token.UserID); err != nil {
			log.Printf("[AuthService] Failed to revoke token family for user %d: %v", token.UserID, err)
		}
		return nil, model.ErrRefreshTokenReused
	}
	if token.IsExpired() {
		return nil, model.ErrRefreshTokenExpired
	}

	pair, newTokenID, err := s.issue(ctx, token.UserID, client)
	if err != nil {
		return nil, err
	}
	if err := s.tokens.MarkRotated(ctx, token.ID, newTokenID); err != nil {
		log.Printf("[AuthService] Failed to retire rotated token %s: %v", token.ID, err)
	}
	return pair, nil
}

// Revoke retires one refresh token (logout of one session).
func (s *AuthService) Revoke(ctx context.Context, refreshTokenRaw string) error {
	token, err := s.tokens.GetByHash(ctx, hashRefreshToken(refreshTokenRaw))
	if err != nil {
		return err
	}
	return s.tokens.Revoke(ctx, token.ID)
}

// RevokeAll retires every refresh token the user holds.
func (s *AuthService) RevokeAll(ctx context.Context, userID int64) error {
	return s.tokens.RevokeAllForUser(ctx, userID)
}

// PurgeExpired removes refresh tokens long past their expiry.
func (s *AuthService) PurgeExpired(ctx context.Context) (int64, error) {
	return s.tokens.DeleteExpired(ctx, tokenPurgeGrace)
}

// issue creates the pair and returns the stored refresh token's ID so
// Rotate can link the retired token to its replacement.
func (s *AuthService) issue(ctx context.Context, userID int64, client model.ClientInfo) (*model.TokenPair, string, error) {
	accessToken, err := s.signAccessToken(userID)
	if err != nil {
		return nil, "", fmt.Errorf("sign access token: %w", err)
	}

	refreshTokenRaw := uuid.New().String()
	token := &model.RefreshToken{
		UserID:    userID,
		TokenHash: hashRefreshToken(refreshTokenRaw),
		ExpiresAt: time.Now().Add(time.Duration(s.config.RefreshTokenMaxAge) * time.Second),
	}
	if client.UserAgent != "" {
		token.UserAgent = &client.UserAgent
	}
	if client.IP != "" {
		token.IPAddress = &client.IP
	}

	if err := s.tokens.Create(ctx, token); err != nil {
		return nil, "", fmt.Errorf("store refresh token: %w", err)
	}

	return &model.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshTokenRaw,
		ExpiresIn:    s.config.AccessTokenMaxAge,
	}, token.ID, nil
}

func (s *AuthService) signAccessToken(userID int64) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(time.Duration(s.config.AccessTokenMaxAge) * time.Second).Unix(),
		"iat":     time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

// Only the SHA-256 of a refresh token ever touches the database.
func hashRefreshToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
