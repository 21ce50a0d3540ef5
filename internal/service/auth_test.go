package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"socialite/internal/config"
	"socialite/internal/model"
)

type mockRefreshTokenRepository struct {
	createFn    func(ctx context.Context, token *model.RefreshToken) error
	getByHashFn func(ctx context.Context, hash string) (*model.RefreshToken, error)

	createdTokens    []*model.RefreshToken
	revokeCalls      []string
	markRotatedCalls [][2]string
	revokeAllCalls   []int64
}

func (m *mockRefreshTokenRepository) Create(ctx context.Context, token *model.RefreshToken) error {
	m.createdTokens = append(m.createdTokens, token)
	if m.createFn != nil {
		return m.createFn(ctx, token)
	}
	token.ID = "tok-new"
	token.CreatedAt = time.Now()
	return nil
}

func (m *mockRefreshTokenRepository) GetByHash(ctx context.Context, hash string) (*model.RefreshToken, error) {
	if m.getByHashFn != nil {
		return m.getByHashFn(ctx, hash)
	}
	return nil, model.ErrRefreshTokenNotFound
}

func (m *mockRefreshTokenRepository) Revoke(ctx context.Context, id string) error {
	m.revokeCalls = append(m.revokeCalls, id)
	return nil
}

func (m *mockRefreshTokenRepository) MarkRotated(ctx context.Context, id, replacedByID string) error {
	m.markRotatedCalls = append(m.markRotatedCalls, [2]string{id, replacedByID})
	return nil
}

func (m *mockRefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID int64) error {
	m.revokeAllCalls = append(m.revokeAllCalls, userID)
	return nil
}

func (m *mockRefreshTokenRepository) DeleteExpired(ctx context.Context, olderThan time.Duration) (int64, error) {
	return 0, nil
}

func newTestAuthConfig() *config.Config {
	return &config.Config{
		JWTSecret:          "test-secret",
		AccessTokenMaxAge:  900,
		RefreshTokenMaxAge: 3600,
	}
}

func TestAuthService_IssueTokens(t *testing.T) {
	mockRepo := &mockRefreshTokenRepository{}
	svc := NewAuthService(mockRepo, newTestAuthConfig())

	pair, err := svc.IssueTokens(context.Background(), 42, model.ClientInfo{UserAgent: "test-agent", IP: "10.0.0.1"})
	if err != nil {
		t.Fatalf("IssueTokens failed: %v", err)
	}

	// The access token must carry the user as the user_id claim
	token, err := jwt.Parse(pair.AccessToken, func(token *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	if err != nil || !token.Valid {
		t.Fatalf("access token does not verify: %v", err)
	}
	claims := token.Claims.(jwt.MapClaims)
	if userID, _ := claims["user_id"].(float64); int64(userID) != 42 {
		t.Errorf("user_id claim = %v, want 42", claims["user_id"])
	}

	if len(mockRepo.createdTokens) != 1 {
		t.Fatalf("expected 1 stored refresh token, got %d", len(mockRepo.createdTokens))
	}
	stored := mockRepo.createdTokens[0]
	if stored.TokenHash == pair.RefreshToken {
		t.Error("raw refresh token must never be stored")
	}
	if stored.TokenHash != hashRefreshToken(pair.RefreshToken) {
		t.Error("stored hash does not match the issued refresh token")
	}
	if stored.UserAgent == nil || *stored.UserAgent != "test-agent" {
		t.Error("client user agent not recorded on the session")
	}
}

func TestAuthService_Rotate_RetiresOldTokenWithReplacement(t *testing.T) {
	oldRaw := "old-refresh-token"
	mockRepo := &mockRefreshTokenRepository{
		getByHashFn: func(ctx context.Context, hash string) (*model.RefreshToken, error) {
			if hash != hashRefreshToken(oldRaw) {
				return nil, model.ErrRefreshTokenNotFound
			}
			return &model.RefreshToken{
				ID:        "tok-old",
				UserID:    42,
				TokenHash: hash,
				ExpiresAt: time.Now().Add(time.Hour),
			}, nil
		},
	}
	svc := NewAuthService(mockRepo, newTestAuthConfig())

	pair, err := svc.Rotate(context.Background(), oldRaw, model.ClientInfo{})
	if err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}
	if pair.RefreshToken == oldRaw {
		t.Error("rotation must issue a new refresh token")
	}

	if len(mockRepo.markRotatedCalls) != 1 {
		t.Fatalf("expected 1 MarkRotated call, got %d", len(mockRepo.markRotatedCalls))
	}
	if got := mockRepo.markRotatedCalls[0]; got[0] != "tok-old" || got[1] != "tok-new" {
		t.Errorf("MarkRotated(%s, %s), want (tok-old, tok-new)", got[0], got[1])
	}
}

func TestAuthService_Rotate_ReuseRevokesFamily(t *testing.T) {
	revokedAt := time.Now().Add(-time.Minute)
	mockRepo := &mockRefreshTokenRepository{
		getByHashFn: func(ctx context.Context, hash string) (*model.RefreshToken, error) {
			return &model.RefreshToken{
				ID:        "tok-stolen",
				UserID:    42,
				ExpiresAt: time.Now().Add(time.Hour),
				RevokedAt: &revokedAt,
			}, nil
		},
	}
	svc := NewAuthService(mockRepo, newTestAuthConfig())

	_, err := svc.Rotate(context.Background(), "replayed-token", model.ClientInfo{})
	if !errors.Is(err, model.ErrRefreshTokenReused) {
		t.Fatalf("expected ErrRefreshTokenReused, got: %v", err)
	}

	if len(mockRepo.revokeAllCalls) != 1 || mockRepo.revokeAllCalls[0] != 42 {
		t.Errorf("replaying a rotated token must revoke the whole family, got calls %v", mockRepo.revokeAllCalls)
	}
	if len(mockRepo.createdTokens) != 0 {
		t.Error("no new tokens may be issued on reuse detection")
	}
}

func TestAuthService_Rotate_Expired(t *testing.T) {
	mockRepo := &mockRefreshTokenRepository{
		getByHashFn: func(ctx context.Context, hash string) (*model.RefreshToken, error) {
			return &model.RefreshToken{
				ID:        "tok-stale",
				UserID:    42,
				ExpiresAt: time.Now().Add(-time.Hour),
			}, nil
		},
	}
	svc := NewAuthService(mockRepo, newTestAuthConfig())

	_, err := svc.Rotate(context.Background(), "stale-token", model.ClientInfo{})
	if !errors.Is(err, model.ErrRefreshTokenExpired) {
		t.Fatalf("expected ErrRefreshTokenExpired, got: %v", err)
	}
	if len(mockRepo.revokeAllCalls) != 0 {
		t.Error("an expired token is not evidence of theft; the family stays")
	}
}
