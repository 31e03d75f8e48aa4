package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"crms/config"
	"crms/internal/model"
	"crms/pkg/apperror"
	"crms/pkg/jwt"
)

type memoryRevoker struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
}

func (r *memoryRevoker) RevokeToken(_ context.Context, jti string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.revoked == nil {
		r.revoked = make(map[string]time.Duration)
	}
	r.revoked[jti] = ttl
	return nil
}

func (r *memoryRevoker) IsRevoked(_ context.Context, jti string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.revoked[jti]
	return ok, nil
}

func setupAuth(t *testing.T, revoker TokenRevoker) (AuthService, *jwt.Manager, *model.User) {
	t.Helper()
	users := newMockUserRepo()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret-pass"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	user := users.add(&model.User{
		Username: "finance", Email: "finance@crms.test", Password: string(hash),
		Role: model.RoleFinanceOfficer, IsActive: true,
	})
	mgr := jwt.NewManager(&config.AuthConfig{
		JWTSecret:       "test-secret-key",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: time.Hour,
	})
	return NewAuthService(users, mgr, revoker, zap.NewNop()), mgr, user
}

func TestAuthService_Login(t *testing.T) {
	svc, mgr, user := setupAuth(t, nil)
	ctx := context.Background()

	tokens, err := svc.Login(ctx, LoginRequest{Email: " Finance@CRMS.test ", Password: "s3cret-pass"})
	if err != nil {
		t.Fatalf("Login should succeed: %v", err)
	}
	if tokens.ExpiresIn != int64((15 * time.Minute).Seconds()) {
		t.Errorf("unexpected expires_in %d", tokens.ExpiresIn)
	}
	claims, err := mgr.ParseToken(tokens.AccessToken)
	if err != nil {
		t.Fatalf("access token should parse: %v", err)
	}
	if claims.UserID != user.ID || claims.Role != model.RoleFinanceOfficer || claims.TokenType != jwt.TokenTypeAccess {
		t.Errorf("unexpected claims %+v", claims)
	}

	_, err = svc.Login(ctx, LoginRequest{Email: "finance@crms.test", Password: "wrong"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
	_, err = svc.Login(ctx, LoginRequest{Email: "nobody@crms.test", Password: "s3cret-pass"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email must look like a bad password, got %v", err)
	}
}

func TestAuthService_Login_Disabled(t *testing.T) {
	svc, _, user := setupAuth(t, nil)
	user.IsActive = false

	_, err := svc.Login(context.Background(), LoginRequest{Email: user.Email, Password: "s3cret-pass"})
	assertKind(t, err, apperror.KindForbidden)
}

func TestAuthService_Refresh_Rotates(t *testing.T) {
	revoker := &memoryRevoker{}
	svc, _, user := setupAuth(t, revoker)
	ctx := context.Background()

	tokens, err := svc.Login(ctx, LoginRequest{Email: user.Email, Password: "s3cret-pass"})
	if err != nil {
		t.Fatal(err)
	}

	_, err = svc.Refresh(ctx, tokens.AccessToken)
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("an access token cannot refresh, got %v", err)
	}

	rotated, err := svc.Refresh(ctx, tokens.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh should succeed: %v", err)
	}
	if rotated.RefreshToken == tokens.RefreshToken {
		t.Error("refresh should issue a new token")
	}

	_, err = svc.Refresh(ctx, tokens.RefreshToken)
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("a used refresh token must be rejected, got %v", err)
	}
}

func TestAuthService_Logout(t *testing.T) {
	revoker := &memoryRevoker{}
	svc, mgr, user := setupAuth(t, revoker)
	ctx := context.Background()

	tokens, err := svc.Login(ctx, LoginRequest{Email: user.Email, Password: "s3cret-pass"})
	if err != nil {
		t.Fatal(err)
	}
	access, _ := mgr.ParseToken(tokens.AccessToken)
	refresh, _ := mgr.ParseToken(tokens.RefreshToken)

	if err := svc.Logout(ctx, access, tokens.RefreshToken); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	for _, jti := range []string{access.ID, refresh.ID} {
		if ok, _ := revoker.IsRevoked(ctx, jti); !ok {
			t.Errorf("token %s should be revoked", jti)
		}
	}
	if ttl := revoker.revoked[access.ID]; ttl <= 0 || ttl > 15*time.Minute {
		t.Errorf("revocation should live until expiry, got %s", ttl)
	}

	if err := svc.Logout(ctx, nil, ""); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("logout without claims should fail, got %v", err)
	}
}

func TestAuthService_Me(t *testing.T) {
	svc, _, user := setupAuth(t, nil)

	me, err := svc.Me(context.Background(), Actor{UserID: user.ID, Role: user.Role})
	if err != nil {
		t.Fatalf("Me: %v", err)
	}
	if me.Email != user.Email {
		t.Errorf("unexpected user %+v", me)
	}

	_, err = svc.Me(context.Background(), Actor{UserID: 999})
	assertKind(t, err, apperror.KindNotFound)
}
