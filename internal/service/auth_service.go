package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"crms/internal/repository"
	"crms/pkg/apperror"
	"crms/pkg/jwt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// TokenRevoker blacklists token ids. A nil revoker disables revocation.
type TokenRevoker interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type TokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int64        `json:"expires_in"`
	User         UserResponse `json:"user"`
}

type AuthService interface {
	Login(ctx context.Context, req LoginRequest) (*TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error)
	// Logout revokes the access token and, when given, the refresh token
	Logout(ctx context.Context, access *jwt.Claims, refreshToken string) error
	Me(ctx context.Context, actor Actor) (*UserResponse, error)
}

type authService struct {
	users   repository.UserRepository
	jwtMgr  *jwt.Manager
	revoker TokenRevoker
	logger  *zap.Logger
}

func NewAuthService(users repository.UserRepository, jwtMgr *jwt.Manager, revoker TokenRevoker, logger *zap.Logger) AuthService {
	return &authService{users: users, jwtMgr: jwtMgr, revoker: revoker, logger: logger}
}

func (s *authService) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, apperror.Internal(err, "failed to load user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, apperror.Forbidden("account is disabled")
	}

	return s.issue(mapToResponse(user))
}

func (s *authService) issue(user *UserResponse) (*TokenResponse, error) {
	access, err := s.jwtMgr.GenerateAccessToken(user.ID, user.Role)
	if err != nil {
		return nil, apperror.Internal(err, "failed to generate token")
	}
	refresh, err := s.jwtMgr.GenerateRefreshToken(user.ID, user.Role)
	if err != nil {
		return nil, apperror.Internal(err, "failed to generate token")
	}
	return &TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.jwtMgr.AccessTokenTTL().Seconds()),
		User:         *user,
	}, nil
}

func (s *authService) isRevoked(ctx context.Context, jti string) bool {
	if s.revoker == nil {
		return false
	}
	revoked, err := s.revoker.IsRevoked(ctx, jti)
	if err != nil {
		s.logger.Warn("Token revocation check failed", zap.Error(err))
		return false
	}
	return revoked
}

func (s *authService) revoke(ctx context.Context, claims *jwt.Claims) {
	if s.revoker == nil || claims == nil || claims.ExpiresAt == nil {
		return
	}
	if err := s.revoker.RevokeToken(ctx, claims.ID, time.Until(claims.ExpiresAt.Time)); err != nil {
		s.logger.Warn("Failed to revoke token", zap.String("jti", claims.ID), zap.Error(err))
	}
}

// Refresh rotates the pair: the presented refresh token is revoked
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	claims, err := s.jwtMgr.ParseToken(refreshToken)
	if err != nil || claims.TokenType != jwt.TokenTypeRefresh || s.isRevoked(ctx, claims.ID) {
		return nil, ErrInvalidToken
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, apperror.Internal(err, "failed to load user")
	}
	if !user.IsActive {
		return nil, apperror.Forbidden("account is disabled")
	}

	s.revoke(ctx, claims)
	return s.issue(mapToResponse(user))
}

func (s *authService) Logout(ctx context.Context, access *jwt.Claims, refreshToken string) error {
	if access == nil {
		return ErrInvalidToken
	}
	s.revoke(ctx, access)
	if refreshToken != "" {
		if claims, err := s.jwtMgr.ParseToken(refreshToken); err == nil && claims.UserID == access.UserID {
			s.revoke(ctx, claims)
		}
	}
	return nil
}

func (s *authService) Me(ctx context.Context, actor Actor) (*UserResponse, error) {
	user, err := s.users.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, lookupError(err, "user")
	}
	return mapToResponse(user), nil
}
