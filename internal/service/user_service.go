package service

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"crms/internal/model"
	"crms/internal/repository"
	"crms/pkg/apperror"
)

// DTOs for Request validation
type CreateUserRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role" binding:"required"`
}

type UpdateUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email" binding:"omitempty,email"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
	Password string `json:"password" binding:"omitempty,min=8"`
	IsActive *bool  `json:"is_active"`
}

// UserResponse is a User without sensitive data
type UserResponse struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FullName  string `json:"full_name"`
	Phone     string `json:"phone"`
	Role      string `json:"role"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// UserService defines the interface for business logic related to User
type UserService interface {
	CreateUser(ctx context.Context, actor Actor, req CreateUserRequest) (*UserResponse, error)
	GetUserByID(ctx context.Context, id int64) (*UserResponse, error)
	ListUsers(ctx context.Context, role string, page, limit int) ([]UserResponse, int64, error)
	UpdateUser(ctx context.Context, actor Actor, id int64, req UpdateUserRequest) (*UserResponse, error)
	DeleteUser(ctx context.Context, actor Actor, id int64) error
	// EnsureAdmin creates a SYSTEM_ADMIN with email/password unless that email exists
	EnsureAdmin(ctx context.Context, email, password string) error
}

type userService struct {
	repo   repository.UserRepository
	audit  *AuditSink
	logger *zap.Logger
}

// NewUserService returns a new instance of UserService
func NewUserService(repo repository.UserRepository, audit *AuditSink, logger *zap.Logger) UserService {
	return &userService{repo: repo, audit: audit, logger: logger}
}

var emailRegex = regexp.MustCompile(`^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}$`)

func mapToResponse(user *model.User) *UserResponse {
	return &UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		FullName:  user.FullName,
		Phone:     user.Phone,
		Role:      user.Role,
		IsActive:  user.IsActive,
		CreatedAt: user.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt: user.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", apperror.Internal(err, "failed to hash password")
	}
	return string(hashed), nil
}

func (s *userService) CreateUser(ctx context.Context, actor Actor, req CreateUserRequest) (*UserResponse, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Username = strings.TrimSpace(req.Username)

	if req.Username == "" {
		return nil, apperror.Validation("username is required")
	}
	if !model.ValidRole(req.Role) {
		return nil, apperror.Validation("invalid role: must be one of %s", strings.Join(model.Roles, ", "))
	}
	if !emailRegex.MatchString(req.Email) {
		return nil, apperror.Validation("invalid email format")
	}
	if len(req.Password) < 8 {
		return nil, apperror.Validation("password must be at least 8 characters")
	}

	if _, err := s.repo.GetByUsername(ctx, req.Username); err == nil {
		return nil, apperror.Conflict("username already exists")
	}
	if _, err := s.repo.GetByEmail(ctx, req.Email); err == nil {
		return nil, apperror.Conflict("email already exists")
	}

	hashed, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username: req.Username,
		Email:    req.Email,
		FullName: strings.TrimSpace(req.FullName),
		Phone:    strings.TrimSpace(req.Phone),
		Password: hashed,
		Role:     req.Role,
		IsActive: true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperror.Conflict("username or email already exists")
		}
		return nil, apperror.Internal(err, "failed to create user")
	}

	s.audit.Record(ctx, actor.UserID, model.ActionCreateUser, "users", user.ID, map[string]interface{}{
		"username": user.Username,
		"role":     user.Role,
	})
	return mapToResponse(user), nil
}

func (s *userService) GetUserByID(ctx context.Context, id int64) (*UserResponse, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "user")
	}
	return mapToResponse(user), nil
}

func (s *userService) ListUsers(ctx context.Context, role string, page, limit int) ([]UserResponse, int64, error) {
	page, limit = normalizePage(page, limit)

	users, total, err := s.repo.List(ctx, strings.ToUpper(role), page, limit)
	if err != nil {
		return nil, 0, apperror.Internal(err, "failed to list users")
	}

	responses := make([]UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, *mapToResponse(&users[i]))
	}
	return responses, total, nil
}

func (s *userService) UpdateUser(ctx context.Context, actor Actor, id int64, req UpdateUserRequest) (*UserResponse, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "user")
	}

	if req.Role != "" {
		if !model.ValidRole(req.Role) {
			return nil, apperror.Validation("invalid role: must be one of %s", strings.Join(model.Roles, ", "))
		}
		if id == actor.UserID && req.Role != user.Role {
			return nil, apperror.Forbidden("you cannot change your own role")
		}
		user.Role = req.Role
	}

	if username := strings.TrimSpace(req.Username); username != "" && username != user.Username {
		if _, err := s.repo.GetByUsername(ctx, username); err == nil {
			return nil, apperror.Conflict("username already exists")
		}
		user.Username = username
	}

	if email := strings.ToLower(strings.TrimSpace(req.Email)); email != "" && email != user.Email {
		if !emailRegex.MatchString(email) {
			return nil, apperror.Validation("invalid email format")
		}
		if _, err := s.repo.GetByEmail(ctx, email); err == nil {
			return nil, apperror.Conflict("email already exists")
		}
		user.Email = email
	}

	if req.FullName != "" {
		user.FullName = strings.TrimSpace(req.FullName)
	}
	if req.Phone != "" {
		user.Phone = strings.TrimSpace(req.Phone)
	}
	if req.Password != "" {
		if len(req.Password) < 8 {
			return nil, apperror.Validation("password must be at least 8 characters")
		}
		if user.Password, err = hashPassword(req.Password); err != nil {
			return nil, err
		}
	}
	if req.IsActive != nil {
		if id == actor.UserID && !*req.IsActive {
			return nil, apperror.Forbidden("you cannot deactivate yourself")
		}
		user.IsActive = *req.IsActive
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, apperror.Internal(err, "failed to update user")
	}

	s.audit.Record(ctx, actor.UserID, model.ActionUpdateUser, "users", user.ID, map[string]interface{}{
		"username":  user.Username,
		"role":      user.Role,
		"is_active": user.IsActive,
	})
	return mapToResponse(user), nil
}

func (s *userService) DeleteUser(ctx context.Context, actor Actor, id int64) error {
	if id == actor.UserID {
		return apperror.Forbidden("you cannot delete yourself")
	}
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return lookupError(err, "user")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return apperror.Internal(err, "failed to delete user")
	}
	s.audit.Record(ctx, actor.UserID, model.ActionDeleteUser, "users", id, nil)
	return nil
}

func (s *userService) EnsureAdmin(ctx context.Context, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil
	}

	_, err := s.repo.GetByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hashed, err := hashPassword(password)
	if err != nil {
		return err
	}
	admin := &model.User{
		Username: strings.SplitN(email, "@", 2)[0],
		Email:    email,
		FullName: "System Administrator",
		Password: hashed,
		Role:     model.RoleSystemAdmin,
		IsActive: true,
	}
	if err := s.repo.Create(ctx, admin); err != nil {
		return err
	}

	s.logger.Info("Seeded system admin", zap.String("email", email))
	return nil
}
