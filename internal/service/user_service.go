package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"os"
	"time"

	"travel-expense-api/internal/model"
	"travel-expense-api/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// DTOs for Request validation
type CreateUserRequest struct {
	Username     string  `json:"username" binding:"required"`
	Email        string  `json:"email" binding:"required,email"`
	Password     string  `json:"password" binding:"required,min=6"`
	Profile      string  `json:"profile" binding:"required"`
	IsApprover   bool    `json:"is_approver"`
	IsSuperuser  bool    `json:"is_superuser"`
	SupervisorID *string `json:"supervisor_id"`
}

type UpdateUserRequest struct {
	Username     string  `json:"username"`
	Email        string  `json:"email" binding:"omitempty,email"`
	Profile      string  `json:"profile"`
	IsApprover   *bool   `json:"is_approver"`
	IsSuperuser  *bool   `json:"is_superuser"`
	SupervisorID *string `json:"supervisor_id"`
}

type LoginUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type TokenResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
}

// DTO for returning User without exposing sensitive data (e.g. password)
type UserResponse struct {
	ID           uuid.UUID  `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	Profile      string     `json:"profile"`
	IsApprover   bool       `json:"is_approver"`
	IsSuperuser  bool       `json:"is_superuser"`
	SupervisorID *uuid.UUID `json:"supervisor_id,omitempty"`
	Supervisor   string     `json:"supervisor,omitempty"`
	CreatedAt    string     `json:"created_at"`
	UpdatedAt    string     `json:"updated_at"`
}

// UserService defines the interface for business logic related to User
type UserService interface {
	CreateUser(ctx context.Context, req CreateUserRequest) (*UserResponse, error)
	Login(ctx context.Context, req LoginUserRequest) (*TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*UserResponse, error)
	ListUsers(ctx context.Context, page, limit int) ([]UserResponse, int64, error)
	UpdateUser(ctx context.Context, id uuid.UUID, req UpdateUserRequest) (*UserResponse, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

type userService struct {
	repo repository.UserRepository
}

// NewUserService returns a new instance of UserService
func NewUserService(repo repository.UserRepository) UserService {
	return &userService{repo: repo}
}

// Helper: parse model to standard json API response
func mapToResponse(user *model.User) *UserResponse {
	resp := &UserResponse{
		ID:           user.ID,
		Username:     user.Username,
		Email:        user.Email,
		Profile:      user.Profile,
		IsApprover:   user.IsApprover,
		IsSuperuser:  user.IsSuperuser,
		SupervisorID: user.SupervisorID,
		CreatedAt:    user.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:    user.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if user.Supervisor != nil {
		resp.Supervisor = user.Supervisor.Username
	}
	return resp
}

func (s *userService) CreateUser(ctx context.Context, req CreateUserRequest) (*UserResponse, error) {
	if !model.ValidProfile(req.Profile) {
		return nil, errValidation("invalid profile: must be EMPLOYEE, MANAGER, ACCOUNTING, or TREASURY")
	}

	// Double check username/email uniqueness via repo directly
	if _, err := s.repo.GetByUsername(ctx, req.Username); err == nil {
		return nil, errValidation("username already exists")
	}
	if _, err := s.repo.GetByEmail(ctx, req.Email); err == nil {
		return nil, errValidation("email already exists")
	}

	// Hash password automatically
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errValidation("failed to hash password")
	}

	user := &model.User{
		Username:    req.Username,
		Email:       req.Email,
		Password:    string(hashedPassword),
		Profile:     req.Profile,
		IsApprover:  req.IsApprover,
		IsSuperuser: req.IsSuperuser,
	}

	if req.SupervisorID != nil && *req.SupervisorID != "" {
		supervisorID, parseErr := uuid.Parse(*req.SupervisorID)
		if parseErr != nil {
			return nil, errValidation("invalid supervisor_id")
		}
		if _, err := s.repo.GetByID(ctx, supervisorID); err != nil {
			return nil, errValidation("supervisor not found")
		}
		user.SupervisorID = &supervisorID
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	return mapToResponse(user), nil
}

func (s *userService) Login(ctx context.Context, req LoginUserRequest) (*TokenResponse, error) {
	user, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, errForbidden("invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, errForbidden("invalid email or password")
	}
	return s.issueTokens(ctx, user)
}

func (s *userService) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	stored, err := s.repo.GetRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, errForbidden("invalid refresh token")
	}
	if time.Now().After(stored.ExpiresAt) {
		_ = s.repo.DeleteRefreshToken(ctx, refreshToken)
		return nil, errForbidden("refresh token expired")
	}

	user, err := s.repo.GetByID(ctx, stored.UserID)
	if err != nil {
		return nil, errNotFound("user not found")
	}

	// Rotate: the old token is spent regardless of the outcome below.
	_ = s.repo.DeleteRefreshToken(ctx, refreshToken)
	return s.issueTokens(ctx, user)
}

func (s *userService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.repo.DeleteRefreshToken(ctx, refreshToken)
}

func (s *userService) issueTokens(ctx context.Context, user *model.User) (*TokenResponse, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":          user.ID.String(),
		"profile":      user.Profile,
		"is_approver":  user.IsApprover,
		"is_superuser": user.IsSuperuser,
		"exp":          time.Now().Add(24 * time.Hour).Unix(),
	})

	// Use same fallback strategy as middleware for simplicity here or get from env centrally
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "default_super_secret_key"
	}

	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return nil, errValidation("failed to generate token")
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, errValidation("failed to generate refresh token")
	}
	refreshToken := hex.EncodeToString(raw)
	if err := s.repo.CreateRefreshToken(ctx, &model.RefreshToken{
		UserID:    user.ID,
		Token:     refreshToken,
		ExpiresAt: time.Now().Add(7 * 24 * time.Hour),
	}); err != nil {
		return nil, err
	}

	return &TokenResponse{Token: tokenString, RefreshToken: refreshToken}, nil
}

func (s *userService) GetUserByID(ctx context.Context, id uuid.UUID) (*UserResponse, error) {
	user, err := s.repo.GetByIDWithSupervisor(ctx, id)
	if err != nil {
		return nil, errNotFound("user not found")
	}
	return mapToResponse(user), nil
}

func (s *userService) ListUsers(ctx context.Context, page, limit int) ([]UserResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}

	users, total, err := s.repo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, err
	}

	var responses []UserResponse
	for i := range users {
		responses = append(responses, *mapToResponse(&users[i]))
	}

	return responses, total, nil
}

func (s *userService) UpdateUser(ctx context.Context, id uuid.UUID, req UpdateUserRequest) (*UserResponse, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, errNotFound("user not found")
	}

	if req.Profile != "" {
		if !model.ValidProfile(req.Profile) {
			return nil, errValidation("invalid profile: must be EMPLOYEE, MANAGER, ACCOUNTING, or TREASURY")
		}
		user.Profile = req.Profile
	}

	if req.Username != "" && req.Username != user.Username {
		if _, err := s.repo.GetByUsername(ctx, req.Username); err == nil {
			return nil, errValidation("username already exists")
		}
		user.Username = req.Username
	}

	if req.Email != "" && req.Email != user.Email {
		if _, err := s.repo.GetByEmail(ctx, req.Email); err == nil {
			return nil, errValidation("email already exists")
		}
		user.Email = req.Email
	}

	if req.IsApprover != nil {
		user.IsApprover = *req.IsApprover
	}
	if req.IsSuperuser != nil {
		user.IsSuperuser = *req.IsSuperuser
	}

	if req.SupervisorID != nil {
		if *req.SupervisorID == "" {
			user.SupervisorID = nil
		} else {
			supervisorID, parseErr := uuid.Parse(*req.SupervisorID)
			if parseErr != nil {
				return nil, errValidation("invalid supervisor_id")
			}
			if err := s.validateSupervisorChain(ctx, user.ID, supervisorID); err != nil {
				return nil, err
			}
			user.SupervisorID = &supervisorID
		}
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}

	return mapToResponse(user), nil
}

func (s *userService) DeleteUser(ctx context.Context, id uuid.UUID) error {
	_, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return errNotFound("user not found")
	}
	return s.repo.Delete(ctx, id)
}

// validateSupervisorChain walks the proposed supervisor's own chain and
// rejects the assignment if it loops back to the user. Supervision must stay
// acyclic or submissions could route a request to its own requester.
func (s *userService) validateSupervisorChain(ctx context.Context, userID, supervisorID uuid.UUID) error {
	if supervisorID == userID {
		return errValidation("a user cannot be their own supervisor")
	}

	const maxDepth = 100
	current := supervisorID
	for i := 0; i < maxDepth; i++ {
		node, err := s.repo.GetByID(ctx, current)
		if err != nil {
			return errValidation("supervisor not found")
		}
		if node.SupervisorID == nil {
			return nil
		}
		if *node.SupervisorID == userID {
			return errValidation("supervisor assignment would create a cycle")
		}
		current = *node.SupervisorID
	}
	return errValidation("supervisor chain is too deep")
}
