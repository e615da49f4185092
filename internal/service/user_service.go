package service

import (
	"context"
	"strings"

	"fleet-service/internal/models"
	"fleet-service/internal/util"

	"go.uber.org/zap"
)

// UserService registers the people who request and perform maintenance
type UserService struct {
	users  UserRepository
	logger *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(users UserRepository) *UserService {
	return &UserService{
		users:  users,
		logger: util.ComponentLogger("users"),
	}
}

// RegisterUserRequest describes a new user
type RegisterUserRequest struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// RegisterUser stores a user with one of the known roles
func (s *UserService) RegisterUser(ctx context.Context, req RegisterUserRequest) (*models.User, error) {
	u := &models.User{
		Name: strings.TrimSpace(req.Name),
		Role: strings.ToUpper(strings.TrimSpace(req.Role)),
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}

	if err := s.users.CreateUser(ctx, u); err != nil {
		return nil, err
	}

	s.logger.Info("User registered", zap.Int64("user_id", u.ID), zap.String("role", u.Role))
	return u, nil
}

// ListUsers returns all users
func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.users.ListUsers(ctx)
}
