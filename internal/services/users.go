package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redpay/terminal-api/internal/auth"
	"github.com/redpay/terminal-api/internal/models"
	repo "github.com/redpay/terminal-api/internal/repository"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type UserService struct {
	users    repo.Users
	profiles repo.Profiles
	tm       *auth.TokenManager
}

func NewUserService(users repo.Users, profiles repo.Profiles, tm *auth.TokenManager) *UserService {
	return &UserService{users: users, profiles: profiles, tm: tm}
}

// Register creates the user together with a zero-balance profile.
func (s *UserService) Register(ctx context.Context, username, email, password, businessName string) (models.User, models.Profile, error) {
	u := models.User{
		Username: strings.TrimSpace(username),
		Email:    strings.TrimSpace(email),
		Role:     "user",
	}
	if err := u.Validate(); err != nil {
		return models.User{}, models.Profile{}, err
	}
	if len(password) < 6 {
		return models.User{}, models.Profile{}, errors.New("password too short")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return models.User{}, models.Profile{}, err
	}

	created, err := s.users.Create(ctx, u.Username, u.Email, hash, u.Role)
	if err != nil {
		return models.User{}, models.Profile{}, err
	}
	profile, err := s.profiles.Create(ctx, created.ID, strings.TrimSpace(businessName))
	if err != nil {
		return models.User{}, models.Profile{}, err
	}
	return created, profile, nil
}

func (s *UserService) Login(ctx context.Context, email, password string) (TokenPair, error) {
	u, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return TokenPair{}, ErrInvalidCredentials
	}
	if err := auth.VerifyPassword(password, u.PasswordHash); err != nil {
		return TokenPair{}, ErrInvalidCredentials
	}
	return s.issuePair(u.ID, u.Role)
}

func (s *UserService) Refresh(refreshToken string) (TokenPair, error) {
	claims, isRefresh, err := s.tm.ParseAny(refreshToken)
	if err != nil || !isRefresh {
		return TokenPair{}, ErrInvalidCredentials
	}
	return s.issuePair(claims.UserID, claims.Role)
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	return s.users.List(ctx)
}

func (s *UserService) issuePair(userID, role string) (TokenPair, error) {
	access, refresh, exp, err := s.tm.GeneratePair(userID, role)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresAt: exp}, nil
}
