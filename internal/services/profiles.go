package services

import (
	"context"

	"github.com/redpay/terminal-api/internal/models"
	repo "github.com/redpay/terminal-api/internal/repository"
)

type ProfileService struct{ r repo.Profiles }

func NewProfileService(r repo.Profiles) *ProfileService { return &ProfileService{r: r} }

func (s *ProfileService) Current(ctx context.Context, userID string) (models.Profile, error) {
	return s.r.GetByUserID(ctx, userID)
}
