package service

import (
	"context"
	"fmt"

	"crosspost/internal/models"
	"crosspost/internal/providers"
	"crosspost/internal/repository"
)

type PlatformService interface {
	List(ctx context.Context, orgID int64) ([]*models.SocialAccount, error)
	Validate(ctx context.Context, orgID, accountID int64) (*providers.ConnectionValidation, error)
}

type platformService struct {
	accounts repository.SocialAccountRepository
	registry *providers.Registry
}

func NewPlatformService(accounts repository.SocialAccountRepository, registry *providers.Registry) PlatformService {
	return &platformService{
		accounts: accounts,
		registry: registry,
	}
}

func (s *platformService) List(ctx context.Context, orgID int64) ([]*models.SocialAccount, error) {
	return s.accounts.ListByOrgID(ctx, orgID)
}

// Validate runs the non-destructive health check for one connected account.
func (s *platformService) Validate(ctx context.Context, orgID, accountID int64) (*providers.ConnectionValidation, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil || account.OrgID != orgID {
		return nil, fmt.Errorf("social account %d does not exist", accountID)
	}

	adapter, err := s.registry.Get(account.Provider)
	if err != nil {
		return nil, err
	}

	return adapter.ValidateConnection(ctx, account)
}
