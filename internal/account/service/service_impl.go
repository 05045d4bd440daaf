package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/cardwatch/internal/account/domain"
	"github.com/smallbiznis/cardwatch/internal/clock"
	"github.com/smallbiznis/cardwatch/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	repo  domain.Repository
}

func NewService(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("account.service"),
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Get(ctx context.Context, externalID string) (*domain.Account, error) {
	account, err := s.repo.FindByExternalID(ctx, s.db, externalID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, domain.ErrAccountNotFound
	}
	return account, nil
}

// UpgradeTier promotes an account to premium. Upgrading an account that is
// already premium is a no-op success.
func (s *Service) UpgradeTier(ctx context.Context, externalID string) (*domain.Account, error) {
	var upgraded *domain.Account
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		account, err := s.repo.FindByExternalIDForUpdate(ctx, tx, externalID)
		if err != nil {
			return err
		}
		if account == nil {
			return domain.ErrAccountNotFound
		}
		if account.IsPremium() {
			upgraded = account
			return nil
		}

		now := s.clock.Now()
		if err := s.repo.UpdateTier(ctx, tx, account.ID, domain.TierPremium, now); err != nil {
			return err
		}
		account.Tier = domain.TierPremium
		account.UpdatedAt = now
		upgraded = account
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("account upgraded",
		zap.String("external_id", upgraded.ExternalID),
		zap.String("account_id", upgraded.ID.String()),
	)
	return upgraded, nil
}

func (s *Service) List(ctx context.Context, req domain.ListAccountsRequest) (domain.ListAccountsResponse, error) {
	cursor, err := decodeAccountCursor(req.PageToken)
	if err != nil {
		return domain.ListAccountsResponse{}, domain.ErrInvalidPageToken
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	if pageSize > 250 {
		pageSize = 250
	}

	items, err := s.repo.List(ctx, s.db, domain.ListFilter{
		Tier:   domain.Tier(strings.TrimSpace(req.Tier)),
		Cursor: cursor,
		Limit:  pageSize,
	})
	if err != nil {
		return domain.ListAccountsResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(item *domain.Account) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        item.ID.String(),
			CreatedAt: item.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > pageSize {
		items = items[:pageSize]
	}

	accounts := make([]domain.Account, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		accounts = append(accounts, *item)
	}

	resp := domain.ListAccountsResponse{Accounts: accounts}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func decodeAccountCursor(token string) (*domain.AccountCursor, error) {
	if strings.TrimSpace(token) == "" {
		return nil, nil
	}
	decoded, err := pagination.DecodeCursor(token)
	if err != nil {
		return nil, err
	}
	createdAt, err := time.Parse(time.RFC3339Nano, decoded.CreatedAt)
	if err != nil {
		return nil, err
	}
	id, err := snowflake.ParseString(strings.TrimSpace(decoded.ID))
	if err != nil || id == 0 {
		return nil, domain.ErrInvalidPageToken
	}
	return &domain.AccountCursor{ID: id, CreatedAt: createdAt}, nil
}
