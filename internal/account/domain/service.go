package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/cardwatch/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListAccountsRequest struct {
	pagination.Pagination
	Tier string `form:"tier"`
}

type ListAccountsResponse struct {
	pagination.PageInfo
	Accounts []Account `json:"accounts"`
}

type Service interface {
	Get(ctx context.Context, externalID string) (*Account, error)
	UpgradeTier(ctx context.Context, externalID string) (*Account, error)
	List(ctx context.Context, req ListAccountsRequest) (ListAccountsResponse, error)
}

// AccountCursor marks a position in the created_at/id ordering.
type AccountCursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

type ListFilter struct {
	Tier   Tier
	Cursor *AccountCursor
	Limit  int
}

// Repository methods take the gorm handle so callers control transactions.
type Repository interface {
	FindByExternalID(ctx context.Context, db *gorm.DB, externalID string) (*Account, error)
	FindByExternalIDForUpdate(ctx context.Context, db *gorm.DB, externalID string) (*Account, error)
	Insert(ctx context.Context, db *gorm.DB, account *Account) error
	UpdateCounters(ctx context.Context, db *gorm.DB, id snowflake.ID, usageCount int, windowStart, updatedAt time.Time) error
	UpdateTier(ctx context.Context, db *gorm.DB, id snowflake.ID, tier Tier, updatedAt time.Time) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Account, error)
}

var (
	ErrAccountNotFound   = errors.New("account_not_found")
	ErrInvalidExternalID = errors.New("invalid_external_id")
	ErrInvalidPageToken  = errors.New("invalid_page_token")
)
