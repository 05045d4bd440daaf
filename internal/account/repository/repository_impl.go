package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/cardwatch/internal/account/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByExternalID(ctx context.Context, db *gorm.DB, externalID string) (*domain.Account, error) {
	return r.find(ctx, db, externalID, false)
}

func (r *repo) FindByExternalIDForUpdate(ctx context.Context, db *gorm.DB, externalID string) (*domain.Account, error) {
	return r.find(ctx, db, externalID, true)
}

func (r *repo) find(ctx context.Context, db *gorm.DB, externalID string, forUpdate bool) (*domain.Account, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, domain.ErrInvalidExternalID
	}

	stmt := db.WithContext(ctx)
	if forUpdate && supportsRowLocks(db) {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var account domain.Account
	err := stmt.Where("external_id = ?", externalID).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, account *domain.Account) error {
	if account == nil {
		return nil
	}
	return db.WithContext(ctx).Create(account).Error
}

func (r *repo) UpdateCounters(ctx context.Context, db *gorm.DB, id snowflake.ID, usageCount int, windowStart, updatedAt time.Time) error {
	return db.WithContext(ctx).Model(&domain.Account{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"usage_count":  usageCount,
			"window_start": windowStart,
			"updated_at":   updatedAt,
		}).Error
}

func (r *repo) UpdateTier(ctx context.Context, db *gorm.DB, id snowflake.ID, tier domain.Tier, updatedAt time.Time) error {
	return db.WithContext(ctx).Model(&domain.Account{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"tier":       tier,
			"updated_at": updatedAt,
		}).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Account, error) {
	var accounts []*domain.Account
	stmt := db.WithContext(ctx).Model(&domain.Account{})

	if tier := strings.TrimSpace(string(filter.Tier)); tier != "" {
		stmt = stmt.Where("tier = ?", tier)
	}
	if filter.Cursor != nil {
		stmt = stmt.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			filter.Cursor.CreatedAt,
			filter.Cursor.CreatedAt,
			filter.Cursor.ID,
		)
	}

	stmt = stmt.Order("created_at desc, id desc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}

	if err := stmt.Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

// sqlite has no SELECT FOR UPDATE; its writer lock serializes instead.
func supportsRowLocks(db *gorm.DB) bool {
	return !strings.EqualFold(db.Dialector.Name(), "sqlite")
}
