package repository

import (
	"context"

	"github.com/smallbiznis/cardwatch/internal/audit/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, record *domain.CheckRecord) error {
	if record == nil {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`INSERT INTO check_records (id, account_id, card_number, checked_at) VALUES (?, ?, ?, ?)`,
		record.ID,
		record.AccountID,
		record.CardNumber,
		record.CheckedAt,
	).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.CheckRecord, error) {
	var records []*domain.CheckRecord
	stmt := db.WithContext(ctx).Model(&domain.CheckRecord{})

	if filter.AccountID != 0 {
		stmt = stmt.Where("account_id = ?", filter.AccountID)
	}
	if filter.Cursor != nil {
		stmt = stmt.Where("(checked_at < ?) OR (checked_at = ? AND id < ?)",
			filter.Cursor.CheckedAt,
			filter.Cursor.CheckedAt,
			filter.Cursor.ID,
		)
	}

	stmt = stmt.Order("checked_at desc, id desc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}

	if err := stmt.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
