package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/cardwatch/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListCheckRecordsRequest struct {
	pagination.Pagination
	ExternalID string `form:"external_id"`
}

type ListCheckRecordsResponse struct {
	pagination.PageInfo
	CheckRecords []CheckRecord `json:"check_records"`
}

type Service interface {
	// Record appends one check record. It is called only after an Allowed
	// decision and must never retract it; failures are surfaced for logging.
	Record(ctx context.Context, accountID snowflake.ID, cardNumber string) error
	// History returns the most recent limit records for the account, newest
	// first. An existing account with no checks yields an empty slice.
	History(ctx context.Context, externalID string, limit int) ([]CheckRecord, error)
	List(ctx context.Context, req ListCheckRecordsRequest) (ListCheckRecordsResponse, error)
}

// CheckCursor marks a position in the checked_at/id ordering.
type CheckCursor struct {
	ID        snowflake.ID
	CheckedAt time.Time
}

type ListFilter struct {
	AccountID snowflake.ID
	Cursor    *CheckCursor
	Limit     int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, record *CheckRecord) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*CheckRecord, error)
}

var (
	ErrInvalidAccount   = errors.New("invalid_account")
	ErrInvalidPageToken = errors.New("invalid_page_token")
)
