// Package domain contains the immutable check-record model.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// CheckRecord logs one permitted card check. Records are append-only: they
// are never updated or deleted once written.
type CheckRecord struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	AccountID snowflake.ID `gorm:"not null;index" json:"account_id"`
	// CardNumber keeps the candidate verbatim as submitted.
	CardNumber string    `gorm:"type:text;not null" json:"card_number"`
	CheckedAt  time.Time `gorm:"not null;index" json:"checked_at"`
}

// TableName sets the database table name.
func (CheckRecord) TableName() string { return "check_records" }
