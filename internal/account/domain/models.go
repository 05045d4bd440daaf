// Package domain contains the identity account model and service contract.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Tier is the subscription tier of an account.
type Tier string

const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
)

// Account is the quota record for one external caller identity. It is
// created lazily on first sight of an external id and never deleted.
type Account struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	ExternalID  string       `gorm:"type:text;not null;uniqueIndex" json:"external_id"`
	Tier        Tier         `gorm:"type:text;not null;default:free" json:"tier"`
	UsageCount  int          `gorm:"not null;default:0" json:"usage_count"`
	WindowStart time.Time    `gorm:"not null" json:"window_start"`
	CreatedAt   time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (Account) TableName() string { return "accounts" }

func (a *Account) IsPremium() bool {
	return a != nil && a.Tier == TierPremium
}
