// Package domain defines the quota decision contract.
package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/smallbiznis/cardwatch/internal/account/domain"
)

// Decision is the outcome of one quota check. Remaining is meaningful only
// for free-tier accounts; premium accounts report UnlimitedRemaining.
type Decision struct {
	Allowed   bool
	AccountID snowflake.ID
	Tier      accountdomain.Tier
	Remaining int
	// Created marks the call that lazily created the account.
	Created bool
}

const UnlimitedRemaining = -1

type Service interface {
	// TryConsume decides whether the identity may perform one more check
	// and, for free accounts, records the consumption. The read-modify-write
	// is atomic per external id: the free limit is a hard ceiling under
	// concurrent callers. Storage failures yield a denied decision and the
	// error (fail closed).
	TryConsume(ctx context.Context, externalID string) (Decision, error)
}

var ErrInvalidExternalID = errors.New("invalid_external_id")
