// Package domain defines the batch check contract shared by all front-ends.
package domain

import "context"

// QuotaExceededMessage is the user-facing denial text.
const QuotaExceededMessage = "You have exceeded your daily free usage. Upgrade to premium to check more cards"

// ItemResult is the outcome for one candidate. Either Valid/Network are set
// (the check ran) or Error is set (the check was denied).
type ItemResult struct {
	CardNumber string `json:"card_number"`
	Valid      *bool  `json:"is_valid,omitempty"`
	Network    string `json:"network,omitempty"`
	Error      string `json:"error,omitempty"`
}

type Service interface {
	// CheckBatch validates candidates for one identity, consuming quota per
	// candidate in input order. Results map 1:1 to candidates. A storage
	// failure aborts the batch and returns the partial results; items
	// already recorded remain valid.
	CheckBatch(ctx context.Context, externalID string, candidates []string) ([]ItemResult, error)
}
