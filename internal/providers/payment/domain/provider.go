package domain

import (
	"context"
	"errors"
)

// Confirmation describes a verified payment confirmation.
type Confirmation struct {
	Provider  string
	Reference string
}

// Provider verifies payment confirmation tokens before a tier upgrade.
type Provider interface {
	Verify(ctx context.Context, token string) (*Confirmation, error)
}

var (
	ErrInvalidConfirmation = errors.New("invalid_payment_confirmation")
)
