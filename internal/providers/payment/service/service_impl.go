package service

import (
	"context"
	"strings"

	"github.com/smallbiznis/cardwatch/internal/providers/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// confirmedTokenPrefix marks a settled payment reference issued by the
// upstream processor.
const confirmedTokenPrefix = "valid_payment_"

const providerName = "stub"

type Params struct {
	fx.In

	Log *zap.Logger
}

type provider struct {
	log *zap.Logger
}

// New constructs the stub payment provider.
func New(p Params) domain.Provider {
	return &provider{
		log: p.Log.Named("payment.provider"),
	}
}

// Verify accepts tokens carrying the settled-payment prefix and rejects
// everything else.
func (p *provider) Verify(ctx context.Context, token string) (*domain.Confirmation, error) {
	token = strings.TrimSpace(token)
	if token == "" || !strings.HasPrefix(token, confirmedTokenPrefix) {
		p.log.Debug("rejected payment confirmation")
		return nil, domain.ErrInvalidConfirmation
	}

	reference := strings.TrimPrefix(token, confirmedTokenPrefix)
	if reference == "" {
		return nil, domain.ErrInvalidConfirmation
	}

	return &domain.Confirmation{
		Provider:  providerName,
		Reference: reference,
	}, nil
}
