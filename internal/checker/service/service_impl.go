package service

import (
	"context"
	"strings"

	auditdomain "github.com/smallbiznis/cardwatch/internal/audit/domain"
	"github.com/smallbiznis/cardwatch/internal/card"
	checkerdomain "github.com/smallbiznis/cardwatch/internal/checker/domain"
	ledgerdomain "github.com/smallbiznis/cardwatch/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/cardwatch/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log     *zap.Logger
	Ledger  ledgerdomain.Service
	Audit   auditdomain.Service
	Metrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	log     *zap.Logger
	ledger  ledgerdomain.Service
	audit   auditdomain.Service
	metrics *obsmetrics.Metrics
}

func NewService(p Params) checkerdomain.Service {
	return &Service{
		log:     p.Log.Named("checker.service"),
		ledger:  p.Ledger,
		audit:   p.Audit,
		metrics: p.Metrics,
	}
}

func (s *Service) CheckBatch(ctx context.Context, externalID string, candidates []string) ([]checkerdomain.ItemResult, error) {
	if strings.TrimSpace(externalID) == "" {
		return nil, ledgerdomain.ErrInvalidExternalID
	}

	results := make([]checkerdomain.ItemResult, 0, len(candidates))
	for _, candidate := range candidates {
		decision, err := s.ledger.TryConsume(ctx, externalID)
		if err != nil {
			// Retryable fault; already-recorded items are not rolled back.
			return results, err
		}

		if !decision.Allowed {
			results = append(results, checkerdomain.ItemResult{
				CardNumber: candidate,
				Error:      checkerdomain.QuotaExceededMessage,
			})
			continue
		}

		res := card.Validate(candidate)
		s.metrics.RecordClassification(ctx, res.Network, res.Valid)

		// Decision-then-log: an append failure is logged by the audit
		// service and never retracts the granted check.
		_ = s.audit.Record(ctx, decision.AccountID, candidate)

		valid := res.Valid
		results = append(results, checkerdomain.ItemResult{
			CardNumber: candidate,
			Valid:      &valid,
			Network:    res.Network,
		})
	}

	return results, nil
}
