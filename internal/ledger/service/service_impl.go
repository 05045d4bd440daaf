package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/smallbiznis/cardwatch/internal/account/domain"
	"github.com/smallbiznis/cardwatch/internal/clock"
	"github.com/smallbiznis/cardwatch/internal/config"
	ledgerdomain "github.com/smallbiznis/cardwatch/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/cardwatch/internal/observability/metrics"
	"github.com/smallbiznis/cardwatch/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Quota       *config.QuotaConfigHolder
	AccountRepo accountdomain.Repository
	Locks       Locker
	Metrics     *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	quota   *config.QuotaConfigHolder
	repo    accountdomain.Repository
	locks   Locker
	metrics *obsmetrics.Metrics
}

func NewService(p ServiceParam) ledgerdomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("ledger.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		quota:   p.Quota,
		repo:    p.AccountRepo,
		locks:   p.Locks,
		metrics: p.Metrics,
	}
}

func (s *Service) TryConsume(ctx context.Context, externalID string) (ledgerdomain.Decision, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return ledgerdomain.Decision{}, ledgerdomain.ErrInvalidExternalID
	}

	release, err := s.locks.Acquire(ctx, "ledger:"+externalID)
	if err != nil {
		return ledgerdomain.Decision{}, err
	}
	defer release()

	quota := s.quota.Current()

	var decision ledgerdomain.Decision
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		account, err := s.repo.FindByExternalIDForUpdate(ctx, tx, externalID)
		if err != nil {
			return err
		}
		if account == nil {
			created, err := s.createAccount(ctx, tx, externalID, quota)
			if err != nil {
				return err
			}
			if created != nil {
				decision = *created
				return nil
			}
			// Lost a cross-replica creation race; re-read the winner's row.
			account, err = s.repo.FindByExternalIDForUpdate(ctx, tx, externalID)
			if err != nil {
				return err
			}
			if account == nil {
				return accountdomain.ErrAccountNotFound
			}
		}

		decision, err = s.consume(ctx, tx, account, quota)
		return err
	})
	if err != nil {
		// Fail closed: a storage failure never grants a check.
		s.log.Error("quota decision failed",
			zap.String("external_id", externalID),
			zap.Error(err),
		)
		return ledgerdomain.Decision{Allowed: false}, err
	}

	s.metrics.RecordDecision(ctx, decision.Allowed, string(decision.Tier))
	return decision, nil
}

// createAccount inserts a fresh free-tier account. The creating call itself
// is allowed; whether it consumes from the quota is governed by
// QuotaConfig.CountFirstCheck (historically it did not).
func (s *Service) createAccount(ctx context.Context, tx *gorm.DB, externalID string, quota config.QuotaConfig) (*ledgerdomain.Decision, error) {
	now := s.clock.Now()

	usage := 0
	if quota.CountFirstCheck {
		usage = 1
	}

	account := accountdomain.Account{
		ID:          s.genID.Generate(),
		ExternalID:  externalID,
		Tier:        accountdomain.TierFree,
		UsageCount:  usage,
		WindowStart: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Insert(ctx, tx, &account); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, nil
		}
		return nil, err
	}

	s.log.Info("account created", zap.String("external_id", externalID))
	return &ledgerdomain.Decision{
		Allowed:   true,
		AccountID: account.ID,
		Tier:      account.Tier,
		Remaining: quota.FreeLimit - usage,
		Created:   true,
	}, nil
}

func (s *Service) consume(ctx context.Context, tx *gorm.DB, account *accountdomain.Account, quota config.QuotaConfig) (ledgerdomain.Decision, error) {
	if account.IsPremium() {
		return ledgerdomain.Decision{
			Allowed:   true,
			AccountID: account.ID,
			Tier:      account.Tier,
			Remaining: ledgerdomain.UnlimitedRemaining,
		}, nil
	}

	now := s.clock.Now()

	usage := account.UsageCount
	windowStart := account.WindowStart
	if now.Sub(windowStart) >= quota.Window {
		usage = 0
		windowStart = now
	}

	if usage >= quota.FreeLimit {
		return ledgerdomain.Decision{
			Allowed:   false,
			AccountID: account.ID,
			Tier:      account.Tier,
			Remaining: 0,
		}, nil
	}

	usage++
	if err := s.repo.UpdateCounters(ctx, tx, account.ID, usage, windowStart, now); err != nil {
		return ledgerdomain.Decision{}, err
	}

	return ledgerdomain.Decision{
		Allowed:   true,
		AccountID: account.ID,
		Tier:      account.Tier,
		Remaining: quota.FreeLimit - usage,
	}, nil
}
