package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/smallbiznis/cardwatch/internal/account/domain"
	auditdomain "github.com/smallbiznis/cardwatch/internal/audit/domain"
	"github.com/smallbiznis/cardwatch/internal/clock"
	"github.com/smallbiznis/cardwatch/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultHistoryLimit = 10
	maxHistoryLimit     = 100
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        auditdomain.Repository
	AccountRepo accountdomain.Repository
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        auditdomain.Repository
	accountRepo accountdomain.Repository
}

func NewService(p Params) auditdomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("audit.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		accountRepo: p.AccountRepo,
	}
}

func (s *Service) Record(ctx context.Context, accountID snowflake.ID, cardNumber string) error {
	if accountID == 0 {
		return auditdomain.ErrInvalidAccount
	}

	record := auditdomain.CheckRecord{
		ID:         s.genID.Generate(),
		AccountID:  accountID,
		CardNumber: cardNumber,
		CheckedAt:  s.clock.Now(),
	}

	if err := s.repo.Insert(ctx, s.db, &record); err != nil {
		s.log.Warn("failed to write check record",
			zap.String("account_id", accountID.String()),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (s *Service) History(ctx context.Context, externalID string, limit int) ([]auditdomain.CheckRecord, error) {
	account, err := s.accountRepo.FindByExternalID(ctx, s.db, externalID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, accountdomain.ErrAccountNotFound
	}

	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	items, err := s.repo.List(ctx, s.db, auditdomain.ListFilter{
		AccountID: account.ID,
		Limit:     limit,
	})
	if err != nil {
		return nil, err
	}
	if len(items) > limit {
		items = items[:limit]
	}

	records := make([]auditdomain.CheckRecord, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		records = append(records, *item)
	}
	return records, nil
}

func (s *Service) List(ctx context.Context, req auditdomain.ListCheckRecordsRequest) (auditdomain.ListCheckRecordsResponse, error) {
	var accountID snowflake.ID
	if externalID := strings.TrimSpace(req.ExternalID); externalID != "" {
		account, err := s.accountRepo.FindByExternalID(ctx, s.db, externalID)
		if err != nil {
			return auditdomain.ListCheckRecordsResponse{}, err
		}
		if account == nil {
			return auditdomain.ListCheckRecordsResponse{}, accountdomain.ErrAccountNotFound
		}
		accountID = account.ID
	}

	cursor, err := decodeCheckCursor(req.PageToken)
	if err != nil {
		return auditdomain.ListCheckRecordsResponse{}, auditdomain.ErrInvalidPageToken
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	if pageSize > 250 {
		pageSize = 250
	}

	items, err := s.repo.List(ctx, s.db, auditdomain.ListFilter{
		AccountID: accountID,
		Cursor:    cursor,
		Limit:     pageSize,
	})
	if err != nil {
		return auditdomain.ListCheckRecordsResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(item *auditdomain.CheckRecord) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        item.ID.String(),
			CreatedAt: item.CheckedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > pageSize {
		items = items[:pageSize]
	}

	records := make([]auditdomain.CheckRecord, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		records = append(records, *item)
	}

	resp := auditdomain.ListCheckRecordsResponse{CheckRecords: records}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func decodeCheckCursor(token string) (*auditdomain.CheckCursor, error) {
	if strings.TrimSpace(token) == "" {
		return nil, nil
	}
	decoded, err := pagination.DecodeCursor(token)
	if err != nil {
		return nil, err
	}
	checkedAt, err := time.Parse(time.RFC3339Nano, decoded.CreatedAt)
	if err != nil {
		return nil, err
	}
	id, err := snowflake.ParseString(strings.TrimSpace(decoded.ID))
	if err != nil || id == 0 {
		return nil, auditdomain.ErrInvalidPageToken
	}
	return &auditdomain.CheckCursor{ID: id, CheckedAt: checkedAt}, nil
}
