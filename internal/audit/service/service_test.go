package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	accountdomain "github.com/smallbiznis/cardwatch/internal/account/domain"
	accountrepository "github.com/smallbiznis/cardwatch/internal/account/repository"
	auditdomain "github.com/smallbiznis/cardwatch/internal/audit/domain"
	"github.com/smallbiznis/cardwatch/internal/audit/repository"
	"github.com/smallbiznis/cardwatch/internal/clock"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testDBSeq int64

func newTestService(t *testing.T) (auditdomain.Service, *gorm.DB, *snowflake.Node, *clock.FakeClock) {
	t.Helper()

	dsn := fmt.Sprintf("file:audit_%d?mode=memory&cache=shared", atomic.AddInt64(&testDBSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatal(err)
	}
	if err := db.AutoMigrate(&accountdomain.Account{}, &auditdomain.CheckRecord{}); err != nil {
		t.Fatal(err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatal(err)
	}
	clk := clock.NewFakeClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))

	svc := NewService(Params{
		DB:          db,
		Log:         zap.NewNop(),
		GenID:       node,
		Clock:       clk,
		Repo:        repository.Provide(),
		AccountRepo: accountrepository.Provide(),
	})
	return svc, db, node, clk
}

func seedAccount(t *testing.T, db *gorm.DB, node *snowflake.Node, externalID string, at time.Time) accountdomain.Account {
	t.Helper()
	account := accountdomain.Account{
		ID:          node.Generate(),
		ExternalID:  externalID,
		Tier:        accountdomain.TierFree,
		WindowStart: at,
		CreatedAt:   at,
		UpdatedAt:   at,
	}
	if err := db.Create(&account).Error; err != nil {
		t.Fatal(err)
	}
	return account
}

func TestRecordAppendsVerbatim(t *testing.T) {
	svc, db, node, clk := newTestService(t)
	account := seedAccount(t, db, node, "user-1", clk.Now())

	if err := svc.Record(context.Background(), account.ID, " 4111-1111 1111 1111 "); err != nil {
		t.Fatal(err)
	}

	var record auditdomain.CheckRecord
	if err := db.First(&record).Error; err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, account.ID, record.AccountID)
	assert.Equal(t, " 4111-1111 1111 1111 ", record.CardNumber)
	assert.WithinDuration(t, clk.Now(), record.CheckedAt, time.Second)
}

func TestRecordRejectsZeroAccount(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	err := svc.Record(context.Background(), 0, "4111111111111111")
	assert.ErrorIs(t, err, auditdomain.ErrInvalidAccount)
}

func TestHistoryNewestFirst(t *testing.T) {
	svc, db, node, clk := newTestService(t)
	account := seedAccount(t, db, node, "user-1", clk.Now())

	for i := 0; i < 4; i++ {
		clk.Advance(time.Minute)
		if err := svc.Record(context.Background(), account.ID, fmt.Sprintf("card-%d", i)); err != nil {
			t.Fatal(err)
		}
	}

	records, err := svc.History(context.Background(), "user-1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if assert.Len(t, records, 4) {
		assert.Equal(t, "card-3", records[0].CardNumber)
		assert.Equal(t, "card-0", records[3].CardNumber)
	}
}

func TestHistoryTruncatesToLimit(t *testing.T) {
	svc, db, node, clk := newTestService(t)
	account := seedAccount(t, db, node, "user-1", clk.Now())

	for i := 0; i < 15; i++ {
		clk.Advance(time.Minute)
		if err := svc.Record(context.Background(), account.ID, fmt.Sprintf("card-%d", i)); err != nil {
			t.Fatal(err)
		}
	}

	// The default limit applies when none is requested.
	records, err := svc.History(context.Background(), "user-1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if assert.Len(t, records, 10) {
		assert.Equal(t, "card-14", records[0].CardNumber)
		assert.Equal(t, "card-5", records[9].CardNumber)
	}

	records, err = svc.History(context.Background(), "user-1", 3)
	if err != nil {
		t.Fatal(err)
	}
	assert.Len(t, records, 3)
}

func TestHistoryEmptyForAccountWithNoChecks(t *testing.T) {
	svc, db, node, clk := newTestService(t)
	seedAccount(t, db, node, "user-1", clk.Now())

	records, err := svc.History(context.Background(), "user-1", 10)
	if err != nil {
		t.Fatal(err)
	}
	assert.Empty(t, records)
}

func TestHistoryUnknownAccount(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.History(context.Background(), "nobody", 10)
	assert.ErrorIs(t, err, accountdomain.ErrAccountNotFound)
}

func TestListFiltersByExternalID(t *testing.T) {
	svc, db, node, clk := newTestService(t)
	first := seedAccount(t, db, node, "user-1", clk.Now())
	second := seedAccount(t, db, node, "user-2", clk.Now())

	clk.Advance(time.Minute)
	if err := svc.Record(context.Background(), first.ID, "card-a"); err != nil {
		t.Fatal(err)
	}
	clk.Advance(time.Minute)
	if err := svc.Record(context.Background(), second.ID, "card-b"); err != nil {
		t.Fatal(err)
	}

	resp, err := svc.List(context.Background(), auditdomain.ListCheckRecordsRequest{ExternalID: "user-1"})
	if err != nil {
		t.Fatal(err)
	}
	if assert.Len(t, resp.CheckRecords, 1) {
		assert.Equal(t, "card-a", resp.CheckRecords[0].CardNumber)
	}

	resp, err = svc.List(context.Background(), auditdomain.ListCheckRecordsRequest{})
	if err != nil {
		t.Fatal(err)
	}
	assert.Len(t, resp.CheckRecords, 2)
}

func TestListCursorWalksAllPages(t *testing.T) {
	svc, db, node, clk := newTestService(t)
	account := seedAccount(t, db, node, "user-1", clk.Now())

	for i := 0; i < 7; i++ {
		clk.Advance(time.Minute)
		if err := svc.Record(context.Background(), account.ID, fmt.Sprintf("card-%d", i)); err != nil {
			t.Fatal(err)
		}
	}

	var seen []string
	req := auditdomain.ListCheckRecordsRequest{}
	req.PageSize = 3
	for {
		resp, err := svc.List(context.Background(), req)
		if err != nil {
			t.Fatal(err)
		}
		for _, record := range resp.CheckRecords {
			seen = append(seen, record.CardNumber)
		}
		if !resp.HasMore {
			break
		}
		req.PageToken = resp.NextPageToken
	}

	assert.Len(t, seen, 7)
	assert.Equal(t, "card-6", seen[0])
	assert.Equal(t, "card-0", seen[6])
}
