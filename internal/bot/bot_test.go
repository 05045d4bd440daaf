package bot

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	accountdomain "github.com/smallbiznis/cardwatch/internal/account/domain"
	accountrepository "github.com/smallbiznis/cardwatch/internal/account/repository"
	accountservice "github.com/smallbiznis/cardwatch/internal/account/service"
	auditdomain "github.com/smallbiznis/cardwatch/internal/audit/domain"
	auditrepository "github.com/smallbiznis/cardwatch/internal/audit/repository"
	auditservice "github.com/smallbiznis/cardwatch/internal/audit/service"
	checkerdomain "github.com/smallbiznis/cardwatch/internal/checker/domain"
	checkerservice "github.com/smallbiznis/cardwatch/internal/checker/service"
	"github.com/smallbiznis/cardwatch/internal/clock"
	"github.com/smallbiznis/cardwatch/internal/config"
	ledgerservice "github.com/smallbiznis/cardwatch/internal/ledger/service"
	paymentservice "github.com/smallbiznis/cardwatch/internal/providers/payment/service"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testDBSeq int64

func newTestBot(t *testing.T) (*Bot, *gorm.DB, *clock.FakeClock) {
	t.Helper()

	dsn := fmt.Sprintf("file:bot_%d?mode=memory&cache=shared", atomic.AddInt64(&testDBSeq, 1))
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
	log := zap.NewNop()
	accountRepo := accountrepository.Provide()

	accountSvc := accountservice.NewService(accountservice.Params{
		DB:    db,
		Log:   log,
		Clock: clk,
		Repo:  accountRepo,
	})
	auditSvc := auditservice.NewService(auditservice.Params{
		DB:          db,
		Log:         log,
		GenID:       node,
		Clock:       clk,
		Repo:        auditrepository.Provide(),
		AccountRepo: accountRepo,
	})
	ledgerSvc := ledgerservice.NewService(ledgerservice.ServiceParam{
		DB:          db,
		Log:         log,
		GenID:       node,
		Clock:       clk,
		Quota:       config.NewStaticQuotaConfigHolder(config.DefaultQuotaConfig()),
		AccountRepo: accountRepo,
		Locks:       ledgerservice.NewKeyedMutex(),
	})
	checkerSvc := checkerservice.NewService(checkerservice.Params{
		Log:    log,
		Ledger: ledgerSvc,
		Audit:  auditSvc,
	})

	b := &Bot{
		checker:  checkerSvc,
		accounts: accountSvc,
		audit:    auditSvc,
		payments: paymentservice.New(paymentservice.Params{Log: log}),
		log:      log.Named("bot"),
	}
	return b, db, clk
}

func TestHandleCommandStart(t *testing.T) {
	b, _, _ := newTestBot(t)

	reply := b.handleCommand(context.Background(), "42", "start", "")
	assert.Equal(t, welcomeText, reply)
}

func TestHandleCommandUnknown(t *testing.T) {
	b, _, _ := newTestBot(t)

	reply := b.handleCommand(context.Background(), "42", "bogus", "")
	assert.Equal(t, unknownCommandText, reply)
}

func TestHandleCheckRendersResults(t *testing.T) {
	b, _, _ := newTestBot(t)

	reply := b.handleCheck(context.Background(), "42", "4111111111111111\n1234")
	lines := strings.Split(reply, "\n")
	if assert.Len(t, lines, 2) {
		assert.Equal(t, "4111111111111111: VALID (Visa)", lines[0])
		assert.Equal(t, "1234: INVALID (Invalid Card Number)", lines[1])
	}
}

func TestHandleCheckSpacedCardIsOneCandidate(t *testing.T) {
	b, db, _ := newTestBot(t)

	reply := b.handleCheck(context.Background(), "42", "4111 1111 1111 1111")
	assert.Equal(t, "4111 1111 1111 1111: VALID (Visa)", reply)

	var count int64
	if err := db.Model(&auditdomain.CheckRecord{}).Count(&count).Error; err != nil {
		t.Fatal(err)
	}
	assert.EqualValues(t, 1, count)
}

func TestHandleCheckQuotaDenial(t *testing.T) {
	b, _, _ := newTestBot(t)

	cards := strings.TrimSpace(strings.Repeat("4111111111111111\n", 8))
	reply := b.handleCheck(context.Background(), "42", cards)
	lines := strings.Split(reply, "\n")
	if assert.Len(t, lines, 8) {
		assert.Contains(t, lines[5], "VALID")
		assert.Equal(t, checkerdomain.QuotaExceededMessage, lines[6])
		assert.Equal(t, checkerdomain.QuotaExceededMessage, lines[7])
	}
}

func TestHandleCheckEmptyMessage(t *testing.T) {
	b, _, _ := newTestBot(t)

	reply := b.handleCheck(context.Background(), "42", "   ")
	assert.Equal(t, welcomeText, reply)
}

func TestHandleValidatePayment(t *testing.T) {
	b, db, _ := newTestBot(t)

	if reply := b.handleCheck(context.Background(), "42", "4111111111111111"); reply == "" {
		t.Fatal("expected a reply")
	}

	reply := b.handleCommand(context.Background(), "42", "validate_payment", "valid_payment_abc")
	assert.Equal(t, upgradedText, reply)

	var account accountdomain.Account
	if err := db.Where("external_id = ?", "42").First(&account).Error; err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, accountdomain.TierPremium, account.Tier)
}

func TestHandleValidatePaymentRejected(t *testing.T) {
	b, _, _ := newTestBot(t)

	reply := b.handleCommand(context.Background(), "42", "validate_payment", "nope")
	assert.Equal(t, rejectedText, reply)

	reply = b.handleCommand(context.Background(), "42", "validate_payment", "")
	assert.Equal(t, missingHashText, reply)
}

func TestHandleHistoryRegisteredButEmpty(t *testing.T) {
	b, db, clk := newTestBot(t)

	account := accountdomain.Account{
		ID:          7,
		ExternalID:  "42",
		Tier:        accountdomain.TierFree,
		WindowStart: clk.Now(),
		CreatedAt:   clk.Now(),
		UpdatedAt:   clk.Now(),
	}
	if err := db.Create(&account).Error; err != nil {
		t.Fatal(err)
	}

	reply := b.handleHistory(context.Background(), "42")
	assert.Equal(t, emptyHistoryText, reply)
}

func TestHandleValidatePaymentUnknownSender(t *testing.T) {
	b, _, _ := newTestBot(t)

	reply := b.handleCommand(context.Background(), "42", "validate_payment", "valid_payment_abc")
	assert.Equal(t, notRegisteredText, reply)
}

func TestHandleHistory(t *testing.T) {
	b, _, clk := newTestBot(t)

	// Unknown senders are pointed at the start flow, not given an empty list.
	reply := b.handleHistory(context.Background(), "42")
	assert.Equal(t, notRegisteredText, reply)

	b.handleCheck(context.Background(), "42", "4111111111111111")
	clk.Advance(time.Minute)
	b.handleCheck(context.Background(), "42", "378282246310005")

	reply = b.handleHistory(context.Background(), "42")
	lines := strings.Split(reply, "\n")
	if assert.Len(t, lines, 3) {
		assert.Contains(t, lines[1], "378282246310005")
		assert.Contains(t, lines[2], "4111111111111111")
	}
}
