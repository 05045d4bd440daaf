// Package bot relays Telegram messages into the card check services.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	accountdomain "github.com/smallbiznis/cardwatch/internal/account/domain"
	auditdomain "github.com/smallbiznis/cardwatch/internal/audit/domain"
	checkerdomain "github.com/smallbiznis/cardwatch/internal/checker/domain"
	"github.com/smallbiznis/cardwatch/internal/config"
	obsmetrics "github.com/smallbiznis/cardwatch/internal/observability/metrics"
	"github.com/smallbiznis/cardwatch/internal/observability/obscontext"
	paymentdomain "github.com/smallbiznis/cardwatch/internal/providers/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	updateTimeoutSeconds = 30
	handleTimeout        = 30 * time.Second
	historyLimit         = 10
)

const (
	welcomeText = "Send one or more card numbers and I will validate them. " +
		"Commands: /upgrade, /validate_payment <hash>, /history"
	upgradeText = "To unlock unlimited checks, complete the payment and send " +
		"/validate_payment <hash> with the confirmation hash you received."
	upgradedText       = "Your account is now premium. Enjoy unlimited checks."
	rejectedText       = "That confirmation hash was not accepted. Check it and try again."
	emptyHistoryText   = "No checks yet."
	notRegisteredText  = "User not found. Please use /start and check a card first."
	unavailableText    = "The service is temporarily unavailable. Please try again later."
	missingHashText    = "Usage: /validate_payment <hash>"
	unknownCommandText = "Unknown command. Send card numbers to validate them, or /start for help."
)

type Params struct {
	fx.In

	Cfg        config.Config
	Checker    checkerdomain.Service
	Accounts   accountdomain.Service
	Audit      auditdomain.Service
	Payments   paymentdomain.Provider
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
	Log        *zap.Logger
}

type Bot struct {
	api      *tgbotapi.BotAPI
	checker  checkerdomain.Service
	accounts accountdomain.Service
	audit    auditdomain.Service
	payments paymentdomain.Provider
	metrics  *obsmetrics.Metrics
	log      *zap.Logger

	stop chan struct{}
	done chan struct{}
}

var Module = fx.Module("bot",
	fx.Invoke(Run),
)

// Run starts the long-polling relay when a bot token is configured.
func Run(lc fx.Lifecycle, p Params) error {
	if !p.Cfg.TelegramEnabled || strings.TrimSpace(p.Cfg.TelegramBotToken) == "" {
		p.Log.Info("telegram bot disabled")
		return nil
	}

	api, err := tgbotapi.NewBotAPI(p.Cfg.TelegramBotToken)
	if err != nil {
		return fmt.Errorf("telegram bot init: %w", err)
	}

	b := &Bot{
		api:      api,
		checker:  p.Checker,
		accounts: p.Accounts,
		audit:    p.Audit,
		payments: p.Payments,
		metrics:  p.ObsMetrics,
		log:      p.Log.Named("bot"),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go b.poll()
			b.log.Info("telegram bot started", zap.String("username", api.Self.UserName))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			close(b.stop)
			b.api.StopReceivingUpdates()
			select {
			case <-b.done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})

	return nil
}

func (b *Bot) poll() {
	defer close(b.done)

	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = updateTimeoutSeconds
	updates := b.api.GetUpdatesChan(cfg)

	for {
		select {
		case <-b.stop:
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil || update.Message.From == nil {
				continue
			}
			b.handleMessage(update.Message)
		}
	}
}

func (b *Bot) handleMessage(msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	externalID := strconv.FormatInt(msg.From.ID, 10)
	ctx = obscontext.WithExternalID(ctx, externalID)

	var reply string
	switch {
	case msg.IsCommand():
		reply = b.handleCommand(ctx, externalID, msg.Command(), msg.CommandArguments())
		b.metrics.RecordBotUpdate(ctx, msg.Command())
	default:
		reply = b.handleCheck(ctx, externalID, msg.Text)
		b.metrics.RecordBotUpdate(ctx, "check")
	}

	if reply == "" {
		return
	}
	out := tgbotapi.NewMessage(msg.Chat.ID, reply)
	if _, err := b.api.Send(out); err != nil {
		b.log.Warn("send reply failed", zap.Error(err))
	}
}

func (b *Bot) handleCommand(ctx context.Context, externalID, command, args string) string {
	switch command {
	case "start":
		return welcomeText
	case "upgrade":
		return upgradeText
	case "validate_payment":
		return b.handleValidatePayment(ctx, externalID, args)
	case "history":
		return b.handleHistory(ctx, externalID)
	default:
		return unknownCommandText
	}
}

func (b *Bot) handleValidatePayment(ctx context.Context, externalID, args string) string {
	token := strings.TrimSpace(args)
	if token == "" {
		return missingHashText
	}

	confirmation, err := b.payments.Verify(ctx, token)
	if err != nil {
		b.metrics.RecordPaymentEvent(ctx, "stub", "rejected")
		return rejectedText
	}

	if _, err := b.accounts.UpgradeTier(ctx, externalID); err != nil {
		if errors.Is(err, accountdomain.ErrAccountNotFound) {
			return notRegisteredText
		}
		b.log.Error("upgrade failed", zap.String("external_id", externalID), zap.Error(err))
		return unavailableText
	}
	b.metrics.RecordPaymentEvent(ctx, confirmation.Provider, "upgraded")
	return upgradedText
}

func (b *Bot) handleHistory(ctx context.Context, externalID string) string {
	records, err := b.audit.History(ctx, externalID, historyLimit)
	if err != nil {
		if errors.Is(err, accountdomain.ErrAccountNotFound) {
			return notRegisteredText
		}
		b.log.Error("history failed", zap.String("external_id", externalID), zap.Error(err))
		return unavailableText
	}
	if len(records) == 0 {
		return emptyHistoryText
	}

	var sb strings.Builder
	sb.WriteString("Your recent checks:\n")
	for _, record := range records {
		sb.WriteString(record.CardNumber)
		sb.WriteString(" at ")
		sb.WriteString(record.CheckedAt.Format("2006-01-02 15:04"))
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (b *Bot) handleCheck(ctx context.Context, externalID, text string) string {
	// One candidate per line; a card typed with spaces stays one candidate.
	var candidates []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			candidates = append(candidates, line)
		}
	}
	if len(candidates) == 0 {
		return welcomeText
	}

	results, err := b.checker.CheckBatch(ctx, externalID, candidates)
	if err != nil && len(results) == 0 {
		b.log.Error("check batch failed", zap.String("external_id", externalID), zap.Error(err))
		return unavailableText
	}

	return renderResults(results)
}

func renderResults(results []checkerdomain.ItemResult) string {
	var sb strings.Builder
	for _, res := range results {
		if res.Error != "" {
			sb.WriteString(res.Error)
			sb.WriteString("\n")
			continue
		}
		sb.WriteString(res.CardNumber)
		if res.Valid != nil && *res.Valid {
			sb.WriteString(": VALID (")
			sb.WriteString(res.Network)
			sb.WriteString(")")
		} else {
			sb.WriteString(": INVALID (")
			sb.WriteString(res.Network)
			sb.WriteString(")")
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
