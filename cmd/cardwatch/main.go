package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/cardwatch/internal/account"
	"github.com/smallbiznis/cardwatch/internal/audit"
	"github.com/smallbiznis/cardwatch/internal/bot"
	"github.com/smallbiznis/cardwatch/internal/checker"
	"github.com/smallbiznis/cardwatch/internal/clock"
	"github.com/smallbiznis/cardwatch/internal/config"
	"github.com/smallbiznis/cardwatch/internal/ledger"
	"github.com/smallbiznis/cardwatch/internal/migration"
	"github.com/smallbiznis/cardwatch/internal/observability"
	payment "github.com/smallbiznis/cardwatch/internal/providers/payment"
	"github.com/smallbiznis/cardwatch/internal/server"
	"github.com/smallbiznis/cardwatch/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Functional domains
		account.Module,
		audit.Module,
		ledger.Module,
		checker.Module,
		payment.Module,

		// Front-ends
		server.Module,
		bot.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
