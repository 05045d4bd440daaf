package migration

import (
	accountdomain "github.com/smallbiznis/cardwatch/internal/account/domain"
	auditdomain "github.com/smallbiznis/cardwatch/internal/audit/domain"
	"github.com/smallbiznis/cardwatch/internal/config"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType != "postgres" {
			// sqlite and mysql deployments rely on gorm schema sync.
			return conn.AutoMigrate(
				&accountdomain.Account{},
				&auditdomain.CheckRecord{},
			)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
