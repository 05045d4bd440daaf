package account

import (
	"github.com/smallbiznis/cardwatch/internal/account/repository"
	"github.com/smallbiznis/cardwatch/internal/account/service"
	"go.uber.org/fx"
)

var Module = fx.Module("account",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
