package checker

import (
	"github.com/smallbiznis/cardwatch/internal/checker/service"
	"go.uber.org/fx"
)

var Module = fx.Module("checker",
	fx.Provide(service.NewService),
)
