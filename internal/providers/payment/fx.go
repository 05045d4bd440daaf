package payment

import (
	"github.com/smallbiznis/cardwatch/internal/providers/payment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.provider",
	fx.Provide(service.New),
)
