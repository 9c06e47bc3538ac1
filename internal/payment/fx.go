package payment

import (
	"github.com/smallbiznis/revenue/internal/payment/query"
	"github.com/smallbiznis/revenue/internal/payment/repository"
	paymentservice "github.com/smallbiznis/revenue/internal/payment/service"
	"github.com/smallbiznis/revenue/internal/payment/validation"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(validation.New),
	fx.Provide(paymentservice.NewService),
	fx.Provide(query.NewService),
)
