package bill

import (
	"github.com/smallbiznis/revenue/internal/bill/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("bill.repository",
	fx.Provide(repository.Provide),
)
