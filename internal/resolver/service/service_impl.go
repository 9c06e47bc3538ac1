package service

import (
	"context"
	"fmt"
	"strings"

	accountdomain "github.com/smallbiznis/revenue/internal/account/domain"
	billdomain "github.com/smallbiznis/revenue/internal/bill/domain"
	"github.com/smallbiznis/revenue/internal/clock"
	"github.com/smallbiznis/revenue/internal/resolver/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	minPeriod = 1900
	maxPeriod = 9999
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	Accounts accountdomain.Repository
	Bills    billdomain.Repository
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	accounts accountdomain.Repository
	bills    billdomain.Repository
}

func NewService(p Params) domain.Service {
	c := p.Clock
	if c == nil {
		c = clock.NewSystemClock()
	}
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("resolver.service"),
		clock:    c,
		accounts: p.Accounts,
		bills:    p.Bills,
	}
}

func (s *Service) Resolve(ctx context.Context, q domain.Query) (domain.Resolution, error) {
	accountType, err := accountdomain.ParseAccountType(q.AccountType)
	if err != nil {
		return domain.Resolution{}, err
	}
	number := strings.TrimSpace(q.AccountNumber)
	if number == "" {
		return domain.Resolution{}, accountdomain.ErrInvalidAccountNumber
	}

	period := q.Period
	if period == 0 {
		period = s.clock.Now().UTC().Year()
	}
	if period < minPeriod || period > maxPeriod {
		return domain.Resolution{}, billdomain.ErrInvalidPeriod
	}

	account, err := s.accounts.FindActiveByNumber(ctx, s.db, accountType, number)
	if err != nil {
		return domain.Resolution{}, fmt.Errorf("find account: %w", err)
	}
	if account == nil {
		s.log.Debug("account not resolved",
			zap.String("account_type", accountType.String()),
			zap.Int("period", period),
		)
		return domain.Resolution{}, accountdomain.ErrNotFound
	}

	bill, err := s.bills.FindForPeriod(ctx, s.db, accountType, account.ID, period)
	if err != nil {
		return domain.Resolution{}, fmt.Errorf("find bill: %w", err)
	}
	if bill == nil {
		return domain.Resolution{}, billdomain.ErrNoBillForPeriod
	}

	return domain.Resolution{
		Account: *account,
		Bill:    *bill,
		Period:  period,
	}, nil
}
