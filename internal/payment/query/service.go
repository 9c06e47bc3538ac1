// Package query is the read side over recorded payments.
package query

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/smallbiznis/revenue/internal/account/domain"
	"github.com/smallbiznis/revenue/internal/clock"
	"github.com/smallbiznis/revenue/internal/payment/domain"
	"github.com/smallbiznis/revenue/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	repo  domain.Repository
}

func NewService(p Params) domain.QueryService {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("payment.query"),
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	if req.StartDate != nil && req.EndDate != nil && !req.StartDate.Before(*req.EndDate) {
		return domain.ListResponse{}, domain.ErrInvalidTimeRange
	}

	filter := domain.ListFilter{
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Search:    strings.TrimSpace(req.Search),
	}

	if raw := strings.TrimSpace(req.AccountType); raw != "" {
		accountType, err := accountdomain.ParseAccountType(raw)
		if err != nil {
			return domain.ListResponse{}, err
		}
		filter.AccountType = string(accountType)
	}
	if raw := strings.TrimSpace(req.Method); raw != "" {
		method, err := domain.ParseMethod(raw)
		if err != nil {
			return domain.ListResponse{}, err
		}
		filter.Method = method
	}
	if raw := strings.TrimSpace(req.Status); raw != "" {
		status, err := domain.ParsePaymentStatus(raw)
		if err != nil {
			return domain.ListResponse{}, err
		}
		filter.Status = status
	}

	if token := strings.TrimSpace(req.PageToken); token != "" {
		cursor, err := decodeCursor(token)
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidPageToken
		}
		filter.Cursor = cursor
	}

	pageSize := pagination.ClampPageSize(req.PageSize, defaultPageSize, maxPageSize)
	filter.Limit = pageSize

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return domain.ListResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, int32(pageSize), func(item *domain.PaymentView) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        item.ID.String(),
			CreatedAt: item.PaymentDate.UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			s.log.Warn("failed to encode payment cursor", zap.Error(err))
			return ""
		}
		return token
	})
	if len(items) > pageSize {
		items = items[:pageSize]
	}

	payments := make([]domain.PaymentView, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		payments = append(payments, *item)
	}

	resp := domain.ListResponse{Payments: payments}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) Get(ctx context.Context, reference string) (domain.PaymentView, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return domain.PaymentView{}, domain.ErrInvalidReference
	}
	item, err := s.repo.FindByReference(ctx, s.db, reference)
	if err != nil {
		return domain.PaymentView{}, err
	}
	if item == nil {
		return domain.PaymentView{}, domain.ErrNotFound
	}
	return *item, nil
}

// Stats totals successful payments. TodayOnly restricts to the clock's
// current UTC day.
func (s *Service) Stats(ctx context.Context, req domain.StatsRequest) (domain.Stats, error) {
	filter := domain.StatsFilter{}
	if raw := strings.TrimSpace(req.AccountType); raw != "" {
		accountType, err := accountdomain.ParseAccountType(raw)
		if err != nil {
			return domain.Stats{}, err
		}
		filter.AccountType = string(accountType)
	}
	if req.TodayOnly {
		now := s.clock.Now().UTC()
		from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		to := from.AddDate(0, 0, 1)
		filter.From = &from
		filter.To = &to
	}
	return s.repo.Stats(ctx, s.db, filter)
}

func decodeCursor(token string) (*domain.Cursor, error) {
	decoded, err := pagination.DecodeCursor(token)
	if err != nil {
		return nil, err
	}
	paymentDate, err := time.Parse(time.RFC3339Nano, decoded.CreatedAt)
	if err != nil {
		return nil, err
	}
	id, err := snowflake.ParseString(strings.TrimSpace(decoded.ID))
	if err != nil {
		return nil, err
	}
	if id == 0 {
		return nil, domain.ErrInvalidPageToken
	}
	return &domain.Cursor{PaymentDate: paymentDate.UTC(), ID: id}, nil
}
