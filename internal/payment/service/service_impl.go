package service

import (
	"context"
	"errors"
	"fmt"

	accountdomain "github.com/smallbiznis/revenue/internal/account/domain"
	billdomain "github.com/smallbiznis/revenue/internal/bill/domain"
	ledgerdomain "github.com/smallbiznis/revenue/internal/ledger/domain"
	"github.com/smallbiznis/revenue/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/revenue/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/revenue/internal/payment/domain"
	"github.com/smallbiznis/revenue/internal/payment/validation"
	resolverdomain "github.com/smallbiznis/revenue/internal/resolver/domain"
	"github.com/smallbiznis/revenue/pkg/money"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	stageResolve  = "resolve"
	stageValidate = "validate"
	stageLedger   = "ledger"
)

type Params struct {
	fx.In

	Log       *zap.Logger
	Resolver  resolverdomain.Service
	Validator *validation.Validator
	Ledger    ledgerdomain.Writer
	Metrics   *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	log       *zap.Logger
	resolver  resolverdomain.Service
	validator *validation.Validator
	ledger    ledgerdomain.Writer
	metrics   *obsmetrics.Metrics
	tracer    trace.Tracer
}

func NewService(p Params) paymentdomain.Service {
	return &Service{
		log:       p.Log.Named("payment.service"),
		resolver:  p.Resolver,
		validator: p.Validator,
		ledger:    p.Ledger,
		metrics:   p.Metrics,
		tracer:    otel.Tracer("revenue/payment"),
	}
}

// Submit resolves the bill, validates the claim against it and hands the
// result to the ledger. A rejected submission still returns a Result whose
// Errors explain every reason, alongside the typed error.
func (s *Service) Submit(ctx context.Context, req paymentdomain.SubmitRequest) (paymentdomain.Result, error) {
	ctx, span := s.tracer.Start(ctx, "payment.Submit", trace.WithAttributes(
		attribute.String("account_type", req.AccountType),
		attribute.String("payment_method", req.Method),
		attribute.Int("period", req.Period),
	))
	defer span.End()

	resolution, err := s.resolver.Resolve(ctx, resolverdomain.Query{
		AccountNumber: req.AccountNumber,
		AccountType:   req.AccountType,
		Period:        req.Period,
	})
	if err != nil {
		if reasonFor(err) == "unknown" {
			err = fmt.Errorf("%w: %w", ledgerdomain.ErrPersistenceFailure, err)
		}
		return s.reject(ctx, span, stageResolve, req, err)
	}

	intent, err := s.validator.Validate(validation.Candidate{
		Method:        req.Method,
		Amount:        req.Amount,
		TransactionID: req.TransactionID,
		Channel:       req.Channel,
		Notes:         req.Notes,
	}, resolution.Bill)
	if err != nil {
		return s.reject(ctx, span, stageValidate, req, err)
	}

	applied, err := s.ledger.Apply(ctx, ledgerdomain.ApplyInput{
		Intent:  intent,
		Account: resolution.Account,
		Bill:    resolution.Bill,
		Actor:   req.Actor,
	})
	if err != nil {
		return s.reject(ctx, span, stageLedger, req, err)
	}

	span.SetAttributes(attribute.String("payment_reference", applied.PaymentReference))
	return paymentdomain.Result{
		Success:          true,
		PaymentID:        applied.PaymentID.String(),
		PaymentReference: applied.PaymentReference,
		ReceiptNumber:    applied.ReceiptNumber,
		AmountPaid:       money.Format(applied.AmountPaid),
		NewBalance:       money.Format(applied.NewBillBalance),
		Status:           string(applied.NewBillStatus),
		Warnings:         applied.AuditWarnings,
	}, nil
}

func (s *Service) reject(ctx context.Context, span trace.Span, stage string, req paymentdomain.SubmitRequest, err error) (paymentdomain.Result, error) {
	reason := reasonFor(err)
	span.SetStatus(codes.Error, reason)
	span.SetAttributes(attribute.String("failure_stage", stage))

	if s.metrics != nil {
		s.metrics.RecordPaymentFailure(ctx, stage, reason)
	}

	log := logger.WithContext(ctx, s.log).With(
		zap.String("stage", stage),
		zap.String("reason", reason),
		zap.String("account_type", req.AccountType),
	)
	switch stage {
	case stageLedger:
		log.Warn("payment rejected", zap.Error(err))
	default:
		log.Info("payment rejected", zap.Error(err))
	}

	return paymentdomain.Result{
		Success: false,
		Errors:  messagesFor(err, req),
	}, err
}

// reasonFor returns a low-cardinality code for metrics and logs.
func reasonFor(err error) string {
	if _, ok := validation.AsValidationError(err); ok {
		return "validation"
	}
	for _, sentinel := range []error{
		accountdomain.ErrInvalidAccountType,
		accountdomain.ErrInvalidAccountNumber,
		accountdomain.ErrNotFound,
		billdomain.ErrInvalidPeriod,
		billdomain.ErrNoBillForPeriod,
		ledgerdomain.ErrInvalidIntent,
		ledgerdomain.ErrDuplicateReference,
		ledgerdomain.ErrConcurrentModification,
		ledgerdomain.ErrAccountNotFound,
		ledgerdomain.ErrBillNotFound,
		ledgerdomain.ErrPersistenceFailure,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "unknown"
}

func messagesFor(err error, req paymentdomain.SubmitRequest) []string {
	if vErr, ok := validation.AsValidationError(err); ok {
		return vErr.Messages()
	}
	switch {
	case errors.Is(err, accountdomain.ErrInvalidAccountType):
		return []string{fmt.Sprintf("account type %q must be business or property", req.AccountType)}
	case errors.Is(err, accountdomain.ErrInvalidAccountNumber):
		return []string{"account number is required"}
	case errors.Is(err, accountdomain.ErrNotFound):
		return []string{"account not found"}
	case errors.Is(err, billdomain.ErrInvalidPeriod):
		return []string{fmt.Sprintf("billing period %d is not a valid year", req.Period)}
	case errors.Is(err, billdomain.ErrNoBillForPeriod):
		if req.Period == 0 {
			return []string{"no bill generated for the current period"}
		}
		return []string{fmt.Sprintf("no bill generated for period %d", req.Period)}
	case errors.Is(err, ledgerdomain.ErrDuplicateReference):
		return []string{"payment reference already exists; nothing was recorded, submit again"}
	case errors.Is(err, ledgerdomain.ErrConcurrentModification):
		return []string{"bill was updated by another payment; reload the bill and try again"}
	case errors.Is(err, ledgerdomain.ErrBillNotFound):
		return []string{"bill no longer exists"}
	case errors.Is(err, ledgerdomain.ErrAccountNotFound):
		return []string{"account no longer exists"}
	case errors.Is(err, ledgerdomain.ErrPersistenceFailure):
		return []string{"payment could not be stored; nothing was recorded"}
	default:
		return []string{"payment could not be recorded"}
	}
}
