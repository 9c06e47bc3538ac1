package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/smallbiznis/revenue/internal/account/domain"
	auditdomain "github.com/smallbiznis/revenue/internal/audit/domain"
	billdomain "github.com/smallbiznis/revenue/internal/bill/domain"
	"github.com/smallbiznis/revenue/internal/clock"
	"github.com/smallbiznis/revenue/internal/config"
	ledgerdomain "github.com/smallbiznis/revenue/internal/ledger/domain"
	"github.com/smallbiznis/revenue/internal/lock"
	"github.com/smallbiznis/revenue/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/revenue/internal/observability/metrics"
	"github.com/smallbiznis/revenue/internal/observability/tracing"
	paymentdomain "github.com/smallbiznis/revenue/internal/payment/domain"
	"github.com/smallbiznis/revenue/internal/reference"
	"github.com/smallbiznis/revenue/pkg/db"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const tracerName = "revenue/ledger"

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Policy     *config.PaymentPolicyHolder
	References reference.Generator
	Accounts   accountdomain.Repository
	Bills      billdomain.Repository
	Payments   paymentdomain.Repository
	Audit      auditdomain.Service
	BillLock   *lock.BillLock            `optional:"true"`
	Metrics    *obsmetrics.Metrics       `optional:"true"`
	Ledger     *obsmetrics.LedgerMetrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	policy     *config.PaymentPolicyHolder
	references reference.Generator
	accounts   accountdomain.Repository
	bills      billdomain.Repository
	payments   paymentdomain.Repository
	audit      auditdomain.Service
	billLock   *lock.BillLock
	metrics    *obsmetrics.Metrics
	ledger     *obsmetrics.LedgerMetrics
	tracer     trace.Tracer
}

func NewService(p Params) ledgerdomain.Writer {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("ledger.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		policy:     p.Policy,
		references: p.References,
		accounts:   p.Accounts,
		bills:      p.Bills,
		payments:   p.Payments,
		audit:      p.Audit,
		billLock:   p.BillLock,
		metrics:    p.Metrics,
		ledger:     p.Ledger,
		tracer:     otel.Tracer(tracerName),
	}
}

// committed holds the rows as they were read under lock and as they were
// written, for the post-commit audit trail.
type committed struct {
	payment       paymentdomain.Payment
	billBefore    billdomain.Bill
	billAfter     billdomain.Bill
	accountBefore accountdomain.Account
	accountAfter  accountdomain.Account
}

func (s *Service) Apply(ctx context.Context, in ledgerdomain.ApplyInput) (ledgerdomain.Applied, error) {
	if in.Intent.Amount <= 0 || !in.Intent.Method.IsValid() || in.Bill.ID == 0 || in.Account.ID == 0 || in.Bill.AccountID != in.Account.ID {
		return ledgerdomain.Applied{}, ledgerdomain.ErrInvalidIntent
	}

	ctx, span := s.tracer.Start(ctx, "ledger.Apply", trace.WithAttributes(tracing.SafeAttributes(
		attribute.String("bill_id", in.Bill.ID.String()),
		attribute.String("account_type", string(in.Account.AccountType)),
		attribute.String("payment_method", string(in.Intent.Method)),
		attribute.Int64("amount_minor", in.Intent.Amount),
	)...))
	defer span.End()

	log := logger.WithBill(logger.WithContext(ctx, s.log), in.Bill.ID.String(), in.Account.ID.String())

	txCtx := ctx
	if timeout := s.policy.Get().TransactionTimeout; timeout > 0 {
		var cancel context.CancelFunc
		txCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	release, err := s.lockBill(txCtx, in.Bill.ID)
	if err != nil {
		s.failSpan(span, err)
		return ledgerdomain.Applied{}, err
	}
	defer release()

	started := time.Now()
	var out committed
	err = s.db.WithContext(txCtx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		out, txErr = s.applyTx(txCtx, tx, in, log)
		return txErr
	})
	err = classify(err)
	if s.ledger != nil {
		s.ledger.ObserveTransaction(time.Since(started), err)
	}
	if err != nil {
		log.Warn("payment not applied",
			zap.String("reason", obsmetrics.ClassifyLedgerFailure(err)),
			zap.Error(err),
		)
		s.failSpan(span, err)
		return ledgerdomain.Applied{}, err
	}

	applied := ledgerdomain.Applied{
		PaymentID:         out.payment.ID,
		PaymentReference:  out.payment.PaymentReference,
		ReceiptNumber:     out.payment.ReceiptNumber,
		AmountPaid:        out.payment.AmountPaid,
		NewBillBalance:    out.billAfter.AmountPayable,
		NewBillStatus:     out.billAfter.Status,
		NewAccountBalance: out.accountAfter.AmountPayable,
		PaymentDate:       out.payment.PaymentDate,
	}
	span.SetAttributes(
		attribute.String("payment_reference", applied.PaymentReference),
		attribute.String("bill_status", string(applied.NewBillStatus)),
	)

	log.Info("payment applied",
		zap.String("payment_reference", applied.PaymentReference),
		zap.Int64("amount_minor", applied.AmountPaid),
		zap.Int64("bill_balance_minor", applied.NewBillBalance),
		zap.String("bill_status", string(applied.NewBillStatus)),
	)
	if s.metrics != nil {
		s.metrics.RecordPayment(ctx, string(in.Account.AccountType), string(in.Intent.Method), string(paymentdomain.PaymentStatusSuccessful), applied.AmountPaid)
	}

	applied.AuditWarnings = s.recordAudit(ctx, in.Actor, out, log)
	return applied, nil
}

func (s *Service) applyTx(ctx context.Context, tx *gorm.DB, in ledgerdomain.ApplyInput, log *zap.Logger) (committed, error) {
	var out committed
	amount := in.Intent.Amount

	lockStarted := time.Now()
	bill, err := s.bills.FindByIDForUpdate(ctx, tx, in.Bill.ID)
	s.observeLockWait(obsmetrics.LockResourceBill, lockStarted, err)
	if err != nil {
		return out, err
	}
	if bill == nil {
		return out, ledgerdomain.ErrBillNotFound
	}
	if bill.AmountPayable != in.Bill.AmountPayable {
		return out, fmt.Errorf("%w: bill balance changed from %d to %d", ledgerdomain.ErrConcurrentModification, in.Bill.AmountPayable, bill.AmountPayable)
	}
	if bill.AmountPayable <= 0 || amount > bill.AmountPayable {
		return out, fmt.Errorf("%w: bill balance %d cannot absorb %d", ledgerdomain.ErrConcurrentModification, bill.AmountPayable, amount)
	}

	lockStarted = time.Now()
	account, err := s.accounts.FindByIDForUpdate(ctx, tx, in.Account.ID)
	s.observeLockWait(obsmetrics.LockResourceAccount, lockStarted, err)
	if err != nil {
		return out, err
	}
	if account == nil {
		return out, ledgerdomain.ErrAccountNotFound
	}

	now := s.clock.Now().UTC().Truncate(time.Microsecond)
	paymentRef, err := s.references.PaymentReference(now)
	if err != nil {
		return out, err
	}
	receipt, err := s.references.ReceiptNumber(now)
	if err != nil {
		return out, err
	}

	payment := paymentdomain.Payment{
		ID:               s.genID.Generate(),
		PaymentReference: paymentRef,
		ReceiptNumber:    receipt,
		BillID:           bill.ID,
		AccountID:        account.ID,
		AmountPaid:       amount,
		PaymentMethod:    in.Intent.Method,
		PaymentChannel:   in.Intent.Channel,
		TransactionID:    in.Intent.TransactionID,
		PaymentStatus:    paymentdomain.PaymentStatusSuccessful,
		PaymentDate:      now,
		ProcessedBy:      processedBy(in.Actor),
		Notes:            in.Intent.Notes,
		CreatedAt:        now,
	}
	if err := s.payments.Insert(ctx, tx, &payment); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return out, fmt.Errorf("%w: %w", ledgerdomain.ErrDuplicateReference, err)
		}
		return out, err
	}

	newBalance := bill.AmountPayable - amount
	if newBalance < 0 {
		log.Warn("bill balance clamped at zero",
			zap.Int64("balance_minor", bill.AmountPayable),
			zap.Int64("amount_minor", amount),
		)
		if s.metrics != nil {
			s.metrics.RecordBalanceClamp(ctx, "bill")
		}
		newBalance = 0
	}
	status := billdomain.StatusAfterPayment(newBalance)

	ok, err := s.bills.CompareAndSetBalance(ctx, tx, bill.ID, bill.AmountPayable, newBalance, status, now)
	if err != nil {
		return out, err
	}
	if !ok {
		return out, fmt.Errorf("%w: bill %s updated concurrently", ledgerdomain.ErrConcurrentModification, bill.ID)
	}

	if account.AmountPayable < amount {
		log.Warn("account balance clamped at zero",
			zap.Int64("balance_minor", account.AmountPayable),
			zap.Int64("amount_minor", amount),
		)
		if s.metrics != nil {
			s.metrics.RecordBalanceClamp(ctx, "account")
		}
	}
	updatedAccount, err := s.accounts.ApplyPayment(ctx, tx, account.ID, amount, now)
	if err != nil {
		if errors.Is(err, accountdomain.ErrNotFound) {
			return out, ledgerdomain.ErrAccountNotFound
		}
		return out, err
	}

	billAfter := *bill
	billAfter.AmountPayable = newBalance
	billAfter.Status = status
	billAfter.UpdatedAt = now

	out = committed{
		payment:       payment,
		billBefore:    *bill,
		billAfter:     billAfter,
		accountBefore: *account,
		accountAfter:  *updatedAccount,
	}
	return out, nil
}

// lockBill takes the distributed bill lock when one is configured. The
// returned release func is always safe to call.
func (s *Service) lockBill(ctx context.Context, billID snowflake.ID) (func(), error) {
	noop := func() {}
	if !s.billLock.Enabled() {
		return noop, nil
	}

	started := time.Now()
	token, ok, err := s.billLock.TryLockBill(ctx, billID)
	if err != nil {
		if s.ledger != nil {
			s.ledger.IncLockFailure(obsmetrics.LockResourceRedis)
		}
		return noop, fmt.Errorf("%w: bill lock: %w", ledgerdomain.ErrPersistenceFailure, err)
	}
	if !ok {
		if s.ledger != nil {
			s.ledger.IncLockFailure(obsmetrics.LockResourceRedis)
		}
		return noop, fmt.Errorf("%w: bill %s is locked by another payment", ledgerdomain.ErrConcurrentModification, billID)
	}
	if s.ledger != nil {
		s.ledger.ObserveLockWait(obsmetrics.LockResourceRedis, time.Since(started))
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.billLock.ReleaseBill(releaseCtx, billID, token); err != nil {
			s.log.Warn("failed to release bill lock", zap.String("bill_id", billID.String()), zap.Error(err))
		}
	}, nil
}

func (s *Service) observeLockWait(resource string, started time.Time, err error) {
	if s.ledger == nil {
		return
	}
	if err != nil {
		s.ledger.IncLockFailure(resource)
		return
	}
	s.ledger.ObserveLockWait(resource, time.Since(started))
}

func (s *Service) recordAudit(ctx context.Context, actor paymentdomain.Actor, out committed, log *zap.Logger) []string {
	var warnings []string

	entries := []auditdomain.Entry{{
		Action:     auditdomain.ActionPaymentRecorded,
		TargetType: auditdomain.TargetTypePayment,
		TargetID:   out.payment.ID.String(),
		OldValues: map[string]any{
			"bill":    billSnapshot(out.billBefore),
			"account": accountSnapshot(out.accountBefore),
		},
		NewValues: map[string]any{
			"payment": paymentSnapshot(out.payment),
			"bill":    billSnapshot(out.billAfter),
			"account": accountSnapshot(out.accountAfter),
		},
		ActorType: actor.Type,
		ActorID:   actor.ID,
	}}
	if out.billAfter.Status == billdomain.BillStatusPaid && out.billBefore.Status != billdomain.BillStatusPaid {
		entries = append(entries, auditdomain.Entry{
			Action:     auditdomain.ActionBillFullyPaid,
			TargetType: auditdomain.TargetTypeBill,
			TargetID:   out.billAfter.ID.String(),
			OldValues:  billSnapshot(out.billBefore),
			NewValues: map[string]any{
				"amount_payable":    out.billAfter.AmountPayable,
				"status":            string(out.billAfter.Status),
				"payment_reference": out.payment.PaymentReference,
			},
			ActorType: actor.Type,
			ActorID:   actor.ID,
		})
	}

	for _, entry := range entries {
		if s.audit == nil {
			warnings = append(warnings, "audit log "+entry.Action+" not written: audit recorder unavailable")
			continue
		}
		if err := s.audit.Record(ctx, entry); err != nil {
			log.Warn("audit entry not written after commit",
				zap.String("action", entry.Action),
				zap.String("payment_reference", out.payment.PaymentReference),
				zap.Error(err),
			)
			if s.metrics != nil {
				s.metrics.RecordAuditWriteFailure(ctx, entry.Action)
			}
			warnings = append(warnings, "audit log "+entry.Action+" not written")
		}
	}
	return warnings
}

func (s *Service) failSpan(span trace.Span, err error) {
	safe := tracing.SafeError(err)
	span.RecordError(safe)
	span.SetStatus(codes.Error, safe.Error())
	span.SetAttributes(attribute.String("failure_reason", obsmetrics.ClassifyLedgerFailure(err)))
}

// classify keeps ledger sentinels as they are and maps every other storage
// fault onto ErrDuplicateReference or ErrPersistenceFailure.
func classify(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ledgerdomain.ErrDuplicateReference),
		errors.Is(err, ledgerdomain.ErrConcurrentModification),
		errors.Is(err, ledgerdomain.ErrPersistenceFailure),
		errors.Is(err, ledgerdomain.ErrAccountNotFound),
		errors.Is(err, ledgerdomain.ErrBillNotFound):
		return err
	case db.IsDuplicateKeyErr(err):
		return fmt.Errorf("%w: %w", ledgerdomain.ErrDuplicateReference, err)
	default:
		return fmt.Errorf("%w: %w", ledgerdomain.ErrPersistenceFailure, err)
	}
}

func processedBy(actor paymentdomain.Actor) string {
	if actor.ID != "" {
		return actor.ID
	}
	if actor.Type != "" {
		return actor.Type
	}
	return string(auditdomain.ActorTypeSystem)
}

func billSnapshot(b billdomain.Bill) map[string]any {
	return map[string]any{
		"id":             b.ID.String(),
		"bill_number":    b.BillNumber,
		"billing_year":   b.BillingYear,
		"amount_payable": b.AmountPayable,
		"status":         string(b.Status),
	}
}

func accountSnapshot(a accountdomain.Account) map[string]any {
	return map[string]any{
		"id":                a.ID.String(),
		"account_number":    a.AccountNumber,
		"account_type":      string(a.AccountType),
		"amount_payable":    a.AmountPayable,
		"previous_payments": a.PreviousPayments,
	}
}

func paymentSnapshot(p paymentdomain.Payment) map[string]any {
	snapshot := map[string]any{
		"id":                p.ID.String(),
		"payment_reference": p.PaymentReference,
		"receipt_number":    p.ReceiptNumber,
		"bill_id":           p.BillID.String(),
		"account_id":        p.AccountID.String(),
		"amount_paid":       p.AmountPaid,
		"payment_method":    string(p.PaymentMethod),
		"payment_status":    string(p.PaymentStatus),
		"payment_date":      p.PaymentDate.Format(time.RFC3339),
		"processed_by":      p.ProcessedBy,
	}
	if p.TransactionID != nil {
		snapshot["transaction_id"] = *p.TransactionID
	}
	if p.PaymentChannel != nil {
		snapshot["payment_channel"] = *p.PaymentChannel
	}
	if p.Notes != nil {
		snapshot["notes"] = *p.Notes
	}
	return snapshot
}
