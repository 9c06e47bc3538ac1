package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	ledgerdomain "github.com/smallbiznis/revenue/internal/ledger/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
	"gorm.io/gorm"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("method", "cash"),
		attribute.String("account_number", "BUS-001"),
		attribute.String("reason", "amount_exceeds_balance"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	for _, attr := range attrs {
		if attr.Key == "account_number" {
			t.Fatalf("expected account_number to be dropped")
		}
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	m.RecordPayment(context.Background(), "business", "cash", "successful", 100)
	m.RecordPaymentFailure(context.Background(), "validate", "invalid_method")
	m.RecordAuditWriteFailure(context.Background(), "PAYMENT_RECORDED")
	m.RecordBalanceClamp(context.Background(), "bill")

	var l *LedgerMetrics
	l.ObserveTransaction(time.Millisecond, nil)
	l.ObserveLockWait(LockResourceBill, time.Millisecond)
	l.IncLockFailure(LockResourceRedis)
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{ServiceName: "revenue"}, noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("new metrics: %v", err)
	}
	m.RecordPayment(context.Background(), "property", "mobile_money", "successful", 50000)
}

func TestClassifyLedgerFailure(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "deadline", err: fmt.Errorf("%w: %w", ledgerdomain.ErrPersistenceFailure, context.DeadlineExceeded), want: LedgerReasonDeadlineExceeded},
		{name: "db_lock_timeout", err: &pgconn.PgError{Code: "55P03"}, want: LedgerReasonDBLockTimeout},
		{name: "serialization_failure", err: &pgconn.PgError{Code: "40001"}, want: LedgerReasonSerializationFailure},
		{name: "duplicate_reference", err: fmt.Errorf("%w: %w", ledgerdomain.ErrDuplicateReference, gorm.ErrDuplicatedKey), want: LedgerReasonUniqueViolation},
		{name: "concurrent", err: ledgerdomain.ErrConcurrentModification, want: LedgerReasonConcurrentModification},
		{name: "bill_missing", err: ledgerdomain.ErrBillNotFound, want: LedgerReasonNotFound},
		{name: "persistence", err: fmt.Errorf("%w: disk full", ledgerdomain.ErrPersistenceFailure), want: LedgerReasonPersistence},
		{name: "unknown", err: errors.New("boom"), want: LedgerReasonUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyLedgerFailure(tc.err); got != tc.want {
				t.Fatalf("expected reason %q, got %q", tc.want, got)
			}
		})
	}
}

func TestObserveTransactionCountsOutcome(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := newLedgerMetrics(registry, Config{ServiceName: "revenue", Environment: "test"})

	m.ObserveTransaction(10*time.Millisecond, nil)
	m.ObserveTransaction(10*time.Millisecond, ledgerdomain.ErrConcurrentModification)
	m.ObserveTransaction(10*time.Millisecond, ledgerdomain.ErrConcurrentModification)

	if got := testutil.ToFloat64(m.txOutcomes.WithLabelValues(LedgerOutcomeCommitted, "")); got != 1 {
		t.Fatalf("expected 1 committed, got %v", got)
	}
	if got := testutil.ToFloat64(m.txOutcomes.WithLabelValues(LedgerOutcomeRolledBack, LedgerReasonConcurrentModification)); got != 2 {
		t.Fatalf("expected 2 rolled back, got %v", got)
	}
}
