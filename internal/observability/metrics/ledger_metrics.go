package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	ledgerdomain "github.com/smallbiznis/revenue/internal/ledger/domain"
	"gorm.io/gorm"
)

const (
	LedgerReasonDeadlineExceeded       = "deadline_exceeded"
	LedgerReasonDBLockTimeout          = "db_lock_timeout"
	LedgerReasonSerializationFailure   = "serialization_failure"
	LedgerReasonUniqueViolation        = "unique_violation"
	LedgerReasonConcurrentModification = "concurrent_modification"
	LedgerReasonNotFound               = "not_found"
	LedgerReasonPersistence            = "persistence"
	LedgerReasonUnknown                = "unknown"
)

const (
	LedgerOutcomeCommitted  = "committed"
	LedgerOutcomeRolledBack = "rolled_back"
)

const (
	LockResourceBill    = "bill"
	LockResourceAccount = "account"
	LockResourceRedis   = "redis_bill_lock"
)

// LedgerMetrics are Prometheus collectors scraped from /metrics alongside the
// gorm connection pool stats.
type LedgerMetrics struct {
	txDuration  *prometheus.HistogramVec
	txOutcomes  *prometheus.CounterVec
	lockWait    *prometheus.HistogramVec
	lockFailure *prometheus.CounterVec
}

var (
	ledgerMetricsOnce sync.Once
	ledgerMetrics     *LedgerMetrics
)

// Ledger returns the process-wide ledger collectors registered on the default registry.
func Ledger(cfg Config) *LedgerMetrics {
	ledgerMetricsOnce.Do(func() {
		ledgerMetrics = newLedgerMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return ledgerMetrics
}

func newLedgerMetrics(registerer prometheus.Registerer, cfg Config) *LedgerMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "revenue"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	txDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "revenue_ledger_tx_duration_seconds",
		Help:        "Ledger write transaction latency by outcome.",
		Buckets:     []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		ConstLabels: constLabels,
	}, []string{"outcome"})
	txOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "revenue_ledger_tx_total",
		Help:        "Ledger write transactions by outcome and reason.",
		ConstLabels: constLabels,
	}, []string{"outcome", "reason"})
	lockWait := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "revenue_ledger_lock_wait_seconds",
		Help:        "Time spent acquiring row or distributed locks.",
		Buckets:     []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		ConstLabels: constLabels,
	}, []string{"resource"})
	lockFailure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "revenue_ledger_lock_failures_total",
		Help:        "Lock acquisitions that failed.",
		ConstLabels: constLabels,
	}, []string{"resource"})

	for _, c := range []prometheus.Collector{txDuration, txOutcomes, lockWait, lockFailure} {
		if err := registerer.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				panic(err)
			}
		}
	}

	return &LedgerMetrics{
		txDuration:  txDuration,
		txOutcomes:  txOutcomes,
		lockWait:    lockWait,
		lockFailure: lockFailure,
	}
}

// ObserveTransaction records one ledger transaction. A nil err counts as committed.
func (m *LedgerMetrics) ObserveTransaction(duration time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := LedgerOutcomeCommitted
	reason := ""
	if err != nil {
		outcome = LedgerOutcomeRolledBack
		reason = ClassifyLedgerFailure(err)
	}
	m.txDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	m.txOutcomes.WithLabelValues(outcome, reason).Inc()
}

// ObserveLockWait records how long a lock took to acquire.
func (m *LedgerMetrics) ObserveLockWait(resource string, wait time.Duration) {
	if m == nil {
		return
	}
	m.lockWait.WithLabelValues(resource).Observe(wait.Seconds())
}

// IncLockFailure counts a failed lock acquisition.
func (m *LedgerMetrics) IncLockFailure(resource string) {
	if m == nil {
		return
	}
	m.lockFailure.WithLabelValues(resource).Inc()
}

// ClassifyLedgerFailure maps a ledger write error to a low-cardinality reason.
func ClassifyLedgerFailure(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return LedgerReasonDeadlineExceeded
	case hasPGCode(err, "55P03"):
		return LedgerReasonDBLockTimeout
	case hasPGCode(err, "40001"):
		return LedgerReasonSerializationFailure
	case errors.Is(err, ledgerdomain.ErrDuplicateReference),
		errors.Is(err, gorm.ErrDuplicatedKey),
		hasPGCode(err, "23505"):
		return LedgerReasonUniqueViolation
	case errors.Is(err, ledgerdomain.ErrConcurrentModification):
		return LedgerReasonConcurrentModification
	case errors.Is(err, ledgerdomain.ErrBillNotFound),
		errors.Is(err, ledgerdomain.ErrAccountNotFound):
		return LedgerReasonNotFound
	case errors.Is(err, ledgerdomain.ErrPersistenceFailure):
		return LedgerReasonPersistence
	default:
		return LedgerReasonUnknown
	}
}

func hasPGCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}
