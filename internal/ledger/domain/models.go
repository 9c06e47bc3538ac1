package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/smallbiznis/revenue/internal/account/domain"
	billdomain "github.com/smallbiznis/revenue/internal/bill/domain"
	paymentdomain "github.com/smallbiznis/revenue/internal/payment/domain"
	"github.com/smallbiznis/revenue/internal/payment/validation"
)

var (
	ErrDuplicateReference     = errors.New("duplicate_reference")
	ErrConcurrentModification = errors.New("concurrent_modification")
	ErrPersistenceFailure     = errors.New("persistence_failure")
	ErrAccountNotFound        = errors.New("account_not_found")
	ErrBillNotFound           = errors.New("bill_not_found")
	ErrInvalidIntent          = errors.New("invalid_payment_intent")
)

// ApplyInput is a validated payment against the account and bill snapshots
// it was validated with. The writer re-reads both under lock and refuses to
// proceed if the bill balance moved in between.
type ApplyInput struct {
	Intent  validation.Intent
	Account accountdomain.Account
	Bill    billdomain.Bill
	Actor   paymentdomain.Actor
}

// Applied describes a committed payment.
type Applied struct {
	PaymentID         snowflake.ID
	PaymentReference  string
	ReceiptNumber     string
	AmountPaid        int64
	NewBillBalance    int64
	NewBillStatus     billdomain.BillStatus
	NewAccountBalance int64
	PaymentDate       time.Time
	// AuditWarnings lists audit entries that could not be written after
	// commit. The payment itself stands.
	AuditWarnings []string
}

// Writer records payments and updates balances as one unit.
type Writer interface {
	Apply(ctx context.Context, in ApplyInput) (Applied, error)
}
