package domain

import (
	"fmt"
	"strings"
)

// Method is how a payer settled a bill.
type Method string

const (
	MethodCash         Method = "cash"
	MethodMobileMoney  Method = "mobile_money"
	MethodBankTransfer Method = "bank_transfer"
	MethodOnline       Method = "online"
)

var validMethods = []Method{
	MethodCash,
	MethodMobileMoney,
	MethodBankTransfer,
	MethodOnline,
}

func (m Method) String() string {
	return string(m)
}

func (m Method) IsValid() bool {
	for _, candidate := range validMethods {
		if candidate == m {
			return true
		}
	}
	return false
}

// RequiresTransactionID reports whether the method is settled through a
// third party that issues its own transaction id.
func (m Method) RequiresTransactionID() bool {
	switch m {
	case MethodMobileMoney, MethodBankTransfer, MethodOnline:
		return true
	default:
		return false
	}
}

// Label is the cashier-facing name, e.g. "Mobile Money".
func (m Method) Label() string {
	switch m {
	case MethodCash:
		return "Cash"
	case MethodMobileMoney:
		return "Mobile Money"
	case MethodBankTransfer:
		return "Bank Transfer"
	case MethodOnline:
		return "Online"
	default:
		return string(m)
	}
}

// ParseMethod accepts either the stored value ("mobile_money") or the label
// ("Mobile Money"), case-insensitively.
func ParseMethod(value string) (Method, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	normalized = strings.Join(strings.Fields(normalized), "_")
	normalized = strings.ReplaceAll(normalized, "-", "_")
	for _, candidate := range validMethods {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMethod, value)
}

// Methods lists every accepted method in display order.
func Methods() []Method {
	out := make([]Method, len(validMethods))
	copy(out, validMethods)
	return out
}

// PaymentStatus is the lifecycle state of a payment row. The ledger only
// ever writes successful payments; the other states exist for imported
// history and reconciliation.
type PaymentStatus string

const (
	PaymentStatusSuccessful PaymentStatus = "successful"
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusCancelled  PaymentStatus = "cancelled"
)

var validPaymentStatuses = []PaymentStatus{
	PaymentStatusSuccessful,
	PaymentStatusPending,
	PaymentStatusFailed,
	PaymentStatusCancelled,
}

func (s PaymentStatus) String() string {
	return string(s)
}

func (s PaymentStatus) IsValid() bool {
	for _, candidate := range validPaymentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Final reports whether the status can no longer change.
func (s PaymentStatus) Final() bool {
	return s == PaymentStatusSuccessful || s == PaymentStatusFailed || s == PaymentStatusCancelled
}

func ParsePaymentStatus(value string) (PaymentStatus, error) {
	s := PaymentStatus(strings.ToLower(strings.TrimSpace(value)))
	if !s.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, value)
	}
	return s, nil
}
