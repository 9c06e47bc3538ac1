// Package validation checks a raw payment claim against the bill it targets.
// Every rule is evaluated; the caller gets all violations at once.
package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	billdomain "github.com/smallbiznis/revenue/internal/bill/domain"
	"github.com/smallbiznis/revenue/internal/config"
	paymentdomain "github.com/smallbiznis/revenue/internal/payment/domain"
	"github.com/smallbiznis/revenue/pkg/money"
)

const (
	CodeMethodRequired         = "method_required"
	CodeInvalidMethod          = "invalid_method"
	CodeAmountRequired         = "amount_required"
	CodeInvalidAmount          = "invalid_amount"
	CodeInvalidAmountPrecision = "invalid_amount_precision"
	CodeAmountOutOfRange       = "amount_out_of_range"
	CodeAmountNotPositive      = "amount_not_positive"
	CodeNothingOutstanding     = "nothing_outstanding"
	CodeAmountExceedsBalance   = "amount_exceeds_balance"
	CodeTransactionIDRequired  = "transaction_id_required"
	CodeTooLong                = "too_long"
	CodeInvalidCharacters      = "invalid_characters"
)

// Candidate is the unvalidated claim.
type Candidate struct {
	Method        string
	Amount        string
	TransactionID string
	Channel       string
	Notes         string
}

// Intent is a claim that passed every rule. Amount is in minor units.
type Intent struct {
	Method        paymentdomain.Method
	Amount        int64
	TransactionID *string
	Channel       *string
	Notes         *string
}

type Violation struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationError carries every violated rule in evaluation order.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages(), "; ")
}

func (e *ValidationError) Messages() []string {
	out := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		out = append(out, v.Message)
	}
	return out
}

// Has reports whether a violation with the code is present.
func (e *ValidationError) Has(code string) bool {
	for _, v := range e.Violations {
		if v.Code == code {
			return true
		}
	}
	return false
}

func (e *ValidationError) add(field, code, message string) {
	e.Violations = append(e.Violations, Violation{Field: field, Code: code, Message: message})
}

// AsValidationError unwraps err into a *ValidationError.
func AsValidationError(err error) (*ValidationError, bool) {
	var vErr *ValidationError
	if errors.As(err, &vErr) && vErr != nil {
		return vErr, true
	}
	return nil, false
}

type shape struct {
	Channel       string `validate:"omitempty,max=64,printascii"`
	TransactionID string `validate:"omitempty,max=128,printascii"`
}

type Validator struct {
	validate *validator.Validate
	policy   *config.PaymentPolicyHolder
}

func New(policy *config.PaymentPolicyHolder) *Validator {
	return &Validator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		policy:   policy,
	}
}

// Validate applies the payment rules against the bill's current balance.
func (v *Validator) Validate(c Candidate, bill billdomain.Bill) (Intent, error) {
	verr := &ValidationError{}
	intent := Intent{}

	// 1. method
	rawMethod := strings.TrimSpace(c.Method)
	methodOK := false
	if rawMethod == "" {
		verr.add("method", CodeMethodRequired, "payment method is required")
	} else if method, err := paymentdomain.ParseMethod(rawMethod); err != nil {
		verr.add("method", CodeInvalidMethod, fmt.Sprintf("payment method %q is not recognised", rawMethod))
	} else {
		intent.Method = method
		methodOK = true
	}

	// 2. amount
	amountOK := false
	amount, err := money.Parse(c.Amount)
	switch {
	case errors.Is(err, money.ErrEmpty):
		verr.add("amount", CodeAmountRequired, "amount is required")
	case errors.Is(err, money.ErrNotNumeric):
		verr.add("amount", CodeInvalidAmount, "amount must be numeric")
	case errors.Is(err, money.ErrPrecision):
		verr.add("amount", CodeInvalidAmountPrecision, "amount must have at most two decimal places")
	case errors.Is(err, money.ErrOutOfRange):
		verr.add("amount", CodeAmountOutOfRange, "amount is out of range")
	case err != nil:
		verr.add("amount", CodeInvalidAmount, "amount must be numeric")
	case amount <= 0:
		verr.add("amount", CodeAmountNotPositive, "amount must be greater than zero")
	default:
		intent.Amount = amount
		amountOK = true
	}

	// 3. balance
	if bill.AmountPayable <= 0 {
		verr.add("amount", CodeNothingOutstanding, "bill has nothing outstanding")
	} else if amountOK && amount > bill.AmountPayable {
		verr.add("amount", CodeAmountExceedsBalance, fmt.Sprintf(
			"amount %s exceeds outstanding balance %s",
			money.Format(amount),
			money.Format(bill.AmountPayable),
		))
	}

	// 4. transaction id
	txID := strings.TrimSpace(c.TransactionID)
	if methodOK && intent.Method.RequiresTransactionID() && txID == "" {
		verr.add("transaction_id", CodeTransactionIDRequired, fmt.Sprintf(
			"transaction id is required for %s payments", intent.Method.Label(),
		))
	}

	// 5. field shapes
	channel := strings.TrimSpace(c.Channel)
	notes := strings.TrimSpace(c.Notes)
	if err := v.validate.Struct(shape{Channel: channel, TransactionID: txID}); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				verr.add(shapeField(fe.Field()), shapeCode(fe.Tag()), shapeMessage(fe))
			}
		}
	}
	maxNotes := v.policy.Get().MaxNotesLength
	if err := v.validate.Var(notes, fmt.Sprintf("omitempty,max=%d", maxNotes)); err != nil {
		verr.add("notes", CodeTooLong, fmt.Sprintf("notes must be at most %d characters", maxNotes))
	}

	if len(verr.Violations) > 0 {
		return Intent{}, verr
	}

	intent.TransactionID = optional(txID)
	intent.Channel = optional(channel)
	intent.Notes = optional(notes)
	return intent, nil
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func shapeField(name string) string {
	switch name {
	case "Channel":
		return "channel"
	case "TransactionID":
		return "transaction_id"
	default:
		return strings.ToLower(name)
	}
}

func shapeCode(tag string) string {
	if tag == "max" {
		return CodeTooLong
	}
	return CodeInvalidCharacters
}

func shapeMessage(fe validator.FieldError) string {
	field := strings.ReplaceAll(shapeField(fe.Field()), "_", " ")
	if fe.Tag() == "max" {
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	}
	return fmt.Sprintf("%s contains unsupported characters", field)
}
