package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	accountdomain "github.com/smallbiznis/revenue/internal/account/domain"
	auditdomain "github.com/smallbiznis/revenue/internal/audit/domain"
	"github.com/smallbiznis/revenue/internal/authorization"
	billdomain "github.com/smallbiznis/revenue/internal/bill/domain"
	ledgerdomain "github.com/smallbiznis/revenue/internal/ledger/domain"
	paymentdomain "github.com/smallbiznis/revenue/internal/payment/domain"
	"github.com/smallbiznis/revenue/internal/payment/validation"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

// classifyErrorForLog feeds the request logger with the same type the
// client sees plus the most specific code available.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	return payload.Type, code
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if pErr, ok := validation.AsValidationError(err); ok {
		out := make([]ValidationError, 0, len(pErr.Violations))
		for _, v := range pErr.Violations {
			out = append(out, ValidationError{Field: v.Field, Code: v.Code, Message: v.Message})
		}
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  out,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authorization.ErrInvalidActor):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden),
		errors.Is(err, authorization.ErrInvalidRole):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.Is(err, ErrConflict),
		errors.Is(err, ledgerdomain.ErrDuplicateReference),
		errors.Is(err, ledgerdomain.ErrConcurrentModification):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: conflictMessage(err),
		}
	case errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, ledgerdomain.ErrPersistenceFailure):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func conflictMessage(err error) string {
	switch {
	case errors.Is(err, ledgerdomain.ErrDuplicateReference):
		return "duplicate payment reference"
	case errors.Is(err, ledgerdomain.ErrConcurrentModification):
		return "bill was modified concurrently"
	default:
		return "conflict"
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, accountdomain.ErrInvalidAccountType),
		errors.Is(err, accountdomain.ErrInvalidAccountNumber),
		errors.Is(err, billdomain.ErrInvalidPeriod),
		errors.Is(err, paymentdomain.ErrInvalidMethod),
		errors.Is(err, paymentdomain.ErrInvalidStatus),
		errors.Is(err, paymentdomain.ErrInvalidPageToken),
		errors.Is(err, paymentdomain.ErrInvalidTimeRange),
		errors.Is(err, paymentdomain.ErrInvalidReference),
		errors.Is(err, auditdomain.ErrInvalidPageToken),
		errors.Is(err, auditdomain.ErrInvalidTimeRange),
		errors.Is(err, ledgerdomain.ErrInvalidIntent):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, accountdomain.ErrNotFound),
		errors.Is(err, billdomain.ErrNoBillForPeriod),
		errors.Is(err, billdomain.ErrNotFound),
		errors.Is(err, paymentdomain.ErrNotFound),
		errors.Is(err, ledgerdomain.ErrAccountNotFound),
		errors.Is(err, ledgerdomain.ErrBillNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

// validationErrorCode returns the sentinel code, which is always the first
// segment of a wrapped message such as `invalid_method: "cheque"`.
func validationErrorCode(err error) string {
	for _, sentinel := range []error{
		ErrInvalidRequest,
		accountdomain.ErrInvalidAccountType,
		accountdomain.ErrInvalidAccountNumber,
		billdomain.ErrInvalidPeriod,
		paymentdomain.ErrInvalidMethod,
		paymentdomain.ErrInvalidStatus,
		paymentdomain.ErrInvalidPageToken,
		paymentdomain.ErrInvalidTimeRange,
		paymentdomain.ErrInvalidReference,
		auditdomain.ErrInvalidPageToken,
		auditdomain.ErrInvalidTimeRange,
		ledgerdomain.ErrInvalidIntent,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}

func validationErrorField(code string) string {
	switch code {
	case "invalid_request":
		return "request"
	case "invalid_billing_period":
		return "period"
	case "invalid_payment_status":
		return "status"
	case "invalid_payment_reference":
		return "reference"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "invalid_account_type":
		return "account type must be business or property"
	case "invalid_account_number":
		return "account number is required"
	case "invalid_billing_period":
		return "billing period is not a valid year"
	case "invalid_time_range":
		return "start must be before end"
	case "invalid_page_token":
		return "page token is invalid"
	default:
		return "invalid value"
	}
}
