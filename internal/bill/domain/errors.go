package domain

import "errors"

var (
	ErrNoBillForPeriod = errors.New("no_bill_for_period")
	ErrNotFound        = errors.New("bill_not_found")
	ErrInvalidStatus   = errors.New("invalid_bill_status")
	ErrInvalidPeriod   = errors.New("invalid_billing_period")
)
