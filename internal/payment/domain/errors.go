package domain

import "errors"

var (
	ErrNotFound         = errors.New("payment_not_found")
	ErrInvalidMethod    = errors.New("invalid_method")
	ErrInvalidStatus    = errors.New("invalid_payment_status")
	ErrInvalidPageToken = errors.New("invalid_page_token")
	ErrInvalidTimeRange = errors.New("invalid_time_range")
	ErrInvalidReference = errors.New("invalid_payment_reference")
)
