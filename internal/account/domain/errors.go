package domain

import "errors"

var (
	ErrNotFound             = errors.New("account_not_found")
	ErrInvalidAccountType   = errors.New("invalid_account_type")
	ErrInvalidAccountNumber = errors.New("invalid_account_number")
)
