package domain

import (
	"context"

	accountdomain "github.com/smallbiznis/revenue/internal/account/domain"
	billdomain "github.com/smallbiznis/revenue/internal/bill/domain"
)

// Query identifies the bill a payment is meant for. Period is the billing
// year; zero means the current year.
type Query struct {
	AccountNumber string
	AccountType   string
	Period        int
}

type Resolution struct {
	Account accountdomain.Account
	Bill    billdomain.Bill
	Period  int
}

// Service resolves an account and its bill for a period. It never writes.
type Service interface {
	Resolve(ctx context.Context, q Query) (Resolution, error)
}
