package domain

import (
	"context"
	"time"

	"github.com/smallbiznis/revenue/pkg/db/pagination"
)

// Actor is whoever records the payment. ID lands in payments.processed_by.
type Actor struct {
	Type string
	ID   string
	Role string
}

// SubmitRequest is a raw payment claim as received from a cashier or a
// channel integration. Amount is a decimal string such as "500.00".
type SubmitRequest struct {
	AccountNumber string
	AccountType   string
	Period        int
	Method        string
	Channel       string
	Amount        string
	TransactionID string
	Notes         string
	Actor         Actor
}

// Result is returned for every submission. On rejection Success is false and
// Errors carries every human-readable reason.
type Result struct {
	Success          bool     `json:"success"`
	PaymentID        string   `json:"payment_id,omitempty"`
	PaymentReference string   `json:"payment_reference,omitempty"`
	ReceiptNumber    string   `json:"receipt_number,omitempty"`
	AmountPaid       string   `json:"amount_paid,omitempty"`
	NewBalance       string   `json:"new_balance,omitempty"`
	Status           string   `json:"status,omitempty"`
	Errors           []string `json:"errors,omitempty"`
	Warnings         []string `json:"warnings,omitempty"`
}

type Service interface {
	Submit(ctx context.Context, req SubmitRequest) (Result, error)
}

type ListRequest struct {
	pagination.Pagination
	StartDate   *time.Time
	EndDate     *time.Time
	AccountType string
	Method      string
	Status      string
	Search      string
}

type ListResponse struct {
	pagination.PageInfo
	Payments []PaymentView `json:"payments"`
}

type StatsRequest struct {
	TodayOnly   bool
	AccountType string
}

// QueryService is the read side over recorded payments.
type QueryService interface {
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	Get(ctx context.Context, reference string) (PaymentView, error)
	Stats(ctx context.Context, req StatsRequest) (Stats, error)
}
