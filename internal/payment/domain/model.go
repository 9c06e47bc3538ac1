package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Payment is one settled amount against a bill. Rows are append-only.
type Payment struct {
	ID               snowflake.ID  `json:"id" gorm:"primaryKey"`
	PaymentReference string        `json:"payment_reference" gorm:"type:text;not null;uniqueIndex"`
	ReceiptNumber    string        `json:"receipt_number" gorm:"type:text;not null;uniqueIndex"`
	BillID           snowflake.ID  `json:"bill_id" gorm:"not null;index"`
	AccountID        snowflake.ID  `json:"account_id" gorm:"not null;index"`
	AmountPaid       int64         `json:"amount_paid" gorm:"not null"`
	PaymentMethod    Method        `json:"payment_method" gorm:"type:text;not null"`
	PaymentChannel   *string       `json:"payment_channel,omitempty" gorm:"type:text"`
	TransactionID    *string       `json:"transaction_id,omitempty" gorm:"type:text"`
	PaymentStatus    PaymentStatus `json:"payment_status" gorm:"type:text;not null"`
	PaymentDate      time.Time     `json:"payment_date" gorm:"not null"`
	ProcessedBy      string        `json:"processed_by" gorm:"type:text;not null"`
	Notes            *string       `json:"notes,omitempty" gorm:"type:text"`
	CreatedAt        time.Time     `json:"created_at" gorm:"not null"`
}

func (Payment) TableName() string { return "payments" }

// PaymentView is a payment joined with whatever bill and account data still
// exists. Joined columns are nil when the row is gone.
type PaymentView struct {
	Payment
	BillNumber    *string `json:"bill_number,omitempty"`
	BillingYear   *int    `json:"billing_year,omitempty"`
	AccountNumber *string `json:"account_number,omitempty"`
	AccountType   *string `json:"account_type,omitempty"`
	OwnerName     *string `json:"owner_name,omitempty"`
}

// MethodTotal is one row of the per-method breakdown.
type MethodTotal struct {
	Method Method `json:"method"`
	Count  int64  `json:"count"`
	Total  int64  `json:"total"`
}

// Stats aggregates successful payments.
type Stats struct {
	Count    int64         `json:"count"`
	Total    int64         `json:"total"`
	ByMethod []MethodTotal `json:"by_method"`
}
