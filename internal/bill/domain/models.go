package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/smallbiznis/revenue/internal/account/domain"
)

type BillStatus string

const (
	BillStatusPending       BillStatus = "pending"
	BillStatusPartiallyPaid BillStatus = "partially_paid"
	BillStatusPaid          BillStatus = "paid"
)

var validBillStatuses = []BillStatus{
	BillStatusPending,
	BillStatusPartiallyPaid,
	BillStatusPaid,
}

func (s BillStatus) String() string {
	return string(s)
}

func (s BillStatus) IsValid() bool {
	for _, v := range validBillStatuses {
		if s == v {
			return true
		}
	}
	return false
}

func ParseBillStatus(value string) (BillStatus, error) {
	s := BillStatus(strings.ToLower(strings.TrimSpace(value)))
	if !s.IsValid() {
		return "", ErrInvalidStatus
	}
	return s, nil
}

// StatusAfterPayment derives the status of a bill once a payment has been
// applied. A bill never returns to pending after that.
func StatusAfterPayment(remaining int64) BillStatus {
	if remaining <= 0 {
		return BillStatusPaid
	}
	return BillStatusPartiallyPaid
}

// Bill is what an account owes for one billing year. All amounts are minor
// units; AmountPayable is the outstanding balance.
type Bill struct {
	ID               snowflake.ID              `gorm:"primaryKey" json:"id"`
	BillNumber       string                    `gorm:"not null;uniqueIndex" json:"bill_number"`
	BillType         accountdomain.AccountType `gorm:"not null" json:"bill_type"`
	AccountID        snowflake.ID              `gorm:"not null" json:"account_id"`
	BillingYear      int                       `gorm:"not null" json:"billing_year"`
	OldBill          int64                     `gorm:"not null" json:"old_bill"`
	Arrears          int64                     `gorm:"not null" json:"arrears"`
	CurrentBill      int64                     `gorm:"not null" json:"current_bill"`
	PreviousPayments int64                     `gorm:"not null" json:"previous_payments"`
	AmountPayable    int64                     `gorm:"not null" json:"amount_payable"`
	Status           BillStatus                `gorm:"not null" json:"status"`
	CreatedAt        time.Time                 `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time                 `gorm:"not null" json:"updated_at"`
}

func (Bill) TableName() string { return "bills" }

// Settled reports whether nothing is left to pay.
func (b Bill) Settled() bool {
	return b.AmountPayable <= 0
}
