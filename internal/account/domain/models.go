package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// AccountType is the ratepayer category. Bills inherit it as their bill type.
type AccountType string

const (
	AccountTypeBusiness AccountType = "business"
	AccountTypeProperty AccountType = "property"
)

var validAccountTypes = []AccountType{
	AccountTypeBusiness,
	AccountTypeProperty,
}

func (t AccountType) String() string {
	return string(t)
}

func (t AccountType) IsValid() bool {
	for _, v := range validAccountTypes {
		if t == v {
			return true
		}
	}
	return false
}

// HasLegacyNumber reports whether accounts of this type may be looked up by
// their pre-migration number.
func (t AccountType) HasLegacyNumber() bool {
	return t == AccountTypeProperty
}

func ParseAccountType(value string) (AccountType, error) {
	t := AccountType(strings.ToLower(strings.TrimSpace(value)))
	if !t.IsValid() {
		return "", ErrInvalidAccountType
	}
	return t, nil
}

// Account is a Business or Property ratepayer. AmountPayable and
// PreviousPayments are minor units and only move through the ledger writer.
type Account struct {
	ID                  snowflake.ID `gorm:"primaryKey" json:"id"`
	AccountNumber       string       `gorm:"not null" json:"account_number"`
	AccountType         AccountType  `gorm:"not null" json:"account_type"`
	LegacyAccountNumber *string      `json:"legacy_account_number,omitempty"`
	OwnerName           string       `gorm:"not null" json:"owner_name"`
	AmountPayable       int64        `gorm:"not null" json:"amount_payable"`
	PreviousPayments    int64        `gorm:"not null" json:"previous_payments"`
	IsActive            bool         `gorm:"not null" json:"is_active"`
	CreatedAt           time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt           time.Time    `gorm:"not null" json:"updated_at"`
}

func (Account) TableName() string { return "accounts" }
