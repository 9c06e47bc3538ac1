// Package seed inserts a small set of ratepayer accounts and bills for local
// environments. Every call is idempotent.
package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/smallbiznis/revenue/internal/account/domain"
	billdomain "github.com/smallbiznis/revenue/internal/bill/domain"
	"gorm.io/gorm"
)

// DemoAccount is one seeded ratepayer with its bill for the seeded year.
type DemoAccount struct {
	Number      string
	Type        accountdomain.AccountType
	Legacy      string
	Owner       string
	CurrentBill int64
	Arrears     int64
}

var demoAccounts = []DemoAccount{
	{Number: "BOP-1001", Type: accountdomain.AccountTypeBusiness, Owner: "Kofi Mensah Enterprises", CurrentBill: 50000},
	{Number: "BOP-1002", Type: accountdomain.AccountTypeBusiness, Owner: "Ama's Chop Bar", CurrentBill: 25000, Arrears: 7500},
	{Number: "PR-2001", Type: accountdomain.AccountTypeProperty, Legacy: "OLD-77-2001", Owner: "Yaw Boateng", CurrentBill: 120000},
	{Number: "PR-2002", Type: accountdomain.AccountTypeProperty, Owner: "Efua Asante", CurrentBill: 90000, Arrears: 30000},
}

// Summary counts what EnsureDemoData created on this call.
type Summary struct {
	AccountsCreated int
	BillsCreated    int
}

// EnsureDemoData creates the demo accounts and a pending bill for year on
// each, skipping rows that already exist.
func EnsureDemoData(ctx context.Context, db *gorm.DB, node *snowflake.Node, year int, now time.Time) (Summary, error) {
	if db == nil {
		return Summary{}, errors.New("seed database handle is required")
	}
	if node == nil {
		return Summary{}, errors.New("seed id generator is required")
	}

	var summary Summary
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, demo := range demoAccounts {
			account, created, err := ensureAccountTx(ctx, tx, node, demo, now)
			if err != nil {
				return err
			}
			if created {
				summary.AccountsCreated++
			}

			created, err = ensureBillTx(ctx, tx, node, account, demo, year, now)
			if err != nil {
				return err
			}
			if created {
				summary.BillsCreated++
			}
		}
		return nil
	})
	return summary, err
}

func ensureAccountTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, demo DemoAccount, now time.Time) (accountdomain.Account, bool, error) {
	var account accountdomain.Account
	err := tx.WithContext(ctx).
		Where("account_type = ? AND account_number = ?", demo.Type, demo.Number).
		First(&account).Error
	if err == nil {
		return account, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return account, false, err
	}

	var legacy *string
	if demo.Legacy != "" {
		value := demo.Legacy
		legacy = &value
	}
	account = accountdomain.Account{
		ID:                  node.Generate(),
		AccountNumber:       demo.Number,
		AccountType:         demo.Type,
		LegacyAccountNumber: legacy,
		OwnerName:           demo.Owner,
		AmountPayable:       demo.CurrentBill + demo.Arrears,
		IsActive:            true,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := tx.WithContext(ctx).Create(&account).Error; err != nil {
		return account, false, err
	}
	return account, true, nil
}

func ensureBillTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, account accountdomain.Account, demo DemoAccount, year int, now time.Time) (bool, error) {
	var bill billdomain.Bill
	err := tx.WithContext(ctx).
		Where("bill_type = ? AND account_id = ? AND billing_year = ?", account.AccountType, account.ID, year).
		First(&bill).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	bill = billdomain.Bill{
		ID:            node.Generate(),
		BillNumber:    fmt.Sprintf("%s-%d-%s", billPrefix(account.AccountType), year, account.AccountNumber),
		BillType:      account.AccountType,
		AccountID:     account.ID,
		BillingYear:   year,
		Arrears:       demo.Arrears,
		CurrentBill:   demo.CurrentBill,
		AmountPayable: demo.CurrentBill + demo.Arrears,
		Status:        billdomain.BillStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := tx.WithContext(ctx).Create(&bill).Error; err != nil {
		return false, err
	}
	return true, nil
}

func billPrefix(t accountdomain.AccountType) string {
	if t == accountdomain.AccountTypeProperty {
		return "PRB"
	}
	return "BUB"
}
