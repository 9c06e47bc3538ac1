package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// FindActiveByNumber matches account_number, and for property accounts
	// also legacy_account_number. Returns nil when nothing active matches.
	FindActiveByNumber(ctx context.Context, db *gorm.DB, accountType AccountType, number string) (*Account, error)
	// FindByIDForUpdate locks the row when the dialect supports it.
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Account, error)
	// ApplyPayment decrements amount_payable (floored at zero) and adds to
	// previous_payments in one statement, then returns the updated row.
	ApplyPayment(ctx context.Context, db *gorm.DB, id snowflake.ID, amount int64, at time.Time) (*Account, error)
}
