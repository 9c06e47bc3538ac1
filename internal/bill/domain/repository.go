package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/smallbiznis/revenue/internal/account/domain"
	"gorm.io/gorm"
)

type Repository interface {
	// FindForPeriod returns nil when the account has no bill for the year.
	FindForPeriod(ctx context.Context, db *gorm.DB, billType accountdomain.AccountType, accountID snowflake.ID, year int) (*Bill, error)
	// FindByIDForUpdate locks the row when the dialect supports it.
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Bill, error)
	// CompareAndSetBalance writes the new balance only if amount_payable still
	// equals expected. It reports whether a row was updated.
	CompareAndSetBalance(ctx context.Context, db *gorm.DB, id snowflake.ID, expected, balance int64, status BillStatus, at time.Time) (bool, error)
}
