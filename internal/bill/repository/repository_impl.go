package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/smallbiznis/revenue/internal/account/domain"
	"github.com/smallbiznis/revenue/internal/bill/domain"
	"github.com/smallbiznis/revenue/pkg/db"
	"gorm.io/gorm"
)

const billColumns = `id, bill_number, bill_type, account_id, billing_year, old_bill, arrears,
	current_bill, previous_payments, amount_payable, status, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindForPeriod(ctx context.Context, conn *gorm.DB, billType accountdomain.AccountType, accountID snowflake.ID, year int) (*domain.Bill, error) {
	var bill domain.Bill
	err := conn.WithContext(ctx).Raw(
		`SELECT `+billColumns+` FROM bills
		 WHERE bill_type = ? AND account_id = ? AND billing_year = ?`,
		billType,
		accountID,
		year,
	).Scan(&bill).Error
	if err != nil {
		return nil, err
	}
	if bill.ID == 0 {
		return nil, nil
	}
	return &bill, nil
}

func (r *repo) FindByIDForUpdate(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.Bill, error) {
	var bill domain.Bill
	err := conn.WithContext(ctx).Raw(
		`SELECT `+billColumns+` FROM bills WHERE id = ?`+db.ForUpdate(conn),
		id,
	).Scan(&bill).Error
	if err != nil {
		return nil, err
	}
	if bill.ID == 0 {
		return nil, nil
	}
	return &bill, nil
}

func (r *repo) CompareAndSetBalance(ctx context.Context, conn *gorm.DB, id snowflake.ID, expected, balance int64, status domain.BillStatus, at time.Time) (bool, error) {
	res := conn.WithContext(ctx).Exec(
		`UPDATE bills SET amount_payable = ?, status = ?, updated_at = ?
		 WHERE id = ? AND amount_payable = ?`,
		balance,
		status,
		at,
		id,
		expected,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
