package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/revenue/internal/account/domain"
	"github.com/smallbiznis/revenue/pkg/db"
	"gorm.io/gorm"
)

const accountColumns = `id, account_number, account_type, legacy_account_number, owner_name,
	amount_payable, previous_payments, is_active, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindActiveByNumber(ctx context.Context, conn *gorm.DB, accountType domain.AccountType, number string) (*domain.Account, error) {
	number = strings.TrimSpace(number)
	query := `SELECT ` + accountColumns + ` FROM accounts
		WHERE account_type = ? AND is_active = ? AND account_number = ?`
	args := []any{accountType, true, number}
	if accountType.HasLegacyNumber() {
		query = `SELECT ` + accountColumns + ` FROM accounts
			WHERE account_type = ? AND is_active = ? AND (account_number = ? OR legacy_account_number = ?)
			ORDER BY CASE WHEN account_number = ? THEN 0 ELSE 1 END, id
			LIMIT 1`
		args = []any{accountType, true, number, number, number}
	}

	var account domain.Account
	if err := conn.WithContext(ctx).Raw(query, args...).Scan(&account).Error; err != nil {
		return nil, err
	}
	if account.ID == 0 {
		return nil, nil
	}
	return &account, nil
}

func (r *repo) FindByIDForUpdate(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.Account, error) {
	var account domain.Account
	err := conn.WithContext(ctx).Raw(
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`+db.ForUpdate(conn),
		id,
	).Scan(&account).Error
	if err != nil {
		return nil, err
	}
	if account.ID == 0 {
		return nil, nil
	}
	return &account, nil
}

func (r *repo) ApplyPayment(ctx context.Context, conn *gorm.DB, id snowflake.ID, amount int64, at time.Time) (*domain.Account, error) {
	res := conn.WithContext(ctx).Exec(
		`UPDATE accounts
		 SET amount_payable = CASE WHEN amount_payable - ? < 0 THEN 0 ELSE amount_payable - ? END,
		     previous_payments = previous_payments + ?,
		     updated_at = ?
		 WHERE id = ?`,
		amount, amount, amount, at, id,
	)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, domain.ErrNotFound
	}

	var account domain.Account
	err := conn.WithContext(ctx).Raw(
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`,
		id,
	).Scan(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}
