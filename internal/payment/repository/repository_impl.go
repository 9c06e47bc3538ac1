package repository

import (
	"context"
	"strings"

	"github.com/smallbiznis/revenue/internal/payment/domain"
	"gorm.io/gorm"
)

const viewColumns = `p.id, p.payment_reference, p.receipt_number, p.bill_id, p.account_id,
	p.amount_paid, p.payment_method, p.payment_channel, p.transaction_id, p.payment_status,
	p.payment_date, p.processed_by, p.notes, p.created_at,
	b.bill_number, b.billing_year, a.account_number, a.account_type, a.owner_name`

const viewFrom = ` FROM payments p
	LEFT JOIN bills b ON b.id = p.bill_id
	LEFT JOIN accounts a ON a.id = p.account_id`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, payment *domain.Payment) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO payments (
			id, payment_reference, receipt_number, bill_id, account_id, amount_paid,
			payment_method, payment_channel, transaction_id, payment_status,
			payment_date, processed_by, notes, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		payment.ID,
		payment.PaymentReference,
		payment.ReceiptNumber,
		payment.BillID,
		payment.AccountID,
		payment.AmountPaid,
		payment.PaymentMethod,
		payment.PaymentChannel,
		payment.TransactionID,
		payment.PaymentStatus,
		payment.PaymentDate,
		payment.ProcessedBy,
		payment.Notes,
		payment.CreatedAt,
	).Error
}

func (r *repo) FindByReference(ctx context.Context, db *gorm.DB, reference string) (*domain.PaymentView, error) {
	var item domain.PaymentView
	err := db.WithContext(ctx).Raw(
		`SELECT `+viewColumns+viewFrom+`
		 WHERE p.payment_reference = ?
		 LIMIT 1`,
		strings.TrimSpace(reference),
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.PaymentView, error) {
	where := []string{"1 = 1"}
	args := []any{}

	if filter.StartDate != nil {
		where = append(where, "p.payment_date >= ?")
		args = append(args, filter.StartDate.UTC())
	}
	if filter.EndDate != nil {
		where = append(where, "p.payment_date < ?")
		args = append(args, filter.EndDate.UTC())
	}
	if accountType := strings.TrimSpace(filter.AccountType); accountType != "" {
		where = append(where, "a.account_type = ?")
		args = append(args, accountType)
	}
	if filter.Method != "" {
		where = append(where, "p.payment_method = ?")
		args = append(args, filter.Method)
	}
	if filter.Status != "" {
		where = append(where, "p.payment_status = ?")
		args = append(args, filter.Status)
	}
	if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
		pattern := "%" + escapeLike(search) + "%"
		where = append(where, `(LOWER(p.payment_reference) LIKE ? ESCAPE '!'
			OR LOWER(p.receipt_number) LIKE ? ESCAPE '!'
			OR LOWER(COALESCE(p.transaction_id, '')) LIKE ? ESCAPE '!'
			OR LOWER(COALESCE(a.account_number, '')) LIKE ? ESCAPE '!'
			OR LOWER(COALESCE(a.owner_name, '')) LIKE ? ESCAPE '!')`)
		args = append(args, pattern, pattern, pattern, pattern, pattern)
	}
	if filter.Cursor != nil {
		where = append(where, "(p.payment_date < ? OR (p.payment_date = ? AND p.id < ?))")
		args = append(args, filter.Cursor.PaymentDate, filter.Cursor.PaymentDate, filter.Cursor.ID)
	}

	query := `SELECT ` + viewColumns + viewFrom + `
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY p.payment_date DESC, p.id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit+1)
	}

	var items []*domain.PaymentView
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Stats(ctx context.Context, db *gorm.DB, filter domain.StatsFilter) (domain.Stats, error) {
	where := []string{"p.payment_status = ?"}
	args := []any{domain.PaymentStatusSuccessful}

	if filter.From != nil {
		where = append(where, "p.payment_date >= ?")
		args = append(args, filter.From.UTC())
	}
	if filter.To != nil {
		where = append(where, "p.payment_date < ?")
		args = append(args, filter.To.UTC())
	}
	if accountType := strings.TrimSpace(filter.AccountType); accountType != "" {
		where = append(where, "a.account_type = ?")
		args = append(args, accountType)
	}

	var rows []domain.MethodTotal
	err := db.WithContext(ctx).Raw(
		`SELECT p.payment_method AS method, COUNT(*) AS count, COALESCE(SUM(p.amount_paid), 0) AS total
		 FROM payments p
		 LEFT JOIN accounts a ON a.id = p.account_id
		 WHERE `+strings.Join(where, " AND ")+`
		 GROUP BY p.payment_method
		 ORDER BY p.payment_method`,
		args...,
	).Scan(&rows).Error
	if err != nil {
		return domain.Stats{}, err
	}

	stats := domain.Stats{ByMethod: rows}
	if stats.ByMethod == nil {
		stats.ByMethod = []domain.MethodTotal{}
	}
	for _, row := range rows {
		stats.Count += row.Count
		stats.Total += row.Total
	}
	return stats, nil
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`!`, `!!`, `%`, `!%`, `_`, `!_`)
	return replacer.Replace(value)
}
