// Package dbtest opens an in-memory sqlite database carrying the ledger
// schema, for repository and service tests.
package dbtest

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

// Schema mirrors the postgres migrations with sqlite column types.
var Schema = []string{
	`CREATE TABLE accounts (
		id BIGINT PRIMARY KEY,
		account_number TEXT NOT NULL,
		account_type TEXT NOT NULL,
		legacy_account_number TEXT,
		owner_name TEXT NOT NULL,
		amount_payable BIGINT NOT NULL DEFAULT 0,
		previous_payments BIGINT NOT NULL DEFAULT 0,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE UNIQUE INDEX ux_accounts_type_number ON accounts(account_type, account_number)`,
	`CREATE INDEX ix_accounts_legacy_number ON accounts(legacy_account_number)`,
	`CREATE TABLE bills (
		id BIGINT PRIMARY KEY,
		bill_number TEXT NOT NULL,
		bill_type TEXT NOT NULL,
		account_id BIGINT NOT NULL,
		billing_year INTEGER NOT NULL,
		old_bill BIGINT NOT NULL DEFAULT 0,
		arrears BIGINT NOT NULL DEFAULT 0,
		current_bill BIGINT NOT NULL DEFAULT 0,
		previous_payments BIGINT NOT NULL DEFAULT 0,
		amount_payable BIGINT NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE UNIQUE INDEX ux_bills_bill_number ON bills(bill_number)`,
	`CREATE UNIQUE INDEX ux_bills_type_account_year ON bills(bill_type, account_id, billing_year)`,
	`CREATE TABLE payments (
		id BIGINT PRIMARY KEY,
		payment_reference TEXT NOT NULL,
		receipt_number TEXT NOT NULL,
		bill_id BIGINT NOT NULL,
		account_id BIGINT NOT NULL,
		amount_paid BIGINT NOT NULL,
		payment_method TEXT NOT NULL,
		payment_channel TEXT,
		transaction_id TEXT,
		payment_status TEXT NOT NULL,
		payment_date DATETIME NOT NULL,
		processed_by TEXT NOT NULL,
		notes TEXT,
		created_at DATETIME NOT NULL
	)`,
	`CREATE UNIQUE INDEX ux_payments_reference ON payments(payment_reference)`,
	`CREATE UNIQUE INDEX ux_payments_receipt_number ON payments(receipt_number)`,
	`CREATE INDEX ix_payments_bill ON payments(bill_id)`,
	`CREATE TABLE audit_logs (
		id BIGINT PRIMARY KEY,
		actor_type TEXT NOT NULL,
		actor_id TEXT,
		action TEXT NOT NULL,
		target_type TEXT NOT NULL,
		target_id TEXT,
		old_values TEXT,
		new_values TEXT NOT NULL,
		ip_address TEXT,
		user_agent TEXT,
		request_id TEXT,
		created_at DATETIME NOT NULL
	)`,
}

// Open returns a fresh, isolated in-memory database with the schema applied.
// The pool is capped at one connection so concurrent callers queue on it.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:revenue_%d_%d?mode=memory&cache=shared", time.Now().UnixNano(), dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range Schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("schema exec failed: %v", err)
		}
	}
	return db
}

// Node returns a snowflake node for test ids.
func Node(t testing.TB) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return node
}

// AccountSeed describes an account row to insert.
type AccountSeed struct {
	ID            snowflake.ID
	Number        string
	Type          string
	Legacy        *string
	Owner         string
	AmountPayable int64
	Inactive      bool
}

func SeedAccount(t testing.TB, db *gorm.DB, seed AccountSeed, now time.Time) {
	t.Helper()
	owner := seed.Owner
	if owner == "" {
		owner = "Test Owner"
	}
	err := db.Exec(
		`INSERT INTO accounts (id, account_number, account_type, legacy_account_number, owner_name,
			amount_payable, previous_payments, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?, ?)`,
		seed.ID, seed.Number, seed.Type, seed.Legacy, owner, seed.AmountPayable, !seed.Inactive, now, now,
	).Error
	if err != nil {
		t.Fatalf("seed account: %v", err)
	}
}

// BillSeed describes a bill row to insert. AmountPayable defaults to
// CurrentBill when zero and Status to "pending".
type BillSeed struct {
	ID            snowflake.ID
	Number        string
	Type          string
	AccountID     snowflake.ID
	Year          int
	CurrentBill   int64
	Arrears       int64
	AmountPayable int64
	Status        string
}

func SeedBill(t testing.TB, db *gorm.DB, seed BillSeed, now time.Time) {
	t.Helper()
	payable := seed.AmountPayable
	if payable == 0 {
		payable = seed.CurrentBill + seed.Arrears
	}
	status := seed.Status
	if status == "" {
		status = "pending"
	}
	number := seed.Number
	if number == "" {
		number = fmt.Sprintf("BILL-%d-%d", seed.Year, seed.ID)
	}
	err := db.Exec(
		`INSERT INTO bills (id, bill_number, bill_type, account_id, billing_year, old_bill, arrears,
			current_bill, previous_payments, amount_payable, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, 0, ?, ?, 0, ?, ?, ?, ?)`,
		seed.ID, number, seed.Type, seed.AccountID, seed.Year, seed.Arrears, seed.CurrentBill, payable, status, now, now,
	).Error
	if err != nil {
		t.Fatalf("seed bill: %v", err)
	}
}

// Count returns SELECT COUNT(*) for a table.
func Count(t testing.TB, db *gorm.DB, table string) int64 {
	t.Helper()
	var n int64
	if err := db.Raw("SELECT COUNT(*) FROM " + table).Scan(&n).Error; err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}
