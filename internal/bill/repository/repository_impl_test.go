package repository_test

import (
	"context"
	"testing"
	"time"

	accountdomain "github.com/smallbiznis/revenue/internal/account/domain"
	"github.com/smallbiznis/revenue/internal/bill/domain"
	"github.com/smallbiznis/revenue/internal/bill/repository"
	"github.com/smallbiznis/revenue/internal/dbtest"
)

func TestFindForPeriod(t *testing.T) {
	db := dbtest.Open(t)
	node := dbtest.Node(t)
	now := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	accountID := node.Generate()
	billID := node.Generate()
	dbtest.SeedAccount(t, db, dbtest.AccountSeed{ID: accountID, Number: "BUS-1", Type: "business"}, now)
	dbtest.SeedBill(t, db, dbtest.BillSeed{ID: billID, Type: "business", AccountID: accountID, Year: 2025, CurrentBill: 40000, Arrears: 10000}, now)

	repo := repository.Provide()
	ctx := context.Background()

	bill, err := repo.FindForPeriod(ctx, db, accountdomain.AccountTypeBusiness, accountID, 2025)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if bill == nil || bill.ID != billID || bill.AmountPayable != 50000 || bill.Status != domain.BillStatusPending {
		t.Fatalf("unexpected bill %+v", bill)
	}

	bill, err = repo.FindForPeriod(ctx, db, accountdomain.AccountTypeBusiness, accountID, 2024)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if bill != nil {
		t.Fatalf("expected no bill for 2024")
	}

	bill, err = repo.FindForPeriod(ctx, db, accountdomain.AccountTypeProperty, accountID, 2025)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if bill != nil {
		t.Fatalf("expected bill lookup scoped by bill type")
	}
}

func TestCompareAndSetBalance(t *testing.T) {
	db := dbtest.Open(t)
	node := dbtest.Node(t)
	now := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	accountID := node.Generate()
	billID := node.Generate()
	dbtest.SeedBill(t, db, dbtest.BillSeed{ID: billID, Type: "business", AccountID: accountID, Year: 2025, CurrentBill: 50000}, now)

	repo := repository.Provide()
	ctx := context.Background()

	ok, err := repo.CompareAndSetBalance(ctx, db, billID, 50000, 20000, domain.BillStatusPartiallyPaid, now)
	if err != nil || !ok {
		t.Fatalf("expected first update to apply, ok=%v err=%v", ok, err)
	}

	ok, err = repo.CompareAndSetBalance(ctx, db, billID, 50000, 20000, domain.BillStatusPartiallyPaid, now)
	if err != nil {
		t.Fatalf("cas: %v", err)
	}
	if ok {
		t.Fatalf("expected stale expected balance to be refused")
	}

	bill, err := repo.FindByIDForUpdate(ctx, db, billID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if bill.AmountPayable != 20000 || bill.Status != domain.BillStatusPartiallyPaid {
		t.Fatalf("unexpected bill after cas %+v", bill)
	}
}
