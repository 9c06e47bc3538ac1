package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smallbiznis/revenue/internal/account/domain"
	"github.com/smallbiznis/revenue/internal/account/repository"
	"github.com/smallbiznis/revenue/internal/dbtest"
)

func TestFindActiveByNumber(t *testing.T) {
	db := dbtest.Open(t)
	node := dbtest.Node(t)
	now := time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)
	legacy := "OLD-77"

	business := node.Generate()
	property := node.Generate()
	inactive := node.Generate()
	dbtest.SeedAccount(t, db, dbtest.AccountSeed{ID: business, Number: "BUS-001", Type: "business", AmountPayable: 50000}, now)
	dbtest.SeedAccount(t, db, dbtest.AccountSeed{ID: property, Number: "PROP-001", Type: "property", Legacy: &legacy, AmountPayable: 1000}, now)
	dbtest.SeedAccount(t, db, dbtest.AccountSeed{ID: inactive, Number: "BUS-002", Type: "business", Inactive: true}, now)

	repo := repository.Provide()
	ctx := context.Background()

	got, err := repo.FindActiveByNumber(ctx, db, domain.AccountTypeBusiness, " BUS-001 ")
	if err != nil {
		t.Fatalf("find business: %v", err)
	}
	if got == nil || got.ID != business || got.AmountPayable != 50000 {
		t.Fatalf("unexpected business account %+v", got)
	}

	got, err = repo.FindActiveByNumber(ctx, db, domain.AccountTypeProperty, "OLD-77")
	if err != nil {
		t.Fatalf("find legacy: %v", err)
	}
	if got == nil || got.ID != property {
		t.Fatalf("expected property account via legacy number, got %+v", got)
	}

	got, err = repo.FindActiveByNumber(ctx, db, domain.AccountTypeProperty, "BUS-001")
	if err != nil {
		t.Fatalf("find cross type: %v", err)
	}
	if got != nil {
		t.Fatalf("expected account number to be scoped by type")
	}

	got, err = repo.FindActiveByNumber(ctx, db, domain.AccountTypeBusiness, "BUS-002")
	if err != nil {
		t.Fatalf("find inactive: %v", err)
	}
	if got != nil {
		t.Fatalf("expected inactive account to be hidden")
	}
}

func TestLegacyNumberIgnoredForBusiness(t *testing.T) {
	db := dbtest.Open(t)
	node := dbtest.Node(t)
	now := time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)
	legacy := "OLD-1"
	dbtest.SeedAccount(t, db, dbtest.AccountSeed{ID: node.Generate(), Number: "BUS-9", Type: "business", Legacy: &legacy}, now)

	got, err := repository.Provide().FindActiveByNumber(context.Background(), db, domain.AccountTypeBusiness, "OLD-1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got != nil {
		t.Fatalf("expected legacy lookup to apply to property accounts only")
	}
}

func TestApplyPaymentClampsAtZero(t *testing.T) {
	db := dbtest.Open(t)
	node := dbtest.Node(t)
	now := time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)
	id := node.Generate()
	dbtest.SeedAccount(t, db, dbtest.AccountSeed{ID: id, Number: "BUS-1", Type: "business", AmountPayable: 20000}, now)

	repo := repository.Provide()
	ctx := context.Background()

	updated, err := repo.ApplyPayment(ctx, db, id, 15000, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if updated.AmountPayable != 5000 || updated.PreviousPayments != 15000 {
		t.Fatalf("unexpected balances %+v", updated)
	}

	updated, err = repo.ApplyPayment(ctx, db, id, 9000, now.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if updated.AmountPayable != 0 || updated.PreviousPayments != 24000 {
		t.Fatalf("expected clamp at zero, got %+v", updated)
	}
}

func TestApplyPaymentMissingAccount(t *testing.T) {
	db := dbtest.Open(t)
	_, err := repository.Provide().ApplyPayment(context.Background(), db, dbtest.Node(t).Generate(), 100, time.Now())
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
