package seed

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/revenue/internal/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDemoDataIsIdempotent(t *testing.T) {
	db := dbtest.Open(t)
	node := dbtest.Node(t)
	now := time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC)

	first, err := EnsureDemoData(context.Background(), db, node, 2026, now)
	require.NoError(t, err)
	assert.Equal(t, len(demoAccounts), first.AccountsCreated)
	assert.Equal(t, len(demoAccounts), first.BillsCreated)

	second, err := EnsureDemoData(context.Background(), db, node, 2026, now)
	require.NoError(t, err)
	assert.Zero(t, second.AccountsCreated)
	assert.Zero(t, second.BillsCreated)

	next, err := EnsureDemoData(context.Background(), db, node, 2027, now)
	require.NoError(t, err)
	assert.Zero(t, next.AccountsCreated)
	assert.Equal(t, len(demoAccounts), next.BillsCreated)

	assert.EqualValues(t, len(demoAccounts), dbtest.Count(t, db, "accounts"))
	assert.EqualValues(t, 2*len(demoAccounts), dbtest.Count(t, db, "bills"))
}

func TestEnsureDemoDataBalancesMatch(t *testing.T) {
	db := dbtest.Open(t)
	_, err := EnsureDemoData(context.Background(), db, dbtest.Node(t), 2026, time.Now().UTC())
	require.NoError(t, err)

	var payable int64
	require.NoError(t, db.Raw(`SELECT amount_payable FROM bills WHERE bill_number = ?`, "BUB-2026-BOP-1002").Scan(&payable).Error)
	assert.EqualValues(t, 32500, payable)
}

func TestEnsureDemoDataRequiresHandles(t *testing.T) {
	_, err := EnsureDemoData(context.Background(), nil, nil, 2026, time.Now())
	assert.Error(t, err)
}
