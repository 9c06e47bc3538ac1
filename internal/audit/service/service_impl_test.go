package service

import (
	"context"
	"errors"
	"testing"
	"time"

	auditdomain "github.com/smallbiznis/revenue/internal/audit/domain"
	"github.com/smallbiznis/revenue/internal/audit/repository"
	"github.com/smallbiznis/revenue/internal/auditcontext"
	"github.com/smallbiznis/revenue/internal/clock"
	"github.com/smallbiznis/revenue/internal/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T, db *gorm.DB, clk clock.Clock) auditdomain.Service {
	t.Helper()
	return NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: dbtest.Node(t),
		Clock: clk,
		Repo:  repository.Provide(),
	})
}

func TestRecordFillsContextAndMasksTransactionID(t *testing.T) {
	db := dbtest.Open(t)
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	svc := newTestService(t, db, clk)

	ctx := auditcontext.WithActor(context.Background(), "user", "cashier-7")
	ctx = auditcontext.WithRequestID(ctx, "req-1")
	ctx = auditcontext.WithIPAddress(ctx, "10.0.0.5")
	ctx = auditcontext.WithUserAgent(ctx, "till/1.0")

	err := svc.Record(ctx, auditdomain.Entry{
		Action:     auditdomain.ActionPaymentRecorded,
		TargetType: auditdomain.TargetTypePayment,
		TargetID:   "123",
		NewValues: map[string]any{
			"payment_reference": "PAY-20260301-ABCDEFGHJKMN",
			"transaction_id":    "MOMO-99887766",
		},
	})
	require.NoError(t, err)

	resp, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 1)

	entry := resp.AuditLogs[0]
	assert.Equal(t, "user", entry.ActorType)
	require.NotNil(t, entry.ActorID)
	assert.Equal(t, "cashier-7", *entry.ActorID)
	require.NotNil(t, entry.RequestID)
	assert.Equal(t, "req-1", *entry.RequestID)
	require.NotNil(t, entry.IPAddress)
	assert.Equal(t, "10.0.0.5", *entry.IPAddress)
	assert.Nil(t, entry.OldValues)
	assert.Equal(t, "****7766", entry.NewValues["transaction_id"])
	assert.Equal(t, "PAY-20260301-ABCDEFGHJKMN", entry.NewValues["payment_reference"])
	assert.True(t, entry.CreatedAt.Equal(clk.Now()))
}

func TestRecordDefaultsToSystemActor(t *testing.T) {
	db := dbtest.Open(t)
	svc := newTestService(t, db, clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)))

	require.NoError(t, svc.Record(context.Background(), auditdomain.Entry{
		Action:     auditdomain.ActionBillFullyPaid,
		TargetType: auditdomain.TargetTypeBill,
		TargetID:   "55",
		OldValues:  map[string]any{"status": "partially_paid"},
		NewValues:  map[string]any{"status": "paid"},
	}))

	resp, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{Action: auditdomain.ActionBillFullyPaid})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 1)
	assert.Equal(t, string(auditdomain.ActorTypeSystem), resp.AuditLogs[0].ActorType)
	assert.Nil(t, resp.AuditLogs[0].ActorID)
	assert.Equal(t, "partially_paid", resp.AuditLogs[0].OldValues["status"])
}

func TestRecordRejectsMissingAction(t *testing.T) {
	svc := newTestService(t, dbtest.Open(t), clock.NewSystemClock())

	err := svc.Record(context.Background(), auditdomain.Entry{TargetType: "payments"})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidAction)

	err = svc.Record(context.Background(), auditdomain.Entry{Action: auditdomain.ActionPaymentRecorded})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidTarget)
}

func TestRecordReturnsInsertFailure(t *testing.T) {
	db := dbtest.Open(t)
	require.NoError(t, db.Exec("DROP TABLE audit_logs").Error)
	svc := newTestService(t, db, clock.NewSystemClock())

	err := svc.Record(context.Background(), auditdomain.Entry{
		Action:     auditdomain.ActionPaymentRecorded,
		TargetType: auditdomain.TargetTypePayment,
		NewValues:  map[string]any{"amount_paid": 1},
	})
	require.Error(t, err)
}

func TestListPaginatesNewestFirst(t *testing.T) {
	db := dbtest.Open(t)
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	svc := newTestService(t, db, clk)

	for i := 0; i < 5; i++ {
		require.NoError(t, svc.Record(context.Background(), auditdomain.Entry{
			Action:     auditdomain.ActionPaymentRecorded,
			TargetType: auditdomain.TargetTypePayment,
			NewValues:  map[string]any{"seq": i},
		}))
		clk.Advance(time.Second)
	}

	first, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{})
	require.NoError(t, err)
	require.Len(t, first.AuditLogs, 5)
	assert.False(t, first.HasMore)

	req := auditdomain.ListAuditLogRequest{}
	req.PageSize = 2
	page, err := svc.List(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, page.AuditLogs, 2)
	require.True(t, page.HasMore)
	assert.EqualValues(t, 4, page.AuditLogs[0].NewValues["seq"])

	seen := len(page.AuditLogs)
	for page.HasMore {
		req.PageToken = page.NextPageToken
		page, err = svc.List(context.Background(), req)
		require.NoError(t, err)
		seen += len(page.AuditLogs)
	}
	assert.Equal(t, 5, seen)
	assert.EqualValues(t, 0, page.AuditLogs[len(page.AuditLogs)-1].NewValues["seq"])
}

func TestListValidatesInput(t *testing.T) {
	svc := newTestService(t, dbtest.Open(t), clock.NewSystemClock())

	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	end := start.Add(-time.Hour)
	_, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{StartAt: &start, EndAt: &end})
	if !errors.Is(err, auditdomain.ErrInvalidTimeRange) {
		t.Fatalf("expected invalid time range, got %v", err)
	}

	req := auditdomain.ListAuditLogRequest{}
	req.PageToken = "not-a-token"
	_, err = svc.List(context.Background(), req)
	if !errors.Is(err, auditdomain.ErrInvalidPageToken) {
		t.Fatalf("expected invalid page token, got %v", err)
	}
}
