package authorization

import (
	"context"
	"errors"
	"testing"

	auditdomain "github.com/smallbiznis/revenue/internal/audit/domain"
	"go.uber.org/zap"
)

type recordingAudit struct {
	entries []auditdomain.Entry
}

func (r *recordingAudit) Record(_ context.Context, entry auditdomain.Entry) error {
	r.entries = append(r.entries, entry)
	return nil
}

func (r *recordingAudit) List(context.Context, auditdomain.ListAuditLogRequest) (auditdomain.ListAuditLogResponse, error) {
	return auditdomain.ListAuditLogResponse{}, nil
}

func newTestService(t *testing.T, audit auditdomain.Service) Service {
	t.Helper()
	enforcer, err := NewEnforcer(nil)
	if err != nil {
		t.Fatalf("new enforcer: %v", err)
	}
	return NewService(Params{Log: zap.NewNop(), Enforcer: enforcer, AuditSvc: audit})
}

func TestRolePermissions(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	cases := []struct {
		role   string
		object string
		action string
		allow  bool
	}{
		{RoleCashier, ObjectPayment, ActionPaymentRecord, true},
		{RoleCashier, ObjectPayment, ActionPaymentView, true},
		{RoleCashier, ObjectAuditLog, ActionAuditLogView, false},
		{RoleViewer, ObjectPayment, ActionPaymentView, true},
		{RoleViewer, ObjectPayment, ActionPaymentRecord, false},
		{RoleAdmin, ObjectAuditLog, ActionAuditLogView, true},
		{RoleSystem, ObjectPayment, ActionPaymentRecord, true},
		{RoleSystem, ObjectPayment, ActionPaymentView, false},
	}

	for _, tc := range cases {
		err := svc.Authorize(ctx, "u-1", tc.role, tc.object, tc.action)
		if tc.allow && err != nil {
			t.Fatalf("%s %s: expected allow, got %v", tc.role, tc.action, err)
		}
		if !tc.allow && !errors.Is(err, ErrForbidden) {
			t.Fatalf("%s %s: expected forbidden, got %v", tc.role, tc.action, err)
		}
	}
}

func TestRoleChangeReplacesGrouping(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	if err := svc.Authorize(ctx, "u-2", RoleAdmin, ObjectAuditLog, ActionAuditLogView); err != nil {
		t.Fatalf("admin should view audit logs: %v", err)
	}
	if err := svc.Authorize(ctx, "u-2", RoleViewer, ObjectAuditLog, ActionAuditLogView); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected previous admin link to be dropped, got %v", err)
	}
}

func TestAuthorizeRejectsBadInput(t *testing.T) {
	audit := &recordingAudit{}
	svc := newTestService(t, audit)
	ctx := context.Background()

	if err := svc.Authorize(ctx, "", RoleAdmin, ObjectPayment, ActionPaymentView); !errors.Is(err, ErrInvalidActor) {
		t.Fatalf("expected invalid actor, got %v", err)
	}
	if err := svc.Authorize(ctx, "u-3", "superuser", ObjectPayment, ActionPaymentView); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected invalid role, got %v", err)
	}
	if err := svc.Authorize(ctx, "u-3", RoleViewer, ObjectPayment, ActionPaymentRecord); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if len(audit.entries) != 2 {
		t.Fatalf("expected two denial audit entries, got %d", len(audit.entries))
	}
	if audit.entries[1].Action != auditdomain.ActionAuthorizationDenied || audit.entries[1].ActorID != "u-3" {
		t.Fatalf("unexpected audit entry %+v", audit.entries[1])
	}
}
