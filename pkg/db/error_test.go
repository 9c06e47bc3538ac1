package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"gorm.io/gorm"
)

func TestIsDuplicateKeyErr(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "gorm sentinel", err: fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey), want: true},
		{name: "postgres", err: errors.New(`ERROR: duplicate key value violates unique constraint "ux_payments_reference"`), want: true},
		{name: "mysql", err: errors.New("Error 1062: Duplicate entry"), want: true},
		{name: "sqlite", err: errors.New("UNIQUE constraint failed: payments.payment_reference"), want: true},
		{name: "other", err: errors.New("connection refused"), want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsDuplicateKeyErr(tc.err); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestIsTimeoutErr(t *testing.T) {
	if !IsTimeoutErr(fmt.Errorf("exec: %w", context.DeadlineExceeded)) {
		t.Fatalf("expected deadline to be a timeout")
	}
	if IsTimeoutErr(errors.New("syntax error")) {
		t.Fatalf("expected syntax error not to be a timeout")
	}
}

func TestForUpdateNilHandle(t *testing.T) {
	if got := ForUpdate(nil); got != "" {
		t.Fatalf("expected empty clause, got %q", got)
	}
}
