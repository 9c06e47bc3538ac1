package money

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		want    int64
		wantErr error
	}{
		{name: "whole", raw: "500", want: 50000},
		{name: "two decimals", raw: "500.00", want: 50000},
		{name: "one decimal", raw: "12.5", want: 1250},
		{name: "trailing zeros", raw: "1.500", want: 150},
		{name: "padded", raw: "  3.01 ", want: 301},
		{name: "negative", raw: "-4.00", want: -400},
		{name: "empty", raw: "   ", wantErr: ErrEmpty},
		{name: "text", raw: "abc", wantErr: ErrNotNumeric},
		{name: "too precise", raw: "1.005", wantErr: ErrPrecision},
		{name: "overflow", raw: "999999999999999999999", wantErr: ErrOutOfRange},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Parse(tc.raw)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parse %q: %v", tc.raw, err)
			}
			if got != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, got)
			}
		})
	}
}

func TestFormat(t *testing.T) {
	if got := Format(50000); got != "500.00" {
		t.Fatalf("expected 500.00, got %s", got)
	}
	if got := Format(5); got != "0.05" {
		t.Fatalf("expected 0.05, got %s", got)
	}
	if got := Format(0); got != "0.00" {
		t.Fatalf("expected 0.00, got %s", got)
	}
}

func TestClampZero(t *testing.T) {
	if v, clamped := ClampZero(-1); v != 0 || !clamped {
		t.Fatalf("expected clamp to 0, got %d %v", v, clamped)
	}
	if v, clamped := ClampZero(10); v != 10 || clamped {
		t.Fatalf("expected 10 unchanged, got %d %v", v, clamped)
	}
}
