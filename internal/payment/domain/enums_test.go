package domain

import (
	"errors"
	"testing"
)

func TestParseMethod(t *testing.T) {
	cases := map[string]Method{
		"cash":          MethodCash,
		"Mobile Money":  MethodMobileMoney,
		" BANK_TRANSFER": MethodBankTransfer,
		"bank-transfer": MethodBankTransfer,
		"online":        MethodOnline,
	}
	for raw, want := range cases {
		got, err := ParseMethod(raw)
		if err != nil {
			t.Fatalf("ParseMethod(%q): %v", raw, err)
		}
		if got != want {
			t.Fatalf("ParseMethod(%q) = %q, want %q", raw, got, want)
		}
	}

	for _, raw := range []string{"", "cheque", "mobile"} {
		if _, err := ParseMethod(raw); !errors.Is(err, ErrInvalidMethod) {
			t.Fatalf("ParseMethod(%q) expected ErrInvalidMethod, got %v", raw, err)
		}
	}
}

func TestRequiresTransactionID(t *testing.T) {
	for _, m := range Methods() {
		want := m != MethodCash
		if got := m.RequiresTransactionID(); got != want {
			t.Fatalf("%s.RequiresTransactionID() = %v, want %v", m, got, want)
		}
	}
}

func TestPaymentStatus(t *testing.T) {
	if _, err := ParsePaymentStatus("refunded"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	if PaymentStatusPending.Final() || !PaymentStatusSuccessful.Final() {
		t.Fatalf("unexpected finality")
	}
}
