package reference

import (
	"regexp"
	"testing"
	"time"

	"github.com/smallbiznis/revenue/internal/config"
)

var (
	referencePattern = regexp.MustCompile(`^PAY-20250115-[0-9A-HJKMNP-TV-Z]{12}$`)
	receiptPattern   = regexp.MustCompile(`^RCP-2025-[0-9A-HJKMNP-TV-Z]{12}$`)
)

func newTestGenerator(t *testing.T) Generator {
	t.Helper()
	return NewGenerator(config.NewStaticPaymentPolicyHolder(config.DefaultPaymentPolicy()))
}

func TestPaymentReferenceFormat(t *testing.T) {
	gen := newTestGenerator(t)
	now := time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)

	ref, err := gen.PaymentReference(now)
	if err != nil {
		t.Fatalf("payment reference: %v", err)
	}
	if !referencePattern.MatchString(ref) {
		t.Fatalf("unexpected reference format %q", ref)
	}

	receipt, err := gen.ReceiptNumber(now)
	if err != nil {
		t.Fatalf("receipt number: %v", err)
	}
	if !receiptPattern.MatchString(receipt) {
		t.Fatalf("unexpected receipt format %q", receipt)
	}
}

func TestPaymentReferencesAreDistinct(t *testing.T) {
	gen := newTestGenerator(t)
	now := time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)

	seen := make(map[string]struct{}, 5000)
	for i := 0; i < 5000; i++ {
		ref, err := gen.PaymentReference(now)
		if err != nil {
			t.Fatalf("payment reference: %v", err)
		}
		if _, dup := seen[ref]; dup {
			t.Fatalf("duplicate reference %q after %d draws", ref, i)
		}
		seen[ref] = struct{}{}
	}
}

func TestPrefixesFollowPolicy(t *testing.T) {
	policy := config.DefaultPaymentPolicy()
	policy.ReferencePrefix = "TXN"
	policy.ReceiptPrefix = "RC"
	gen := NewGenerator(config.NewStaticPaymentPolicyHolder(policy))
	now := time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC)

	ref, _ := gen.PaymentReference(now)
	if ref[:13] != "TXN-20241231-" {
		t.Fatalf("unexpected reference prefix %q", ref)
	}
	receipt, _ := gen.ReceiptNumber(now)
	if receipt[:8] != "RC-2024-" {
		t.Fatalf("unexpected receipt prefix %q", receipt)
	}
}

func TestFixedGenerator(t *testing.T) {
	gen := Fixed{Reference: "PAY-20250101-AAAAAAAAAAAA", Receipt: "RCP-2025-AAAAAAAAAAAA"}
	a, _ := gen.PaymentReference(time.Now())
	b, _ := gen.PaymentReference(time.Now())
	if a != b {
		t.Fatalf("expected fixed reference")
	}
}
