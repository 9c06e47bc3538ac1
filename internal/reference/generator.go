// Package reference issues the human-facing identifiers printed on receipts:
// payment references ("PAY-20250115-7K3Q9ZP0M2XD") and receipt numbers
// ("RCP-2025-7K3Q9ZP0M2XD").
package reference

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/revenue/internal/config"
)

// SuffixLength is the number of Crockford base32 characters taken from the
// random half of a ULID (60 bits).
const SuffixLength = 12

// Generator produces payment references and receipt numbers. Uniqueness is
// probabilistic; the payments table carries unique indexes on both columns.
type Generator interface {
	PaymentReference(now time.Time) (string, error)
	ReceiptNumber(now time.Time) (string, error)
}

type ulidGenerator struct {
	policy  *config.PaymentPolicyHolder
	entropy io.Reader
}

// NewGenerator builds a generator whose prefixes follow the live payment policy.
func NewGenerator(policy *config.PaymentPolicyHolder) Generator {
	return &ulidGenerator{policy: policy, entropy: rand.Reader}
}

func (g *ulidGenerator) PaymentReference(now time.Time) (string, error) {
	suffix, err := g.suffix(now)
	if err != nil {
		return "", err
	}
	prefix := g.policy.Get().ReferencePrefix
	return fmt.Sprintf("%s-%s-%s", prefix, now.UTC().Format("20060102"), suffix), nil
}

func (g *ulidGenerator) ReceiptNumber(now time.Time) (string, error) {
	suffix, err := g.suffix(now)
	if err != nil {
		return "", err
	}
	prefix := g.policy.Get().ReceiptPrefix
	return fmt.Sprintf("%s-%s-%s", prefix, now.UTC().Format("2006"), suffix), nil
}

func (g *ulidGenerator) suffix(now time.Time) (string, error) {
	id, err := ulid.New(ulid.Timestamp(now), g.entropy)
	if err != nil {
		return "", fmt.Errorf("generate reference entropy: %w", err)
	}
	// chars 0-9 encode the timestamp, 10-25 the random bits.
	return strings.ToUpper(id.String()[10 : 10+SuffixLength]), nil
}

// Fixed always returns the same pair. It exists to force collisions in
// tests and for replaying imports with known identifiers.
type Fixed struct {
	Reference string
	Receipt   string
}

func (f Fixed) PaymentReference(time.Time) (string, error) { return f.Reference, nil }

func (f Fixed) ReceiptNumber(time.Time) (string, error) { return f.Receipt, nil }

var (
	_ Generator = (*ulidGenerator)(nil)
	_ Generator = Fixed{}
)
