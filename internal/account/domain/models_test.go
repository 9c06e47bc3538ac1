package domain

import (
	"errors"
	"testing"
)

func TestParseAccountType(t *testing.T) {
	got, err := ParseAccountType(" Property ")
	if err != nil || got != AccountTypeProperty {
		t.Fatalf("expected property, got %q (%v)", got, err)
	}
	if _, err := ParseAccountType("farm"); !errors.Is(err, ErrInvalidAccountType) {
		t.Fatalf("expected ErrInvalidAccountType, got %v", err)
	}
	if !AccountTypeProperty.HasLegacyNumber() || AccountTypeBusiness.HasLegacyNumber() {
		t.Fatalf("legacy numbers belong to property accounts only")
	}
}
