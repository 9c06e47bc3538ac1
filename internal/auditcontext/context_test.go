package auditcontext

import (
	"context"
	"testing"
)

func TestActorRoundTrip(t *testing.T) {
	ctx := WithActor(context.Background(), "user", " cashier-7 ")
	actorType, actorID := ActorFromContext(ctx)
	if actorType != "user" || actorID != "cashier-7" {
		t.Fatalf("unexpected actor %q/%q", actorType, actorID)
	}
}

func TestWithActorIgnoresPartialValues(t *testing.T) {
	ctx := WithActor(context.Background(), "user", "")
	if actorType, _ := ActorFromContext(ctx); actorType != "" {
		t.Fatalf("expected no actor, got %q", actorType)
	}
}

func TestRequestFieldsFromNilContext(t *testing.T) {
	//nolint:staticcheck
	if got := RequestIDFromContext(nil); got != "" {
		t.Fatalf("expected empty request id, got %q", got)
	}
	ctx := WithRequestID(nil, "req-1") //nolint:staticcheck
	ctx = WithIPAddress(ctx, "10.0.0.1")
	ctx = WithUserAgent(ctx, "curl/8")
	if RequestIDFromContext(ctx) != "req-1" || IPAddressFromContext(ctx) != "10.0.0.1" || UserAgentFromContext(ctx) != "curl/8" {
		t.Fatalf("request fields not propagated")
	}
}
