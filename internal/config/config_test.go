package config

import (
	"testing"
	"time"
)

func TestLoadReadsTelemetrySettings(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "off")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", " collector:4317 ")
	t.Setenv("OTEL_SAMPLING_RATIO", "0.25")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("SNOWFLAKE_NODE_ID", "7")
	t.Setenv("BILL_LOCK_TTL", "3s")

	cfg := Load()
	if cfg.OtelEnabled == nil || *cfg.OtelEnabled {
		t.Fatalf("expected explicit otel disable, got %v", cfg.OtelEnabled)
	}
	if cfg.OTLPEndpoint != "collector:4317" {
		t.Fatalf("unexpected endpoint %q", cfg.OTLPEndpoint)
	}
	if cfg.OtelSamplingRatio != 0.25 {
		t.Fatalf("unexpected ratio %v", cfg.OtelSamplingRatio)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("unexpected log level %q", cfg.LogLevel)
	}
	if cfg.NodeID != 7 {
		t.Fatalf("unexpected node id %d", cfg.NodeID)
	}
	if cfg.BillLockTTL != 3*time.Second {
		t.Fatalf("unexpected lock ttl %s", cfg.BillLockTTL)
	}
}

func TestLoadLeavesOtelUnsetWhenBlank(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTLP_ENDPOINT", "")
	t.Setenv("OTEL_SAMPLING_RATIO", "not-a-number")

	cfg := Load()
	if cfg.OtelEnabled != nil {
		t.Fatalf("expected nil otel toggle, got %v", *cfg.OtelEnabled)
	}
	if cfg.OTLPEndpoint != "" {
		t.Fatalf("expected empty endpoint, got %q", cfg.OTLPEndpoint)
	}
	if cfg.OtelSamplingRatio != 0.1 {
		t.Fatalf("expected fallback ratio, got %v", cfg.OtelSamplingRatio)
	}
}

func TestIsProduction(t *testing.T) {
	if !(Config{Environment: " Production "}).IsProduction() {
		t.Fatalf("expected production")
	}
	if (Config{Environment: "staging"}).IsProduction() {
		t.Fatalf("expected non-production")
	}
}
