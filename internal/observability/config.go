package observability

import (
	"strings"

	"github.com/smallbiznis/revenue/internal/config"
)

// Config is the slice of application configuration the logger, tracer and
// meter providers read.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string

	OtelEnabled          bool
	OtelExporterEndpoint string
	OtelExporterProtocol string
	OtelSamplingRatio    float64
}

func LoadConfig(cfg config.Config) Config {
	serviceName := strings.TrimSpace(cfg.AppName)
	if serviceName == "" {
		serviceName = "revenue"
	}

	endpoint := strings.TrimSpace(cfg.OTLPEndpoint)
	enabled := endpoint != ""
	if cfg.OtelEnabled != nil {
		enabled = *cfg.OtelEnabled
	}

	protocol := strings.ToLower(strings.TrimSpace(cfg.OTLPProtocol))
	if strings.HasPrefix(protocol, "http") {
		protocol = "http"
	} else {
		protocol = "grpc"
	}

	ratio := cfg.OtelSamplingRatio
	if ratio <= 0 || ratio > 1 {
		ratio = 0.1
	}

	level := strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	if level == "" {
		level = "info"
	}

	return Config{
		ServiceName:          serviceName,
		Environment:          strings.TrimSpace(cfg.Environment),
		Version:              strings.TrimSpace(cfg.AppVersion),
		LogLevel:             level,
		LogFormat:            strings.ToLower(strings.TrimSpace(cfg.LogFormat)),
		OtelEnabled:          enabled,
		OtelExporterEndpoint: endpoint,
		OtelExporterProtocol: protocol,
		OtelSamplingRatio:    ratio,
	}
}

// Debug turns on verbose request logs and stack traces.
func (c Config) Debug() bool {
	if c.LogLevel == "debug" {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(c.Environment)) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}
