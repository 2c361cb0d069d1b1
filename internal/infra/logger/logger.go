// Package logger builds the process-wide zap logger and provides the PII
// masking helpers used anywhere learner data could land in a log line.
package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a zap logger for the given environment. Production gets JSON
// output at info level; anything else gets the console encoder at debug.
func New(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProductionConfig().Build()
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return cfg.Build()
}

// MaskEmail keeps at most the first three characters of the local part and
// the full domain: ana.torres@example.com becomes ana***@example.com.
func MaskEmail(email string) string {
	if email == "" {
		return ""
	}

	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return "***"
	}

	local, domain := email[:at], email[at:]
	if len(local) > 3 {
		local = local[:3]
	}
	return local + "***" + domain
}

// MaskIP keeps the first two IPv4 octets or the first IPv6 hextet, enough
// to group log lines by network without storing the full address.
func MaskIP(ip string) string {
	if ip == "" {
		return ""
	}

	if parts := strings.Split(ip, "."); len(parts) == 4 {
		return parts[0] + "." + parts[1] + ".*.*"
	}
	if i := strings.Index(ip, ":"); i > 0 {
		return ip[:i] + ":*"
	}
	return "***"
}
