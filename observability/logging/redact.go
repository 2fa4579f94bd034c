package logging

import (
	"log/slog"
	"sort"
	"strings"
)

// RedactedValue is the canonical placeholder used for sensitive fields in logs.
const RedactedValue = "[REDACTED]"

// accountKeys name detail fields that carry account addresses.
var accountKeys = map[string]struct{}{
	"caller":     {},
	"owner":      {},
	"spender":    {},
	"from":       {},
	"to":         {},
	"recipient":  {},
	"account":    {},
	"liquidator": {},
}

var redactionAllowlist = map[string]struct{}{
	"service":   {},
	"env":       {},
	"message":   {},
	"severity":  {},
	"timestamp": {},
	"error":     {},
	"reason":    {},
	"component": {},
	"operation": {},
}

// IsAllowlisted reports whether the provided key is exempt from automatic redaction.
func IsAllowlisted(key string) bool {
	normalized := strings.ToLower(strings.TrimSpace(key))
	_, ok := redactionAllowlist[normalized]
	return ok
}

// MaskValue returns the canonical redacted placeholder for non-empty values.
func MaskValue(value string) string {
	if strings.TrimSpace(value) == "" {
		return value
	}
	return RedactedValue
}

// MaskField returns a slog.Attr that redacts the supplied value unless the key is
// explicitly allowlisted.
func MaskField(key, value string) slog.Attr {
	if IsAllowlisted(key) {
		return slog.String(key, value)
	}
	return slog.String(key, MaskValue(value))
}

// MaskAddress keeps the first and last four hex digits of an account so log
// lines stay correlatable without carrying full addresses.
func MaskAddress(key, hex string) slog.Attr {
	trimmed := strings.TrimSpace(hex)
	if len(trimmed) <= 12 {
		return MaskField(key, trimmed)
	}
	return slog.String(key, trimmed[:6]+"…"+trimmed[len(trimmed)-4:])
}

// DetailAttrs renders operation details in key order, masking account
// addresses and the values of secret-bearing keys.
func DetailAttrs(details map[string]string) []any {
	keys := make([]string, 0, len(details))
	for key := range details {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	attrs := make([]any, 0, len(keys))
	for _, key := range keys {
		value := details[key]
		normalized := strings.ToLower(strings.TrimSpace(key))
		switch {
		case isAccountKey(normalized):
			attrs = append(attrs, MaskAddress(key, value))
		case isSecretKey(normalized):
			attrs = append(attrs, slog.String(key, MaskValue(value)))
		default:
			attrs = append(attrs, slog.String(key, value))
		}
	}
	return attrs
}

func isAccountKey(key string) bool {
	_, ok := accountKeys[key]
	return ok
}

func isSecretKey(key string) bool {
	for _, marker := range []string{"secret", "token", "password"} {
		if strings.Contains(key, marker) {
			return true
		}
	}
	return false
}
