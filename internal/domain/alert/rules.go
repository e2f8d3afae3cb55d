package alert

import "strings"

// resolvedMarker in the message text means the condition cleared. The
// marker is stripped before the grouping name is derived so that an alert
// and its resolution land on the same event.
const resolvedMarker = "SOLVED"

// groupingNameLimit bounds the derived event name.
const groupingNameLimit = 100

// NormalizeText trims the raw alert text and resolves the event status.
// Status false means the message reports a resolved condition.
func NormalizeText(text string) (status bool, normalized string) {
	cleaned := strings.TrimSpace(text)
	if strings.Contains(cleaned, resolvedMarker) {
		return false, strings.TrimSpace(strings.ReplaceAll(cleaned, resolvedMarker, ""))
	}
	return true, cleaned
}

// DeriveName returns the grouping name for a normalized message text: its
// first 100 characters. Two messages correlate into the same event iff they
// share an IP and this prefix. This is deliberately unintelligent policy,
// kept as-is so grouping behavior stays externally stable; smarter keying
// (for example off the device model) is an extension point.
func DeriveName(normalized string) string {
	runes := []rune(normalized)
	if len(runes) <= groupingNameLimit {
		return normalized
	}
	return string(runes[:groupingNameLimit])
}

// ValidateRaw checks the transport payload contract: both fields present.
func ValidateRaw(raw RawMessage) error {
	if strings.TrimSpace(raw.IP) == "" {
		return &ValidationError{Field: "host", Reason: "is required"}
	}
	if strings.TrimSpace(raw.Text) == "" {
		return &ValidationError{Field: "message", Reason: "is required"}
	}
	return nil
}

// ValidateHost checks the minimum enrichment output: there is nothing to
// key an event on without an IP.
func ValidateHost(host HostData) error {
	if strings.TrimSpace(host.IP) == "" {
		return &ValidationError{Field: "ip", Reason: "is required"}
	}
	return nil
}
