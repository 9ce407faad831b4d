package dom

import "strings"

// Sanitizer cleans untrusted markup before it reaches the document.
// Supplied by the hosting environment; when unavailable at cold start the
// bootstrap installs the passthrough fallback and records a high-severity
// diagnostic once a real logger exists. Booting never hard-fails on a
// missing sanitizer, but the compromise must be undeniable in logs.
type Sanitizer interface {
	Sanitize(markup string) string
}

// PassthroughSanitizer is the degraded no-op fallback.
type PassthroughSanitizer struct{}

// Sanitize returns the input unchanged.
func (PassthroughSanitizer) Sanitize(markup string) string { return markup }

// StripTagSanitizer is a minimal built-in sanitizer that removes angle
// brackets, suitable for hosts that only ever set plain text.
type StripTagSanitizer struct{}

// Sanitize removes tag delimiters from the input.
func (StripTagSanitizer) Sanitize(markup string) string {
	replacer := strings.NewReplacer("<", "", ">", "")
	return replacer.Replace(markup)
}
