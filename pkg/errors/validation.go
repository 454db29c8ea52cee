package errors

import (
	"strings"
	"unicode"
)

// MaxSourceLength bounds the size of flowchart text accepted from callers.
const MaxSourceLength = 256 * 1024

// MaxLabelLength bounds a single node label.
const MaxLabelLength = 500

// ValidateSource validates flowchart text received from a user or an
// external generation service.
//
// The validation rules are intentionally conservative:
//   - Maximum length of MaxSourceLength bytes
//   - No control characters other than newline, carriage return and tab
//   - No null bytes
//
// An empty source is valid; it renders as an empty scene.
func ValidateSource(source string) error {
	if len(source) > MaxSourceLength {
		return New(ErrCodeInvalidInput, "source too long (max %d bytes)", MaxSourceLength)
	}
	for _, r := range source {
		if r == '\n' || r == '\r' || r == '\t' {
			continue
		}
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "source contains invalid control characters")
		}
	}
	return nil
}

// labelBreakers are characters that would close a node's delimiter pair and
// corrupt the surrounding source when written into a label.
var labelBreakers = []string{"[", "]", "{", "}", "(", ")", "\""}

// ValidateLabel validates replacement text for a node label edit.
//
// Validation rules:
//   - Label cannot be blank
//   - Maximum length of MaxLabelLength characters
//   - No newlines or control characters
//   - No shape delimiter characters or double quotes
func ValidateLabel(label string) error {
	if strings.TrimSpace(label) == "" {
		return New(ErrCodeInvalidLabel, "label cannot be empty")
	}
	if len(label) > MaxLabelLength {
		return New(ErrCodeInvalidLabel, "label too long (max %d characters)", MaxLabelLength)
	}
	for _, r := range label {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidLabel, "label contains invalid control characters")
		}
	}
	for _, b := range labelBreakers {
		if strings.Contains(label, b) {
			return New(ErrCodeInvalidLabel, "label contains invalid character: %q", b)
		}
	}
	return nil
}

// ValidateTheme validates a theme name.
func ValidateTheme(theme string) error {
	switch theme {
	case "light", "dark":
		return nil
	}
	return New(ErrCodeInvalidTheme, "invalid theme: %q (must be one of: light, dark)", theme)
}
