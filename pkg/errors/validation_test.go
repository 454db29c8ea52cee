package errors

import (
	"strings"
	"testing"
)

func TestValidateSource(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"empty", "", false},
		{"flowchart", "graph TD\nA[Start] --> B[End]", false},
		{"tabs and crlf", "graph LR\r\n\tA --> B", false},

		{"null byte", "graph TD\x00", true},
		{"control char", "A[\x01]", true},
		{"too long", strings.Repeat("a", MaxSourceLength+1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSource(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSource(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateLabel(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "Square", false},
		{"with spaces", "Load balancer", false},
		{"unicode", "Überprüfung", false},

		{"empty", "", true},
		{"blank", "   ", true},
		{"newline", "two\nlines", true},
		{"closing bracket", "a]b", true},
		{"opening brace", "a{b", true},
		{"quote", `say "hi"`, true},
		{"too long", strings.Repeat("x", MaxLabelLength+1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLabel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateLabel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidLabel) {
				t.Errorf("ValidateLabel(%q) code = %v, want %v", tt.input, GetCode(err), ErrCodeInvalidLabel)
			}
		})
	}
}

func TestValidateTheme(t *testing.T) {
	for _, theme := range []string{"light", "dark"} {
		if err := ValidateTheme(theme); err != nil {
			t.Errorf("ValidateTheme(%q) error = %v", theme, err)
		}
	}
	for _, theme := range []string{"", "Dark", "solarized"} {
		if err := ValidateTheme(theme); err == nil {
			t.Errorf("ValidateTheme(%q) should fail", theme)
		}
	}
}
