package render

import (
	"testing"

	"github.com/YunjiaXi/InfoDeepSeek/pkg/errors"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		raw string
		ok  bool
	}{
		{"https://example.com/a", true},
		{"  http://example.com ", true},
		{"example.com", false},
		{"ftp://example.com", false},
		{"https://", false},
		{"", false},
	}
	for _, tt := range tests {
		_, err := ParseURL(tt.raw)
		if (err == nil) != tt.ok {
			t.Errorf("ParseURL(%q) error = %v", tt.raw, err)
		}
		if err != nil && errors.CodeOf(err) != errors.CodeInvalidInput {
			t.Errorf("ParseURL(%q) code = %s", tt.raw, errors.CodeOf(err))
		}
	}
}

func TestNewChromeDefaults(t *testing.T) {
	c := NewChrome(0, "")
	if c.Timeout != DefaultTimeout || c.UserAgent != DefaultUserAgent {
		t.Fatalf("defaults not applied: %+v", c)
	}
}
