package output

import (
	"bytes"
	"testing"
)

func TestNewColorScheme_NonTTY(t *testing.T) {
	var buf bytes.Buffer

	scheme := NewColorScheme(&buf, false)
	if !scheme.Disabled {
		t.Error("colors should be disabled for non-TTY writers")
	}

	// No-op color functions must still format
	if got := scheme.Success("%d ok", 3); got != "3 ok" {
		t.Errorf("Success() = %q, want %q", got, "3 ok")
	}
}

func TestNewColorScheme_NoColor(t *testing.T) {
	var buf bytes.Buffer

	scheme := NewColorScheme(&buf, true)
	if !scheme.Disabled {
		t.Error("colors should be disabled when noColor is true")
	}
}

func TestColorScheme_StatusColor(t *testing.T) {
	var buf bytes.Buffer
	scheme := NewColorScheme(&buf, true)

	if got := scheme.StatusColor(false)("Success"); got != "Success" {
		t.Errorf("StatusColor(false) = %q", got)
	}
	if got := scheme.StatusColor(true)("Failed"); got != "Failed" {
		t.Errorf("StatusColor(true) = %q", got)
	}
}
