package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestParseLevel(t *testing.T) {
	t.Run("known names map to charmbracelet levels", func(t *testing.T) {
		cases := map[string]log.Level{
			"trace":   log.DebugLevel,
			"debug":   log.DebugLevel,
			"info":    log.InfoLevel,
			"":        log.InfoLevel,
			"WARN":    log.WarnLevel,
			"warning": log.WarnLevel,
			"error":   log.ErrorLevel,
		}

		for name, expected := range cases {
			actual, err := ParseLevel(name)
			if err != nil {
				t.Errorf("ParseLevel(%q) returned error: %v", name, err)
			}

			if actual != expected {
				t.Errorf("ParseLevel(%q) = %v, expected %v", name, actual, expected)
			}
		}
	})

	t.Run("unknown names are rejected", func(t *testing.T) {
		if _, err := ParseLevel("loud"); err == nil {
			t.Errorf("expected an error for an unknown level")
		}
	})
}

func TestLogMsg(t *testing.T) {
	t.Run("printf, structured and level filtering", func(t *testing.T) {
		var buf bytes.Buffer

		if err := Init(&Options{Level: "info", Output: &buf}); err != nil {
			t.Fatalf("Init: %v", err)
		}

		L_info("loaded %d models", 3)
		L_info("model ready", "name", "turbo")
		L_debug("hidden")

		out := buf.String()

		if !strings.Contains(out, "loaded 3 models") {
			t.Errorf("expected printf message, got %q", out)
		}

		if !strings.Contains(out, "name=turbo") {
			t.Errorf("expected key/value pair, got %q", out)
		}

		if strings.Contains(out, "hidden") {
			t.Errorf("debug message should be filtered at info level, got %q", out)
		}
	})
}

func TestHasFmtVerb(t *testing.T) {
	if !hasFmtVerb("value %v") {
		t.Errorf("expected %%v to count as a verb")
	}

	if hasFmtVerb("100%% done") {
		t.Errorf("escaped percent should not count as a verb")
	}
}
