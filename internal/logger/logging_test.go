package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func fixedTime() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

func TestSetupWritesComponentAndTimestamp(t *testing.T) {
	var buf bytes.Buffer
	l := Setup(Config{Component: "amqp-session", Out: &buf, TimeFunc: fixedTime})

	l.Info().Str("queue", "orders").Msg("declared")

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if line["component"] != "amqp-session" {
		t.Errorf("component = %v", line["component"])
	}
	if line["queue"] != "orders" || line["message"] != "declared" {
		t.Errorf("unexpected line %v", line)
	}
	if line["time"] != "2024-01-02T03:04:05Z" {
		t.Errorf("time = %v", line["time"])
	}
}

func TestSetupLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l := Setup(Config{Level: "warn", Out: &buf, TimeFunc: fixedTime})

	l.Info().Msg("hidden")
	l.Warn().Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info line should be filtered at warn level")
	}
	if !strings.Contains(out, "shown") {
		t.Error("warn line should be written")
	}
}

func TestNamedAddsSubsystem(t *testing.T) {
	var buf bytes.Buffer
	l := Named(Setup(Config{Component: "svc", Out: &buf, TimeFunc: fixedTime}), "session")

	l.Info().Msg("hello")
	if !strings.Contains(buf.String(), `"subsystem":"session"`) {
		t.Errorf("missing subsystem field: %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		" INFO ":  zerolog.InfoLevel,
		"":        zerolog.InfoLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"bogus":   zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
