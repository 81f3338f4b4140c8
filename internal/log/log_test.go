package log

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug": zerolog.DebugLevel,
		"info":  zerolog.InfoLevel,
		"warn":  zerolog.WarnLevel,
		"error": zerolog.ErrorLevel,
		"off":   zerolog.Disabled,
		"bogus": zerolog.InfoLevel,
		"":      zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewJSONLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	l := NewJSONLogger(&buf, "debug")
	ledger := l.With().Str("component", "ledger").Logger()
	ledger.Debug().Str("label", "a").Msg("credit")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if entry["component"] != "ledger" || entry["label"] != "a" || entry["message"] != "credit" {
		t.Errorf("unexpected entry: %v", entry)
	}
}

func TestInit_FileSink(t *testing.T) {
	old := Logger
	defer func() {
		Logger = old
		initComponentLoggers()
	}()

	path := filepath.Join(t.TempDir(), "wallet.log")
	if err := Init("info", true, path); err != nil {
		t.Fatalf("Init: %v", err)
	}
	Ledger.Info().Msg("written to file")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"component":"ledger"`) {
		t.Errorf("log file missing component field: %s", data)
	}
}

func TestWithLabel(t *testing.T) {
	old := Logger
	defer func() {
		Logger = old
		initComponentLoggers()
	}()

	var buf bytes.Buffer
	Logger = NewJSONLogger(&buf, "debug")
	initComponentLoggers()
	labelled := WithLabel("savings")
	labelled.Warn().Msg("restore failed")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if entry["component"] != "wallet" || entry["label"] != "savings" {
		t.Errorf("unexpected entry: %v", entry)
	}
}
