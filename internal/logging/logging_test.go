package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestBuildWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unitconvert.log")

	logger, err := Build(Config{Level: "debug", Format: "json", Output: path})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	logger.Named("currency").Debug("refresh skipped", zap.String("state", "skipping"))
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(data)
	for _, want := range []string{`"logger":"currency"`, `"msg":"refresh skipped"`, `"state":"skipping"`} {
		if !strings.Contains(line, want) {
			t.Errorf("expected log line to contain %s, got %s", want, line)
		}
	}
}

func TestBuildFallsBackToInfoOnBadLevel(t *testing.T) {
	logger, err := Build(Config{Level: "chatty", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if logger.Core().Enabled(zap.DebugLevel) {
		t.Error("debug must be disabled when the level is unparsable")
	}
	if !logger.Core().Enabled(zap.InfoLevel) {
		t.Error("info must be enabled when the level is unparsable")
	}
}

func TestSetLoggerNil(t *testing.T) {
	previous := L()
	t.Cleanup(func() { SetLogger(previous) })

	SetLogger(nil)
	if L() == nil {
		t.Fatal("SetLogger(nil) must install a no-op logger")
	}
	Named("registry").Info("discarded")
}
