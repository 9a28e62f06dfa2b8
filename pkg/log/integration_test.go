package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"

	cverrors "github.com/YuminosukeSato/cvbench/pkg/errors"
)

func TestTestLoggerRecords(t *testing.T) {
	logger := NewTestLogger(LevelDebug)

	logger.Debug("debug message", "key1", "value1", "number", 42)
	logger.Info("fold scored", FoldKey, 1)
	logger.Warn("warning message")
	logger.Error("fold failed", "error", fmt.Errorf("boom"))

	if got := len(logger.Entries()); got != 4 {
		t.Fatalf("expected 4 entries, got %d", got)
	}
	for _, msg := range []string{"debug message", "fold scored", "warning", "fold failed"} {
		if !logger.ContainsMessage(msg) {
			t.Errorf("%q not recorded", msg)
		}
	}
	if !logger.ContainsField("number", 42) {
		t.Error("number=42 not recorded")
	}
	if !logger.ContainsField("error", "boom") {
		t.Error("error should be recorded as its message")
	}
	if logger.Entries()[3]["level"] != "ERROR" {
		t.Errorf("unexpected level %v", logger.Entries()[3]["level"])
	}
}

func TestTestLoggerWith(t *testing.T) {
	root := NewTestLogger(LevelDebug)
	root.With(ComponentKey, "evaluation", RunIDKey, "run-1").Info("fold done", FoldKey, 3)

	entries := root.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	for k, v := range map[string]any{ComponentKey: "evaluation", RunIDKey: "run-1", FoldKey: 3} {
		if entries[0][k] != v {
			t.Errorf("%s: expected %v, got %v", k, v, entries[0][k])
		}
	}
}

func TestTestLoggerLevel(t *testing.T) {
	logger := NewTestLogger(LevelInfo)
	ctx := context.Background()

	if !logger.Enabled(ctx, LevelWarn) || logger.Enabled(ctx, LevelDebug) {
		t.Error("Enabled should follow the minimum level")
	}
	logger.Debug("hidden")
	logger.Info("shown")
	if logger.ContainsMessage("hidden") || !logger.ContainsMessage("shown") {
		t.Errorf("unexpected entries %v", logger.Entries())
	}
}

func TestZerologProviderWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologProviderWithWriter(&buf, LevelInfo).GetLoggerWithName("search").With(RunIDKey, "abc")
	logger.Debug("hidden")
	logger.Info("configuration scored", ConfigKey, 4, ScoreKey, 0.75)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %q", buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if entry["message"] != "configuration scored" || entry[ComponentKey] != "search" || entry[RunIDKey] != "abc" {
		t.Errorf("missing context fields: %v", entry)
	}
	if entry[ConfigKey] != 4.0 || entry[ScoreKey] != 0.75 {
		t.Errorf("missing event fields: %v", entry)
	}
}

func TestZerologLoggerMarshalsHarnessErrors(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologProviderWithWriter(&buf, LevelDebug).GetLogger()

	sfe := &cverrors.StageFitError{Stage: "smote", Phase: cverrors.PhaseResample, Fold: 2, Config: -1, Err: fmt.Errorf("k too large")}
	logger.Error("fold failed", "error", sfe)

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	obj, ok := entry["error"].(map[string]any)
	if !ok {
		t.Fatalf("expected an error object, got %T", entry["error"])
	}
	if obj["stage"] != "smote" || obj["fold"] != 2.0 {
		t.Errorf("unexpected error object %v", obj)
	}
}

func TestZerologProviderSetLevel(t *testing.T) {
	var buf bytes.Buffer
	provider := NewZerologProviderWithWriter(&buf, LevelError)
	provider.GetLogger().Info("dropped")
	provider.SetLevel(LevelDebug)
	provider.GetLogger().Debug("kept")

	if strings.Contains(buf.String(), "dropped") || !strings.Contains(buf.String(), "kept") {
		t.Errorf("unexpected output %q", buf.String())
	}
	if !provider.GetLogger().Enabled(context.Background(), LevelDebug) {
		t.Error("Enabled should follow provider level")
	}
}

func TestGlobalProviderRoutesWarnings(t *testing.T) {
	previous := GetProvider()
	defer SetProvider(previous)

	provider, logger := NewTestLoggerProvider(LevelDebug)
	SetProvider(provider)

	GetLoggerWithName("augment").Info("named logger message")
	if !logger.ContainsField(ComponentKey, "augment") {
		t.Error("component name not recorded")
	}

	cverrors.Warn(cverrors.NewUndefinedMetricWarning("recall_macro", "no true samples", 0))
	if !logger.ContainsField(ComponentKey, "warnings") {
		t.Error("warnings should go through the global provider")
	}
}

func TestErrFmtHandlerAddsErrorType(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(WrapByErrFmtHandler(slog.NewJSONHandler(&buf, &slog.HandlerOptions{ReplaceAttr: renameAttr})))

	logger.Error("run failed", ErrAttr(cverrors.NewConfigurationError("Split", "too few samples")))

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if entry[ErrorTypeKey] != "ConfigurationError" {
		t.Errorf("expected ConfigurationError, got %v", entry[ErrorTypeKey])
	}
	if entry["message"] != "run failed" || entry["severity"] != "ERROR" {
		t.Errorf("keys should be renamed: %v", entry)
	}
}

func TestConcurrentLogging(t *testing.T) {
	logger := NewTestLogger(LevelInfo)

	var wg sync.WaitGroup
	for fold := 0; fold < 4; fold++ {
		wg.Add(1)
		go func(fold int) {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				logger.With(FoldKey, fold).Info("metric computed", MetricKey, "accuracy")
			}
		}(fold)
	}
	wg.Wait()

	if got := len(logger.Entries()); got != 20 {
		t.Errorf("expected 20 entries, got %d", got)
	}
}

func TestToLogLevel(t *testing.T) {
	for name, want := range map[string]Level{"debug": LevelDebug, "info": LevelInfo, "warn": LevelWarn, "error": LevelError} {
		if got := ToLogLevel(name); got != want {
			t.Errorf("ToLogLevel(%q) = %v, want %v", name, got, want)
		}
	}

	defer func() {
		if recover() == nil {
			t.Error("ToLogLevel should panic on unknown level")
		}
	}()
	ToLogLevel("verbose")
}

func BenchmarkLogging(b *testing.B) {
	var buf bytes.Buffer
	logger := NewZerologProviderWithWriter(&buf, LevelInfo).GetLoggerWithName("bench")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Info("benchmark message", FoldKey, i, SamplesKey, 1000)
	}
}
