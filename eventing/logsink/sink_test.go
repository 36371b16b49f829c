package logsink_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/Gurpartap/graphfleet/agent"
	"github.com/Gurpartap/graphfleet/eventing/inmem"
	"github.com/Gurpartap/graphfleet/eventing/logsink"
	"github.com/Gurpartap/graphfleet/internal/config"
)

func TestNew_NilLogger(t *testing.T) {
	t.Parallel()

	if sink := logsink.New(nil, config.LogFormatText); sink != nil {
		t.Fatalf("expected nil sink for nil logger")
	}
}

func TestSink_TextFormatLogsEventJSONString(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&out, &slog.HandlerOptions{Level: slog.LevelDebug}))
	sink := logsink.New(logger, config.LogFormatText)

	event := agent.Event{
		RunID: "run-000001",
		Step:  2,
		Type:  agent.EventTypeStateUpdated,
		Cells: []string{"collected_requirements"},
	}
	if err := sink.Publish(context.Background(), event); err != nil {
		t.Fatalf("publish event: %v", err)
	}

	line := out.String()
	if !strings.Contains(line, "run event") || !strings.Contains(line, "collected_requirements") {
		t.Fatalf("unexpected log output: %s", line)
	}
}

func TestSink_JSONFormatLogsNestedObject(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&out, &slog.HandlerOptions{Level: slog.LevelDebug}))
	sink := logsink.New(logger, config.LogFormatJSON)

	event := agent.Event{RunID: "run-000002", Step: 3, Type: agent.EventTypeRunStarted}
	if err := sink.Publish(context.Background(), event); err != nil {
		t.Fatalf("publish event: %v", err)
	}
	if !strings.Contains(out.String(), `"event":{"run_id":"run-000002"`) {
		t.Fatalf("expected nested JSON event object: %s", out.String())
	}
}

func TestSink_InfoSkipsDebugEvents(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&out, &slog.HandlerOptions{Level: slog.LevelInfo}))
	sink := logsink.New(logger, config.LogFormatText)
	if err := sink.Publish(context.Background(), agent.Event{RunID: "run-1", Type: agent.EventTypeRunStarted}); err != nil {
		t.Fatalf("publish event: %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("expected no output at info level, got: %s", out.String())
	}
}

func TestSink_ContextErrors(t *testing.T) {
	t.Parallel()

	sink := logsink.New(slog.New(slog.DiscardHandler), config.LogFormatText)
	event := agent.Event{RunID: "run-1", Type: agent.EventTypeRunStarted}

	if err := sink.Publish(nil, event); !errors.Is(err, agent.ErrContextNil) {
		t.Fatalf("unexpected error: got=%v want=%v", err, agent.ErrContextNil)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sink.Publish(ctx, event); !errors.Is(err, context.Canceled) {
		t.Fatalf("unexpected error: got=%v want=%v", err, context.Canceled)
	}
}

func TestFanout_PublishesToEverySinkAndJoinsErrors(t *testing.T) {
	t.Parallel()

	first, second := inmem.New(), inmem.New()
	fanout := logsink.Fanout{first, nil, second}
	event := agent.Event{RunID: "run-1", Type: agent.EventTypeRunStarted}
	if err := fanout.Publish(context.Background(), event); err != nil {
		t.Fatalf("publish event: %v", err)
	}
	if len(first.Events()) != 1 || len(second.Events()) != 1 {
		t.Fatalf("unexpected fanout counts: first=%d second=%d", len(first.Events()), len(second.Events()))
	}

	err := fanout.Publish(context.Background(), agent.Event{RunID: "run-1", Type: agent.EventTypeStateUpdated})
	if !errors.Is(err, agent.ErrEventInvalid) {
		t.Fatalf("unexpected error: got=%v want=%v", err, agent.ErrEventInvalid)
	}
}
