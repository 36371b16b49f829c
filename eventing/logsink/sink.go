// Package logsink publishes runtime events to a structured logger.
package logsink

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/Gurpartap/graphfleet/agent"
	"github.com/Gurpartap/graphfleet/internal/config"
)

// Sink logs every event at debug level.
type Sink struct {
	logger    *slog.Logger
	logFormat config.LogFormat
}

var _ agent.EventSink = Sink{}

// New returns nil when logger is nil.
func New(logger *slog.Logger, logFormat config.LogFormat) agent.EventSink {
	if logger == nil {
		return nil
	}
	if logFormat == "" {
		logFormat = config.LogFormatText
	}
	return Sink{logger: logger, logFormat: logFormat}
}

func (s Sink) Publish(ctx context.Context, event agent.Event) error {
	if ctx == nil {
		return agent.ErrContextNil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if !s.logger.Enabled(ctx, slog.LevelDebug) {
		return nil
	}

	if s.logFormat == config.LogFormatJSON {
		s.logger.Debug("run event", slog.Any("event", event))
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	s.logger.Debug("run event", slog.String("event", string(payload)))
	return nil
}

// Fanout publishes to every sink in order and joins their errors.
type Fanout []agent.EventSink

var _ agent.EventSink = Fanout(nil)

func (f Fanout) Publish(ctx context.Context, event agent.Event) error {
	var errs []error
	for _, sink := range f {
		if sink == nil {
			continue
		}
		if err := sink.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
