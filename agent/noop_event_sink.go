package agent

import "context"

// NoopEventSink discards events. Runners use it when no sink is configured.
type NoopEventSink struct{}

func (NoopEventSink) Publish(context.Context, Event) error {
	return nil
}
