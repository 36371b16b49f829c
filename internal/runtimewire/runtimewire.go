// Package runtimewire composes the RDS manifest generator runtime.
package runtimewire

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Gurpartap/graphfleet/adapters/idgen"
	"github.com/Gurpartap/graphfleet/agent"
	"github.com/Gurpartap/graphfleet/agentreact"
	eventinginmem "github.com/Gurpartap/graphfleet/eventing/inmem"
	"github.com/Gurpartap/graphfleet/eventing/logsink"
	"github.com/Gurpartap/graphfleet/internal/config"
	"github.com/Gurpartap/graphfleet/manifest"
	"github.com/Gurpartap/graphfleet/policy/retry"
	"github.com/Gurpartap/graphfleet/requirements"
	runstoreinmem "github.com/Gurpartap/graphfleet/runstore/inmem"
	"github.com/Gurpartap/graphfleet/state"
	"github.com/Gurpartap/graphfleet/tooling/registry"
	"github.com/Gurpartap/graphfleet/vfs"
)

const SystemPrompt = `You collect requirements for an AWS RDS instance and generate its manifest.

Call list_required_fields first and get_rds_field_info when a field is unclear.
Store every value the user gives you with store_requirement, one call per field.
When the user gives several values at once, call store_requirement for each of them in the same turn.
Use forget_requirement when the user withdraws a value.
Use get_collected_requirements to review progress; /requirements.json mirrors it.
When the requirements are complete, call generate_rds_manifest and point the user at /manifest.yaml.`

var ErrMissingModel = errors.New("runtime model is required")

// Options configures New. Model is required; everything else has a default.
type Options struct {
	Config      config.Config
	Logger      *slog.Logger
	Model       agentreact.Model
	IDGenerator agent.IDGenerator
	Clock       func() time.Time
	Suffix      func() string
	Retry       retry.Config
}

// Runtime contains the composed runtime dependencies.
type Runtime struct {
	Runner          *agent.Runner
	RunStore        *runstoreinmem.Store
	EventSink       *eventinginmem.Sink
	Schema          *state.Schema
	Tools           *registry.Registry
	Middleware      []agent.Middleware
	Serializer      *requirements.Serializer
	ToolDefinitions []agent.ToolDefinition
	MaxSteps        int
}

func New(opts Options) (*Runtime, error) {
	if opts.Model == nil {
		return nil, fmt.Errorf("new runtime: %w", ErrMissingModel)
	}
	cfg := opts.Config
	if cfg == (config.Config{}) {
		cfg = config.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	ids := opts.IDGenerator
	if ids == nil {
		ids = idgen.UUID{}
	}
	retryCfg := opts.Retry
	if retryCfg.MaxAttempts == 0 {
		retryCfg.MaxAttempts = 2
	}

	schema, err := NewSchema()
	if err != nil {
		return nil, err
	}

	tools, err := NewTools(logger, clock, opts.Suffix)
	if err != nil {
		return nil, err
	}

	serializer := requirements.NewSerializer(logger.With("middleware", "file_serializer"))
	middleware := []agent.Middleware{
		requirements.NewInitializer(logger.With("middleware", "requirements_initializer")),
		serializer,
	}

	store := runstoreinmem.New()
	events := eventinginmem.New()
	fanout := logsink.Fanout{events, logsink.New(logger, cfg.LogFormat)}

	loop, err := agentreact.New(
		retry.WrapModel(opts.Model, retryCfg),
		retry.WrapToolExecutor(tools, retryCfg),
		fanout,
		agentreact.WithSchema(schema),
		agentreact.WithMiddleware(middleware...),
		agentreact.WithLogger(logger),
		agentreact.WithMaxParallelTools(cfg.MaxParallelTools),
	)
	if err != nil {
		return nil, fmt.Errorf("new runtime loop: %w", err)
	}

	runner, err := agent.NewRunner(agent.Dependencies{
		IDGenerator: ids,
		RunStore:    store,
		Engine:      loop,
		EventSink:   fanout,
	})
	if err != nil {
		return nil, fmt.Errorf("new runtime runner: %w", err)
	}

	return &Runtime{
		Runner:          runner,
		RunStore:        store,
		EventSink:       events,
		Schema:          schema,
		Tools:           tools,
		Middleware:      middleware,
		Serializer:      serializer,
		ToolDefinitions: tools.Definitions(),
		MaxSteps:        cfg.MaxSteps,
	}, nil
}

// NewSchema declares the requirements and files cells.
func NewSchema() (*state.Schema, error) {
	schema, err := state.NewSchema(requirements.Cell(), vfs.Cell())
	if err != nil {
		return nil, fmt.Errorf("new runtime schema: %w", err)
	}
	return schema, nil
}

// NewTools registers the requirement, field catalogue, manifest and
// filesystem tools. A nil suffix uses random manifest name suffixes.
func NewTools(logger *slog.Logger, clock func() time.Time, suffix func() string) (*registry.Registry, error) {
	generator := manifest.New(
		manifest.WithClock(clock),
		manifest.WithSuffix(suffix),
		manifest.WithLogger(logger),
	)
	catalog, err := manifest.DefaultCatalog()
	if err != nil {
		return nil, fmt.Errorf("new runtime tools: %w", err)
	}
	var tools []registry.Tool
	tools = append(tools, requirements.Tools(logger)...)
	tools = append(tools, manifest.CatalogTools(catalog)...)
	tools = append(tools, generator.Tools()...)
	tools = append(tools, vfs.Tools(clock)...)
	r, err := registry.New(tools...)
	if err != nil {
		return nil, fmt.Errorf("new runtime tools: %w", err)
	}
	return r, nil
}

// Start runs a fresh session for prompt with the runtime defaults.
func (rt *Runtime) Start(ctx context.Context, prompt string) (agent.RunResult, error) {
	return rt.Runner.Run(ctx, agent.RunInput{
		SystemPrompt: SystemPrompt,
		UserPrompt:   prompt,
		MaxSteps:     rt.MaxSteps,
		Tools:        rt.ToolDefinitions,
	})
}
