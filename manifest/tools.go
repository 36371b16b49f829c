package manifest

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/Gurpartap/graphfleet/agent"
	"github.com/Gurpartap/graphfleet/requirements"
	"github.com/Gurpartap/graphfleet/tooling/registry"
	"github.com/Gurpartap/graphfleet/vfs"
)

const (
	ToolSetMetadata = "set_manifest_metadata"
	ToolGenerate    = "generate_rds_manifest"

	suffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	suffixLength   = 6
)

// Generator builds the manifest tools.
type Generator struct {
	now    func() time.Time
	suffix func() string
	logger *slog.Logger
}

type Option func(*Generator)

// WithClock sets the time source used to stamp /manifest.yaml.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		if now != nil {
			g.now = now
		}
	}
}

// WithSuffix sets the source of generated resource name suffixes.
func WithSuffix(suffix func() string) Option {
	return func(g *Generator) {
		if suffix != nil {
			g.suffix = suffix
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

func New(opts ...Option) *Generator {
	g := &Generator{
		now:    time.Now,
		suffix: RandomSuffix,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// RandomSuffix returns six random lowercase letters or digits.
func RandomSuffix() string {
	b := make([]byte, suffixLength)
	for i := range b {
		b[i] = suffixAlphabet[rand.IntN(len(suffixAlphabet))]
	}
	return string(b)
}

func (g *Generator) Tools() []registry.Tool {
	return []registry.Tool{
		{
			Definition: agent.ToolDefinition{
				Name:        ToolSetMetadata,
				Description: "Store the manifest name and labels if the user mentions them.",
				InputSchema: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name":   map[string]any{"type": "string"},
						"labels": map[string]any{"type": "object"},
					},
					"additionalProperties": false,
				},
			},
			Handler: g.setMetadata,
		},
		{
			Definition: agent.ToolDefinition{
				Name: ToolGenerate,
				Description: "Generate the AWS RDS instance manifest from the collected requirements " +
					"and save it to " + Path + ".",
				InputSchema: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"resource_name": map[string]any{"type": "string"},
						"org":           map[string]any{"type": "string"},
						"env":           map[string]any{"type": "string"},
					},
					"additionalProperties": false,
				},
			},
			Handler: g.generate,
		},
	}
}

func (g *Generator) setMetadata(_ context.Context, call registry.Call) (registry.Result, error) {
	name, err := registry.OptionalString(call.Arguments, "name", "")
	if err != nil {
		return registry.Errorf("%v", err), nil
	}
	labels, err := registry.OptionalStringMap(call.Arguments, "labels")
	if err != nil {
		return registry.Errorf("%v", err), nil
	}
	if name == "" && len(labels) == 0 {
		return registry.Text("✓ No metadata changes (both name and labels were empty)"), nil
	}

	var fields []requirements.Field
	var parts []string
	if name != "" {
		fields = append(fields, requirements.Field{Name: NameField, Value: name})
		parts = append(parts, "name="+name)
	}
	if len(labels) > 0 {
		value, err := requirements.NormalizeValue(labels)
		if err != nil {
			return registry.Errorf("%v", err), nil
		}
		fields = append(fields, requirements.Field{Name: LabelsField, Value: value})
		parts = append(parts, "labels="+requirements.FormatValue(value))
	}
	return registry.Result{
		Content: "✓ Metadata stored: " + strings.Join(parts, ", "),
		Update:  requirements.Update(requirements.NewSet(fields...)),
	}, nil
}

func (g *Generator) generate(_ context.Context, call registry.Call) (registry.Result, error) {
	var params Params
	var err error
	if params.ResourceName, err = registry.OptionalString(call.Arguments, "resource_name", ""); err != nil {
		return registry.Errorf("%v", err), nil
	}
	if params.Org, err = registry.OptionalString(call.Arguments, "org", DefaultOrg); err != nil {
		return registry.Errorf("%v", err), nil
	}
	if params.Env, err = registry.OptionalString(call.Arguments, "env", DefaultEnv); err != nil {
		return registry.Errorf("%v", err), nil
	}

	set := requirements.FromValues(call.State)
	name := ResolveName(set, params.ResourceName, g.suffix)
	text, err := Render(set, name, params)
	if err != nil {
		g.logger.Error("manifest render failed", "call_id", call.ID, "err", err)
		return registry.Errorf("%v", err), nil
	}
	g.logger.Info("manifest generated", "name", name, "fields", set.Len())

	return registry.Result{
		Content: fmt.Sprintf(
			"✓ Generated AWS RDS Instance manifest!\nThe manifest has been saved to %s\nResource name: %s\nYou can view the manifest by reading %s",
			Path, name, Path,
		),
		Update: vfs.Update(vfs.Files{Path: vfs.MakeFileAt(text, g.now())}),
	}, nil
}
