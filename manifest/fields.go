package manifest

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/Gurpartap/graphfleet/agent"
	"github.com/Gurpartap/graphfleet/tooling/registry"
)

const (
	ToolFieldInfo     = "get_rds_field_info"
	ToolListRequired  = "list_required_fields"
	ToolListOptional  = "list_optional_fields"
	ToolListAllFields = "get_all_rds_fields"
)

var (
	heavyRule = strings.Repeat("=", 50)
	lightRule = strings.Repeat("-", 50)
)

// ErrCatalog is returned when a field catalogue cannot be decoded.
var ErrCatalog = errors.New("invalid rds field catalogue")

//go:embed rdsfields.yaml
var defaultCatalog []byte

// Rule is one validation constraint of a field, as declared in the schema.
type Rule struct {
	Kind  string `yaml:"kind"`
	Value string `yaml:"value"`
}

// ForeignKey names the resource a field usually references.
type ForeignKey struct {
	Kind      string `yaml:"kind"`
	FieldPath string `yaml:"field_path"`
}

// FieldInfo describes one AwsRdsInstanceSpec field.
type FieldInfo struct {
	Name        string      `yaml:"name"`
	Type        string      `yaml:"type"`
	Required    bool        `yaml:"required"`
	Repeated    bool        `yaml:"repeated"`
	Description string      `yaml:"description"`
	Rules       []Rule      `yaml:"rules"`
	ForeignKey  *ForeignKey `yaml:"foreign_key"`
}

var ruleText = map[string]string{
	"min_len":               "minimum length: %s",
	"pattern":               "must match pattern: %s",
	"greater_than":          "must be > %s",
	"greater_than_or_equal": "must be >= %s",
	"less_than_or_equal":    "must be <= %s",
	"const":                 "must be exactly: %s",
}

// Catalog is an ordered set of spec fields.
type Catalog struct {
	fields []FieldInfo
}

// LoadCatalog decodes a YAML catalogue. A field with a min_len rule is
// required even when the flag is absent.
func LoadCatalog(data []byte) (*Catalog, error) {
	var doc struct {
		Fields []FieldInfo `yaml:"fields"`
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCatalog, err)
	}
	if len(doc.Fields) == 0 {
		return nil, fmt.Errorf("%w: no fields", ErrCatalog)
	}
	seen := make(map[string]bool, len(doc.Fields))
	for i := range doc.Fields {
		f := &doc.Fields[i]
		if f.Name == "" || f.Type == "" {
			return nil, fmt.Errorf("%w: index=%d reason=missing_name_or_type", ErrCatalog, i)
		}
		if seen[f.Name] {
			return nil, fmt.Errorf("%w: name=%q reason=duplicate", ErrCatalog, f.Name)
		}
		seen[f.Name] = true
		for _, rule := range f.Rules {
			if _, ok := ruleText[rule.Kind]; !ok {
				return nil, fmt.Errorf("%w: name=%q rule=%q reason=unknown_rule", ErrCatalog, f.Name, rule.Kind)
			}
			if rule.Kind == "min_len" {
				f.Required = true
			}
		}
	}
	return &Catalog{fields: doc.Fields}, nil
}

var loadDefaultCatalog = sync.OnceValues(func() (*Catalog, error) {
	return LoadCatalog(defaultCatalog)
})

// DefaultCatalog returns the embedded AwsRdsInstanceSpec catalogue.
func DefaultCatalog() (*Catalog, error) {
	return loadDefaultCatalog()
}

func (c *Catalog) All() []FieldInfo {
	return append([]FieldInfo(nil), c.fields...)
}

func (c *Catalog) Required() []FieldInfo {
	return c.filter(true)
}

func (c *Catalog) Optional() []FieldInfo {
	return c.filter(false)
}

func (c *Catalog) Field(name string) (FieldInfo, bool) {
	for _, f := range c.fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldInfo{}, false
}

func (c *Catalog) Names() []string {
	out := make([]string, len(c.fields))
	for i, f := range c.fields {
		out[i] = f.Name
	}
	return out
}

func (c *Catalog) filter(required bool) []FieldInfo {
	var out []FieldInfo
	for _, f := range c.fields {
		if f.Required == required {
			out = append(out, f)
		}
	}
	return out
}

// Describe renders the detail view of one field.
func (f FieldInfo) Describe() string {
	parts := []string{
		"Field: " + f.Name,
		"Type: " + f.Type,
		"Required: " + yesNo(f.Required),
	}
	if f.Repeated {
		parts = append(parts, "Repeated: Yes (accepts multiple values)")
	}
	if f.Description != "" {
		parts = append(parts, "Description: "+f.Description)
	}
	if len(f.Rules) > 0 {
		rules := make([]string, len(f.Rules))
		for i, rule := range f.Rules {
			rules[i] = fmt.Sprintf(ruleText[rule.Kind], rule.Value)
		}
		parts = append(parts, "Validation rules: "+strings.Join(rules, ", "))
	}
	if fk := f.ForeignKey; fk != nil {
		var ref []string
		if fk.Kind != "" {
			ref = append(ref, "references "+fk.Kind)
		}
		if fk.FieldPath != "" {
			ref = append(ref, "from field: "+fk.FieldPath)
		}
		if len(ref) > 0 {
			parts = append(parts, "Foreign key: "+strings.Join(ref, " "))
		}
	}
	return strings.Join(parts, "\n")
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func describeOr(desc, fallback string) string {
	if desc == "" {
		return fallback
	}
	return desc
}

// CatalogTools exposes read-only queries over c.
func CatalogTools(c *Catalog) []registry.Tool {
	noArgs := map[string]any{"type": "object", "properties": map[string]any{}, "additionalProperties": false}
	return []registry.Tool{
		{
			Definition: agent.ToolDefinition{
				Name:        ToolFieldInfo,
				Description: "Describe one AWS RDS Instance field: type, whether it is required, validation rules and references.",
				InputSchema: map[string]any{
					"type":                 "object",
					"properties":           map[string]any{"field_name": map[string]any{"type": "string"}},
					"required":             []any{"field_name"},
					"additionalProperties": false,
				},
			},
			Handler: func(_ context.Context, call registry.Call) (registry.Result, error) {
				name, err := registry.StringArgument(call.Arguments, "field_name")
				if err != nil {
					return registry.Errorf("%v", err), nil
				}
				f, ok := c.Field(name)
				if !ok {
					return registry.Text(fmt.Sprintf("Field '%s' not found. Available fields: %s", name, strings.Join(c.Names(), ", "))), nil
				}
				return registry.Text(f.Describe()), nil
			},
		},
		{
			Definition: agent.ToolDefinition{
				Name:        ToolListRequired,
				Description: "List the fields that must be collected for a valid AWS RDS Instance manifest.",
				InputSchema: noArgs,
			},
			Handler: func(context.Context, registry.Call) (registry.Result, error) {
				return registry.Text(listFields(c.Required(), "Required", "required field(s) must be provided.")), nil
			},
		},
		{
			Definition: agent.ToolDefinition{
				Name:        ToolListOptional,
				Description: "List the optional AWS RDS Instance fields available for customization.",
				InputSchema: noArgs,
			},
			Handler: func(context.Context, registry.Call) (registry.Result, error) {
				return registry.Text(listFields(c.Optional(), "Optional", "optional field(s) available for customization.")), nil
			},
		},
		{
			Definition: agent.ToolDefinition{
				Name:        ToolListAllFields,
				Description: "Show every AWS RDS Instance field grouped by required and optional.",
				InputSchema: noArgs,
			},
			Handler: func(context.Context, registry.Call) (registry.Result, error) {
				return registry.Text(overview(c)), nil
			},
		},
	}
}

func listFields(fields []FieldInfo, kind, total string) string {
	if len(fields) == 0 {
		return fmt.Sprintf("No %s fields found.", strings.ToLower(kind))
	}
	lines := []string{kind + " fields for AWS RDS Instance:", ""}
	for _, f := range fields {
		lines = append(lines, fmt.Sprintf("- %s: %s", f.Name, describeOr(f.Description, "No description available")))
	}
	lines = append(lines, "", fmt.Sprintf("Total: %d %s", len(fields), total))
	return strings.Join(lines, "\n")
}

func overview(c *Catalog) string {
	lines := []string{"AWS RDS Instance Complete Field Schema", heavyRule, ""}
	for _, group := range []struct {
		title  string
		fields []FieldInfo
	}{
		{"REQUIRED FIELDS", c.Required()},
		{"OPTIONAL FIELDS", c.Optional()},
	} {
		lines = append(lines, fmt.Sprintf("%s (%d):", group.title, len(group.fields)), lightRule)
		for _, f := range group.fields {
			lines = append(lines,
				fmt.Sprintf("%s (%s)", f.Name, f.Type),
				"  "+describeOr(f.Description, "No description"),
				"",
			)
		}
	}
	lines = append(lines, heavyRule, fmt.Sprintf("Total fields: %d", len(c.fields)))
	return strings.Join(lines, "\n")
}
