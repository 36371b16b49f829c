package manifest_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Gurpartap/graphfleet/agent"
	"github.com/Gurpartap/graphfleet/manifest"
	"github.com/Gurpartap/graphfleet/tooling/registry"
)

func newCatalogTools(t *testing.T) *registry.Registry {
	t.Helper()
	catalog, err := manifest.DefaultCatalog()
	if err != nil {
		t.Fatalf("default catalog: %v", err)
	}
	r, err := registry.New(manifest.CatalogTools(catalog)...)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	return r
}

func runCatalogTool(t *testing.T, r *registry.Registry, name string, args map[string]any) agent.ToolResult {
	t.Helper()
	result, err := r.Execute(context.Background(), agent.ToolCall{ID: "call-1", Name: name, Arguments: args}, nil)
	if err != nil {
		t.Fatalf("execute %s: %v", name, err)
	}
	return result
}

func names(fields []manifest.FieldInfo) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Name
	}
	return out
}

func TestDefaultCatalog_RequiredFields(t *testing.T) {
	t.Parallel()

	catalog, err := manifest.DefaultCatalog()
	if err != nil {
		t.Fatalf("default catalog: %v", err)
	}
	want := []string{"engine", "engine_version", "instance_class", "allocated_storage_gb"}
	if diff := cmp.Diff(want, names(catalog.Required())); diff != "" {
		t.Fatalf("unexpected required fields (-want +got):\n%s", diff)
	}
	if got, want := len(catalog.Required())+len(catalog.Optional()), len(catalog.All()); got != want {
		t.Fatalf("unexpected partition size: got=%d want=%d", got, want)
	}
}

func TestGetRDSFieldInfo(t *testing.T) {
	t.Parallel()

	r := newCatalogTools(t)
	got := runCatalogTool(t, r, manifest.ToolFieldInfo, map[string]any{"field_name": "instance_class"}).Content
	want := strings.Join([]string{
		"Field: instance_class",
		"Type: string",
		"Required: Yes",
		"Description: Instance class, for example db.t3.micro.",
		`Validation rules: minimum length: 1, must match pattern: ^db\.`,
	}, "\n")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected field info (-want +got):\n%s", diff)
	}

	subnets := runCatalogTool(t, r, manifest.ToolFieldInfo, map[string]any{"field_name": "subnet_ids"}).Content
	for _, line := range []string{
		"Repeated: Yes (accepts multiple values)",
		"Foreign key: references AwsVpc from field: status.outputs.private_subnets.[*].id",
	} {
		if !strings.Contains(subnets, line) {
			t.Fatalf("expected %q in:\n%s", line, subnets)
		}
	}

	missing := runCatalogTool(t, r, manifest.ToolFieldInfo, map[string]any{"field_name": "region"})
	if missing.IsError || !strings.HasPrefix(missing.Content, "Field 'region' not found. Available fields: subnet_ids, ") {
		t.Fatalf("unexpected not-found result: %+v", missing)
	}
}

func TestListRequiredAndOptionalFields(t *testing.T) {
	t.Parallel()

	r := newCatalogTools(t)
	required := runCatalogTool(t, r, manifest.ToolListRequired, nil).Content
	if !strings.HasPrefix(required, "Required fields for AWS RDS Instance:\n\n- engine: ") {
		t.Fatalf("unexpected required listing:\n%s", required)
	}
	if !strings.HasSuffix(required, "\n\nTotal: 4 required field(s) must be provided.") {
		t.Fatalf("unexpected required total:\n%s", required)
	}

	optional := runCatalogTool(t, r, manifest.ToolListOptional, nil).Content
	if !strings.Contains(optional, "- multi_az: Run a standby replica") || strings.Contains(optional, "- engine:") {
		t.Fatalf("unexpected optional listing:\n%s", optional)
	}
}

func TestGetAllRDSFields(t *testing.T) {
	t.Parallel()

	r := newCatalogTools(t)
	got := runCatalogTool(t, r, manifest.ToolListAllFields, nil).Content
	for _, want := range []string{
		"AWS RDS Instance Complete Field Schema\n" + strings.Repeat("=", 50),
		"REQUIRED FIELDS (4):",
		"OPTIONAL FIELDS (12):",
		"allocated_storage_gb (int32)\n  Allocated storage in GiB.",
		"Total fields: 16",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in overview:\n%s", want, got)
		}
	}
}

func TestLoadCatalog_Rejections(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"empty":        "fields: []\n",
		"missing type": "fields:\n  - name: engine\n",
		"duplicate":    "fields:\n  - {name: engine, type: string}\n  - {name: engine, type: string}\n",
		"unknown rule": "fields:\n  - name: engine\n    type: string\n    rules:\n      - {kind: max_len, value: \"3\"}\n",
		"unknown key":  "fields:\n  - {name: engine, type: string, default: postgres}\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if _, err := manifest.LoadCatalog([]byte(doc)); !errors.Is(err, manifest.ErrCatalog) {
				t.Fatalf("unexpected error: got=%v want=%v", err, manifest.ErrCatalog)
			}
		})
	}
}

func TestLoadCatalog_MinLenImpliesRequired(t *testing.T) {
	t.Parallel()

	catalog, err := manifest.LoadCatalog([]byte("fields:\n  - name: username\n    type: string\n    rules:\n      - {kind: min_len, value: \"1\"}\n"))
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	f, ok := catalog.Field("username")
	if !ok || !f.Required {
		t.Fatalf("unexpected field: got=%+v,%v want required", f, ok)
	}
}
