// Package manifest renders an AwsRdsInstance manifest from the collected
// requirements.
package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Gurpartap/graphfleet/requirements"
)

const (
	APIVersion = "aws.project-planton.org/v1"
	Kind       = "AwsRdsInstance"
	Path       = "/manifest.yaml"

	DefaultOrg = "project-planton"
	DefaultEnv = "aws"

	// NameField and LabelsField are the reserved requirement fields written
	// by set_manifest_metadata.
	NameField   = requirements.MetadataPrefix + "name"
	LabelsField = requirements.MetadataPrefix + "labels"
)

var ErrRender = errors.New("manifest render failed")

// Params are the caller-supplied parts of a manifest.
type Params struct {
	ResourceName string
	Org          string
	Env          string
}

// ResolveName picks the resource name: the stored metadata name, then the
// explicit name, then "<engine>-instance-<suffix>".
func ResolveName(set *requirements.Set, explicit string, suffix func() string) string {
	if stored, ok := set.Get(NameField); ok {
		if name, ok := stored.(string); ok && name != "" {
			return name
		}
	}
	if explicit != "" {
		return explicit
	}
	engine := "db"
	if stored, ok := set.Get("engine"); ok {
		engine = requirements.FormatValue(stored)
	}
	return fmt.Sprintf("%s-instance-%s", engine, suffix())
}

// Render encodes the manifest for set as YAML. Key order follows the
// manifest layout and the insertion order of the requirements.
func Render(set *requirements.Set, name string, params Params) (string, error) {
	org := params.Org
	if org == "" {
		org = DefaultOrg
	}
	env := params.Env
	if env == "" {
		env = DefaultEnv
	}

	metadata := mapping(
		scalar("name"), scalar(name),
		scalar("org"), scalar(org),
		scalar("env"), scalar(env),
	)
	if labels, ok := set.Get(LabelsField); ok && labels != nil {
		node, err := valueNode(labels)
		if err != nil {
			return "", fmt.Errorf("%w: field=%s: %w", ErrRender, LabelsField, err)
		}
		metadata.Content = append(metadata.Content, scalar("labels"), node)
	}

	spec := mapping()
	for _, f := range set.Fields() {
		if strings.HasPrefix(f.Name, requirements.MetadataPrefix) {
			continue
		}
		node, err := valueNode(f.Value)
		if err != nil {
			return "", fmt.Errorf("%w: field=%s: %w", ErrRender, f.Name, err)
		}
		spec.Content = append(spec.Content, scalar(ToCamel(f.Name)), node)
	}

	doc := mapping(
		scalar("apiVersion"), scalar(APIVersion),
		scalar("kind"), scalar(Kind),
		scalar("metadata"), metadata,
		scalar("spec"), spec,
	)

	var out bytes.Buffer
	enc := yaml.NewEncoder(&out)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return "", fmt.Errorf("%w: %w", ErrRender, err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrRender, err)
	}
	return out.String(), nil
}

// ToCamel converts a snake_case field name to camelCase. The first word
// keeps its case and later words are capitalized. Reserved metadata names
// are returned unchanged.
func ToCamel(field string) string {
	if strings.HasPrefix(field, requirements.MetadataPrefix) {
		return field
	}
	parts := strings.Split(field, "_")
	var b strings.Builder
	b.WriteString(parts[0])
	for _, part := range parts[1:] {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(strings.ToLower(part[1:]))
	}
	return b.String()
}

func mapping(content ...*yaml.Node) *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", Content: content}
}

func scalar(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
}

// valueNode encodes a requirement value. json.Number is emitted with its
// literal text so large integers are not rounded.
func valueNode(v any) (*yaml.Node, error) {
	switch typed := v.(type) {
	case json.Number:
		tag := "!!int"
		if strings.ContainsAny(typed.String(), ".eE") {
			tag = "!!float"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: typed.String()}, nil
	case map[string]any:
		node := mapping()
		for _, key := range slices.Sorted(maps.Keys(typed)) {
			child, err := valueNode(typed[key])
			if err != nil {
				return nil, err
			}
			node.Content = append(node.Content, scalar(key), child)
		}
		return node, nil
	case []any:
		node := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range typed {
			child, err := valueNode(item)
			if err != nil {
				return nil, err
			}
			node.Content = append(node.Content, child)
		}
		return node, nil
	}
	var node yaml.Node
	if err := node.Encode(v); err != nil {
		return nil, err
	}
	return &node, nil
}
