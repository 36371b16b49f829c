// Package mcpserver exposes the requirement and manifest tools to MCP
// clients over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/Gurpartap/graphfleet/manifest"
	"github.com/Gurpartap/graphfleet/requirements"
)

const (
	RequirementsURI = "requirements://collected"
	ManifestURI     = "manifest://current"
)

const instructions = `graphfleet collects AWS RDS requirements field by field and renders an AwsRdsInstance manifest.
Call store_requirement once per field; calls may be issued in parallel.
Read requirements://collected for the current JSON document.`

// New builds an MCP server whose tools and resources act on session.
func New(session *Session, version string) (*server.MCPServer, error) {
	s := server.NewMCPServer(
		"graphfleet",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)

	for _, definition := range session.tools.Definitions() {
		schema, err := json.Marshal(definition.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("encode %s schema: %w", definition.Name, err)
		}
		name := definition.Name
		s.AddTool(
			mcp.NewToolWithRawSchema(name, definition.Description, schema),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return handleTool(ctx, session, name, req)
			},
		)
	}

	s.AddResource(
		mcp.NewResource(
			RequirementsURI,
			"Collected requirements",
			mcp.WithResourceDescription("The projected "+requirements.Path+" document"),
			mcp.WithMIMEType("application/json"),
		),
		func(_ context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
			return fileResource(session, req.Params.URI, requirements.Path, "application/json")
		},
	)
	s.AddResource(
		mcp.NewResource(
			ManifestURI,
			"Generated manifest",
			mcp.WithResourceDescription("The last generated "+manifest.Path),
			mcp.WithMIMEType("application/yaml"),
		),
		func(_ context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
			return fileResource(session, req.Params.URI, manifest.Path, "application/yaml")
		},
	)
	return s, nil
}

func handleTool(ctx context.Context, session *Session, name string, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := session.Call(ctx, name, req.GetArguments())
	if err != nil {
		return nil, err
	}
	if result.IsError {
		return mcp.NewToolResultError(result.Content), nil
	}
	return mcp.NewToolResultText(result.Content), nil
}

func fileResource(session *Session, uri, path, mimeType string) ([]mcp.ResourceContents, error) {
	text, ok := session.File(path)
	if !ok {
		return nil, fmt.Errorf("%s has not been written yet", path)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: uri, MIMEType: mimeType, Text: text},
	}, nil
}
