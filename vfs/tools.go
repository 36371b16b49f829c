package vfs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Gurpartap/graphfleet/agent"
	"github.com/Gurpartap/graphfleet/tooling/registry"
)

const (
	ToolLs        = "ls"
	ToolReadFile  = "read_file"
	ToolWriteFile = "write_file"
	ToolEditFile  = "edit_file"

	DefaultReadLimit = 2000
)

var (
	ErrPathInvalid    = errors.New("file path is invalid")
	ErrFileNotFound   = errors.New("file not found")
	ErrEditNotFound   = errors.New("edit target text not found")
	ErrEditAmbiguous  = errors.New("edit target text is not unique")
	ErrUnreadableFile = errors.New("file entry is not text")
)

// Tools returns ls, read_file, write_file and edit_file. now stamps
// written files; nil means time.Now.
func Tools(now func() time.Time) []registry.Tool {
	if now == nil {
		now = time.Now
	}
	fs := toolset{now: now}
	return []registry.Tool{
		{
			Definition: agent.ToolDefinition{
				Name:        ToolLs,
				Description: "List files in the virtual filesystem, optionally under a directory prefix.",
				InputSchema: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"path": map[string]any{"type": "string"},
					},
				},
			},
			Handler: fs.ls,
		},
		{
			Definition: agent.ToolDefinition{
				Name:        ToolReadFile,
				Description: "Read a file from the virtual filesystem with line numbers.",
				InputSchema: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"file_path": map[string]any{"type": "string"},
						"offset":    map[string]any{"type": "integer"},
						"limit":     map[string]any{"type": "integer"},
					},
					"required": []any{"file_path"},
				},
			},
			Handler: fs.read,
		},
		{
			Definition: agent.ToolDefinition{
				Name:        ToolWriteFile,
				Description: "Create or replace a file in the virtual filesystem.",
				InputSchema: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"file_path": map[string]any{"type": "string"},
						"content":   map[string]any{"type": "string"},
					},
					"required": []any{"file_path", "content"},
				},
			},
			Handler: fs.write,
		},
		{
			Definition: agent.ToolDefinition{
				Name:        ToolEditFile,
				Description: "Replace exact text in a virtual file. The old text must be unique unless replace_all is set.",
				InputSchema: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"file_path":   map[string]any{"type": "string"},
						"old_string":  map[string]any{"type": "string"},
						"new_string":  map[string]any{"type": "string"},
						"replace_all": map[string]any{"type": "boolean"},
					},
					"required": []any{"file_path", "old_string", "new_string"},
				},
			},
			Handler: fs.edit,
		},
	}
}

type toolset struct {
	now func() time.Time
}

func (t toolset) ls(_ context.Context, call registry.Call) (registry.Result, error) {
	prefix, err := registry.OptionalString(call.Arguments, "path", "/")
	if err != nil {
		return registry.Errorf("%v", err), nil
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	var matched []string
	for _, path := range FromValues(call.State).Paths() {
		if strings.HasPrefix(path, prefix) {
			matched = append(matched, path)
		}
	}
	if len(matched) == 0 {
		return registry.Text("No files found"), nil
	}
	return registry.Text(strings.Join(matched, "\n")), nil
}

func (t toolset) read(_ context.Context, call registry.Call) (registry.Result, error) {
	path, err := filePath(call.Arguments)
	if err != nil {
		return registry.Errorf("%v", err), nil
	}
	offset, err := registry.OptionalInt(call.Arguments, "offset", 0)
	if err != nil {
		return registry.Errorf("%v", err), nil
	}
	limit, err := registry.OptionalInt(call.Arguments, "limit", DefaultReadLimit)
	if err != nil {
		return registry.Errorf("%v", err), nil
	}

	entry, ok := FromValues(call.State)[path]
	if !ok {
		return registry.Errorf("%v: %s", ErrFileNotFound, path), nil
	}
	text, ok := TextOf(entry)
	if !ok {
		return registry.Errorf("%v: %s", ErrUnreadableFile, path), nil
	}
	if text == "" {
		return registry.Text("System reminder: File exists but has empty contents"), nil
	}
	numbered, err := numberLines(text, offset, limit)
	if err != nil {
		return registry.Errorf("%v", err), nil
	}
	return registry.Text(numbered), nil
}

func (t toolset) write(_ context.Context, call registry.Call) (registry.Result, error) {
	path, err := filePath(call.Arguments)
	if err != nil {
		return registry.Errorf("%v", err), nil
	}
	content, ok := call.Arguments["content"].(string)
	if !ok {
		return registry.Errorf("%v: argument %q must be a string", registry.ErrArgumentInvalid, "content"), nil
	}

	record := MakeFileAt(content, t.now())
	if existing, ok := RecordOf(FromValues(call.State)[path]); ok {
		record = existing.Modified(content, t.now())
	}
	return registry.Result{
		Content: fmt.Sprintf("Updated file %s", path),
		Update:  Update(Files{path: record}),
	}, nil
}

func (t toolset) edit(_ context.Context, call registry.Call) (registry.Result, error) {
	path, err := filePath(call.Arguments)
	if err != nil {
		return registry.Errorf("%v", err), nil
	}
	oldValue, okOld := call.Arguments["old_string"].(string)
	newValue, okNew := call.Arguments["new_string"].(string)
	if !okOld || !okNew || oldValue == "" {
		return registry.Errorf("%v: old_string and new_string are required", registry.ErrArgumentInvalid), nil
	}
	replaceAll, err := registry.OptionalBool(call.Arguments, "replace_all", false)
	if err != nil {
		return registry.Errorf("%v", err), nil
	}

	entry, ok := FromValues(call.State)[path]
	if !ok {
		return registry.Errorf("%v: %s", ErrFileNotFound, path), nil
	}
	text, ok := TextOf(entry)
	if !ok {
		return registry.Errorf("%v: %s", ErrUnreadableFile, path), nil
	}

	occurrences := strings.Count(text, oldValue)
	switch {
	case occurrences == 0:
		return registry.Errorf("%v: %s", ErrEditNotFound, path), nil
	case occurrences > 1 && !replaceAll:
		return registry.Errorf("%v: %s has %d matches, set replace_all or add context", ErrEditAmbiguous, path, occurrences), nil
	}

	replacements := 1
	updated := strings.Replace(text, oldValue, newValue, 1)
	if replaceAll {
		replacements = occurrences
		updated = strings.ReplaceAll(text, oldValue, newValue)
	}

	record := MakeFileAt(updated, t.now())
	if existing, ok := RecordOf(entry); ok {
		record = existing.Modified(updated, t.now())
	}
	return registry.Result{
		Content: fmt.Sprintf("Successfully replaced %d instance(s) of the string in '%s'", replacements, path),
		Update:  Update(Files{path: record}),
	}, nil
}

func filePath(arguments map[string]any) (string, error) {
	path, err := registry.StringArgument(arguments, "file_path")
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(path, "/") || strings.Contains(path, "..") {
		return "", fmt.Errorf("%w: %q must be absolute without '..'", ErrPathInvalid, path)
	}
	return path, nil
}

func numberLines(text string, offset, limit int) (string, error) {
	lines := strings.Split(text, "\n")
	if offset < 0 {
		offset = 0
	}
	if offset >= len(lines) {
		return "", fmt.Errorf("line offset %d exceeds file length (%d lines)", offset, len(lines))
	}
	end := len(lines)
	if limit > 0 && limit < end-offset {
		end = offset + limit
	}
	var b strings.Builder
	for i := offset; i < end; i++ {
		fmt.Fprintf(&b, "%6d\t%s", i+1, lines[i])
		if i < end-1 {
			b.WriteByte('\n')
		}
	}
	return b.String(), nil
}
