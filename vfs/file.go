// Package vfs is the in-state virtual filesystem shared by tools and
// middleware. Files live in the "files" state cell as a path-keyed map.
package vfs

import (
	"strings"
	"time"
)

// FileRecord is the structured form of a file: lines plus timestamps.
type FileRecord struct {
	Content    []string `json:"content"`
	CreatedAt  string   `json:"created_at"`
	ModifiedAt string   `json:"modified_at"`
}

// MakeFile builds a record from text stamped with the current time.
func MakeFile(text string) FileRecord {
	return MakeFileAt(text, time.Now())
}

// MakeFileAt builds a record from text with both timestamps set to at.
func MakeFileAt(text string, at time.Time) FileRecord {
	stamp := at.UTC().Format(time.RFC3339)
	return FileRecord{
		Content:    strings.Split(text, "\n"),
		CreatedAt:  stamp,
		ModifiedAt: stamp,
	}
}

// Text joins the record lines with newlines.
func (f FileRecord) Text() string {
	return strings.Join(f.Content, "\n")
}

// Modified returns a copy with new text and a fresh modification time.
// The creation time is kept.
func (f FileRecord) Modified(text string, at time.Time) FileRecord {
	next := MakeFileAt(text, at)
	if f.CreatedAt != "" {
		next.CreatedAt = f.CreatedAt
	}
	return next
}

// RecordOf interprets a files entry as a FileRecord. It accepts records,
// record pointers and decoded JSON objects with a string-array content.
func RecordOf(v any) (FileRecord, bool) {
	switch typed := v.(type) {
	case FileRecord:
		return typed, true
	case *FileRecord:
		if typed == nil {
			return FileRecord{}, false
		}
		return *typed, true
	case map[string]any:
		raw, ok := typed["content"].([]any)
		if !ok {
			return FileRecord{}, false
		}
		lines := make([]string, 0, len(raw))
		for _, line := range raw {
			s, ok := line.(string)
			if !ok {
				return FileRecord{}, false
			}
			lines = append(lines, s)
		}
		record := FileRecord{Content: lines}
		record.CreatedAt, _ = typed["created_at"].(string)
		record.ModifiedAt, _ = typed["modified_at"].(string)
		return record, true
	default:
		return FileRecord{}, false
	}
}

// TextOf returns the text of a files entry, which may be a record or a
// plain string.
func TextOf(v any) (string, bool) {
	if s, ok := v.(string); ok {
		return s, true
	}
	record, ok := RecordOf(v)
	if !ok {
		return "", false
	}
	return record.Text(), true
}
