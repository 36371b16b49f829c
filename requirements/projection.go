package requirements

import (
	"context"
	"log/slog"

	"github.com/Gurpartap/graphfleet/state"
	"github.com/Gurpartap/graphfleet/vfs"
)

// Path is the projection of the collected_requirements cell in the
// virtual filesystem.
const Path = "/requirements.json"

// Initializer creates an empty requirements file before the agent runs.
type Initializer struct {
	logger *slog.Logger
}

func NewInitializer(logger *slog.Logger) *Initializer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Initializer{logger: logger}
}

func (*Initializer) Name() string { return "requirements_initializer" }

// BeforeAgent emits a files delta only when Path is absent.
func (i *Initializer) BeforeAgent(_ context.Context, values state.Values) (state.Update, error) {
	if _, exists := vfs.FromValues(values)[Path]; exists {
		return nil, nil
	}
	i.logger.Debug("creating requirements file", "path", Path)
	return vfs.Update(vfs.Files{Path: vfs.MakeFile("{}")}), nil
}

// Serializer flattens every file to a plain string and rewrites Path from
// the committed requirements cell.
type Serializer struct {
	logger *slog.Logger
}

func NewSerializer(logger *slog.Logger) *Serializer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Serializer{logger: logger}
}

func (*Serializer) Name() string { return "file_serializer" }

func (s *Serializer) AfterAgent(_ context.Context, values state.Values) (state.Update, error) {
	return vfs.Update(s.Project(values)), nil
}

// Project returns the serialized files map for values without touching
// them. Entries that are neither records nor strings are kept as they are.
func (s *Serializer) Project(values state.Values) vfs.Files {
	files := vfs.FromValues(values)
	out := make(vfs.Files, len(files)+1)
	for _, path := range files.Paths() {
		entry := files[path]
		if text, ok := entry.(string); ok {
			out[path] = text
			continue
		}
		if record, ok := vfs.RecordOf(entry); ok {
			out[path] = record.Text()
			continue
		}
		s.logger.Warn("keeping file with unexpected shape", "path", path)
		out[path] = entry
	}

	pretty, err := FromValues(values).Pretty()
	if err != nil {
		s.logger.Error("render requirements failed", "path", Path, "err", err)
		return out
	}
	out[Path] = pretty
	s.logger.Info("serialized files", "count", len(out))
	return out
}
