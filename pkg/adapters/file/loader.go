// Package file reads catalog documents from JSON or YAML files.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/parley/internal/logging"
	"github.com/aretw0/parley/pkg/catalog"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Default file names of the three catalog documents.
const (
	DefaultDialogueFile = "conversation.json"
	DefaultGatedFile    = "responses.json"
	DefaultUngatedFile  = "single_responses.json"
)

// Loader implements ports.CatalogLoader over three files on disk.
type Loader struct {
	DialoguePath string
	GatedPath    string
	UngatedPath  string

	logger *slog.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLogger sets the logger used to report unreadable documents.
func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLoader creates a loader for the given paths.
// Empty paths fall back to the default file names.
func NewLoader(dialogue, gated, ungated string, opts ...LoaderOption) *Loader {
	l := &Loader{
		DialoguePath: orDefault(dialogue, DefaultDialogueFile),
		GatedPath:    orDefault(gated, DefaultGatedFile),
		UngatedPath:  orDefault(ungated, DefaultUngatedFile),
		logger:       logging.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NewDirLoader creates a loader for the default file names inside dir.
func NewDirLoader(dir string, opts ...LoaderOption) *Loader {
	return NewLoader(
		filepath.Join(dir, DefaultDialogueFile),
		filepath.Join(dir, DefaultGatedFile),
		filepath.Join(dir, DefaultUngatedFile),
		opts...,
	)
}

// Paths returns the three document paths in load order.
func (l *Loader) Paths() []string {
	return []string{l.DialoguePath, l.GatedPath, l.UngatedPath}
}

// Load reads every document it can.
// A document that cannot be read or decoded is left nil in the result and
// reported as a *catalog.LoadError; the errors of all documents are joined.
func (l *Loader) Load(ctx context.Context) (catalog.Documents, error) {
	var docs catalog.Documents
	var errs []error

	if err := readDocument(ctx, l.DialoguePath, catalog.DocumentDialogue, &docs.Dialogue); err != nil {
		errs = append(errs, err)
	}
	if err := readDocument(ctx, l.GatedPath, catalog.DocumentGated, &docs.Gated); err != nil {
		errs = append(errs, err)
	}
	if err := readDocument(ctx, l.UngatedPath, catalog.DocumentUngated, &docs.Ungated); err != nil {
		errs = append(errs, err)
	}

	for _, err := range errs {
		l.logger.Warn("catalog document unavailable", "err", err)
	}
	return docs, errors.Join(errs...)
}

// readDocument decodes one file into out. out stays nil on failure.
func readDocument[T any](ctx context.Context, path, document string, out *[]T) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &catalog.LoadError{Document: document, Err: fmt.Errorf("%s: %w", path, catalog.ErrMissingDocument)}
		}
		return &catalog.LoadError{Document: document, Err: err}
	}

	raw, err := decodeRaw(path, data)
	if err != nil {
		return &catalog.LoadError{Document: document, Err: fmt.Errorf("%s: %w", path, err)}
	}

	records, err := decodeRecords[T](raw)
	if err != nil {
		return &catalog.LoadError{Document: document, Err: fmt.Errorf("%s: %w", path, err)}
	}
	*out = records
	return nil
}

// decodeRaw parses a top-level array of objects, choosing the syntax by extension.
func decodeRaw(path string, data []byte) ([]map[string]any, error) {
	var raw []map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("invalid yaml: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("invalid json: %w", err)
		}
	}
	if raw == nil {
		return nil, errors.New("document must be an array of records")
	}
	return raw, nil
}

func decodeRecords[T any](raw []map[string]any) ([]T, error) {
	out := make([]T, len(raw))
	for i, m := range raw {
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           &out[i],
			TagName:          "mapstructure",
			WeaklyTypedInput: true,
		})
		if err != nil {
			return nil, err
		}
		if err := decoder.Decode(m); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
	}
	return out, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
