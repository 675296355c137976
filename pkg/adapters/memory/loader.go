package memory

import (
	"context"

	"github.com/aretw0/parley/pkg/catalog"
)

// Loader implements ports.CatalogLoader over documents held in memory.
type Loader struct {
	docs catalog.Documents
}

// NewLoader creates a loader that always returns the given documents.
func NewLoader(docs catalog.Documents) *Loader {
	return &Loader{docs: docs}
}

// Load returns copies of the documents. Nil documents stay nil so catalog.Build reports them missing.
func (l *Loader) Load(ctx context.Context) (catalog.Documents, error) {
	if err := ctx.Err(); err != nil {
		return catalog.Documents{}, err
	}
	out := catalog.Documents{
		Gated:   cloneSlice(l.docs.Gated),
		Ungated: cloneSlice(l.docs.Ungated),
	}
	if l.docs.Dialogue != nil {
		out.Dialogue = make([]catalog.NodeRecord, len(l.docs.Dialogue))
		for i, rec := range l.docs.Dialogue {
			if rec.Options != nil {
				opts := make(map[string]string, len(rec.Options))
				for k, v := range rec.Options {
					opts[k] = v
				}
				rec.Options = opts
			}
			out.Dialogue[i] = rec
		}
	}
	return out, nil
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	return append(make([]T, 0, len(s)), s...)
}
