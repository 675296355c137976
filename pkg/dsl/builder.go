package dsl

import (
	"strings"

	"github.com/aretw0/parley/pkg/adapters/memory"
	"github.com/aretw0/parley/pkg/catalog"
)

// Builder manages the catalog construction. Nodes keep the order in which
// they were first added.
type Builder struct {
	nodes   []*NodeBuilder
	index   map[string]*NodeBuilder
	gated   []catalog.IntentRecord
	ungated []catalog.IntentRecord
}

// New creates a new catalog builder.
func New() *Builder {
	return &Builder{
		index:   make(map[string]*NodeBuilder),
		gated:   []catalog.IntentRecord{},
		ungated: []catalog.IntentRecord{},
	}
}

// Node creates a dialogue node.
// If the node already exists, it returns the existing builder.
func (b *Builder) Node(id string) *NodeBuilder {
	if nb, ok := b.index[id]; ok {
		return nb
	}
	nb := &NodeBuilder{record: catalog.NodeRecord{ID: id}}
	b.nodes = append(b.nodes, nb)
	b.index[id] = nb
	return nb
}

// Gated adds an intent that only matches when every required word is present.
func (b *Builder) Gated(response string, words, required []string) *Builder {
	b.gated = append(b.gated, catalog.IntentRecord{
		Response:      response,
		ListOfWords:   strings.Join(words, " "),
		RequiredWords: strings.Join(required, " "),
	})
	return b
}

// Ungated adds an intent matched on word overlap alone.
func (b *Builder) Ungated(response string, words ...string) *Builder {
	b.ungated = append(b.ungated, catalog.IntentRecord{
		Response:    response,
		ListOfWords: strings.Join(words, " "),
	})
	return b
}

// Documents returns the catalog documents described so far.
func (b *Builder) Documents() catalog.Documents {
	dialogue := make([]catalog.NodeRecord, len(b.nodes))
	for i, nb := range b.nodes {
		dialogue[i] = nb.Record()
	}
	return catalog.Documents{
		Dialogue: dialogue,
		Gated:    append([]catalog.IntentRecord{}, b.gated...),
		Ungated:  append([]catalog.IntentRecord{}, b.ungated...),
	}
}

// Build compiles the documents into a catalog.
func (b *Builder) Build(opts ...catalog.BuildOption) (*catalog.Catalog, error) {
	return catalog.Build(b.Documents(), opts...)
}

// Loader returns an in-memory loader serving a snapshot of the documents.
func (b *Builder) Loader() *memory.Loader {
	return memory.NewLoader(b.Documents())
}
