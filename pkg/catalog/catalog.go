package catalog

import (
	"context"
	"iter"
	"slices"

	"github.com/aretw0/parley/pkg/domain"
)

// Loader is the driven port that reads catalog documents.
// It is redeclared in package ports for adapters; both are satisfied by the same method.
type Loader interface {
	Load(ctx context.Context) (Documents, error)
}

// Catalog is the immutable ResponseCatalog.
type Catalog struct {
	nodes   map[string]domain.DialogueNode
	ids     []string
	gated   []domain.IntentEntry
	ungated []domain.IntentEntry
	entryID string

	// intentOnly is set when the dialogue graph could not be loaded.
	intentOnly bool
}

// Load reads the documents from loader and builds a catalog.
// Read failures reported by the loader are returned as they are.
func Load(ctx context.Context, loader Loader, opts ...BuildOption) (*Catalog, error) {
	docs, err := loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	return Build(docs, opts...)
}

// NodeByID looks up a dialogue node.
func (c *Catalog) NodeByID(id string) (domain.DialogueNode, bool) {
	n, ok := c.nodes[id]
	return n, ok
}

// Has reports whether a node with the given id exists.
func (c *Catalog) Has(id string) bool {
	_, ok := c.nodes[id]
	return ok
}

// EntryNodeID returns the node every new session starts at.
func (c *Catalog) EntryNodeID() string {
	return c.entryID
}

// IntentOnly reports whether the catalog was built without a dialogue graph.
func (c *Catalog) IntentOnly() bool {
	return c.intentOnly
}

// Nodes returns all dialogue nodes ordered by id.
func (c *Catalog) Nodes() []domain.DialogueNode {
	out := make([]domain.DialogueNode, 0, len(c.ids))
	for _, id := range c.ids {
		out = append(out, c.nodes[id])
	}
	return out
}

// Gated returns the gated intent entries in load order.
func (c *Catalog) Gated() []domain.IntentEntry {
	return slices.Clone(c.gated)
}

// Ungated returns the ungated intent entries in load order.
func (c *Catalog) Ungated() []domain.IntentEntry {
	return slices.Clone(c.ungated)
}

// Entries iterates over every intent entry: gated entries first, then ungated,
// each in load order. Tie-breaking in the matcher depends on this order.
func (c *Catalog) Entries() iter.Seq[domain.IntentEntry] {
	return func(yield func(domain.IntentEntry) bool) {
		for _, e := range c.gated {
			if !yield(e) {
				return
			}
		}
		for _, e := range c.ungated {
			if !yield(e) {
				return
			}
		}
	}
}

// Len returns the number of dialogue nodes and intent entries.
func (c *Catalog) Len() (nodes, intents int) {
	return len(c.nodes), len(c.gated) + len(c.ungated)
}
