package dsl

import (
	"github.com/aretw0/parley/pkg/catalog"
	"github.com/aretw0/parley/pkg/domain"
)

// NodeBuilder provides a fluent API for configuring a dialogue node.
type NodeBuilder struct {
	record catalog.NodeRecord
}

// Say sets the literal response of the node.
func (n *NodeBuilder) Say(response string) *NodeBuilder {
	n.record.Response = response
	return n
}

// Lookup makes the node answer with the node whose id joins prefix and a
// stored answer (e.g. GREETING_HAPPY for prefix GREETING and answer "happy").
func (n *NodeBuilder) Lookup(prefix string) *NodeBuilder {
	n.record.Response = domain.DynamicMarker + "_" + prefix
	return n
}

// SaveTo stores the user's answer to this node under key.
func (n *NodeBuilder) SaveTo(key string) *NodeBuilder {
	n.record.Stored = true
	n.record.StorageKey = key
	return n
}

// Go adds an unconditional edge to the target node.
func (n *NodeBuilder) Go(target string) *NodeBuilder {
	n.record.NextResponseID = target
	n.record.Options = nil
	return n
}

// Option adds an edge taken when the tokenized answer equals answer.
func (n *NodeBuilder) Option(answer, target string) *NodeBuilder {
	n.record.NextResponseID = domain.SentinelOptions
	if n.record.Options == nil {
		n.record.Options = make(map[string]string)
	}
	n.record.Options[answer] = target
	return n
}

// Instructions sets the free-form further instructions of the node.
func (n *NodeBuilder) Instructions(text string) *NodeBuilder {
	n.record.FurtherInstructions = text
	return n
}

// Terminal ends the scripted phase after this node.
func (n *NodeBuilder) Terminal() *NodeBuilder {
	n.record.NextResponseID = domain.SentinelTerminal
	n.record.Options = nil
	return n
}

// Record returns a copy of the underlying record.
func (n *NodeBuilder) Record() catalog.NodeRecord {
	rec := n.record
	if n.record.Options != nil {
		rec.Options = make(map[string]string, len(n.record.Options))
		for k, v := range n.record.Options {
			rec.Options[k] = v
		}
	}
	return rec
}
