// Package validator reports catalog problems that loading accepts but that
// make parts of a conversation unreachable or unmatchable.
package validator

import (
	"fmt"
	"strings"

	"github.com/aretw0/parley/internal/presentation/graph"
	"github.com/aretw0/parley/internal/runtime"
	"github.com/aretw0/parley/pkg/catalog"
	"github.com/aretw0/parley/pkg/domain"
)

// Issue is a single finding.
type Issue struct {
	NodeID  string `json:"node_id,omitempty"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	if i.NodeID == "" {
		return i.Message
	}
	return fmt.Sprintf("%s: %s", i.NodeID, i.Message)
}

// Report collects the findings of Validate.
type Report struct {
	Issues []Issue `json:"issues"`
}

// OK reports whether nothing was found.
func (r Report) OK() bool {
	return len(r.Issues) == 0
}

// Err returns the findings as a single error, or nil.
func (r Report) Err() error {
	if r.OK() {
		return nil
	}
	lines := make([]string, len(r.Issues))
	for i, issue := range r.Issues {
		lines[i] = issue.String()
	}
	return fmt.Errorf("found %d issues:\n- %s", len(r.Issues), strings.Join(lines, "\n- "))
}

func (r *Report) add(nodeID, format string, args ...any) {
	r.Issues = append(r.Issues, Issue{NodeID: nodeID, Message: fmt.Sprintf(format, args...)})
}

// Validate inspects a loaded catalog.
func Validate(c *catalog.Catalog) Report {
	var r Report
	if !c.IntentOnly() {
		nodes := c.Nodes()
		checkReachability(&r, c, nodes)
		checkOptionKeys(&r, nodes)
		checkLookups(&r, nodes)
	}
	checkIntentWords(&r, c)
	return r
}

// checkReachability walks the graph from the entry node, following direct
// edges, option edges and every node a dynamic lookup may resolve to.
func checkReachability(r *Report, c *catalog.Catalog, nodes []domain.DialogueNode) {
	visited := map[string]bool{}
	queue := []string{c.EntryNodeID()}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited[id] {
			continue
		}
		visited[id] = true

		node, ok := c.NodeByID(id)
		if !ok {
			continue
		}
		next := node.Targets()
		if node.ResponseKind == domain.ResponseDynamicLookup {
			next = append(next, graph.LookupCandidates(nodes, node.LookupPrefix)...)
		}
		for _, to := range next {
			if !visited[to] {
				queue = append(queue, to)
			}
		}
	}

	for _, n := range nodes {
		if !visited[n.ID] {
			r.add(n.ID, "unreachable from '%s'", c.EntryNodeID())
		}
	}
}

// checkOptionKeys flags keys that no tokenized utterance can ever equal.
func checkOptionKeys(r *Report, nodes []domain.DialogueNode) {
	for _, n := range nodes {
		for _, key := range domain.SortedKeys(n.Options) {
			if normalized := strings.Join(runtime.Tokenize(key), " "); normalized != key {
				r.add(n.ID, "option '%s' can never match; users typing it produce '%s'", key, normalized)
			}
		}
	}
}

func checkLookups(r *Report, nodes []domain.DialogueNode) {
	stores := false
	for _, n := range nodes {
		stores = stores || n.Store
	}

	for _, n := range nodes {
		if n.ResponseKind != domain.ResponseDynamicLookup {
			continue
		}
		if len(graph.LookupCandidates(nodes, n.LookupPrefix)) == 0 {
			r.add(n.ID, "dynamic lookup '%s' has no candidate nodes", n.Response)
		}
		if !stores {
			r.add(n.ID, "dynamic lookup '%s' but no node stores an answer", n.Response)
		}
	}

	for _, n := range nodes {
		if n.FurtherInstructions != "" && !n.HasDynamicInstruction() {
			r.add(n.ID, "further_instructions '%s' is ignored", n.FurtherInstructions)
		}
	}
}

// checkIntentWords flags recognized or required words that tokenization can never produce.
func checkIntentWords(r *Report, c *catalog.Catalog) {
	for entry := range c.Entries() {
		words := append(append([]string{}, entry.RecognizedWords...), entry.RequiredWords...)
		for _, w := range words {
			if tokens := runtime.Tokenize(w); len(tokens) != 1 || tokens[0] != w {
				r.add("", "intent '%s': word '%s' can never match", entry.Response, w)
			}
		}
	}
}
