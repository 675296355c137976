package runtime

import (
	"fmt"
	"strings"

	"github.com/aretw0/parley/pkg/catalog"
	"github.com/aretw0/parley/pkg/domain"
)

// Navigator advances a session through the scripted dialogue tree.
type Navigator struct {
	catalog *catalog.Catalog
}

// NewNavigator creates a navigator bound to a catalog.
func NewNavigator(c *catalog.Catalog) *Navigator {
	return &Navigator{catalog: c}
}

// Advance consumes one utterance and moves the session to the next node.
// It returns the node whose response must be shown.
//
// On ErrUnrecognizedOption, ErrNodeNotFound or ErrDynamicLookupMiss the current
// node and the phase are left unchanged. A storage request of the current node
// is honored before the next node is resolved, so the answer is kept even when
// the turn fails.
//
// An option whose target is the terminal sentinel ends the scripted phase
// without moving: the session stays on the current node and a zero node is
// returned, leaving the utterance to the free-text phase.
func (n *Navigator) Advance(state *domain.SessionState, tokens []string) (domain.DialogueNode, error) {
	current, ok := n.catalog.NodeByID(state.CurrentNodeID)
	if !ok {
		return domain.DialogueNode{}, fmt.Errorf("current node '%s': %w", state.CurrentNodeID, domain.ErrNodeNotFound)
	}

	// 1. Capture
	if current.Store {
		state.RecordStorage(current.StorageKey, tokens)
	}

	// 2. Pick the edge
	nextID, err := n.resolveNextNodeID(current, tokens)
	if err != nil {
		return domain.DialogueNode{}, err
	}
	if domain.EndsScript(nextID) {
		state.MarkEnded()
		return domain.DialogueNode{}, nil
	}

	// 3. Resolve the target
	target, ok := n.catalog.NodeByID(nextID)
	if !ok {
		return domain.DialogueNode{}, fmt.Errorf("next node '%s' from '%s': %w", nextID, current.ID, domain.ErrNodeNotFound)
	}

	// 4. Dynamic lookup
	if target.ResponseKind == domain.ResponseDynamicLookup {
		target, err = n.resolveDynamic(target, state.StoredData)
		if err != nil {
			return domain.DialogueNode{}, err
		}
	}

	// 5. Terminal edge
	if target.IsTerminal() {
		state.MarkEnded()
	}

	// 6. Commit
	state.Advance(target.ID)
	return target, nil
}

func (n *Navigator) resolveNextNodeID(current domain.DialogueNode, tokens []string) (string, error) {
	switch current.Transition {
	case domain.TransitionOptions:
		text := strings.Join(tokens, " ")
		to, ok := current.Options[text]
		if !ok {
			return "", fmt.Errorf("'%s' at node '%s': %w", text, current.ID, domain.ErrUnrecognizedOption)
		}
		return to, nil
	case domain.TransitionDirect:
		// Further instructions starting with the dynamic marker follow the
		// same edge. Nothing after the marker is interpreted.
		return current.NextID, nil
	}
	return "", fmt.Errorf("node '%s' has no outgoing edge: %w", current.ID, domain.ErrNodeNotFound)
}

// resolveDynamic replaces a lookup node with the first node whose id is the
// composite of the lookup prefix and a stored answer, scanning stored data in
// chronological order.
func (n *Navigator) resolveDynamic(lookup domain.DialogueNode, stored []domain.StoredDatum) (domain.DialogueNode, error) {
	for _, datum := range stored {
		key := domain.CompositeKey(lookup.LookupPrefix, datum.Tokens)
		if node, ok := n.catalog.NodeByID(key); ok {
			return node, nil
		}
	}
	return domain.DialogueNode{}, fmt.Errorf("prefix '%s' at node '%s': %w", lookup.LookupPrefix, lookup.ID, domain.ErrDynamicLookupMiss)
}
