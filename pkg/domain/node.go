package domain

import "strings"

// EntryNodeID is the well-known node every session starts at.
const EntryNodeID = "HELLO"

// Raw sentinels used by catalog documents in the next_response_id field.
// They are only interpreted at load time; the runtime works on TransitionKind.
const (
	SentinelOptions  = "none"
	SentinelTerminal = "end"
)

// DynamicMarker is the leading character of a response that is resolved
// from stored data instead of being shown to the user.
const DynamicMarker = "$"

// ResponseKind tells how a node's response field must be interpreted.
type ResponseKind string

const (
	// ResponseLiteral is shown to the user as-is.
	ResponseLiteral ResponseKind = "literal"
	// ResponseDynamicLookup names a key prefix resolved against stored data.
	ResponseDynamicLookup ResponseKind = "dynamic_lookup"
)

// TransitionKind defines how the navigator leaves a node.
type TransitionKind string

const (
	// TransitionDirect jumps to NextID unconditionally.
	TransitionDirect TransitionKind = "direct"
	// TransitionOptions dispatches on the literal user text through Options.
	TransitionOptions TransitionKind = "options"
	// TransitionTerminal marks the end of the scripted tree.
	TransitionTerminal TransitionKind = "terminal"
)

// DialogueNode represents a compiled step of the dialogue tree.
type DialogueNode struct {
	ID string `json:"id" yaml:"id"`

	// Response holds the raw response field as written in the catalog.
	Response     string       `json:"response" yaml:"response"`
	ResponseKind ResponseKind `json:"response_kind" yaml:"response_kind"`
	// LookupPrefix is set for ResponseDynamicLookup nodes.
	LookupPrefix string `json:"lookup_prefix,omitempty" yaml:"lookup_prefix,omitempty"`

	Transition TransitionKind `json:"transition" yaml:"transition"`
	// NextID is the target of TransitionDirect nodes.
	NextID string `json:"next_id,omitempty" yaml:"next_id,omitempty"`
	// Options maps literal user text to a target node for TransitionOptions nodes.
	Options map[string]string `json:"options,omitempty" yaml:"options,omitempty"`

	Store      bool   `json:"stored" yaml:"stored"`
	StorageKey string `json:"storage_key,omitempty" yaml:"storage_key,omitempty"`

	// FurtherInstructions is kept verbatim. Only its first character is ever inspected.
	FurtherInstructions string `json:"further_instructions,omitempty" yaml:"further_instructions,omitempty"`
}

// IsTerminal reports whether reaching this node ends the scripted phase.
func (n DialogueNode) IsTerminal() bool {
	return n.Transition == TransitionTerminal
}

// HasDynamicInstruction reports whether the further instructions start with the dynamic marker.
func (n DialogueNode) HasDynamicInstruction() bool {
	return strings.HasPrefix(n.FurtherInstructions, DynamicMarker)
}

// EndsScript reports whether an option target is the terminal sentinel.
func EndsScript(target string) bool {
	return target == SentinelTerminal
}

// Targets returns every node id reachable in one step from this node, in a stable order.
// Option targets that end the script are not nodes and are left out.
func (n DialogueNode) Targets() []string {
	switch n.Transition {
	case TransitionDirect:
		return []string{n.NextID}
	case TransitionOptions:
		targets := make([]string, 0, len(n.Options))
		seen := make(map[string]bool, len(n.Options))
		for _, key := range SortedKeys(n.Options) {
			to := n.Options[key]
			if !seen[to] && !EndsScript(to) {
				seen[to] = true
				targets = append(targets, to)
			}
		}
		return targets
	}
	return nil
}
