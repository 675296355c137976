package domain

// Phase distinguishes the scripted tree traversal from free-text matching.
type Phase string

const (
	PhaseDialogueTree Phase = "dialogue_tree" // Scripted, handled by the navigator
	PhaseFreeText     Phase = "free_text"     // Keyword matching, irreversible
)

// MaxFallbackCounter bounds SessionState.FallbackCounter.
const MaxFallbackCounter = 3

// StoredDatum is one captured turn: the storage key requested by the node
// that prompted it and the normalized tokens the user answered with.
type StoredDatum struct {
	Key    string   `json:"key"`
	Tokens []string `json:"tokens"`
}

// SessionState represents the mutable record of one connection.
// It must only be mutated through RecordStorage, Advance, MarkEnded and NoteLowConfidence.
type SessionState struct {
	ConnectionID string `json:"connection_id"`

	// CurrentNodeID is the identifier of the active dialogue node.
	CurrentNodeID string `json:"current_node_id"`

	// StoredData is append-only and kept in chronological order.
	StoredData []StoredDatum `json:"stored_data"`

	Phase Phase `json:"phase"`

	// FallbackCounter counts consecutive low-confidence turns, bounded to MaxFallbackCounter.
	// It is reset in the same turn it is incremented and gates nothing.
	FallbackCounter int `json:"fallback_counter"`

	// History tracks the nodes visited, for debugging and graph overlays.
	History []string `json:"history"`
}

// NewSessionState creates a clean state for a connection starting at a specific node.
func NewSessionState(connectionID, startNodeID string) *SessionState {
	return &SessionState{
		ConnectionID:  connectionID,
		CurrentNodeID: startNodeID,
		StoredData:    []StoredDatum{},
		Phase:         PhaseDialogueTree,
		History:       []string{startNodeID},
	}
}

// InDialogueTree reports whether the session is still in the scripted phase.
func (s *SessionState) InDialogueTree() bool {
	return s.Phase != PhaseFreeText
}

// RecordStorage appends a captured answer.
func (s *SessionState) RecordStorage(key string, tokens []string) {
	recorded := make([]string, len(tokens))
	copy(recorded, tokens)
	s.StoredData = append(s.StoredData, StoredDatum{Key: key, Tokens: recorded})
}

// Advance commits nodeID as the current node.
func (s *SessionState) Advance(nodeID string) {
	s.CurrentNodeID = nodeID
	s.History = append(s.History, nodeID)
}

// MarkEnded flips the session into the free-text phase. There is no way back.
func (s *SessionState) MarkEnded() {
	s.Phase = PhaseFreeText
}

// NoteLowConfidence records a low-confidence turn and returns the counter value
// reached before it was reset. The counter gates nothing.
func (s *SessionState) NoteLowConfidence() int {
	if s.FallbackCounter < MaxFallbackCounter {
		s.FallbackCounter++
	}
	reached := s.FallbackCounter
	s.FallbackCounter = 0
	return reached
}

// Clone returns a deep copy, used by stores to keep callers from aliasing stored state.
func (s *SessionState) Clone() *SessionState {
	if s == nil {
		return nil
	}
	next := *s
	next.StoredData = make([]StoredDatum, len(s.StoredData))
	for i, d := range s.StoredData {
		tokens := make([]string, len(d.Tokens))
		copy(tokens, d.Tokens)
		next.StoredData[i] = StoredDatum{Key: d.Key, Tokens: tokens}
	}
	next.History = make([]string, len(s.History))
	copy(next.History, s.History)
	return &next
}
