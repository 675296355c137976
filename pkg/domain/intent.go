package domain

// IntentEntry is a keyword pattern of the free-text phase.
// Response doubles as the entry identifier and the text surfaced to the user.
type IntentEntry struct {
	Response        string   `json:"response" yaml:"response"`
	RecognizedWords []string `json:"recognized_words" yaml:"recognized_words"`
	RequiredWords   []string `json:"required_words,omitempty" yaml:"required_words,omitempty"`

	// SingleResponse bypasses required-word gating (ungated, "greeting-style" entries).
	SingleResponse bool `json:"single_response" yaml:"single_response"`
}
