package catalog

// NodeRecord is the wire shape of one dialogue-graph record.
// Tags follow the field names of the catalog documents.
type NodeRecord struct {
	ID                  string            `json:"id" yaml:"id" mapstructure:"id"`
	Response            string            `json:"response" yaml:"response" mapstructure:"response"`
	NextResponseID      string            `json:"next_response_id" yaml:"next_response_id" mapstructure:"next_response_id"`
	Stored              bool              `json:"stored" yaml:"stored" mapstructure:"stored"`
	StorageKey          string            `json:"storage_key" yaml:"storage_key" mapstructure:"storage_key"`
	FurtherInstructions string            `json:"further_instructions" yaml:"further_instructions" mapstructure:"further_instructions"`
	Options             map[string]string `json:"options,omitempty" yaml:"options,omitempty" mapstructure:"options"`
}

// IntentRecord is the wire shape of one intent-corpus record.
// Word lists are space-delimited strings. RequiredWords is ignored for ungated corpora.
type IntentRecord struct {
	Response      string `json:"response" yaml:"response" mapstructure:"response"`
	ListOfWords   string `json:"listOfWords" yaml:"listOfWords" mapstructure:"listOfWords"`
	RequiredWords string `json:"requiredWords,omitempty" yaml:"requiredWords,omitempty" mapstructure:"requiredWords"`
}

// Documents groups the three catalog documents as read by a loader.
// A nil slice means the document was absent or could not be read.
type Documents struct {
	Dialogue []NodeRecord
	Gated    []IntentRecord
	Ungated  []IntentRecord
}
