package catalog

import (
	"errors"
	"sort"
	"strconv"
	"strings"

	"github.com/aretw0/parley/pkg/domain"
)

type buildConfig struct {
	entryID    string
	intentOnly bool
}

// BuildOption configures Build.
type BuildOption func(*buildConfig)

// WithEntryNode overrides the well-known entry node (default: "HELLO").
func WithEntryNode(id string) BuildOption {
	return func(c *buildConfig) {
		if id != "" {
			c.entryID = id
		}
	}
}

// IntentOnly builds a degraded catalog from the intent corpora alone.
// The dialogue graph document is ignored.
func IntentOnly() BuildOption {
	return func(c *buildConfig) {
		c.intentOnly = true
	}
}

// Build compiles and validates catalog documents.
// Every failure is a *LoadError; several failures are joined.
func Build(docs Documents, opts ...BuildOption) (*Catalog, error) {
	cfg := buildConfig{entryID: domain.EntryNodeID}
	for _, opt := range opts {
		opt(&cfg)
	}

	c := &Catalog{
		nodes:      make(map[string]domain.DialogueNode),
		entryID:    cfg.entryID,
		intentOnly: cfg.intentOnly,
	}

	var errs []error
	if !cfg.intentOnly {
		if err := c.compileGraph(docs.Dialogue); err != nil {
			errs = append(errs, err)
		}
	}

	gated, err := compileIntents(DocumentGated, docs.Gated, false)
	if err != nil {
		errs = append(errs, err)
	}
	ungated, err := compileIntents(DocumentUngated, docs.Ungated, true)
	if err != nil {
		errs = append(errs, err)
	}
	c.gated, c.ungated = gated, ungated

	if len(errs) == 0 && len(c.gated)+len(c.ungated) == 0 {
		errs = append(errs, loadErrorf(DocumentUngated, "no intent entries in either corpus"))
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return c, nil
}

func (c *Catalog) compileGraph(records []NodeRecord) error {
	if records == nil {
		return &LoadError{Document: DocumentDialogue, Err: ErrMissingDocument}
	}

	var problems []string
	for i, rec := range records {
		node, err := compileNode(rec)
		if err != nil {
			problems = append(problems, "record "+strconv.Itoa(i)+": "+err.Error())
			continue
		}
		if _, dup := c.nodes[node.ID]; dup {
			problems = append(problems, "duplicate node id '"+node.ID+"'")
			continue
		}
		c.nodes[node.ID] = node
		c.ids = append(c.ids, node.ID)
	}
	sort.Strings(c.ids)

	for _, id := range c.ids {
		for _, to := range c.nodes[id].Targets() {
			if _, ok := c.nodes[to]; !ok {
				problems = append(problems, "node '"+id+"' points to unknown node '"+to+"'")
			}
		}
	}

	if _, ok := c.nodes[c.entryID]; !ok {
		problems = append(problems, "entry node '"+c.entryID+"' not found")
	}

	if len(problems) > 0 {
		return loadErrorf(DocumentDialogue, "%s", strings.Join(problems, "; "))
	}
	return nil
}

func compileNode(rec NodeRecord) (domain.DialogueNode, error) {
	node := domain.DialogueNode{
		ID:                  rec.ID,
		Response:            rec.Response,
		ResponseKind:        domain.ResponseLiteral,
		Store:               rec.Stored,
		StorageKey:          rec.StorageKey,
		FurtherInstructions: rec.FurtherInstructions,
	}
	if rec.ID == "" {
		return node, errors.New("missing id")
	}
	if rec.Response == "" {
		return node, errors.New("node '" + rec.ID + "' has an empty response")
	}
	if rec.Stored && rec.StorageKey == "" {
		return node, errors.New("node '" + rec.ID + "' requests storage without a storage_key")
	}

	if rest, ok := strings.CutPrefix(rec.Response, domain.DynamicMarker); ok {
		node.ResponseKind = domain.ResponseDynamicLookup
		node.LookupPrefix = strings.TrimPrefix(rest, "_")
	}

	switch next := strings.TrimSpace(rec.NextResponseID); {
	case strings.EqualFold(next, domain.SentinelOptions):
		if len(rec.Options) == 0 {
			return node, errors.New("node '" + rec.ID + "' dispatches on options but defines none")
		}
		node.Transition = domain.TransitionOptions
		node.Options = make(map[string]string, len(rec.Options))
		for k, v := range rec.Options {
			if strings.EqualFold(strings.TrimSpace(v), domain.SentinelTerminal) {
				v = domain.SentinelTerminal
			}
			node.Options[k] = v
		}
	case strings.EqualFold(next, domain.SentinelTerminal):
		node.Transition = domain.TransitionTerminal
	case next == "":
		return node, errors.New("node '" + rec.ID + "' has no next_response_id")
	default:
		node.Transition = domain.TransitionDirect
		node.NextID = next
	}
	return node, nil
}

func compileIntents(document string, records []IntentRecord, single bool) ([]domain.IntentEntry, error) {
	if records == nil {
		return nil, &LoadError{Document: document, Err: ErrMissingDocument}
	}

	entries := make([]domain.IntentEntry, 0, len(records))
	var problems []string
	for i, rec := range records {
		if rec.Response == "" {
			problems = append(problems, "record "+strconv.Itoa(i)+": missing response")
			continue
		}
		recognized := splitWords(rec.ListOfWords)
		if len(recognized) == 0 {
			problems = append(problems, "record "+strconv.Itoa(i)+" ('"+rec.Response+"'): empty listOfWords")
			continue
		}
		entry := domain.IntentEntry{
			Response:        rec.Response,
			RecognizedWords: recognized,
			SingleResponse:  single,
		}
		if !single {
			entry.RequiredWords = splitWords(rec.RequiredWords)
		}
		entries = append(entries, entry)
	}
	if len(problems) > 0 {
		return nil, loadErrorf(document, "%s", strings.Join(problems, "; "))
	}
	return entries, nil
}

// splitWords splits a space-delimited word list, dropping empty fragments.
func splitWords(s string) []string {
	parts := strings.Split(s, " ")
	words := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			words = append(words, p)
		}
	}
	return words
}
