package catalog_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/parley/pkg/catalog"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDocs() catalog.Documents {
	return catalog.Documents{
		Dialogue: []catalog.NodeRecord{
			{ID: "HELLO", Response: "Hi there", NextResponseID: "ASK_NAME"},
			{ID: "ASK_NAME", Response: "What is your name?", NextResponseID: "ASK_MOOD", Stored: true, StorageKey: "name"},
			{ID: "ASK_MOOD", Response: "How do you feel?", NextResponseID: "none", Options: map[string]string{
				"happy": "MOOD",
				"sad":   "MOOD",
			}},
			{ID: "MOOD", Response: "$_GREETING", NextResponseID: "end"},
			{ID: "GREETING_HAPPY", Response: "Glad to hear!", NextResponseID: "end"},
		},
		Gated: []catalog.IntentRecord{
			{Response: "It is sunny.", ListOfWords: "weather today", RequiredWords: "weather"},
		},
		Ungated: []catalog.IntentRecord{
			{Response: "Hello!", ListOfWords: "hello hi hey"},
		},
	}
}

func TestBuild_CompilesSentinels(t *testing.T) {
	c, err := catalog.Build(sampleDocs())
	require.NoError(t, err)

	hello, ok := c.NodeByID("HELLO")
	require.True(t, ok)
	assert.Equal(t, domain.TransitionDirect, hello.Transition)
	assert.Equal(t, "ASK_NAME", hello.NextID)
	assert.Equal(t, domain.ResponseLiteral, hello.ResponseKind)

	ask, _ := c.NodeByID("ASK_MOOD")
	assert.Equal(t, domain.TransitionOptions, ask.Transition)
	assert.Equal(t, []string{"MOOD"}, ask.Targets())

	mood, _ := c.NodeByID("MOOD")
	assert.Equal(t, domain.ResponseDynamicLookup, mood.ResponseKind)
	assert.Equal(t, "GREETING", mood.LookupPrefix)
	assert.True(t, mood.IsTerminal())

	_, ok = c.NodeByID("MISSING")
	assert.False(t, ok)
	assert.Equal(t, "HELLO", c.EntryNodeID())
}

func TestBuild_UppercaseSentinels(t *testing.T) {
	docs := sampleDocs()
	docs.Dialogue[2].NextResponseID = "NONE"
	docs.Dialogue[4].NextResponseID = "END"

	c, err := catalog.Build(docs)
	require.NoError(t, err)

	n, _ := c.NodeByID("ASK_MOOD")
	assert.Equal(t, domain.TransitionOptions, n.Transition)
	n, _ = c.NodeByID("GREETING_HAPPY")
	assert.Equal(t, domain.TransitionTerminal, n.Transition)
}

func TestBuild_OptionTargetEnd(t *testing.T) {
	docs := sampleDocs()
	docs.Dialogue[2].Options["bye"] = " End "

	c, err := catalog.Build(docs)
	require.NoError(t, err)

	ask, _ := c.NodeByID("ASK_MOOD")
	assert.Equal(t, domain.SentinelTerminal, ask.Options["bye"])
	assert.Equal(t, []string{"MOOD"}, ask.Targets())
}

func TestBuild_IntentOrderAndWords(t *testing.T) {
	docs := sampleDocs()
	docs.Ungated = append(docs.Ungated, catalog.IntentRecord{Response: "Bye!", ListOfWords: "bye  goodbye "})

	c, err := catalog.Build(docs)
	require.NoError(t, err)

	var labels []string
	for e := range c.Entries() {
		labels = append(labels, e.Response)
	}
	assert.Equal(t, []string{"It is sunny.", "Hello!", "Bye!"}, labels)

	gated := c.Gated()
	require.Len(t, gated, 1)
	assert.Equal(t, []string{"weather"}, gated[0].RequiredWords)
	assert.False(t, gated[0].SingleResponse)

	ungated := c.Ungated()
	assert.True(t, ungated[0].SingleResponse)
	assert.Equal(t, []string{"bye", "goodbye"}, ungated[1].RecognizedWords)
	assert.Empty(t, ungated[1].RequiredWords)
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(d *catalog.Documents)
		document string
	}{
		{
			name:     "missing dialogue document",
			mutate:   func(d *catalog.Documents) { d.Dialogue = nil },
			document: catalog.DocumentDialogue,
		},
		{
			name:     "missing gated document",
			mutate:   func(d *catalog.Documents) { d.Gated = nil },
			document: catalog.DocumentGated,
		},
		{
			name:     "missing ungated document",
			mutate:   func(d *catalog.Documents) { d.Ungated = nil },
			document: catalog.DocumentUngated,
		},
		{
			name: "duplicate id",
			mutate: func(d *catalog.Documents) {
				d.Dialogue = append(d.Dialogue, catalog.NodeRecord{ID: "HELLO", Response: "again", NextResponseID: "end"})
			},
			document: catalog.DocumentDialogue,
		},
		{
			name:     "dangling direct target",
			mutate:   func(d *catalog.Documents) { d.Dialogue[0].NextResponseID = "NOWHERE" },
			document: catalog.DocumentDialogue,
		},
		{
			name:     "dangling option target",
			mutate:   func(d *catalog.Documents) { d.Dialogue[2].Options["meh"] = "NOWHERE" },
			document: catalog.DocumentDialogue,
		},
		{
			name:     "options sentinel without options",
			mutate:   func(d *catalog.Documents) { d.Dialogue[2].Options = nil },
			document: catalog.DocumentDialogue,
		},
		{
			name:     "missing entry node",
			mutate:   func(d *catalog.Documents) { d.Dialogue[0].ID = "HI" },
			document: catalog.DocumentDialogue,
		},
		{
			name:     "storage without key",
			mutate:   func(d *catalog.Documents) { d.Dialogue[1].StorageKey = "" },
			document: catalog.DocumentDialogue,
		},
		{
			name:     "empty recognized words",
			mutate:   func(d *catalog.Documents) { d.Gated[0].ListOfWords = "  " },
			document: catalog.DocumentGated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs := sampleDocs()
			tt.mutate(&docs)

			c, err := catalog.Build(docs)
			require.Error(t, err)
			assert.Nil(t, c)
			assert.ErrorIs(t, err, catalog.ErrLoad)

			var le *catalog.LoadError
			require.True(t, errors.As(err, &le))
			assert.Equal(t, tt.document, le.Document)
		})
	}
}

func TestBuild_EmptyCorporaRejected(t *testing.T) {
	docs := sampleDocs()
	docs.Gated = []catalog.IntentRecord{}
	docs.Ungated = []catalog.IntentRecord{}

	_, err := catalog.Build(docs)
	assert.ErrorIs(t, err, catalog.ErrLoad)
}

func TestBuild_IntentOnly(t *testing.T) {
	docs := sampleDocs()
	docs.Dialogue = nil

	c, err := catalog.Build(docs, catalog.IntentOnly())
	require.NoError(t, err)
	assert.True(t, c.IntentOnly())
	nodes, intents := c.Len()
	assert.Zero(t, nodes)
	assert.Equal(t, 2, intents)
}

func TestBuild_CustomEntryNode(t *testing.T) {
	docs := sampleDocs()
	docs.Dialogue[0].ID = "START"

	c, err := catalog.Build(docs, catalog.WithEntryNode("START"))
	require.NoError(t, err)
	assert.Equal(t, "START", c.EntryNodeID())
}

type stubLoader struct {
	docs catalog.Documents
	err  error
}

func (s stubLoader) Load(context.Context) (catalog.Documents, error) {
	return s.docs, s.err
}

func TestLoad(t *testing.T) {
	c, err := catalog.Load(context.Background(), stubLoader{docs: sampleDocs()})
	require.NoError(t, err)
	assert.True(t, c.Has("HELLO"))

	readErr := &catalog.LoadError{Document: catalog.DocumentGated, Err: catalog.ErrMissingDocument}
	_, err = catalog.Load(context.Background(), stubLoader{err: readErr})
	assert.ErrorIs(t, err, catalog.ErrMissingDocument)
}

func TestCatalog_ReturnsCopies(t *testing.T) {
	c, err := catalog.Build(sampleDocs())
	require.NoError(t, err)

	g := c.Gated()
	g[0].Response = "mutated"
	assert.Equal(t, "It is sunny.", c.Gated()[0].Response)
}
