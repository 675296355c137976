package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/parley/internal/presentation/graph"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func nodes() []domain.DialogueNode {
	return []domain.DialogueNode{
		{ID: "HELLO", Transition: domain.TransitionDirect, NextID: "ASK_MOOD"},
		{ID: "ASK_MOOD", Transition: domain.TransitionOptions, Options: map[string]string{"sad": "MOOD", "happy": "MOOD"}},
		{ID: "MOOD", ResponseKind: domain.ResponseDynamicLookup, LookupPrefix: "GREETING", Transition: domain.TransitionTerminal},
		{ID: "GREETING_HAPPY", Transition: domain.TransitionTerminal},
		{ID: "GREETING_SAD", Transition: domain.TransitionTerminal},
		{ID: "GREETING", Transition: domain.TransitionTerminal},
	}
}

func TestGenerateMermaid_Shapes(t *testing.T) {
	out := graph.GenerateMermaid(nodes(), "HELLO", nil)

	for _, want := range []string{
		"graph TD\n",
		`HELLO(("HELLO"))`,
		`ASK_MOOD[/"ASK_MOOD"/]`,
		`MOOD{{"MOOD"}}`,
		`GREETING_HAPPY(["GREETING_HAPPY"])`,
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "classDef")
}

func TestGenerateMermaid_Edges(t *testing.T) {
	out := graph.GenerateMermaid(nodes(), "HELLO", nil)

	assert.Contains(t, out, "HELLO --> ASK_MOOD")
	happy := strings.Index(out, `ASK_MOOD -- "happy" --> MOOD`)
	sad := strings.Index(out, `ASK_MOOD -- "sad" --> MOOD`)
	assert.True(t, happy >= 0 && sad > happy, "option edges are sorted by key")

	assert.Contains(t, out, `MOOD -. "$" .-> GREETING_HAPPY`)
	assert.Contains(t, out, `MOOD -. "$" .-> GREETING_SAD`)
	assert.NotContains(t, out, ".-> GREETING\n")
}

func TestGenerateMermaid_OptionEndingScript(t *testing.T) {
	ns := []domain.DialogueNode{
		{ID: "HELLO", Transition: domain.TransitionOptions, Options: map[string]string{"bye": domain.SentinelTerminal}},
	}
	out := graph.GenerateMermaid(ns, "HELLO", nil)

	assert.Contains(t, out, `HELLO -- "bye" --> HELLO_end(("end"))`)
	assert.NotContains(t, out, "--> end\n")
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	state := domain.NewSessionState("conn-1", "HELLO")
	state.Advance("ASK_MOOD")
	state.Advance("ASK_MOOD")

	out := graph.GenerateMermaid(nodes(), "HELLO", graph.OverlayFromSession(state))

	assert.Contains(t, out, "classDef visited")
	assert.Equal(t, 1, strings.Count(out, "class ASK_MOOD visited;"))
	assert.Contains(t, out, "class HELLO visited;")
	assert.Contains(t, out, "class ASK_MOOD current;")
}

func TestGenerateMermaid_Sanitizes(t *testing.T) {
	out := graph.GenerateMermaid([]domain.DialogueNode{
		{ID: "ask-name.v2", Transition: domain.TransitionOptions, Options: map[string]string{`say "hi"`: "end-node"}},
	}, "", nil)

	assert.Contains(t, out, `ask_name_v2[/"ask-name.v2"/]`)
	assert.Contains(t, out, `ask_name_v2 -- "say 'hi'" --> end_node`)
}

func TestLookupCandidates(t *testing.T) {
	assert.Equal(t, []string{"GREETING_HAPPY", "GREETING_SAD"}, graph.LookupCandidates(nodes(), "GREETING"))
	assert.Empty(t, graph.LookupCandidates(nodes(), ""))
}
