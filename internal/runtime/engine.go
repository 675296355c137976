package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/parley/internal/logging"
	"github.com/aretw0/parley/pkg/catalog"
	"github.com/aretw0/parley/pkg/domain"
)

// DefaultFallbackMessage is returned when a scripted turn cannot be navigated.
const DefaultFallbackMessage = "I'm not sure how to respond to that."

// DefaultGreeting opens sessions on an intent-only catalog, which has no entry node.
const DefaultGreeting = "Hello! How can I help you?"

// Reply is the outcome of one handled utterance.
type Reply struct {
	Text   string       `json:"text"`
	Phase  domain.Phase `json:"phase"`
	NodeID string       `json:"node_id,omitempty"`

	// Score and LowConfidence are only meaningful in the free-text phase.
	Score         int  `json:"score,omitempty"`
	LowConfidence bool `json:"low_confidence,omitempty"`

	// Fallback is set when the scripted turn failed and Text is the fallback message.
	Fallback bool `json:"fallback,omitempty"`
}

// Engine is the ConversationEngine: it routes each utterance to the navigator
// or the matcher depending on the session phase.
type Engine struct {
	catalog   *catalog.Catalog
	navigator *Navigator
	matcher   *Matcher

	fallback string
	greeting string
	logger   *slog.Logger
	hooks    domain.LifecycleHooks
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithFallbackMessage overrides DefaultFallbackMessage.
func WithFallbackMessage(msg string) EngineOption {
	return func(e *Engine) {
		if msg != "" {
			e.fallback = msg
		}
	}
}

// WithGreeting overrides DefaultGreeting.
func WithGreeting(msg string) EngineOption {
	return func(e *Engine) {
		if msg != "" {
			e.greeting = msg
		}
	}
}

// NewEngine creates an engine over a loaded catalog.
func NewEngine(c *catalog.Catalog, opts ...EngineOption) *Engine {
	e := &Engine{
		catalog:   c,
		navigator: NewNavigator(c),
		matcher:   NewMatcher(c),
		fallback:  DefaultFallbackMessage,
		greeting:  DefaultGreeting,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Catalog returns the catalog the engine was built on.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

// Open creates the session state of a new connection and returns the opening message.
// An entry node that is already terminal opens the session in the free-text
// phase: its response is still the opening message, and the next utterance
// goes to the intent matcher.
func (e *Engine) Open(ctx context.Context, connectionID string) (*domain.SessionState, Reply, error) {
	if e.catalog.IntentOnly() {
		state := domain.NewSessionState(connectionID, "")
		state.MarkEnded()
		e.emitSessionOpen(ctx, state)
		return state, Reply{Text: e.greeting, Phase: state.Phase}, nil
	}

	entry, ok := e.catalog.NodeByID(e.catalog.EntryNodeID())
	if !ok {
		return nil, Reply{}, fmt.Errorf("entry node '%s': %w", e.catalog.EntryNodeID(), domain.ErrNodeNotFound)
	}

	state := domain.NewSessionState(connectionID, entry.ID)
	if entry.IsTerminal() {
		state.MarkEnded()
	}

	e.emitSessionOpen(ctx, state)
	e.emitNodeEnter(ctx, state.ConnectionID, entry)

	return state, Reply{Text: entry.Response, Phase: state.Phase, NodeID: entry.ID}, nil
}

// Handle processes one raw utterance for a session and returns the response text.
// Per-turn navigation failures are answered with the fallback message and are
// not returned as errors.
func (e *Engine) Handle(ctx context.Context, state *domain.SessionState, raw string) (Reply, error) {
	tokens := Tokenize(raw)

	if state.InDialogueTree() && !e.catalog.IntentOnly() {
		return e.handleScripted(ctx, state, tokens)
	}
	return e.handleFreeText(ctx, state, tokens), nil
}

func (e *Engine) handleScripted(ctx context.Context, state *domain.SessionState, tokens []string) (Reply, error) {
	from := state.CurrentNodeID

	node, err := e.navigator.Advance(state, tokens)
	if err != nil {
		if isTurnError(err) {
			e.logger.Warn("scripted turn not understood",
				"connection_id", state.ConnectionID,
				"node_id", from,
				"err", err,
			)
			e.emitFallback(ctx, state.ConnectionID, from, err)
			return Reply{Text: e.fallback, Phase: state.Phase, NodeID: from, Fallback: true}, nil
		}
		return Reply{}, err
	}
	if node.ID == "" {
		e.logger.Debug("script ended by option",
			"connection_id", state.ConnectionID,
			"from", from,
		)
		return e.handleFreeText(ctx, state, tokens), nil
	}

	e.logger.Debug("advanced",
		"connection_id", state.ConnectionID,
		"from", from,
		"to", node.ID,
		"phase", state.Phase,
	)
	e.emitNodeEnter(ctx, state.ConnectionID, node)

	return Reply{Text: node.Response, Phase: state.Phase, NodeID: node.ID}, nil
}

func (e *Engine) handleFreeText(ctx context.Context, state *domain.SessionState, tokens []string) Reply {
	m := e.matcher.Match(tokens)
	if m.LowConfidence {
		reached := state.NoteLowConfidence()
		e.logger.Info("fallback response triggered",
			"connection_id", state.ConnectionID,
			"label", m.Label,
			"fallback_counter", reached,
		)
	}

	e.emitIntentMatch(ctx, state.ConnectionID, m)

	return Reply{
		Text:          m.Label,
		Phase:         state.Phase,
		Score:         m.Score,
		LowConfidence: m.LowConfidence,
	}
}

// Close reports the end of a session to the hooks.
func (e *Engine) Close(ctx context.Context, state *domain.SessionState) {
	if e.hooks.OnSessionClose != nil && state != nil {
		e.hooks.OnSessionClose(ctx, &domain.SessionEvent{
			EventBase: e.base(domain.EventSessionClose, state.ConnectionID),
			Phase:     state.Phase,
		})
	}
}

func isTurnError(err error) bool {
	return errors.Is(err, domain.ErrUnrecognizedOption) ||
		errors.Is(err, domain.ErrNodeNotFound) ||
		errors.Is(err, domain.ErrDynamicLookupMiss)
}
