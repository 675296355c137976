package parley

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"

	"github.com/aretw0/parley/internal/logging"
	"github.com/aretw0/parley/internal/runtime"
	"github.com/aretw0/parley/pkg/adapters/file"
	"github.com/aretw0/parley/pkg/adapters/memory"
	"github.com/aretw0/parley/pkg/catalog"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
	"github.com/aretw0/parley/pkg/session"
)

// Reply is the outcome of one handled utterance.
type Reply = runtime.Reply

// Default response texts.
const (
	DefaultFallbackMessage = runtime.DefaultFallbackMessage
	DefaultGreeting        = runtime.DefaultGreeting
)

// ErrWatchUnsupported is returned by Watch when the loader cannot observe changes.
var ErrWatchUnsupported = errors.New("current loader does not support watching")

// Engine is the high-level entry point of the library.
// It owns the catalog, the live sessions and the conversation runtime, and
// exposes the three session events a transport needs.
type Engine struct {
	runtime  atomic.Pointer[runtime.Engine]
	degraded atomic.Bool

	loader       ports.CatalogLoader
	store        ports.SessionStore
	locker       ports.DistributedLocker
	sessions     *session.Manager
	buildOpts    []catalog.BuildOption
	runtimeOpts  []runtime.EngineOption
	hooks        domain.LifecycleHooks
	logger       *slog.Logger
	degradedMode bool
	maxInputSize int
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLoader injects the catalog loader. The default reads the three JSON
// documents from the working directory.
func WithLoader(l ports.CatalogLoader) Option {
	return func(e *Engine) {
		e.loader = l
	}
}

// WithCatalogDir reads the default catalog file names from dir.
func WithCatalogDir(dir string) Option {
	return func(e *Engine) {
		e.loader = file.NewDirLoader(dir)
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithStore sets where live sessions are kept (default: in memory).
func WithStore(store ports.SessionStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithLocker serializes turns of one connection across replicas.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = locker
	}
}

// WithEntryNode configures the node new sessions start at (default: "HELLO").
func WithEntryNode(nodeID string) Option {
	return func(e *Engine) {
		e.buildOpts = append(e.buildOpts, catalog.WithEntryNode(nodeID))
	}
}

// WithFallbackMessage overrides the reply to scripted turns that cannot be navigated.
func WithFallbackMessage(msg string) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithFallbackMessage(msg))
	}
}

// WithGreeting overrides the opening message of intent-only sessions.
func WithGreeting(msg string) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithGreeting(msg))
	}
}

// WithDegradedMode keeps the engine up when the catalog cannot be fully loaded.
// Without a dialogue graph it answers from the intent corpora only; without
// those it reports domain.ErrUnavailable on every session event.
func WithDegradedMode(enabled bool) Option {
	return func(e *Engine) {
		e.degradedMode = enabled
	}
}

// WithMaxInputSize bounds the size of one message in bytes (default DefaultMaxInputSize).
func WithMaxInputSize(n int) Option {
	return func(e *Engine) {
		e.maxInputSize = n
	}
}

// New loads the catalog and initializes the engine.
// A catalog that fails to load is returned as an error unless degraded mode is on.
func New(opts ...Option) (*Engine, error) {
	eng := &Engine{}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	if eng.loader == nil {
		eng.loader = file.NewLoader("", "", "", file.WithLogger(eng.logger))
	}
	if eng.store == nil {
		eng.store = memory.NewStore()
	}

	managerOpts := []session.Option{session.WithLogger(eng.logger)}
	if eng.locker != nil {
		managerOpts = append(managerOpts, session.WithLocker(eng.locker))
	}
	eng.sessions = session.NewManager(eng.store, managerOpts...)

	if err := eng.Reload(context.Background()); err != nil && !eng.degradedMode {
		return nil, err
	}
	return eng, nil
}

// Reload reads the catalog again and swaps it in atomically.
// Turns already in flight finish on the previous catalog; live sessions keep
// their node ids. On failure the previous catalog stays in service.
func (e *Engine) Reload(ctx context.Context) error {
	c, degraded, err := e.load(ctx)
	if c == nil {
		if e.runtime.Load() == nil {
			e.logger.Error("catalog unavailable", "err", err)
		} else {
			e.logger.Error("catalog reload failed, keeping previous catalog", "err", err)
		}
		return err
	}

	opts := append([]runtime.EngineOption{
		runtime.WithLogger(e.logger),
		runtime.WithLifecycleHooks(e.hooks),
	}, e.runtimeOpts...)

	e.runtime.Store(runtime.NewEngine(c, opts...))
	e.degraded.Store(degraded)

	nodes, intents := c.Len()
	e.logger.Info("catalog loaded", "nodes", nodes, "intents", intents, "degraded", degraded)
	return nil
}

// load builds a catalog from the loader. In degraded mode it falls back to
// an intent-only catalog.
func (e *Engine) load(ctx context.Context) (*catalog.Catalog, bool, error) {
	docs, err := e.loader.Load(ctx)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, false, ctxErr
	}

	if err == nil {
		var c *catalog.Catalog
		if c, err = catalog.Build(docs, e.buildOpts...); err == nil {
			return c, false, nil
		}
	}
	if !e.degradedMode {
		return nil, false, err
	}

	e.logger.Warn("dialogue graph unavailable, serving intent-only responses", "err", err)
	c, intentErr := catalog.Build(docs, append(slices.Clone(e.buildOpts), catalog.IntentOnly())...)
	if intentErr != nil {
		return nil, false, fmt.Errorf("%w: %w", domain.ErrUnavailable, errors.Join(err, intentErr))
	}
	return c, true, nil
}

func (e *Engine) current() (*runtime.Engine, error) {
	rt := e.runtime.Load()
	if rt == nil {
		return nil, domain.ErrUnavailable
	}
	return rt, nil
}

// OnConnect opens a session for a new connection and returns the opening message.
func (e *Engine) OnConnect(ctx context.Context, connectionID string) (Reply, error) {
	rt, err := e.current()
	if err != nil {
		return Reply{}, err
	}

	state, reply, err := rt.Open(ctx, connectionID)
	if err != nil {
		return Reply{}, err
	}
	if err := e.sessions.Create(ctx, connectionID, state); err != nil {
		return Reply{}, err
	}

	e.logger.Debug("session opened", "connection_id", connectionID, "phase", state.Phase)
	return reply, nil
}

// OnMessage handles one utterance of a connected session.
// Returns domain.ErrSessionNotFound for connections that never connected, and
// ErrInputTooLarge or ErrInvalidUTF8 for messages that are not processed.
func (e *Engine) OnMessage(ctx context.Context, connectionID, text string) (Reply, error) {
	rt, err := e.current()
	if err != nil {
		return Reply{}, err
	}
	text, err = SanitizeInput(text, e.maxInputSize)
	if err != nil {
		return Reply{}, err
	}

	var reply Reply
	err = e.sessions.Update(ctx, connectionID, func(ctx context.Context, state *domain.SessionState) error {
		var err error
		reply, err = rt.Handle(ctx, state, text)
		return err
	})
	return reply, err
}

// OnDisconnect discards the session of a connection.
func (e *Engine) OnDisconnect(ctx context.Context, connectionID string) error {
	state, err := e.sessions.Delete(ctx, connectionID)
	if err != nil {
		return err
	}
	if rt := e.runtime.Load(); rt != nil {
		rt.Close(ctx, state)
	}
	e.logger.Debug("session closed", "connection_id", connectionID)
	return nil
}

// Session returns a snapshot of a live session.
func (e *Engine) Session(ctx context.Context, connectionID string) (*domain.SessionState, error) {
	return e.sessions.Load(ctx, connectionID)
}

// Sessions returns the ids of the live connections.
func (e *Engine) Sessions(ctx context.Context) ([]string, error) {
	return e.sessions.List(ctx)
}

// Catalog returns the catalog in service, or nil while unavailable.
func (e *Engine) Catalog() *catalog.Catalog {
	if rt := e.runtime.Load(); rt != nil {
		return rt.Catalog()
	}
	return nil
}

// Degraded reports whether the engine is serving intent-only responses or
// has no catalog at all.
func (e *Engine) Degraded() bool {
	return e.runtime.Load() == nil || e.degraded.Load()
}

// Watch reloads the catalog each time the loader reports a change, until ctx
// is done. Reload failures are logged and the previous catalog is kept.
func (e *Engine) Watch(ctx context.Context) error {
	w, ok := e.loader.(ports.Watchable)
	if !ok {
		return ErrWatchUnsupported
	}
	changes, err := w.Watch(ctx)
	if err != nil {
		return err
	}
	for range changes {
		if err := e.Reload(ctx); err != nil && ctx.Err() == nil {
			e.logger.Warn("catalog change not applied", "err", err)
		}
	}
	return ctx.Err()
}

// Loader returns the underlying catalog loader.
func (e *Engine) Loader() ports.CatalogLoader {
	return e.loader
}
