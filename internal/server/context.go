package server

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/inboxpilot/inboxpilot/internal/config"
	"github.com/inboxpilot/inboxpilot/internal/gmail"
	"github.com/inboxpilot/inboxpilot/internal/google"
	"github.com/inboxpilot/inboxpilot/internal/instrumentation"
	"github.com/inboxpilot/inboxpilot/internal/ollama"
	"github.com/inboxpilot/inboxpilot/internal/rules"
	"github.com/inboxpilot/inboxpilot/internal/storage"
	"github.com/inboxpilot/inboxpilot/internal/triage"
)

// ServerContext holds the shared dependencies for the MCP server and tools.
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc

	cfg    *config.Config
	store  *storage.Store
	auth   *google.Authenticator
	logger *slog.Logger

	// instrumentation is optional; tools record metrics when present.
	provider *instrumentation.Provider

	mu          sync.RWMutex
	gmailClient *gmail.Client
	runner      *triage.Runner
	shutdown    bool
}

// ContextOption customizes a ServerContext at construction time.
type ContextOption func(*ServerContext)

// WithInstrumentation attaches an instrumentation provider.
func WithInstrumentation(p *instrumentation.Provider) ContextOption {
	return func(sc *ServerContext) { sc.provider = p }
}

// NewServerContext creates a new server context. The Gmail client and triage
// runner are created lazily on first use so the server starts even before
// the auth command has run.
func NewServerContext(ctx context.Context, cfg *config.Config, store *storage.Store, logger *slog.Logger, opts ...ContextOption) (*ServerContext, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	shutdownCtx, cancel := context.WithCancel(ctx)
	sc := &ServerContext{
		ctx:    shutdownCtx,
		cancel: cancel,
		cfg:    cfg,
		store:  store,
		auth:   google.NewAuthenticator(cfg.Gmail.CredentialsFile, cfg.Gmail.TokenFile),
		logger: logger,
	}
	for _, opt := range opts {
		opt(sc)
	}
	return sc, nil
}

// Context returns the server context.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Config returns the loaded configuration.
func (sc *ServerContext) Config() *config.Config {
	return sc.cfg
}

// Store returns the SQLite store.
func (sc *ServerContext) Store() *storage.Store {
	return sc.store
}

// Authenticator returns the OAuth authenticator.
func (sc *ServerContext) Authenticator() *google.Authenticator {
	return sc.auth
}

// Instrumentation returns the instrumentation provider, or nil when metrics
// are disabled.
func (sc *ServerContext) Instrumentation() *instrumentation.Provider {
	return sc.provider
}

// Metrics returns the metrics recorder, or nil when instrumentation is not
// configured.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	if sc.provider == nil {
		return nil
	}
	return sc.provider.Metrics()
}

// GmailClient returns the Gmail client, creating and caching it on first
// use. It fails when no OAuth token has been cached yet.
func (sc *ServerContext) GmailClient() (*gmail.Client, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.gmailClient != nil {
		return sc.gmailClient, nil
	}
	if !sc.auth.HasToken() {
		return nil, fmt.Errorf("not authenticated with Gmail; run the auth command first")
	}

	client, err := gmail.NewClient(sc.ctx, sc.auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail client: %w", err)
	}
	sc.gmailClient = client
	return client, nil
}

// Runner returns the triage runner, creating and caching it on first use.
func (sc *ServerContext) Runner() (*triage.Runner, error) {
	sc.mu.Lock()
	if sc.runner != nil {
		defer sc.mu.Unlock()
		return sc.runner, nil
	}
	sc.mu.Unlock()

	// GmailClient takes the same lock.
	client, err := sc.GmailClient()
	if err != nil {
		return nil, err
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.runner != nil {
		return sc.runner, nil
	}

	summarizer := ollama.NewClient(sc.cfg.Ollama.URL, sc.cfg.Ollama.Model, sc.cfg.OllamaTimeout())

	opts := triage.Options{
		MaxEmails: sc.cfg.Triage.MaxEmails,
		Logger:    sc.logger,
	}
	if sc.provider != nil {
		opts.Metrics = sc.provider.Metrics()
		opts.Audit = instrumentation.NewAuditLogger(sc.logger)
	}

	runner, err := triage.NewRunner(sc.store, client, summarizer, rules.Config{
		DebugMode:          sc.cfg.Triage.DebugMode,
		DebugRetentionDays: sc.cfg.Triage.DebugRetentionDays,
		SaveForLater:       sc.cfg.Triage.SaveForLater,
		SummaryScorePoints: sc.cfg.Triage.SummaryScorePoints,
	}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create triage runner: %w", err)
	}
	sc.runner = runner
	return runner, nil
}

// SetGmailClient injects a Gmail client, primarily for tests.
func (sc *ServerContext) SetGmailClient(client *gmail.Client) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.gmailClient = client
}

// IsShutdown returns whether the server has been shut down.
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown cancels the server context. The store is owned and closed by the
// caller that opened it.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}
	sc.shutdown = true
	sc.cancel()
	return nil
}
