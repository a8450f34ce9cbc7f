package triage

import (
	"context"
	"log/slog"
	"sync"

	"github.com/inboxpilot/inboxpilot/internal/rules"
)

// cursor collects navigation intents from the goto actions. Only the last
// intent of an evaluation pass matters; the runner consumes it after each
// message.
type cursor struct {
	mu  sync.Mutex
	dir rules.Direction
	set bool
}

func (c *cursor) Navigate(dir rules.Direction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dir = dir
	c.set = true
}

// take returns the pending intent, if any, and resets the cursor.
func (c *cursor) take() (rules.Direction, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	dir, ok := c.dir, c.set
	c.dir, c.set = "", false
	return dir, ok
}

// logNotifier surfaces notify actions through the structured log. A headless
// pass has no notification UI; the log line is the user-visible artifact.
type logNotifier struct {
	logger *slog.Logger
}

func (n *logNotifier) Notify(_ context.Context, title, body string) error {
	n.logger.Info("notification", "title", title, "body", body)
	return nil
}

// logOpener records open_url actions instead of spawning a browser. Opening
// arbitrary rule-authored URLs from an unattended pass would be unsafe; the
// log keeps the intent inspectable.
type logOpener struct {
	logger *slog.Logger
}

func (o *logOpener) Open(_ context.Context, url, target string) error {
	o.logger.Info("open url requested", "url", url, "target", target)
	return nil
}
