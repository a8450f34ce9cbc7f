// Package rules implements the triage rule engine: declarative
// condition/action rules evaluated against an email's derived context.
//
// A rule pairs an ordered list of conditions (sender, subject, content,
// extracted links, sender score) with an ordered list of actions (delete,
// mark-as-read, request-summary, save-variable, notify, run a sandboxed
// script, ...) combined under AND/OR logic. The engine evaluates every
// enabled rule against one email per pass, executes the actions of matching
// rules in declared order and threads a variables map through them, so later
// actions can consume values produced by earlier ones.
//
// Content-dependent rules cannot run before the message body is fetched;
// instead of partially evaluating, the engine defers the whole pass and
// parks the context in a per-email pending map. ResolvePending re-runs the
// pass once the content arrives.
//
// The engine performs no I/O of its own. Gmail, scoring, summarization,
// persistence and notification are capability interfaces supplied by the
// caller (see collaborators.go); errors from them surface as per-condition
// or per-action error strings inside the returned results and never escape
// ExecuteRules.
package rules
