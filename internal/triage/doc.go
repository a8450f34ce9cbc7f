// Package triage drives a full triage pass over the unread inbox: it lists
// unread messages in metadata form, builds a rule context per message
// (sender identity, extracted links, aggregate sender score), hands each
// context to the rule engine and resolves deferred evaluations by fetching
// the message body on demand.
//
// The runner also consumes the engine's host-side intents: navigation from
// the goto actions moves the pass cursor, notifications and URL openings are
// surfaced through the log, and destructive mailbox actions leave an audit
// trail.
package triage
