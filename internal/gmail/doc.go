// Package gmail wraps the Gmail API for triage: listing unread messages,
// fetching full bodies on demand, and the mutations rules can trigger
// (mark as read, trash).
//
// Listing uses the metadata format so a triage pass over many messages stays
// cheap; Email.Body carries the not-loaded sentinel until GetMessageBody is
// called, which is what drives the engine's deferred evaluation.
package gmail
