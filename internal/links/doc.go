// Package links extracts HTTP links from email bodies for rule evaluation.
//
// Plain-text and HTML bodies use separate extraction strategies: HTML bodies
// are scanned for anchor hrefs, plain-text bodies for bare URLs. Results are
// deduplicated by URL and carry the parsed host so rules can match on the
// link domain without re-parsing.
package links
