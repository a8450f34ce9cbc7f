// Package google provides OAuth2 authentication and token management for the
// Gmail API.
//
// The OAuth client is read from a credentials JSON file (downloaded from the
// Google Cloud console) and the user token is cached on disk next to it. Both
// paths come from configuration; nothing here reads environment variables or
// hardcodes client secrets.
package google
