package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Authenticator manages the OAuth flow and the cached user token.
type Authenticator struct {
	credentialsFile string
	tokenFile       string
}

// NewAuthenticator builds an authenticator from the configured credential and
// token file paths.
func NewAuthenticator(credentialsFile, tokenFile string) *Authenticator {
	return &Authenticator{
		credentialsFile: credentialsFile,
		tokenFile:       tokenFile,
	}
}

// oauthConfig parses the credentials JSON into an OAuth config requesting the
// Gmail scopes.
func (a *Authenticator) oauthConfig() (*oauth2.Config, error) {
	data, err := os.ReadFile(a.credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file %s: %w", a.credentialsFile, err)
	}
	conf, err := google.ConfigFromJSON(data, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse credentials file: %w", err)
	}
	return conf, nil
}

// HasToken reports whether a cached token file exists.
func (a *Authenticator) HasToken() bool {
	_, err := os.Stat(a.tokenFile)
	return err == nil
}

// AuthURL returns the URL the user must visit to authorize access.
func (a *Authenticator) AuthURL() (string, error) {
	conf, err := a.oauthConfig()
	if err != nil {
		return "", err
	}
	return conf.AuthCodeURL("state", oauth2.AccessTypeOffline), nil
}

// Exchange trades an authorization code for a token and caches it.
func (a *Authenticator) Exchange(ctx context.Context, authCode string) error {
	conf, err := a.oauthConfig()
	if err != nil {
		return err
	}
	token, err := conf.Exchange(ctx, authCode)
	if err != nil {
		return fmt.Errorf("failed to exchange auth code: %w", err)
	}
	return a.saveToken(token)
}

func (a *Authenticator) saveToken(token *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(a.tokenFile), 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	if err := os.WriteFile(a.tokenFile, data, 0o600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

func (a *Authenticator) loadToken() (*oauth2.Token, error) {
	data, err := os.ReadFile(a.tokenFile)
	if err != nil {
		return nil, fmt.Errorf("no cached token found; run the auth command first: %w", err)
	}
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to parse token file: %w", err)
	}
	return &token, nil
}

// TokenSource returns a self-refreshing token source backed by the cached
// token.
func (a *Authenticator) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	conf, err := a.oauthConfig()
	if err != nil {
		return nil, err
	}
	token, err := a.loadToken()
	if err != nil {
		return nil, err
	}
	return conf.TokenSource(ctx, token), nil
}

// HTTPClient returns an HTTP client that authenticates requests with the
// cached (self-refreshing) token.
func (a *Authenticator) HTTPClient(ctx context.Context) (*http.Client, error) {
	ts, err := a.TokenSource(ctx)
	if err != nil {
		return nil, err
	}
	return oauth2.NewClient(ctx, ts), nil
}
