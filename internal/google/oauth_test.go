package google

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCredentials = `{
  "installed": {
    "client_id": "test-client.apps.googleusercontent.com",
    "client_secret": "test-secret",
    "auth_uri": "https://accounts.google.com/o/oauth2/auth",
    "token_uri": "https://oauth2.googleapis.com/token",
    "redirect_uris": ["urn:ietf:wg:oauth:2.0:oob", "http://localhost"]
  }
}`

func testAuthenticator(t *testing.T) *Authenticator {
	t.Helper()
	dir := t.TempDir()
	creds := filepath.Join(dir, "credentials.json")
	require.NoError(t, os.WriteFile(creds, []byte(testCredentials), 0o600))
	return NewAuthenticator(creds, filepath.Join(dir, "token.json"))
}

func TestAuthURL(t *testing.T) {
	a := testAuthenticator(t)

	url, err := a.AuthURL()
	require.NoError(t, err)
	assert.Contains(t, url, "accounts.google.com")
	assert.Contains(t, url, "test-client.apps.googleusercontent.com")
	assert.Contains(t, url, "gmail.modify")
	assert.Contains(t, url, "access_type=offline")
}

func TestHasToken(t *testing.T) {
	a := testAuthenticator(t)
	assert.False(t, a.HasToken())

	require.NoError(t, os.WriteFile(a.tokenFile, []byte(`{"access_token":"x"}`), 0o600))
	assert.True(t, a.HasToken())
}

func TestTokenSourceWithoutToken(t *testing.T) {
	a := testAuthenticator(t)
	_, err := a.TokenSource(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no cached token")
}

func TestMissingCredentialsFile(t *testing.T) {
	a := NewAuthenticator(filepath.Join(t.TempDir(), "nope.json"), "token.json")
	_, err := a.AuthURL()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read credentials file")
}
