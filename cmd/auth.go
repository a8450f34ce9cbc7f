package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inboxpilot/inboxpilot/internal/google"
)

func newAuthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Authorize Gmail access and cache the OAuth token",
		Long: `Authorize Gmail access through the OAuth consent flow.

Prints an authorization URL to open in a browser, then reads the
authorization code from stdin and caches the resulting token. You only need
to run this once; the token is refreshed automatically afterwards.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuth(cmd.Context())
		},
	}
}

func runAuth(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	auth := google.NewAuthenticator(cfg.Gmail.CredentialsFile, cfg.Gmail.TokenFile)
	if auth.HasToken() {
		fmt.Println("A cached token already exists; re-authorizing will replace it.")
	}

	url, err := auth.AuthURL()
	if err != nil {
		return err
	}

	fmt.Printf("Visit this URL in your browser and grant access:\n\n  %s\n\n", url)
	fmt.Print("Paste the authorization code here: ")

	reader := bufio.NewReader(os.Stdin)
	code, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read authorization code: %w", err)
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return fmt.Errorf("no authorization code provided")
	}

	if err := auth.Exchange(ctx, code); err != nil {
		return err
	}

	fmt.Printf("Token saved to %s\n", cfg.Gmail.TokenFile)
	return nil
}
