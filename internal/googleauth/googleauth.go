// Package googleauth builds authenticated HTTP clients for the Google
// Calendar and Sheets APIs. Two modes are supported: a service account
// (the usual deployment, credentials injected via environment) and an
// interactive OAuth user flow with a persisted refresh token.
package googleauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/sheets/v4"
)

// Scopes covers everything the webhook touches: calendar event creation
// and spreadsheet reads/writes.
var Scopes = []string{calendar.CalendarScope, sheets.SpreadsheetsScope}

// ServiceAccountClient returns an HTTP client authenticated as a Google
// service account. The private key may carry literal `\n` sequences
// (the usual form when it arrives through an environment variable);
// they are unescaped before use.
func ServiceAccountClient(ctx context.Context, email, privateKey string) (*http.Client, error) {
	if email == "" || privateKey == "" {
		return nil, fmt.Errorf("service account email and private key are required")
	}

	cfg := &jwt.Config{
		Email:      email,
		PrivateKey: []byte(strings.ReplaceAll(privateKey, `\n`, "\n")),
		Scopes:     Scopes,
		TokenURL:   google.JWTTokenURL,
	}

	return cfg.Client(ctx), nil
}

// oauthClientSection is one client entry of a Google Cloud Console
// credentials JSON file.
type oauthClientSection struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// OAuthConfigFromFile loads an OAuth client configuration from the JSON
// file downloaded from Google Cloud Console. The "installed" section is
// tried first (desktop apps), then "web".
func OAuthConfigFromFile(path string) (*oauth2.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	var creds struct {
		Installed oauthClientSection `json:"installed"`
		Web       oauthClientSection `json:"web"`
	}
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse credentials file: %w", err)
	}

	section := creds.Installed
	if section.ClientID == "" {
		section = creds.Web
	}
	if section.ClientID == "" {
		return nil, fmt.Errorf("no client_id found in credentials file (expected 'installed' or 'web' section)")
	}

	return &oauth2.Config{
		ClientID:     section.ClientID,
		ClientSecret: section.ClientSecret,
		RedirectURL:  "http://127.0.0.1:8080",
		Scopes:       Scopes,
		Endpoint:     google.Endpoint,
	}, nil
}

// autoSaveTokenSource wraps an oauth2.TokenSource and persists refreshed
// tokens so the interactive flow only ever runs once.
type autoSaveTokenSource struct {
	source    oauth2.TokenSource
	store     TokenStore
	lastToken *oauth2.Token
}

func (a *autoSaveTokenSource) Token() (*oauth2.Token, error) {
	token, err := a.source.Token()
	if err != nil {
		return nil, err
	}

	if a.lastToken == nil || a.lastToken.AccessToken != token.AccessToken {
		if err := a.store.SaveToken(token); err != nil {
			return nil, fmt.Errorf("failed to save refreshed token: %w", err)
		}
		a.lastToken = token
	}

	return token, nil
}

// OAuthClient returns an authenticated HTTP client using OAuth 2.0. On
// first run (no stored token) it prompts for the authorization code on
// codeReader, which is normally os.Stdin.
func OAuthClient(ctx context.Context, cfg *oauth2.Config, store TokenStore, codeReader io.Reader) (*http.Client, error) {
	token, err := store.LoadToken()
	if err != nil {
		return nil, fmt.Errorf("failed to load token: %w", err)
	}

	if token == nil {
		authURL := cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline)

		fmt.Println("Please visit the following URL to authorize the application:")
		fmt.Println(authURL)
		fmt.Print("Enter the authorization code: ")

		var code string
		if _, err := fmt.Fscanln(codeReader, &code); err != nil {
			return nil, fmt.Errorf("failed to read authorization code: %w", err)
		}

		token, err = cfg.Exchange(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
		}

		if err := store.SaveToken(token); err != nil {
			return nil, fmt.Errorf("failed to save token: %w", err)
		}
	}

	source := &autoSaveTokenSource{
		source:    oauth2.ReuseTokenSource(token, cfg.TokenSource(ctx, token)),
		store:     store,
		lastToken: token,
	}

	return oauth2.NewClient(ctx, source), nil
}
