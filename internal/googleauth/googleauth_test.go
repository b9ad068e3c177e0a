package googleauth

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func TestFileTokenStore_SaveLoad(t *testing.T) {
	tokenPath := filepath.Join(t.TempDir(), "token.json")
	store := NewFileTokenStore(tokenPath)

	expiry := time.Now().Add(1 * time.Hour)
	token := &oauth2.Token{
		AccessToken:  "test-access-token",
		RefreshToken: "test-refresh-token",
		Expiry:       expiry,
		TokenType:    "Bearer",
	}

	if err := store.SaveToken(token); err != nil {
		t.Fatalf("SaveToken() returned an error: %v", err)
	}

	loaded, err := store.LoadToken()
	if err != nil {
		t.Fatalf("LoadToken() returned an error: %v", err)
	}
	if loaded == nil {
		t.Fatal("LoadToken() returned nil token")
	}

	if loaded.AccessToken != token.AccessToken {
		t.Errorf("Expected AccessToken to be %q, got %q", token.AccessToken, loaded.AccessToken)
	}
	if loaded.RefreshToken != token.RefreshToken {
		t.Errorf("Expected RefreshToken to be %q, got %q", token.RefreshToken, loaded.RefreshToken)
	}
	if !loaded.Expiry.Equal(token.Expiry) {
		t.Errorf("Expected Expiry to be %v, got %v", token.Expiry, loaded.Expiry)
	}
}

func TestFileTokenStore_LoadMissingFile(t *testing.T) {
	store := NewFileTokenStore(filepath.Join(t.TempDir(), "nonexistent.json"))

	token, err := store.LoadToken()
	if err != nil {
		t.Fatalf("LoadToken() should not return an error for a missing file, got: %v", err)
	}
	if token != nil {
		t.Errorf("LoadToken() should return nil for a missing file, got: %v", token)
	}
}

func TestOAuthConfigFromFile(t *testing.T) {
	tests := []struct {
		name         string
		contents     string
		wantClientID string
		wantErr      bool
	}{
		{
			name:         "installed section",
			contents:     `{"installed":{"client_id":"installed-id","client_secret":"s1"}}`,
			wantClientID: "installed-id",
		},
		{
			name:         "web section",
			contents:     `{"web":{"client_id":"web-id","client_secret":"s2"}}`,
			wantClientID: "web-id",
		},
		{
			name:         "installed preferred over web",
			contents:     `{"installed":{"client_id":"installed-id"},"web":{"client_id":"web-id"}}`,
			wantClientID: "installed-id",
		},
		{
			name:     "no client id",
			contents: `{}`,
			wantErr:  true,
		},
		{
			name:     "malformed json",
			contents: `{`,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "credentials.json")
			if err := os.WriteFile(path, []byte(tt.contents), 0600); err != nil {
				t.Fatalf("failed to write credentials file: %v", err)
			}

			cfg, err := OAuthConfigFromFile(path)
			if tt.wantErr {
				if err == nil {
					t.Fatal("OAuthConfigFromFile() expected an error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("OAuthConfigFromFile() returned an error: %v", err)
			}
			if cfg.ClientID != tt.wantClientID {
				t.Errorf("ClientID = %q, want %q", cfg.ClientID, tt.wantClientID)
			}
			if len(cfg.Scopes) == 0 {
				t.Error("expected scopes to be populated")
			}
		})
	}
}

func TestOAuthConfigFromFile_MissingFile(t *testing.T) {
	if _, err := OAuthConfigFromFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("OAuthConfigFromFile() expected an error for a missing file")
	}
}

func TestServiceAccountClient_RequiresCredentials(t *testing.T) {
	ctx := context.Background()

	if _, err := ServiceAccountClient(ctx, "", "key"); err == nil {
		t.Error("expected an error when the email is empty")
	}
	if _, err := ServiceAccountClient(ctx, "bot@example.iam.gserviceaccount.com", ""); err == nil {
		t.Error("expected an error when the private key is empty")
	}
}
