package auth

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"golang.org/x/oauth2"
)

func TestFileTokenStoreSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	store := NewFileTokenStore(t.TempDir())
	record := &TokenRecord{
		Token: oauth2.Token{
			AccessToken:  "access-1",
			RefreshToken: "refresh-1",
			Expiry:       time.Now().Add(time.Hour).UTC().Truncate(time.Second),
		},
		Email: "dev@example.com",
	}

	path, err := store.Save(context.Background(), record)
	if err != nil {
		t.Fatalf("Save() error = %v, want nil", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat(%q) error = %v", path, err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("file mode = %o, want 600", perm)
	}

	loaded, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}
	if loaded.AccessToken != record.AccessToken {
		t.Errorf("AccessToken = %q, want %q", loaded.AccessToken, record.AccessToken)
	}
	if loaded.RefreshToken != record.RefreshToken {
		t.Errorf("RefreshToken = %q, want %q", loaded.RefreshToken, record.RefreshToken)
	}
	if loaded.Email != record.Email {
		t.Errorf("Email = %q, want %q", loaded.Email, record.Email)
	}
	if loaded.UpdatedAt.IsZero() {
		t.Error("UpdatedAt is zero, want Save to stamp it")
	}
}

func TestFileTokenStoreUpdateTokensPreservesUnknownKeys(t *testing.T) {
	t.Parallel()

	store := NewFileTokenStore(t.TempDir())
	record := &TokenRecord{
		Token: oauth2.Token{AccessToken: "old-access", RefreshToken: "old-refresh"},
		Email: "dev@example.com",
	}
	if _, err := store.Save(context.Background(), record); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// Simulate a field a newer release wrote that this build does not model.
	raw, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	raw, err = sjson.SetBytes(raw, "device_label", "iPhone 15")
	if err != nil {
		t.Fatalf("SetBytes() error = %v", err)
	}
	if err = os.WriteFile(store.Path(), raw, 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	newAccess := makeJWT(time.Now().Add(time.Hour).Unix())
	if err = store.UpdateTokens(context.Background(), newAccess, "new-refresh"); err != nil {
		t.Fatalf("UpdateTokens() error = %v", err)
	}

	raw, err = os.ReadFile(store.Path())
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if got := gjson.GetBytes(raw, "access_token").String(); got != newAccess {
		t.Errorf("access_token = %q, want %q", got, newAccess)
	}
	if got := gjson.GetBytes(raw, "refresh_token").String(); got != "new-refresh" {
		t.Errorf("refresh_token = %q, want %q", got, "new-refresh")
	}
	if got := gjson.GetBytes(raw, "device_label").String(); got != "iPhone 15" {
		t.Errorf("device_label = %q, want it preserved through the rewrite", got)
	}
	if got := gjson.GetBytes(raw, "email").String(); got != "dev@example.com" {
		t.Errorf("email = %q, want %q", got, "dev@example.com")
	}
	if !gjson.GetBytes(raw, "expiry").Exists() {
		t.Error("expiry missing, want it derived from the new access token")
	}
}

func TestFileTokenStoreUpdateTokensKeepsRefreshWhenEmpty(t *testing.T) {
	t.Parallel()

	store := NewFileTokenStore(t.TempDir())
	record := &TokenRecord{Token: oauth2.Token{AccessToken: "old-access", RefreshToken: "keep-me"}}
	if _, err := store.Save(context.Background(), record); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if err := store.UpdateTokens(context.Background(), "new-access", ""); err != nil {
		t.Fatalf("UpdateTokens() error = %v", err)
	}

	loaded, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.AccessToken != "new-access" {
		t.Errorf("AccessToken = %q, want %q", loaded.AccessToken, "new-access")
	}
	if loaded.RefreshToken != "keep-me" {
		t.Errorf("RefreshToken = %q, want the stored one kept", loaded.RefreshToken)
	}
}

func TestFileTokenStoreDeleteMissingIsNoError(t *testing.T) {
	t.Parallel()

	store := NewFileTokenStore(t.TempDir())
	if err := store.Delete(context.Background()); err != nil {
		t.Errorf("Delete() on missing record error = %v, want nil", err)
	}
}

func TestNewFileProviderMissingRecordMeansSignedOut(t *testing.T) {
	t.Parallel()

	provider, err := NewFileProvider(context.Background(), NewFileTokenStore(t.TempDir()))
	if err != nil {
		t.Fatalf("NewFileProvider() error = %v, want nil for missing record", err)
	}
	if got := provider.AccessToken(); got != "" {
		t.Errorf("AccessToken() = %q, want empty", got)
	}
	if got := provider.RefreshToken(); got != "" {
		t.Errorf("RefreshToken() = %q, want empty", got)
	}
}

func TestFileProviderOnRefreshedPersists(t *testing.T) {
	t.Parallel()

	store := NewFileTokenStore(t.TempDir())
	record := &TokenRecord{Token: oauth2.Token{AccessToken: "old", RefreshToken: "old-refresh"}}
	if _, err := store.Save(context.Background(), record); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	provider, err := NewFileProvider(context.Background(), store)
	if err != nil {
		t.Fatalf("NewFileProvider() error = %v", err)
	}

	if err = provider.OnRefreshed(context.Background(), "new", ""); err != nil {
		t.Fatalf("OnRefreshed() error = %v", err)
	}
	if got := provider.AccessToken(); got != "new" {
		t.Errorf("AccessToken() = %q, want %q", got, "new")
	}
	if got := provider.RefreshToken(); got != "old-refresh" {
		t.Errorf("RefreshToken() = %q, want the old one kept", got)
	}

	reloaded, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if reloaded.AccessToken != "new" {
		t.Errorf("persisted AccessToken = %q, want %q", reloaded.AccessToken, "new")
	}
}

func TestFileProviderSignOut(t *testing.T) {
	t.Parallel()

	store := NewFileTokenStore(t.TempDir())
	provider, err := NewFileProvider(context.Background(), store)
	if err != nil {
		t.Fatalf("NewFileProvider() error = %v", err)
	}
	record := &TokenRecord{Token: oauth2.Token{AccessToken: "a", RefreshToken: "r"}}
	if err = provider.SetRecord(context.Background(), record); err != nil {
		t.Fatalf("SetRecord() error = %v", err)
	}

	if err = provider.SignOut(context.Background()); err != nil {
		t.Fatalf("SignOut() error = %v", err)
	}
	if got := provider.AccessToken(); got != "" {
		t.Errorf("AccessToken() after sign-out = %q, want empty", got)
	}
	if _, err = os.Stat(store.Path()); !os.IsNotExist(err) {
		t.Errorf("Stat() after sign-out error = %v, want not-exist", err)
	}
}
