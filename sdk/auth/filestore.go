package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tidwall/sjson"
)

const tokenFileName = "session.json"

// FileTokenStore persists a TokenRecord using the filesystem as backing
// storage. Token updates rewrite only the token fields in place so fields
// written by newer releases survive a round trip through an older binary.
type FileTokenStore struct {
	mu      sync.Mutex
	baseDir string
}

// NewFileTokenStore creates a token store rooted at dir.
func NewFileTokenStore(dir string) *FileTokenStore {
	return &FileTokenStore{baseDir: dir}
}

// Path returns the location of the persisted token record.
func (s *FileTokenStore) Path() string {
	return filepath.Join(s.baseDir, tokenFileName)
}

// Save persists the full token record, replacing any previous one.
func (s *FileTokenStore) Save(_ context.Context, record *TokenRecord) (string, error) {
	if record == nil {
		return "", fmt.Errorf("token filestore: record is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.baseDir, 0o700); err != nil {
		return "", fmt.Errorf("token filestore: create dir failed: %w", err)
	}
	record.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("token filestore: marshal record failed: %w", err)
	}
	path := s.Path()
	if err = os.WriteFile(path, raw, 0o600); err != nil {
		return "", fmt.Errorf("token filestore: write file failed: %w", err)
	}
	return path, nil
}

// Load reads the persisted token record. A missing file is reported through
// os.IsNotExist on the wrapped error.
func (s *FileTokenStore) Load(_ context.Context) (*TokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.Path())
	if err != nil {
		return nil, fmt.Errorf("token filestore: read file failed: %w", err)
	}
	var record TokenRecord
	if err = json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("token filestore: parse file failed: %w", err)
	}
	return &record, nil
}

// UpdateTokens rewrites the token fields of the persisted record in place,
// preserving keys this build does not know about. An empty refreshToken keeps
// the stored one.
func (s *FileTokenStore) UpdateTokens(_ context.Context, accessToken, refreshToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.Path()
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("token filestore: read file failed: %w", err)
	}
	if raw, err = sjson.SetBytes(raw, "access_token", accessToken); err != nil {
		return fmt.Errorf("token filestore: set access token failed: %w", err)
	}
	if refreshToken != "" {
		if raw, err = sjson.SetBytes(raw, "refresh_token", refreshToken); err != nil {
			return fmt.Errorf("token filestore: set refresh token failed: %w", err)
		}
	}
	if expiry, ok := TokenExpiry(accessToken); ok {
		if raw, err = sjson.SetBytes(raw, "expiry", expiry.UTC().Format(time.RFC3339)); err != nil {
			return fmt.Errorf("token filestore: set expiry failed: %w", err)
		}
	}
	if raw, err = sjson.SetBytes(raw, "updated_at", time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("token filestore: set updated_at failed: %w", err)
	}
	if err = os.WriteFile(path, raw, 0o600); err != nil {
		return fmt.Errorf("token filestore: write file failed: %w", err)
	}
	return nil
}

// Delete removes the persisted record, e.g. on sign-out. Deleting a missing
// record is not an error.
func (s *FileTokenStore) Delete(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.Path()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("token filestore: delete file failed: %w", err)
	}
	return nil
}

// FileProvider adapts a FileTokenStore to the CredentialProvider contract.
// Reads are served from an in-memory copy of the record; OnRefreshed updates
// both the copy and the backing file.
type FileProvider struct {
	mu     sync.Mutex
	store  *FileTokenStore
	record *TokenRecord
}

// NewFileProvider loads the persisted record if one exists. A missing record
// yields a provider with empty tokens, i.e. a signed-out session.
func NewFileProvider(ctx context.Context, store *FileTokenStore) (*FileProvider, error) {
	p := &FileProvider{store: store}
	record, err := store.Load(ctx)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return p, nil
		}
		return nil, err
	}
	p.record = record
	return p, nil
}

func (p *FileProvider) AccessToken() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.record == nil {
		return ""
	}
	return p.record.AccessToken
}

func (p *FileProvider) RefreshToken() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.record == nil {
		return ""
	}
	return p.record.RefreshToken
}

func (p *FileProvider) OnRefreshed(ctx context.Context, accessToken, refreshToken string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.record == nil {
		p.record = &TokenRecord{}
	}
	p.record.AccessToken = accessToken
	if refreshToken != "" {
		p.record.RefreshToken = refreshToken
	}
	if expiry, ok := TokenExpiry(accessToken); ok {
		p.record.Expiry = expiry
	}
	return p.store.UpdateTokens(ctx, accessToken, refreshToken)
}

// SetRecord replaces the in-memory record and persists it, e.g. after sign-in.
func (p *FileProvider) SetRecord(ctx context.Context, record *TokenRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record = record
	_, err := p.store.Save(ctx, record)
	return err
}

// SignOut drops the in-memory record and deletes the persisted one.
func (p *FileProvider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record = nil
	return p.store.Delete(ctx)
}
