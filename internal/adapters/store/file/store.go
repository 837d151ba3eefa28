// Package file keeps keeper documents in a local TOML file. It serves as an
// offline mirror and as the store used by tests.
package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/bnema/boxtoplay-keeper/internal/domain"
	"github.com/bnema/boxtoplay-keeper/internal/ports"
)

const (
	documentsFileMode  = 0o600
	documentsDirMode   = 0o700
	documentsConfigDir = ".config/boxtoplay-keeper"
	documentsFile      = "documents.toml"
	tempFilePattern    = ".documents-*.toml.tmp"
)

type Store struct {
	path  string
	mu    *sync.RWMutex
	clock ports.Clock
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var _ ports.DocumentStore = (*Store)(nil)

// DefaultPath is the documents file under the user's home directory.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(homeDir, documentsConfigDir, documentsFile), nil
}

func NewStore(path string, clock ports.Clock) (*Store, error) {
	if path == "" {
		defaultPath, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = defaultPath
	}
	path, err := normalizePath(path)
	if err != nil {
		return nil, err
	}
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &Store{path: path, mu: lockForPath(path), clock: clock}, nil
}

func (s *Store) Path() string {
	return s.path
}

// Fetch returns every document in the file. A missing file is an empty
// mapping.
func (s *Store) Fetch(ctx context.Context) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	file, err := s.readSchema()
	if err != nil {
		return nil, err
	}

	documents := make(map[string]string, len(file.Documents))
	for _, entry := range file.Documents {
		documents[entry.Name] = entry.Content
	}

	return documents, nil
}

func (s *Store) Replace(ctx context.Context, name, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if name == "" {
		return errors.New("document name is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.readSchema()
	if err != nil {
		return err
	}

	entry := documentSchema{
		Name:      name,
		Content:   content,
		UpdatedAt: s.clock.Now().UTC().Format(time.RFC3339),
	}
	updated := false
	for i := range file.Documents {
		if file.Documents[i].Name == name {
			file.Documents[i] = entry
			updated = true
			break
		}
	}
	if !updated {
		file.Documents = append(file.Documents, entry)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	return s.writeSchema(file)
}

func (s *Store) readSchema() (fileSchema, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fileSchema{Version: currentSchemaVersion}, nil
		}
		return fileSchema{}, fmt.Errorf("read documents file: %w: %w", domain.ErrStoreUnavailable, err)
	}

	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return fileSchema{}, fmt.Errorf("decode documents file: %w: %w", domain.ErrMalformedDocument, err)
	}
	if err := file.validateVersion(); err != nil {
		return fileSchema{}, fmt.Errorf("%w: %w", domain.ErrMalformedDocument, err)
	}
	file.applyDefaults()

	return file, nil
}

func normalizePath(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve documents path: %w", err)
	}

	return filepath.Clean(absPath), nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}

func (s *Store) writeSchema(file fileSchema) error {
	file.applyDefaults()

	if err := os.MkdirAll(filepath.Dir(s.path), documentsDirMode); err != nil {
		return fmt.Errorf("create documents directory: %w: %w", domain.ErrStoreUnavailable, err)
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode documents file: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(s.path), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp documents file: %w: %w", domain.ErrStoreUnavailable, err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp documents file: %w: %w", domain.ErrStoreUnavailable, err)
	}

	if err := tempFile.Chmod(documentsFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp documents file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp documents file: %w", err)
	}

	if err := os.Rename(tempName, s.path); err != nil {
		return fmt.Errorf("replace documents file: %w: %w", domain.ErrStoreUnavailable, err)
	}

	cleanup = false

	return nil
}
