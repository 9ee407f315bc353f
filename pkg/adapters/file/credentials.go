package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/missive/pkg/domain"
)

// Credentials implements ports.CredentialStore with one owner-only file per key.
type Credentials struct {
	BasePath string
}

// NewCredentials keeps credentials under dir/credentials.
func NewCredentials(dir string) *Credentials {
	if dir == "" {
		dir = DefaultDir
	}
	return &Credentials{BasePath: filepath.Join(dir, "credentials")}
}

func (c *Credentials) path(key string) (string, error) {
	// Keys look like "google:<session>"; colons are not portable in file names.
	name := strings.ReplaceAll(key, ":", "_")
	if err := checkKey(name); err != nil {
		return "", err
	}
	return filepath.Join(c.BasePath, name), nil
}

func (c *Credentials) Put(ctx context.Context, key string, data []byte) error {
	path, err := c.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(c.BasePath, 0o700); err != nil {
		return fmt.Errorf("failed to ensure credentials directory: %w", err)
	}
	return writeAtomic(c.BasePath, path, data, 0o600)
}

func (c *Credentials) Get(ctx context.Context, key string) ([]byte, error) {
	path, err := c.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, domain.ErrCredentialsNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}
	return data, nil
}

func (c *Credentials) Remove(ctx context.Context, key string) error {
	path, err := c.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove credentials: %w", err)
	}
	return nil
}
