package memory

import (
	"context"
	"sync"

	"github.com/aretw0/missive/pkg/domain"
)

// Credentials implements ports.CredentialStore in memory.
type Credentials struct {
	data map[string][]byte
	mu   sync.RWMutex
}

// NewCredentials creates an empty credential store.
func NewCredentials() *Credentials {
	return &Credentials{data: make(map[string][]byte)}
}

func (c *Credentials) Put(ctx context.Context, key string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = append([]byte(nil), data...)
	return nil
}

func (c *Credentials) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	data, ok := c.data[key]
	if !ok {
		return nil, domain.ErrCredentialsNotFound
	}
	return append([]byte(nil), data...), nil
}

func (c *Credentials) Remove(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}
