package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/missive/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// Credentials implements ports.CredentialStore using Redis.
// Values never expire; refresh tokens outlive conversations.
type Credentials struct {
	client *backend.Client
	prefix string
}

// NewCredentials creates a credential store sharing client.
func NewCredentials(client *backend.Client, prefix string) *Credentials {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Credentials{client: client, prefix: prefix}
}

func (c *Credentials) key(k string) string {
	return c.prefix + "credentials:" + k
}

func (c *Credentials) Put(ctx context.Context, key string, data []byte) error {
	if err := c.client.Set(ctx, c.key(key), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}
	return nil
}

func (c *Credentials) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, backend.Nil) {
		return nil, domain.ErrCredentialsNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}
	return data, nil
}

func (c *Credentials) Remove(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.key(key)).Err()
}
