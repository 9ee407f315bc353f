package middleware_test

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"io"
	"strings"
	"testing"

	"github.com/aretw0/missive/pkg/adapters/memory"
	"github.com/aretw0/missive/pkg/domain"
	"github.com/aretw0/missive/pkg/persistence/middleware"
	"github.com/aretw0/missive/pkg/ports"
)

func generateKey(t *testing.T) []byte {
	k := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, k); err != nil {
		t.Fatal(err)
	}
	return k
}

func encrypted(t *testing.T, cfg middleware.EncryptionConfig, next ports.ConversationStore) ports.ConversationStore {
	t.Helper()
	mw, err := middleware.NewEncryptionMiddleware(cfg)
	if err != nil {
		t.Fatalf("NewEncryptionMiddleware: %v", err)
	}
	return mw(next)
}

func secretConversation(id, text string) *domain.Conversation {
	conv := domain.NewConversation(id)
	conv.Messages = append(conv.Messages, domain.UserMessage(text))
	return conv
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlyingStore := NewMockStore()
	secureStore := encrypted(t, middleware.EncryptionConfig{ActiveKey: generateKey(t)}, underlyingStore)

	ctx := context.Background()
	sessionID := "test-session"

	if err := secureStore.Save(ctx, sessionID, secretConversation(sessionID, "my-secret-sauce")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	stored, err := underlyingStore.Load(ctx, sessionID)
	if err != nil {
		t.Fatalf("Underlying load failed: %v", err)
	}
	if len(stored.Messages) != 0 {
		t.Fatalf("Expected messages to be hidden, found %d", len(stored.Messages))
	}
	blob, ok := stored.Metadata["__encrypted__"]
	if !ok {
		t.Fatal("Expected __encrypted__ entry in metadata")
	}
	if strings.Contains(blob, "my-secret-sauce") {
		t.Fatal("Envelope leaks the plaintext")
	}

	loaded, err := secureStore.Load(ctx, sessionID)
	if err != nil {
		t.Fatalf("Load via middleware failed: %v", err)
	}
	if loaded.Messages[0].Content != "my-secret-sauce" {
		t.Errorf("Expected 'my-secret-sauce', got %v", loaded.Messages[0].Content)
	}
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlyingStore := NewMockStore()
	oldKey := generateKey(t)
	newKey := generateKey(t)

	ctx := context.Background()
	sessionID := "rotation-session"

	secureStoreOld := encrypted(t, middleware.EncryptionConfig{ActiveKey: oldKey}, underlyingStore)
	if err := secureStoreOld.Save(ctx, sessionID, secretConversation(sessionID, "encrypted-with-old-key")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	secureStoreNew := encrypted(t, middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	}, underlyingStore)

	loaded, err := secureStoreNew.Load(ctx, sessionID)
	if err != nil {
		t.Fatalf("Load with rotated key failed: %v", err)
	}
	if loaded.Messages[0].Content != "encrypted-with-old-key" {
		t.Errorf("Decryption with fallback key failed")
	}

	loaded.Messages[0].Content = "encrypted-with-new-key"
	if err := secureStoreNew.Save(ctx, sessionID, loaded); err != nil {
		t.Fatalf("Save with new key failed: %v", err)
	}

	if _, err := secureStoreOld.Load(ctx, sessionID); err == nil {
		t.Error("Expected failure when loading new-key encryption with old-key middleware")
	}
}

func TestEncryptionMiddleware_RejectsPlainConversations(t *testing.T) {
	underlyingStore := NewMockStore()
	ctx := context.Background()
	_ = underlyingStore.Save(ctx, "plain", secretConversation("plain", "hello"))

	secureStore := encrypted(t, middleware.EncryptionConfig{ActiveKey: generateKey(t)}, underlyingStore)
	if _, err := secureStore.Load(ctx, "plain"); err == nil {
		t.Error("Expected plain conversation to be rejected")
	}
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	_, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short-key")})
	if err != middleware.ErrInvalidKey {
		t.Errorf("Expected ErrInvalidKey, got %v", err)
	}
}

func TestEncryptionMiddleware_Contract(t *testing.T) {
	ports.RunConversationStoreContract(t, encrypted(t, middleware.EncryptionConfig{ActiveKey: generateKey(t)}, memory.NewStore()))
}

func TestParseKey(t *testing.T) {
	key := generateKey(t)
	parsed, err := middleware.ParseKey(base64.StdEncoding.EncodeToString(key))
	if err != nil || string(parsed) != string(key) {
		t.Fatalf("ParseKey roundtrip failed: %v", err)
	}
	if _, err := middleware.ParseKey(base64.StdEncoding.EncodeToString([]byte("short"))); err == nil {
		t.Error("Expected short key to be rejected")
	}
}
