package middleware_test

import (
	"context"
	"testing"

	"github.com/aretw0/missive/pkg/adapters/memory"
	"github.com/aretw0/missive/pkg/domain"
	"github.com/aretw0/missive/pkg/persistence/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ssn = `\d{3}-\d{2}-\d{4}`

func TestPIIMiddleware_Masking(t *testing.T) {
	underlyingStore := NewMockStore()
	mw, err := middleware.NewPIIMiddleware([]string{ssn})
	require.NoError(t, err)
	secureStore := mw(underlyingStore)

	ctx := context.Background()
	call := domain.ToolCallRequest{ID: "c1", Name: "send_email", Arguments: map[string]any{"body": "ssn 999-99-9999"}}
	confirm := domain.AssistantMessage("Send it?")
	confirm.Confirmation = &domain.Confirmation{ID: "k1", Request: call, Preview: "Body: 999-99-9999"}

	conv := domain.NewConversation("pii-session")
	conv.Metadata["note"] = "id 123-45-6789"
	conv.Messages = []domain.Message{
		domain.UserMessage("my ssn is 999-99-9999"),
		domain.AssistantMessage("", call),
		confirm,
	}

	require.NoError(t, secureStore.Save(ctx, "pii-session", conv))

	assert.Equal(t, "my ssn is 999-99-9999", conv.Messages[0].Content, "the caller's conversation must not change")

	stored, err := underlyingStore.Load(ctx, "pii-session")
	require.NoError(t, err)
	assert.Equal(t, "my ssn is ***", stored.Messages[0].Content)
	assert.Equal(t, "Body: ***", stored.Messages[2].Confirmation.Preview)
	assert.Equal(t, "id ***", stored.Metadata["note"])
	assert.Equal(t, "ssn 999-99-9999", stored.Messages[2].Confirmation.Request.Arguments["body"], "arguments replay confirmations")
}

func TestPIIMiddleware_InvalidPattern(t *testing.T) {
	_, err := middleware.NewPIIMiddleware([]string{"("})
	assert.Error(t, err)
}

func TestChain_OrderAndComposition(t *testing.T) {
	pii, err := middleware.NewPIIMiddleware([]string{ssn})
	require.NoError(t, err)
	enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)

	store := middleware.Chain(memory.NewStore(), pii, enc)
	ctx := context.Background()

	conv := domain.NewConversation("s1")
	conv.Messages = append(conv.Messages, domain.UserMessage("123-45-6789"))
	require.NoError(t, store.Save(ctx, "s1", conv))

	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, middleware.Mask, loaded.Messages[0].Content)
}
