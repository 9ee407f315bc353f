package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/missive/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunConversationStoreContract runs a suite of tests to verify that a ConversationStore
// implementation adheres to the defined interface contract.
func RunConversationStoreContract(t *testing.T, store ConversationStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		call := domain.ToolCallRequest{ID: "call-1", Name: "search_mail", Arguments: map[string]any{"query": "invoices"}}
		conv := domain.NewConversation(sessionID)
		conv.Metadata["google"] = "connected"
		conv.Messages = []domain.Message{
			domain.UserMessage("find my invoices"),
			domain.AssistantMessage("", call),
			domain.ToolResultMessage(call, "[]", false),
			domain.AssistantMessage("No invoices found."),
		}

		err := store.Save(ctx, sessionID, conv)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		require.Len(t, loaded.Messages, 4)
		assert.Equal(t, sessionID, loaded.SessionID)
		assert.Equal(t, domain.RoleTool, loaded.Messages[2].Role)
		assert.Equal(t, "call-1", loaded.Messages[2].ToolCallID)
		assert.Equal(t, "search_mail", loaded.Messages[1].ToolCalls[0].Name)
		assert.Equal(t, "invoices", loaded.Messages[1].ToolCalls[0].Arguments["query"])
		assert.Equal(t, "connected", loaded.Metadata["google"])
	})

	t.Run("Load returns an isolated copy", func(t *testing.T) {
		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		loaded.Messages[0].Content = "tampered"

		again, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, "find my invoices", again.Messages[0].Content)
	})

	t.Run("Confirmation survives persistence", func(t *testing.T) {
		id := sessionID + "-confirm"
		msg := domain.AssistantMessage("Send it?")
		msg.Confirmation = &domain.Confirmation{
			ID:      "k1",
			Request: domain.ToolCallRequest{ID: "c1", Name: "send_email", Arguments: map[string]any{"to": "a@b.com"}},
			Preview: "To: a@b.com",
		}
		conv := domain.NewConversation(id)
		conv.Messages = []domain.Message{domain.UserMessage("email a@b.com"), msg}
		require.NoError(t, store.Save(ctx, id, conv))
		defer func() { _ = store.Delete(ctx, id) }()

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, loaded.Messages[1].Confirmation)
		assert.Equal(t, "k1", loaded.Messages[1].Confirmation.ID)
		assert.Equal(t, "a@b.com", loaded.Messages[1].Confirmation.Request.Arguments["to"])
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, sessionID, domain.NewConversation(sessionID))
		require.NoError(t, err)

		err = store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, id1, domain.NewConversation(id1))
		_ = store.Save(ctx, id2, domain.NewConversation(id2))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}

// RunCredentialStoreContract verifies a CredentialStore implementation.
func RunCredentialStoreContract(t *testing.T, store CredentialStore) {
	ctx := context.Background()
	key := "contract-credentials-" + time.Now().Format("20060102150405")

	_, err := store.Get(ctx, key)
	assert.ErrorIs(t, err, domain.ErrCredentialsNotFound)

	require.NoError(t, store.Put(ctx, key, []byte(`{"access_token":"a"}`)))
	require.NoError(t, store.Put(ctx, key, []byte(`{"access_token":"b"}`)))

	data, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.JSONEq(t, `{"access_token":"b"}`, string(data))

	require.NoError(t, store.Remove(ctx, key))
	_, err = store.Get(ctx, key)
	assert.ErrorIs(t, err, domain.ErrCredentialsNotFound)
}
