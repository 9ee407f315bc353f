package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/missive/pkg/adapters/file"
	"github.com/aretw0/missive/pkg/domain"
	"github.com/aretw0/missive/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ ports.ConversationStore = (*file.Store)(nil)
	_ ports.CredentialStore   = (*file.Credentials)(nil)
)

func TestStore_Contract(t *testing.T) {
	ports.RunConversationStoreContract(t, file.New(t.TempDir()))
}

func TestCredentials_Contract(t *testing.T) {
	ports.RunCredentialStoreContract(t, file.NewCredentials(t.TempDir()))
}

func TestStore_Layout(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx := context.Background()

	conv := domain.NewConversation("s1")
	conv.Messages = []domain.Message{domain.UserMessage("hello")}
	require.NoError(t, store.Save(ctx, "s1", conv))

	_, err := os.Stat(filepath.Join(dir, "sessions", "s1.json"))
	require.NoError(t, err)

	// Leftover temp files from an interrupted write are not sessions.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sessions", "tmp-123"), []byte("{"), 0o644))
	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, ids)
}

func TestStore_RejectsPathTraversal(t *testing.T) {
	store := file.New(t.TempDir())
	ctx := context.Background()

	for _, id := range []string{"", "..", "../escape", `a\b`, "tmp-x"} {
		err := store.Save(ctx, id, domain.NewConversation(id))
		assert.ErrorIs(t, err, file.ErrInvalidKey, id)
	}
}

func TestStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sessions"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sessions", "bad.json"), []byte("{"), 0o644))

	_, err := file.New(dir).Load(context.Background(), "bad")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestCredentials_OwnerOnly(t *testing.T) {
	dir := t.TempDir()
	creds := file.NewCredentials(dir)
	require.NoError(t, creds.Put(context.Background(), "google:s1", []byte("token")))

	info, err := os.Stat(filepath.Join(dir, "credentials", "google_s1"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
