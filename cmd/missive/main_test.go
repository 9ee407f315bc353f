package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/missive/pkg/adapters/file"
	"github.com/aretw0/missive/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// fileConfig writes a config using the file store under a temp dir.
func fileConfig(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	storeDir := filepath.Join(dir, "data")
	path := filepath.Join(dir, "missive.yaml")
	body := "store:\n  driver: file\n  dir: " + storeDir + "\ngoogle:\n  credentials_file: " + filepath.Join(dir, "none.json") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path, storeDir
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "missive version")
}

func TestSessionCommands(t *testing.T) {
	cfgPath, storeDir := fileConfig(t)
	store := file.New(storeDir)
	ctx := context.Background()
	for _, id := range []string{"a", "b"} {
		conv := domain.NewConversation(id)
		conv.Messages = []domain.Message{domain.UserMessage("hello " + id)}
		require.NoError(t, store.Save(ctx, id, conv))
	}

	out, err := execute(t, "session", "ls", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "- a")
	assert.Contains(t, out, "- b")

	out, err = execute(t, "session", "inspect", "a", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "hello a")

	out, err = execute(t, "session", "rm", "a", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Removed session 'a'")

	_, err = execute(t, "session", "inspect", "a", "--config", cfgPath)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestGraph(t *testing.T) {
	cfgPath, storeDir := fileConfig(t)
	conv := domain.NewConversation("g")
	conv.Messages = []domain.Message{domain.UserMessage("hi"), domain.AssistantMessage("hello")}
	require.NoError(t, file.New(storeDir).Save(context.Background(), "g", conv))

	out, err := execute(t, "graph", "--config", cfgPath, "--session", "g")
	require.NoError(t, err)
	assert.Contains(t, out, "graph TD")
	assert.Contains(t, out, "agent")
}

func TestAuthWithoutClientSecrets(t *testing.T) {
	cfgPath, _ := fileConfig(t)
	_, err := execute(t, "auth", "url", "--session", "s1", "--config", cfgPath)
	assert.ErrorContains(t, err, "client secrets not found")
}
