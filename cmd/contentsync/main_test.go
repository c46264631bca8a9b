package main_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	main "github.com/fwojciec/contentsync/cmd/contentsync"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the CLI against the database at dbPath with a fake translator.
func run(t *testing.T, dbPath string, args ...string) (string, string, error) {
	t.Helper()

	m := main.NewMain()
	m.DBPath = dbPath
	m.Translator = prefixTranslator()

	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	err := m.Run(context.Background(), args, stdout, stderr)
	return stdout.String(), stderr.String(), err
}

func TestMain_Run_EndToEnd(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	dbPath := filepath.Join(dir, "contentsync.db")

	data, err := os.ReadFile("../../testdata/landing.json")
	require.NoError(t, err)
	importFile := filepath.Join(dir, "import.json")
	require.NoError(t, os.WriteFile(importFile, []byte(`[
		{"type":"page","title":"Landing","data":`+string(data)+`,"language":"en","status":"publish"},
		{"type":"post","title":"Hello","body":"<p>World</p>","language":"en","status":"publish"}
	]`), 0o644))

	stdout, _, err := run(t, dbPath, "import", importFile)
	require.NoError(t, err)
	assert.Contains(t, stdout, `Imported #1 "Landing"`)
	assert.Contains(t, stdout, `Imported #2 "Hello"`)

	stdout, _, err = run(t, dbPath, "clone", "1", "2", "--lang", "fr")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Cloned 1 -> 3")
	assert.Contains(t, stdout, "Cloned 2 -> 4")

	stdout, _, err = run(t, dbPath, "show", "4")
	require.NoError(t, err)
	assert.Contains(t, stdout, `#4 post "fr:Hello" [draft]`)
	assert.Contains(t, stdout, "Language: fr")
	assert.Contains(t, stdout, "Source: 2")
	assert.Contains(t, stdout, "fr:<p>World</p>")

	// The fake translator has no fragment support, so fragments go through
	// the separator path.
	stdout, _, err = run(t, dbPath, "show", "3", "--fragments")
	require.NoError(t, err)
	assert.Contains(t, stdout, "[1] fr:Welcome")

	stdout, _, err = run(t, dbPath, "sync", "1")
	require.NoError(t, err)
	assert.Contains(t, stdout, "0 synced, 1 skipped, 0 failed")

	stdout, _, err = run(t, dbPath, "sync", "1", "--force")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Synced 3")
}

func TestMain_Run_CloneRequiresAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	m := main.NewMain()
	m.DBPath = filepath.Join(t.TempDir(), "test.db")
	stderr := &bytes.Buffer{}

	err := m.Run(context.Background(), []string{"clone", "1", "--lang", "fr"}, &bytes.Buffer{}, stderr)

	require.Error(t, err)
	assert.Contains(t, stderr.String(), "GEMINI_API_KEY")
}

func TestMain_Run_WordPressRequiresURL(t *testing.T) {
	t.Setenv("WP_URL", "")

	m := main.NewMain()
	m.DBPath = filepath.Join(t.TempDir(), "test.db")
	stderr := &bytes.Buffer{}

	err := m.Run(context.Background(), []string{"--backend", "wordpress", "show", "1"}, &bytes.Buffer{}, stderr)

	require.Error(t, err)
	assert.Contains(t, stderr.String(), "WP_URL")
}

func TestMain_Run_Serve(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	m := main.NewMain()
	m.DBPath = filepath.Join(t.TempDir(), "test.db")
	m.Translator = prefixTranslator()
	stderr := &bytes.Buffer{}

	err := m.Run(ctx, []string{"serve", "--addr", "127.0.0.1:0", "-v"}, &bytes.Buffer{}, stderr)

	require.NoError(t, err)
	assert.True(t, strings.Contains(stderr.String(), "serving"), "expected startup log, got %q", stderr.String())
}
