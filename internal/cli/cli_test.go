package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"kiosk-backend/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	root := newRootCmd()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func sqliteArgs(t *testing.T) []string {
	t.Helper()
	return []string{"--registry", "sqlite", "--sqlite-path", filepath.Join(t.TempDir(), "kiosk.sqlite")}
}

func TestVersion(t *testing.T) {
	stdout, _, err := executeCLI(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", stdout)
}

func TestLanguages(t *testing.T) {
	stdout, _, err := executeCLI(t, "languages")
	require.NoError(t, err)
	assert.Contains(t, stdout, "hi\tHindi\tहिन्दी")
	assert.Equal(t, 11, strings.Count(stdout, "\n"))
}

func TestMigrateRefusesMemoryRegistry(t *testing.T) {
	_, _, err := executeCLI(t, "migrate", "--registry", "memory")
	require.ErrorIs(t, err, errMemoryRegistry)
}

func TestMigrateSeedsOnce(t *testing.T) {
	db := sqliteArgs(t)

	stdout, _, err := executeCLI(t, append([]string{"migrate", "--seed"}, db...)...)
	require.NoError(t, err)
	assert.Contains(t, stdout, "schema ready (sqlite)")
	assert.Contains(t, stdout, "seeded 2 demo sessions")

	stdout, _, err = executeCLI(t, append([]string{"migrate", "--seed"}, db...)...)
	require.NoError(t, err)
	assert.Contains(t, stdout, "seeded 0 demo sessions")
}

func TestSessionsLifecycle(t *testing.T) {
	db := sqliteArgs(t)
	run := func(args ...string) string {
		t.Helper()
		stdout, _, err := executeCLI(t, append(args, db...)...)
		require.NoError(t, err)
		return stdout
	}

	run("migrate", "--seed")

	stdout := run("sessions", "list")
	assert.Contains(t, stdout, "sessions: 2")
	assert.Contains(t, stdout, "1\t")
	assert.Contains(t, stdout, "\tcompleted\t8/8 required")

	id := strings.TrimSpace(run("sessions", "create", "--language", "Tamil", "--summary", "Lost wallet"))
	require.NotEmpty(t, id)

	stdout = run("sessions", "show", id)
	assert.Contains(t, stdout, "language:   ta")
	assert.Contains(t, stdout, "status:     active")
	assert.Contains(t, stdout, "summary:    Lost wallet")

	assert.Equal(t, "1\tarchived\n", run("sessions", "archive", "1"))
	assert.Contains(t, run("sessions", "list"), "sessions: 2")
	assert.Contains(t, run("sessions", "list", "--status", "all"), "sessions: 2")
	assert.Contains(t, run("sessions", "list", "--status", "archived"), "sessions: 1")
}

func TestSessionsShowMissing(t *testing.T) {
	db := sqliteArgs(t)
	_, _, err := executeCLI(t, append([]string{"migrate"}, db...)...)
	require.NoError(t, err)

	_, _, err = executeCLI(t, append([]string{"sessions", "show", "nope"}, db...)...)
	require.ErrorIs(t, err, service.ErrSessionNotFound)
}

func TestSessionsListRejectsUnknownStatus(t *testing.T) {
	db := sqliteArgs(t)
	_, _, err := executeCLI(t, append([]string{"migrate"}, db...)...)
	require.NoError(t, err)

	_, _, err = executeCLI(t, append([]string{"sessions", "list", "--status", "closed"}, db...)...)
	require.ErrorIs(t, err, service.ErrInvalidStatus)
}

func TestChecklistPrintThenValidate(t *testing.T) {
	stdout, _, err := executeCLI(t, "checklist", "print")
	require.NoError(t, err)
	assert.Contains(t, stdout, "[[items]]")

	path := filepath.Join(t.TempDir(), "checklist.toml")
	require.NoError(t, os.WriteFile(path, []byte(stdout), 0o600))

	stdout, _, err = executeCLI(t, "checklist", "validate", path)
	require.NoError(t, err)
	assert.Equal(t, "ok: 12 items, 8 required, 4 categories\n", stdout)
}

func TestChecklistValidateRejectsBrokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.toml")
	require.NoError(t, os.WriteFile(path, []byte("version = 1\n[[items]]\nid = \"\"\n"), 0o600))

	_, _, err := executeCLI(t, "checklist", "validate", path)
	require.Error(t, err)
}
