package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aretw0/hashfsm"
	"github.com/aretw0/hashfsm/internal/testutils"
	"github.com/aretw0/hashfsm/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cliRun executes the root command against a memory backend persisted in
// snapshot. Flag values survive between executions, so every persistent flag
// a test may change is reset here.
func cliRun(t *testing.T, snapshot string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(testutils.JobFSMPayload))
	rootCmd.SetArgs(append([]string{
		"--env-file", filepath.Join(filepath.Dir(snapshot), "absent.env"),
		"--backend", "memory",
		"--strategy", "locked",
		"--snapshot", snapshot,
		"--log-level", "error",
	}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCLI_Session(t *testing.T) {
	dir := t.TempDir()
	snapshot := filepath.Join(dir, "hashfsm.yaml")
	defPath := filepath.Join(dir, "job.yaml")
	require.NoError(t, os.WriteFile(defPath, []byte(testutils.JobFSMPayload), 0o644))

	out, err := cliRun(t, snapshot, "create", defPath)
	require.NoError(t, err)
	assert.Equal(t, "created JobFSM\n", out)

	out, err = cliRun(t, snapshot, "ls", "-o", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"job:":"JobFSM"}`, out)

	out, err = cliRun(t, snapshot, "info", "JobFSM", "-o", "json")
	require.NoError(t, err)
	def, err := domain.Decode([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, testutils.JobFSM(), def)

	// An uninitialized entity has no state and rejects every event.
	_, err = cliRun(t, snapshot, "state", "JobFSM", "job:1")
	assert.ErrorContains(t, err, "not initialized")

	out, err = cliRun(t, snapshot, "trigger", "JobFSM", "job:1", "run")
	require.NoError(t, err)
	assert.Equal(t, "no\n", out)

	out, err = cliRun(t, snapshot, "graph", "JobFSM")
	require.NoError(t, err)
	assert.Contains(t, out, "s_running -- \"clean\" --> s_cleaning")

	out, err = cliRun(t, snapshot, "rm", "JobFSM")
	require.NoError(t, err)
	assert.Equal(t, "deleted JobFSM\n", out)

	_, err = cliRun(t, snapshot, "info", "JobFSM", "-o", "json")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCLI_CreateFromStdin(t *testing.T) {
	snapshot := filepath.Join(t.TempDir(), "hashfsm.yaml")

	out, err := cliRun(t, snapshot, "create", "-")
	require.NoError(t, err)
	assert.Equal(t, "created JobFSM\n", out)

	out, err = cliRun(t, snapshot, "events", "JobFSM", "job:1")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestCLI_Load(t *testing.T) {
	dir := t.TempDir()
	defs := filepath.Join(dir, "defs")
	require.NoError(t, os.Mkdir(defs, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(defs, "job.md"), []byte("---\n"+testutils.JobFSMPayload+"---\n"), 0o644))
	snapshot := filepath.Join(dir, "hashfsm.yaml")

	out, err := cliRun(t, snapshot, "load", defs)
	require.NoError(t, err)
	assert.Contains(t, out, "Loaded 'JobFSM'")

	out, err = cliRun(t, snapshot, "ls", "-o", "text")
	require.NoError(t, err)
	assert.Equal(t, "job:\tJobFSM\n", out)
}

func TestCLI_InvalidConfig(t *testing.T) {
	snapshot := filepath.Join(t.TempDir(), "hashfsm.yaml")
	_, err := cliRun(t, snapshot, "--strategy", "optimistic", "ls")
	assert.ErrorContains(t, err, "optimistic")
}

func TestCLI_Version(t *testing.T) {
	snapshot := filepath.Join(t.TempDir(), "hashfsm.yaml")
	out, err := cliRun(t, snapshot, "version")
	require.NoError(t, err)
	assert.Equal(t, "hashfsm version "+strings.TrimSpace(hashfsm.Version)+"\n", out)
}

func TestCLI_Validate(t *testing.T) {
	dir := t.TempDir()
	snapshot := filepath.Join(dir, "hashfsm.yaml")
	defs := filepath.Join(dir, "defs")
	require.NoError(t, os.Mkdir(defs, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(defs, "job.yaml"), []byte(testutils.JobFSMPayload), 0o644))

	out, err := cliRun(t, snapshot, "validate", defs)
	require.NoError(t, err)
	assert.Contains(t, out, "Definitions are valid")

	require.NoError(t, os.WriteFile(filepath.Join(defs, "copy.yaml"), []byte(testutils.JobFSMPayload), 0o644))
	_, err = cliRun(t, snapshot, "validate", defs)
	assert.ErrorContains(t, err, "already")
}
