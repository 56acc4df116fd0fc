package testutils

import (
	"path/filepath"
	"testing"

	"github.com/aretw0/hashfsm/pkg/domain"
	"github.com/aretw0/loam"
	"github.com/aretw0/loam/pkg/core"
	"github.com/stretchr/testify/require"
)

// JobFSMPayload is the reference Definition used across tests, as an operator
// would submit it.
const JobFSMPayload = `
name: JobFSM
prefix: "job:"
field: state
states: [sleeping, running, cleaning]
events:
  - name: run
    from: [sleeping]
    to: running
  - name: clean
    from: [running]
    to: cleaning
  - name: sleep
    from: [running, cleaning]
    to: sleeping
`

// JobFSM returns the reference Definition as a value.
func JobFSM() *domain.Definition {
	return &domain.Definition{
		Name:   "JobFSM",
		Prefix: "job:",
		Field:  "state",
		States: []string{"sleeping", "running", "cleaning"},
		Events: []domain.Event{
			{Name: "run", From: []string{"sleeping"}, To: "running"},
			{Name: "clean", From: []string{"running"}, To: "cleaning"},
			{Name: "sleep", From: []string{"running", "cleaning"}, To: "sleeping"},
		},
	}
}

// SetupTestRepo creates a temporary directory and initializes a Loam repository in it.
// It returns the absolute path to the temp dir and the initialized repository.
// It fails the test immediately on error.
func SetupTestRepo(t *testing.T, opts ...loam.Option) (string, core.Repository) {
	t.Helper()

	tmpDir := t.TempDir()

	absPath, err := filepath.Abs(tmpDir)
	require.NoError(t, err, "Failed to get absolute path for temp dir")

	repo, err := loam.Init(absPath, opts...)
	require.NoError(t, err, "Failed to init loam repo")

	return absPath, repo
}
