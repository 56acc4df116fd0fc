package validator

import (
	"context"
	"strings"
	"testing"

	"github.com/aretw0/hashfsm/internal/testutils"
	"github.com/aretw0/hashfsm/pkg/adapters/memory"
	"github.com/aretw0/hashfsm/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnreachable(t *testing.T) {
	assert.Empty(t, Unreachable(testutils.JobFSM()))

	def := &domain.Definition{
		Name: "Door", Prefix: "door:", Field: "state",
		States: []string{"closed", "open", "broken", "scrapped"},
		Events: []domain.Event{
			{Name: "open", From: []string{"closed"}, To: "open"},
			{Name: "close", From: []string{"open"}, To: "closed"},
			{Name: "scrap", From: []string{"broken"}, To: "scrapped"},
		},
	}
	assert.Equal(t, []string{"broken", "scrapped"}, Unreachable(def))
}

func TestValidateDefinitions(t *testing.T) {
	ctx := context.Background()

	t.Run("Valid", func(t *testing.T) {
		loader := memory.NewLoader(map[string]string{"job": testutils.JobFSMPayload})
		assert.NoError(t, ValidateDefinitions(ctx, loader))
	})

	t.Run("Every Problem Reported", func(t *testing.T) {
		dupPrefix := strings.Replace(testutils.JobFSMPayload, "name: JobFSM", "name: OtherJob", 1)
		island := `
name: Island
prefix: "island:"
field: state
states: [home, away]
events: []
`
		loader := memory.NewLoader(map[string]string{
			"a-job":    testutils.JobFSMPayload,
			"b-job":    testutils.JobFSMPayload,
			"c-other":  dupPrefix,
			"d-island": island,
			"e-broken": "name: Broken",
		})

		err := ValidateDefinitions(ctx, loader)
		require.Error(t, err)
		msg := err.Error()

		assert.Contains(t, msg, "found 5 errors")
		assert.Contains(t, msg, `'b-job': name "JobFSM" already defined by 'a-job'`)
		assert.Contains(t, msg, `'b-job': prefix "job:" already bound by 'a-job'`)
		assert.Contains(t, msg, `'c-other': prefix "job:" already bound by 'b-job'`)
		assert.Contains(t, msg, `'d-island': unreachable states from "home": away`)
		assert.Contains(t, msg, "'e-broken'")
	})
}
