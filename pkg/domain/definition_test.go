package domain_test

import (
	"errors"
	"testing"

	"github.com/aretw0/hashfsm/internal/testutils"
	"github.com/aretw0/hashfsm/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefinition_ValidateAcceptsReference(t *testing.T) {
	require.NoError(t, testutils.JobFSM().Validate())
}

func TestDefinition_ValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *domain.Definition)
		field  string
	}{
		{"no states", func(d *domain.Definition) { d.States = nil; d.Events = nil }, "states"},
		{"missing name", func(d *domain.Definition) { d.Name = "" }, "name"},
		{"missing field", func(d *domain.Definition) { d.Field = "" }, "field"},
		{"missing prefix", func(d *domain.Definition) { d.Prefix = "" }, "prefix"},
		{"prefix without separator", func(d *domain.Definition) { d.Prefix = "job" }, "prefix"},
		{"prefix with two separators", func(d *domain.Definition) { d.Prefix = "a:b:" }, "prefix"},
		{"duplicate state", func(d *domain.Definition) { d.States = append(d.States, "running") }, "states[3]"},
		{"unknown from", func(d *domain.Definition) { d.Events[0].From = []string{"flying"} }, "events[0].from[0]"},
		{"unknown to", func(d *domain.Definition) { d.Events[1].To = "flying" }, "events[1].to"},
		{"empty from", func(d *domain.Definition) { d.Events[2].From = nil }, "events[2].from"},
		{"duplicate event", func(d *domain.Definition) { d.Events[1].Name = "run" }, "events[1].name"},
		{"name is the index key", func(d *domain.Definition) { d.Name = domain.IndexKey }, "name"},
		{"name in reserved namespace", func(d *domain.Definition) { d.Name = "hashfsm.locks" }, "name"},
		{"name with separator", func(d *domain.Definition) { d.Name = "job:42" }, "name"},
		{"name not utf8", func(d *domain.Definition) { d.Name = "Job\xff" }, "name"},
		{"field not utf8", func(d *domain.Definition) { d.Field = "st\xffate" }, "field"},
		{"prefix not utf8", func(d *domain.Definition) { d.Prefix = "j\xffob:" }, "prefix"},
		{"state not utf8", func(d *domain.Definition) { d.States[0] = "sleeping\xff" }, "states[0]"},
		{"event name not utf8", func(d *domain.Definition) { d.Events[0].Name = "r\xffun" }, "events[0].name"},
		{"from not utf8", func(d *domain.Definition) { d.Events[0].From = []string{"sleeping\xff"} }, "events[0].from[0]"},
		{"to not utf8", func(d *domain.Definition) { d.Events[0].To = "running\xff" }, "events[0].to"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := testutils.JobFSM()
			tt.mutate(def)

			err := def.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrDecode)

			var fields []string
			for _, e := range domain.ValidationErrors(err) {
				var ve *domain.ValidationError
				require.True(t, errors.As(e, &ve))
				fields = append(fields, ve.Field)
			}
			assert.Contains(t, fields, tt.field)
		})
	}
}

func TestDefinition_ValidateReportsEveryViolation(t *testing.T) {
	def := &domain.Definition{
		Name:   "Broken",
		Prefix: "broken:",
		Field:  "state",
		States: []string{"a"},
		Events: []domain.Event{{Name: "go", From: []string{"x"}, To: "y"}},
	}

	err := def.Validate()
	require.Error(t, err)
	assert.Len(t, domain.ValidationErrors(err), 2)
	assert.Contains(t, err.Error(), `invalid definition "Broken"`)
}

func TestDefinition_Transition(t *testing.T) {
	def := testutils.JobFSM()

	ev, ok := def.Transition("run", "sleeping")
	require.True(t, ok)
	assert.Equal(t, "running", ev.To)

	_, ok = def.Transition("run", "running")
	assert.False(t, ok, "running is not a source of run")

	_, ok = def.Transition("fly", "sleeping")
	assert.False(t, ok, "unknown event never fires")

	ev, ok = def.Transition("sleep", "cleaning")
	require.True(t, ok, "multi-source events fire from any listed state")
	assert.Equal(t, "sleeping", ev.To)
}

func TestDefinition_Available(t *testing.T) {
	def := testutils.JobFSM()

	assert.Equal(t, []string{"run"}, def.Available("sleeping"))
	assert.Equal(t, []string{"clean", "sleep"}, def.Available("running"))
	assert.Empty(t, def.Available("unknown"))
}

func TestDefinition_CloneIsDeep(t *testing.T) {
	def := testutils.JobFSM()
	clone := def.Clone()
	require.Equal(t, def, clone)

	clone.States[0] = "changed"
	clone.Events[0].From[0] = "changed"
	assert.Equal(t, "sleeping", def.States[0])
	assert.Equal(t, "sleeping", def.Events[0].From[0])
}

func TestDefinition_Release(t *testing.T) {
	def := testutils.JobFSM()
	def.Release()

	assert.Nil(t, def.States)
	assert.Nil(t, def.Events)
	assert.Equal(t, "", def.InitialState())

	var nilDef *domain.Definition
	assert.NotPanics(t, func() { nilDef.Release() })
}

func TestPrefixOf(t *testing.T) {
	tests := []struct {
		key    string
		prefix string
		ok     bool
	}{
		{"job:42", "job:", true},
		{"job:42:sub", "job:", true},
		{":odd", ":", true},
		{"noseparator", "", false},
		{domain.IndexKey, "", false},
	}
	for _, tt := range tests {
		prefix, ok := domain.PrefixOf(tt.key)
		assert.Equal(t, tt.ok, ok, tt.key)
		assert.Equal(t, tt.prefix, prefix, tt.key)
	}
}

func TestNotification_IsHashWrite(t *testing.T) {
	assert.True(t, domain.Notification{Kind: domain.KindHash, Event: domain.EventHSet, Key: "job:1"}.IsHashWrite())
	assert.True(t, domain.Notification{Kind: domain.KindOf("hincrby"), Event: "hincrby"}.IsHashWrite())
	assert.False(t, domain.Notification{Kind: domain.KindHash, Event: domain.EventHDel}.IsHashWrite())
	assert.False(t, domain.Notification{Kind: domain.KindGeneric, Event: domain.EventDel}.IsHashWrite())
	assert.False(t, domain.Notification{Kind: domain.KindValue, Event: "set"}.IsHashWrite())
}
