package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyModule(t *testing.T) {
	t.Parallel()

	tests := map[string]ModuleLabel{
		"events":                ModuleEvents,
		"webinars":              ModuleEvents,
		"registrations":         ModuleRegistrations,
		"webinar_registrations": ModuleRegistrations,
		"event_attendees":       ModuleRegistrations,
		"spin_wheels":           ModuleSpinWheels,
		"display_walls":         ModuleDisplayWalls,
		"surveys":               ModuleSurveys,
		"polls":                 ModulePolls,
		"quiz_questions":        ModuleQuizzes,
		"duel_rounds":           ModuleDuels,
		"login":                 ModuleAuth,
		"users":                 ModuleUsers,
		"  POLLS ":              ModulePolls,
		"billing":               ModuleOther,
		"":                      ModuleOther,
	}

	for key, want := range tests {
		assert.Equal(t, want, ClassifyModule(key), "key %q", key)
	}
}

func TestActionAndSubjectKinds(t *testing.T) {
	t.Parallel()

	for _, action := range []ActionKind{ActionLogin, ActionCreate, ActionUpdate, ActionDelete, ActionRestore} {
		assert.True(t, action.Valid(), string(action))
	}
	assert.False(t, ActionKind("teleport").Valid())
	assert.False(t, ActionKind("RESTORE").Valid())
	assert.False(t, ActionKind("permanent_delete").Valid())

	assert.Equal(t, SubjectQuizQuestion, ParseSubjectKind(" Quiz_Question "))
	assert.Equal(t, SubjectNone, ParseSubjectKind("spaceship"))
	assert.Equal(t, SubjectNone, ParseSubjectKind(""))
}

func TestEnrichedLogEntryJSON(t *testing.T) {
	t.Parallel()

	entry := EnrichedLogEntry{
		LogEntry: LogEntry{
			ID:        "e1",
			Action:    ActionRestore,
			SubjectID: ptr("99"),
			CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		ModuleLabel: ModulePolls,
	}

	encoded, err := json.Marshal(entry)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(encoded, &doc))
	assert.Equal(t, "restore", doc["action"])
	assert.Equal(t, "99", doc["subject_id"])
	assert.Equal(t, "Polls", doc["module_label"])
	assert.Contains(t, doc, "subject_name")
	assert.Nil(t, doc["subject_name"])
	assert.NotContains(t, doc, "actor_id")
}
