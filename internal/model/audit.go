package model

import (
	"strings"
	"time"
)

// ActionKind is the closed set of audited actions. Soft and permanent deletes
// both record ActionDelete; the entry's "operation" context tells them apart.
type ActionKind string

const (
	ActionLogin   ActionKind = "login"
	ActionCreate  ActionKind = "create"
	ActionUpdate  ActionKind = "update"
	ActionDelete  ActionKind = "delete"
	ActionRestore ActionKind = "restore"
)

func (a ActionKind) Valid() bool {
	switch a {
	case ActionLogin, ActionCreate, ActionUpdate, ActionDelete, ActionRestore:
		return true
	}
	return false
}

// SubjectKind names the entity kind an audit entry refers to. The set is
// closed; name resolution switches over it exhaustively.
type SubjectKind string

const (
	SubjectNone         SubjectKind = ""
	SubjectEvent        SubjectKind = "event"
	SubjectRegistration SubjectKind = "registration"
	SubjectPoll         SubjectKind = "poll"
	SubjectSpinWheel    SubjectKind = "spin_wheel"
	SubjectSurvey       SubjectKind = "survey"
	SubjectDisplayWall  SubjectKind = "display_wall"
	SubjectQuiz         SubjectKind = "quiz"
	SubjectQuizQuestion SubjectKind = "quiz_question"
	SubjectDuelGame     SubjectKind = "duel_game"
	SubjectDuelRound    SubjectKind = "duel_round"
	SubjectUser         SubjectKind = "user"
)

var subjectKinds = []SubjectKind{
	SubjectEvent, SubjectRegistration, SubjectPoll, SubjectSpinWheel, SubjectSurvey,
	SubjectDisplayWall, SubjectQuiz, SubjectQuizQuestion, SubjectDuelGame, SubjectDuelRound, SubjectUser,
}

// ParseSubjectKind returns SubjectNone for unknown kinds.
func ParseSubjectKind(raw string) SubjectKind {
	normalized := SubjectKind(strings.ToLower(strings.TrimSpace(raw)))
	for _, kind := range subjectKinds {
		if kind == normalized {
			return kind
		}
	}
	return SubjectNone
}

// LogEntry is an append-only audit record.
type LogEntry struct {
	ID          string         `json:"id"`
	ActorID     *string        `json:"actor_id,omitempty"`
	Action      ActionKind     `json:"action"`
	SubjectKind SubjectKind    `json:"subject_kind,omitempty"`
	SubjectID   *string        `json:"subject_id,omitempty"`
	TenantID    *string        `json:"tenant_id,omitempty"`
	ModuleKey   string         `json:"module_key,omitempty"`
	Context     map[string]any `json:"context,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// EnrichedLogEntry is what live subscribers receive once the subject has been labelled.
type EnrichedLogEntry struct {
	LogEntry
	SubjectName *string     `json:"subject_name"`
	ModuleLabel ModuleLabel `json:"module_label"`
}

type AuditQuery struct {
	ActorID   string
	TenantID  string
	Action    string
	ModuleKey string
	From      string
	To        string
	Page      int
	Limit     int
}

type AuditListData struct {
	Items []LogEntry `json:"items"`
}

type RecordAuditRequest struct {
	Action      string         `json:"action"`
	SubjectKind string         `json:"subject_kind"`
	SubjectID   string         `json:"subject_id"`
	ModuleKey   string         `json:"module_key"`
	Context     map[string]any `json:"context"`
}

// ModuleLabel is the canonical, human-facing module name.
type ModuleLabel string

const (
	ModuleEvents        ModuleLabel = "Events"
	ModuleRegistrations ModuleLabel = "Registrations"
	ModulePolls         ModuleLabel = "Polls"
	ModuleSpinWheels    ModuleLabel = "Spin Wheels"
	ModuleSurveys       ModuleLabel = "Surveys"
	ModuleDisplayWalls  ModuleLabel = "Display Walls"
	ModuleQuizzes       ModuleLabel = "Quizzes"
	ModuleDuels         ModuleLabel = "Duels"
	ModuleUsers         ModuleLabel = "Users"
	ModuleAuth          ModuleLabel = "Authentication"
	ModuleOther         ModuleLabel = "Other"
)

// moduleKeywords is matched in order; more specific keywords come first so that
// "webinar_registrations" classifies as a registration, not an event.
var moduleKeywords = []struct {
	keyword string
	label   ModuleLabel
}{
	{"registration", ModuleRegistrations},
	{"attendee", ModuleRegistrations},
	{"spin", ModuleSpinWheels},
	{"wheel", ModuleSpinWheels},
	{"display", ModuleDisplayWalls},
	{"wall", ModuleDisplayWalls},
	{"survey", ModuleSurveys},
	{"poll", ModulePolls},
	{"quiz", ModuleQuizzes},
	{"duel", ModuleDuels},
	{"login", ModuleAuth},
	{"auth", ModuleAuth},
	{"user", ModuleUsers},
	{"webinar", ModuleEvents},
	{"event", ModuleEvents},
}

// ClassifyModule maps a loosely typed module key to its canonical label.
func ClassifyModule(key string) ModuleLabel {
	normalized := strings.ToLower(strings.TrimSpace(key))
	if normalized == "" {
		return ModuleOther
	}
	for _, candidate := range moduleKeywords {
		if strings.Contains(normalized, candidate.keyword) {
			return candidate.label
		}
	}
	return ModuleOther
}
