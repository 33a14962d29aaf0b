package registry

import "go-event-platform/internal/model"

const (
	KeyEvents               = "events"
	KeyWebinars             = "webinars"
	KeyRegistrations        = "registrations"
	KeyWebinarRegistrations = "webinar_registrations"
	KeyPolls                = "polls"
	KeySpinWheels           = "spin_wheels"
	KeySurveys              = "surveys"
	KeyDisplayWalls         = "display_walls"
	KeyQuizzes              = "quizzes"
	KeyQuizQuestions        = "quiz_questions"
	KeyDuelGames            = "duel_games"
	KeyDuelRounds           = "duel_rounds"
)

// Default builds the platform's module table. tableHandler serves flat and
// joined modules, embeddedHandler serves modules whose items live inside a
// parent document.
func Default(tableHandler any, embeddedHandler any) (*Registry, error) {
	eventDependents := []Dependent{
		{Table: "registrations", ForeignKey: "event_id"},
		{Table: "polls", ForeignKey: "event_id"},
	}

	return New(
		Module{
			Key:          KeyEvents,
			Subject:      model.SubjectEvent,
			Entity:       Entity{Table: "events"},
			Extra:        &Condition{Column: "event_type", Value: "standard"},
			Strategy:     StrategyFlat,
			UniqueActive: []string{"tenant_id", "slug"},
			Dependents:   eventDependents,
			Handler:      tableHandler,
		},
		Module{
			Key:          KeyWebinars,
			Subject:      model.SubjectEvent,
			Entity:       Entity{Table: "events"},
			Extra:        &Condition{Column: "event_type", Value: "webinar"},
			Strategy:     StrategyFlat,
			UniqueActive: []string{"tenant_id", "slug"},
			Dependents:   eventDependents,
			Handler:      tableHandler,
		},
		Module{
			Key:      KeyRegistrations,
			Subject:  model.SubjectRegistration,
			Entity:   Entity{Table: "registrations", TitleColumn: "full_name"},
			Strategy: StrategyJoined,
			Join: &Join{
				Table:             "events",
				LocalColumn:       "event_id",
				Condition:         &Condition{Column: "event_type", Value: "standard"},
				PreserveUnmatched: true,
			},
			UniqueActive: []string{"event_id", "email"},
			Handler:      tableHandler,
		},
		Module{
			Key:      KeyWebinarRegistrations,
			Subject:  model.SubjectRegistration,
			Entity:   Entity{Table: "registrations", TitleColumn: "full_name"},
			Strategy: StrategyJoined,
			Join: &Join{
				Table:       "events",
				LocalColumn: "event_id",
				Condition:   &Condition{Column: "event_type", Value: "webinar"},
			},
			UniqueActive: []string{"event_id", "email"},
			Handler:      tableHandler,
		},
		Module{
			Key:      KeyPolls,
			Subject:  model.SubjectPoll,
			Entity:   Entity{Table: "polls"},
			Strategy: StrategyFlat,
			Handler:  tableHandler,
		},
		Module{
			Key:      KeySpinWheels,
			Subject:  model.SubjectSpinWheel,
			Entity:   Entity{Table: "spin_wheels"},
			Strategy: StrategyFlat,
			Handler:  tableHandler,
		},
		Module{
			Key:      KeySurveys,
			Subject:  model.SubjectSurvey,
			Entity:   Entity{Table: "surveys"},
			Strategy: StrategyFlat,
			Handler:  tableHandler,
		},
		Module{
			Key:          KeyDisplayWalls,
			Subject:      model.SubjectDisplayWall,
			Entity:       Entity{Table: "display_walls"},
			Strategy:     StrategyFlat,
			UniqueActive: []string{"tenant_id", "slug"},
			Handler:      tableHandler,
		},
		Module{
			Key:          KeyQuizzes,
			Subject:      model.SubjectQuiz,
			Entity:       Entity{Table: "quizzes"},
			Strategy:     StrategyFlat,
			UniqueActive: []string{"tenant_id", "code"},
			Handler:      tableHandler,
		},
		Module{
			Key:      KeyQuizQuestions,
			Subject:  model.SubjectQuizQuestion,
			Entity:   Entity{Table: "quizzes"},
			Strategy: StrategyEmbedded,
			Embedded: &Embedded{ArrayColumn: "questions", LabelKey: "text", ParentKeyColumn: "code"},
			Handler:  embeddedHandler,
		},
		Module{
			Key:      KeyDuelGames,
			Subject:  model.SubjectDuelGame,
			Entity:   Entity{Table: "duel_games"},
			Strategy: StrategyFlat,
			Handler:  tableHandler,
		},
		Module{
			Key:      KeyDuelRounds,
			Subject:  model.SubjectDuelRound,
			Entity:   Entity{Table: "duel_games"},
			Strategy: StrategyEmbedded,
			Embedded: &Embedded{ArrayColumn: "rounds", LabelKey: "title", ParentKeyColumn: "code"},
			Handler:  embeddedHandler,
		},
	)
}
