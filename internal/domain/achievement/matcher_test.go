package achievement

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/pianova-hub/piano-progression-hub/internal/domain/progression"
)

func globalAchievement(req progression.RequirementType, value int) Achievement {
	return Achievement{
		ID:               uuid.New(),
		Title:            "Global",
		Requirement:      req,
		RequirementValue: value,
		Trigger:          Trigger{Kind: TriggerGlobal},
	}
}

func statsWith(xp progression.XP, lessons int) *progression.UserStats {
	s := progression.NewUserStats("user-1")
	s.TotalXP = xp
	s.LessonsCompleted = lessons
	return s
}

func TestMatcher_GlobalFiresOnFirstCrossing(t *testing.T) {
	m := NewMatcher()
	a := globalAchievement(progression.RequirementXP, 100)
	event := progression.CompletionEvent{UserID: "user-1", Action: progression.ActionLessonCompleted}

	// 90 -> 120 crosses 100.
	assert.True(t, m.Matches(a, event, statsWith(90, 0), statsWith(120, 0)))

	// 100 -> 150: already at the requirement before the credit, no fire.
	assert.False(t, m.Matches(a, event, statsWith(100, 0), statsWith(150, 0)))

	// 10 -> 90: requirement not reached.
	assert.False(t, m.Matches(a, event, statsWith(10, 0), statsWith(90, 0)))

	// 90 -> 100: landing exactly on the requirement counts as crossing.
	assert.True(t, m.Matches(a, event, statsWith(90, 0), statsWith(100, 0)))
}

func TestMatcher_GlobalCounterRequirement(t *testing.T) {
	m := NewMatcher()
	a := globalAchievement(progression.RequirementLessons, 10)
	event := progression.CompletionEvent{UserID: "user-1", Action: progression.ActionLessonCompleted}

	assert.True(t, m.Matches(a, event, statsWith(0, 9), statsWith(0, 10)))
	assert.False(t, m.Matches(a, event, statsWith(0, 10), statsWith(0, 11)))
}

func TestMatcher_GlobalNilStats(t *testing.T) {
	m := NewMatcher()
	a := globalAchievement(progression.RequirementXP, 100)
	event := progression.CompletionEvent{UserID: "user-1"}

	assert.False(t, m.Matches(a, event, nil, statsWith(200, 0)))
	assert.False(t, m.Matches(a, event, statsWith(0, 0), nil))
}

func TestMatcher_SubjectTriggers(t *testing.T) {
	m := NewMatcher()

	cases := []struct {
		kind    TriggerKind
		subject progression.SubjectType
	}{
		{TriggerLesson, progression.SubjectLesson},
		{TriggerQuiz, progression.SubjectQuiz},
		{TriggerMaterial, progression.SubjectMaterial},
	}
	for _, tc := range cases {
		a := Achievement{
			ID:      uuid.New(),
			Title:   string(tc.kind),
			Trigger: Trigger{Kind: tc.kind, SubjectID: "target-1"},
		}

		match := progression.CompletionEvent{Subject: tc.subject, SubjectID: "target-1"}
		assert.True(t, m.Matches(a, match, nil, nil), "kind %s", tc.kind)

		wrongID := progression.CompletionEvent{Subject: tc.subject, SubjectID: "other"}
		assert.False(t, m.Matches(a, wrongID, nil, nil), "kind %s", tc.kind)

		wrongSubject := progression.CompletionEvent{Subject: progression.SubjectNone, SubjectID: ""}
		assert.False(t, m.Matches(a, wrongSubject, nil, nil), "kind %s", tc.kind)
	}
}

func TestMatcher_LessonTriggerIgnoresQuizSubject(t *testing.T) {
	m := NewMatcher()
	a := Achievement{
		ID:      uuid.New(),
		Trigger: Trigger{Kind: TriggerLesson, SubjectID: "id-1"},
	}

	// Same ID but different subject category must not match.
	event := progression.CompletionEvent{Subject: progression.SubjectQuiz, SubjectID: "id-1"}
	assert.False(t, m.Matches(a, event, nil, nil))
}

func TestMatcher_MatchAllPreservesOrder(t *testing.T) {
	m := NewMatcher()
	first := globalAchievement(progression.RequirementXP, 50)
	second := Achievement{
		ID:      uuid.New(),
		Trigger: Trigger{Kind: TriggerLesson, SubjectID: "lesson-1"},
	}
	third := globalAchievement(progression.RequirementXP, 500)

	event := progression.CompletionEvent{
		Subject:   progression.SubjectLesson,
		SubjectID: "lesson-1",
	}

	matched := m.MatchAll(
		[]Achievement{first, second, third},
		event,
		statsWith(0, 0),
		statsWith(60, 1),
	)

	assert.Len(t, matched, 2)
	assert.Equal(t, first.ID, matched[0].ID)
	assert.Equal(t, second.ID, matched[1].ID)
}

func TestTrigger_Validate(t *testing.T) {
	assert.NoError(t, Trigger{Kind: TriggerGlobal}.Validate())
	assert.NoError(t, Trigger{Kind: TriggerLesson, SubjectID: "l-1"}.Validate())

	assert.Error(t, Trigger{Kind: TriggerKind("weekly")}.Validate())
	assert.Error(t, Trigger{Kind: TriggerGlobal, SubjectID: "l-1"}.Validate())
	assert.Error(t, Trigger{Kind: TriggerQuiz}.Validate())
}

func TestAchievement_Validate(t *testing.T) {
	valid := Achievement{
		ID:               uuid.New(),
		Title:            "Centurion",
		XPReward:         25,
		Requirement:      progression.RequirementXP,
		RequirementValue: 100,
		Trigger:          Trigger{Kind: TriggerGlobal},
	}
	assert.NoError(t, valid.Validate())

	missingID := valid
	missingID.ID = uuid.Nil
	assert.Error(t, missingID.Validate())

	missingTitle := valid
	missingTitle.Title = ""
	assert.Error(t, missingTitle.Validate())

	negativeReward := valid
	negativeReward.XPReward = -5
	assert.Error(t, negativeReward.Validate())

	badRequirement := valid
	badRequirement.Requirement = "followers"
	assert.Error(t, badRequirement.Validate())

	zeroValue := valid
	zeroValue.RequirementValue = 0
	assert.Error(t, zeroValue.Validate())
}
