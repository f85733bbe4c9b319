package evaluations

import (
	"time"
)

// AchievementLevel is the coach-given status of a training for an athlete.
// Higher numbers are better results up to level 3, level 4 means the
// training is still being worked on and carries no grade yet.
type AchievementLevel int

const (
	LevelNeedsImprovement AchievementLevel = 1
	LevelAchieved         AchievementLevel = 2
	LevelExcellent        AchievementLevel = 3
	LevelInProgress       AchievementLevel = 4
)

func (l AchievementLevel) Valid() bool {
	return l >= LevelNeedsImprovement && l <= LevelInProgress
}

// Grade returns the letter shown on the karte page. The letters follow
// the numeric level, not the severity: level 1 (needs improvement) is
// "A" and level 3 (excellent) is "C". The karte UI renders them that
// way, so keep the mapping literal.
func (l AchievementLevel) Grade() string {
	switch l {
	case LevelNeedsImprovement:
		return "A"
	case LevelAchieved:
		return "B"
	case LevelExcellent:
		return "C"
	default:
		return "-"
	}
}

// Evaluation is one coach evaluation of a user for a single training,
// on a given day. A user can be re-evaluated for the same training on a
// later day, only the latest evaluation counts for the karte.
type Evaluation struct {
	ID               int              `json:"id"`
	UserID           string           `json:"user_id"`
	TrainingID       int              `json:"training_id"`
	Date             time.Time        `json:"date"`
	AchievementLevel AchievementLevel `json:"achievement_level"`
	Comment          string           `json:"comment"`
	CreatedAt        time.Time        `json:"created_at"`
}

// SameDay compares only the calendar day of the evaluation dates.
func SameDay(t1, t2 time.Time) bool {
	y1, m1, d1 := t1.Date()
	y2, m2, d2 := t2.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
