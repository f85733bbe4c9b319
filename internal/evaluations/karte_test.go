package evaluations

import (
	"testing"

	"github.com/2beens/trainingkarte/internal/trainings"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTrainingsMap() map[int]trainings.Training {
	return map[int]trainings.Training{
		1: {ID: 1, Title: "Hamstring stretch", TrainingType: trainings.TrainingTypeFlexibility},
		2: {ID: 2, Title: "Plank hold 60s", TrainingType: trainings.TrainingTypeCore},
		3: {ID: 3, Title: "Goblet squats", TrainingType: trainings.TrainingTypeStrength},
		4: {ID: 4, Title: "Ladder in-in-out-out", TrainingType: trainings.TrainingTypeLadder},
	}
}

func TestBuildKarte_gradesAndCategories(t *testing.T) {
	evals := []Evaluation{
		{ID: 1, UserID: "mika", TrainingID: 1, Date: day("2024-05-01"), AchievementLevel: LevelExcellent},
		{ID: 2, UserID: "mika", TrainingID: 2, Date: day("2024-05-01"), AchievementLevel: LevelAchieved},
		{ID: 3, UserID: "mika", TrainingID: 3, Date: day("2024-05-02"), AchievementLevel: LevelNeedsImprovement},
		{ID: 4, UserID: "mika", TrainingID: 4, Date: day("2024-05-02"), AchievementLevel: LevelInProgress},
	}

	karte := BuildKarte("mika", evals, testTrainingsMap())
	assert.Equal(t, "mika", karte.UserID)

	// all six categories are always present, in the fixed karte order
	require.Len(t, karte.Categories, 6)
	assert.Equal(t, "Stretch", karte.Categories[0].TrainingTypeLabel)
	assert.Equal(t, "Core", karte.Categories[1].TrainingTypeLabel)
	assert.Equal(t, "Strength", karte.Categories[2].TrainingTypeLabel)
	assert.Equal(t, "Ladder", karte.Categories[3].TrainingTypeLabel)
	assert.Equal(t, "Warmup", karte.Categories[4].TrainingTypeLabel)
	assert.Equal(t, "Cooldown", karte.Categories[5].TrainingTypeLabel)

	require.Len(t, karte.Categories[0].Rows, 1)
	assert.Equal(t, "C", karte.Categories[0].Rows[0].Grade)
	assert.Equal(t, "2024-05-01", karte.Categories[0].Rows[0].Date)
	require.Len(t, karte.Categories[1].Rows, 1)
	assert.Equal(t, "B", karte.Categories[1].Rows[0].Grade)
	require.Len(t, karte.Categories[2].Rows, 1)
	assert.Equal(t, "A", karte.Categories[2].Rows[0].Grade)

	// in-progress trainings show up with no grade
	require.Len(t, karte.Categories[3].Rows, 1)
	assert.Equal(t, "-", karte.Categories[3].Rows[0].Grade)

	assert.Empty(t, karte.Categories[4].Rows)
	assert.Empty(t, karte.Categories[5].Rows)
}

func TestBuildKarte_summaryCounts(t *testing.T) {
	evals := []Evaluation{
		{ID: 1, UserID: "mika", TrainingID: 1, Date: day("2024-05-01"), AchievementLevel: LevelExcellent},
		{ID: 2, UserID: "mika", TrainingID: 2, Date: day("2024-05-01"), AchievementLevel: LevelAchieved},
		{ID: 3, UserID: "mika", TrainingID: 3, Date: day("2024-05-02"), AchievementLevel: LevelNeedsImprovement},
		{ID: 4, UserID: "mika", TrainingID: 4, Date: day("2024-05-02"), AchievementLevel: LevelInProgress},
	}

	karte := BuildKarte("mika", evals, testTrainingsMap())

	// in-progress evaluations are not a status
	assert.Equal(t, 3, karte.Summary.TotalTrainingsWithStatus)
	assert.Equal(t, 1, karte.Summary.InProgress)

	require.Len(t, karte.Summary.Categories, 6)
	assert.Equal(t, 1, karte.Summary.Categories[0].Excellent)
	assert.Equal(t, 1, karte.Summary.Categories[1].Achieved)
	assert.Equal(t, 1, karte.Summary.Categories[2].NeedsImprovement)

	// the ladder training is in progress, nothing counted there
	assert.Equal(t, 0, karte.Summary.Categories[3].Excellent)
	assert.Equal(t, 0, karte.Summary.Categories[3].Achieved)
	assert.Equal(t, 0, karte.Summary.Categories[3].NeedsImprovement)
}

func TestBuildKarte_onlyLatestEvaluationCounts(t *testing.T) {
	evals := []Evaluation{
		{ID: 1, UserID: "mika", TrainingID: 1, Date: day("2024-05-01"), AchievementLevel: LevelNeedsImprovement},
		{ID: 2, UserID: "mika", TrainingID: 1, Date: day("2024-06-01"), AchievementLevel: LevelExcellent},
	}

	karte := BuildKarte("mika", evals, testTrainingsMap())

	require.Len(t, karte.Categories[0].Rows, 1)
	assert.Equal(t, "C", karte.Categories[0].Rows[0].Grade)
	assert.Equal(t, "2024-06-01", karte.Categories[0].Rows[0].Date)

	assert.Equal(t, 1, karte.Summary.TotalTrainingsWithStatus)
	assert.Equal(t, 1, karte.Summary.Categories[0].Excellent)
	assert.Equal(t, 0, karte.Summary.Categories[0].NeedsImprovement)
}

func TestBuildKarte_reEvaluationMovesStatusBucket(t *testing.T) {
	// level 1 (needs improvement) in january, re-evaluated to level 3
	// (excellent) later the same month
	evals := []Evaluation{
		{ID: 1, UserID: "mika", TrainingID: 2, Date: day("2024-01-01"), AchievementLevel: 1},
		{ID: 2, UserID: "mika", TrainingID: 2, Date: day("2024-01-10"), AchievementLevel: 3},
	}

	karte := BuildKarte("mika", evals, testTrainingsMap())

	core := karte.Summary.Categories[1]
	assert.Equal(t, 1, core.Excellent)
	assert.Equal(t, 0, core.NeedsImprovement)
	assert.Equal(t, 1, karte.Summary.TotalTrainingsWithStatus)

	require.Len(t, karte.Categories[1].Rows, 1)
	assert.Equal(t, LevelExcellent, karte.Categories[1].Rows[0].AchievementLevel)
}

func TestBuildKarte_unknownTrainingSkipped(t *testing.T) {
	evals := []Evaluation{
		{ID: 1, UserID: "mika", TrainingID: 1, Date: day("2024-05-01"), AchievementLevel: LevelExcellent},
		// training 999 no longer exists in the catalog
		{ID: 2, UserID: "mika", TrainingID: 999, Date: day("2024-05-01"), AchievementLevel: LevelExcellent},
	}

	karte := BuildKarte("mika", evals, testTrainingsMap())

	totalRows := 0
	for _, c := range karte.Categories {
		totalRows += len(c.Rows)
	}
	assert.Equal(t, 1, totalRows)
	assert.Equal(t, 1, karte.Summary.TotalTrainingsWithStatus)
}

func TestBuildKarte_rowsSortedByTrainingID(t *testing.T) {
	trainingsMap := map[int]trainings.Training{
		5: {ID: 5, Title: "Plank hold 60s", TrainingType: trainings.TrainingTypeCore},
		7: {ID: 7, Title: "Side plank", TrainingType: trainings.TrainingTypeCore},
		2: {ID: 2, Title: "Dead bug", TrainingType: trainings.TrainingTypeCore},
	}
	evals := []Evaluation{
		{ID: 1, UserID: "mika", TrainingID: 7, Date: day("2024-05-01"), AchievementLevel: LevelAchieved},
		{ID: 2, UserID: "mika", TrainingID: 2, Date: day("2024-05-01"), AchievementLevel: LevelAchieved},
		{ID: 3, UserID: "mika", TrainingID: 5, Date: day("2024-05-01"), AchievementLevel: LevelAchieved},
	}

	karte := BuildKarte("mika", evals, trainingsMap)

	coreRows := karte.Categories[1].Rows
	require.Len(t, coreRows, 3)
	assert.Equal(t, 2, coreRows[0].TrainingID)
	assert.Equal(t, 5, coreRows[1].TrainingID)
	assert.Equal(t, 7, coreRows[2].TrainingID)
}

func TestAchievementLevel_Grade(t *testing.T) {
	// the letters follow the numeric level, 1 -> A up to 3 -> C
	assert.Equal(t, "A", LevelNeedsImprovement.Grade())
	assert.Equal(t, "B", LevelAchieved.Grade())
	assert.Equal(t, "C", LevelExcellent.Grade())
	assert.Equal(t, "-", LevelInProgress.Grade())
	assert.Equal(t, "-", AchievementLevel(42).Grade())
}
