package evaluations

import (
	"sort"

	"github.com/2beens/trainingkarte/internal/trainings"
)

// KarteRow is one training of the karte page, with the latest status.
type KarteRow struct {
	TrainingID       int              `json:"training_id"`
	Title            string           `json:"title"`
	AchievementLevel AchievementLevel `json:"achievement_level"`
	Grade            string           `json:"grade"`
	Date             string           `json:"date"`
	Comment          string           `json:"comment"`
}

type KarteCategory struct {
	TrainingType      trainings.TrainingType `json:"training_type"`
	TrainingTypeLabel string                 `json:"training_type_label"`
	Rows              []KarteRow             `json:"rows"`
}

type SummaryCategory struct {
	TrainingType      trainings.TrainingType `json:"training_type"`
	TrainingTypeLabel string                 `json:"training_type_label"`
	NeedsImprovement  int                    `json:"needs_improvement"`
	Achieved          int                    `json:"achieved"`
	Excellent         int                    `json:"excellent"`
}

// Summary counts graded statuses per category. In-progress evaluations
// (level 4) are reported separately and never counted as a status.
type Summary struct {
	TotalTrainingsWithStatus int               `json:"total_trainings_with_status"`
	InProgress               int               `json:"in_progress"`
	Categories               []SummaryCategory `json:"categories"`
}

type Karte struct {
	UserID     string          `json:"user_id"`
	Categories []KarteCategory `json:"categories"`
	Summary    Summary         `json:"summary"`
}

// BuildKarte assembles the karte page data for one user from their raw
// evaluation history and the training catalog. The history is first
// reduced to the latest evaluation per training. Evaluations pointing
// to trainings no longer in the catalog are skipped.
func BuildKarte(userID string, evals []Evaluation, trainingsMap map[int]trainings.Training) Karte {
	latest := ReduceLatest(evals)

	rowsPerType := make(map[trainings.TrainingType][]KarteRow)
	summaryPerType := make(map[trainings.TrainingType]*SummaryCategory)
	for _, tt := range trainings.TypesInKarteOrder {
		summaryPerType[tt] = &SummaryCategory{
			TrainingType:      tt,
			TrainingTypeLabel: tt.Label(),
		}
	}

	summary := Summary{}
	for _, e := range latest {
		training, ok := trainingsMap[e.TrainingID]
		if !ok {
			// training removed from the catalog, skip its evaluations
			continue
		}

		row := KarteRow{
			TrainingID:       training.ID,
			Title:            training.Title,
			AchievementLevel: e.AchievementLevel,
			Grade:            e.AchievementLevel.Grade(),
			Date:             e.Date.Format("2006-01-02"),
			Comment:          e.Comment,
		}
		rowsPerType[training.TrainingType] = append(rowsPerType[training.TrainingType], row)

		categorySummary, ok := summaryPerType[training.TrainingType]
		if !ok {
			continue
		}
		switch e.AchievementLevel {
		case LevelExcellent:
			categorySummary.Excellent++
			summary.TotalTrainingsWithStatus++
		case LevelAchieved:
			categorySummary.Achieved++
			summary.TotalTrainingsWithStatus++
		case LevelNeedsImprovement:
			categorySummary.NeedsImprovement++
			summary.TotalTrainingsWithStatus++
		case LevelInProgress:
			summary.InProgress++
		}
	}

	karte := Karte{
		UserID: userID,
	}
	for _, tt := range trainings.TypesInKarteOrder {
		rows := rowsPerType[tt]
		sort.Slice(rows, func(i, j int) bool {
			return rows[i].TrainingID < rows[j].TrainingID
		})
		if rows == nil {
			rows = []KarteRow{}
		}
		karte.Categories = append(karte.Categories, KarteCategory{
			TrainingType:      tt,
			TrainingTypeLabel: tt.Label(),
			Rows:              rows,
		})
		summary.Categories = append(summary.Categories, *summaryPerType[tt])
	}
	karte.Summary = summary

	return karte
}
