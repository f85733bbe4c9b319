package physical

import "errors"

// ErrInvalidReferenceData means the cohort average is missing or zero,
// a score cannot be computed against it.
var ErrInvalidReferenceData = errors.New("invalid reference data")

const scoreBaseline = 50.0

// Score rates a measured value against the cohort average on a 0-100
// scale, where 50 means exactly average. The deviation from the average
// moves the score proportionally: a value 10% better than the average
// scores 55, 10% worse scores 45. Results are clamped to [0, 100].
// Value and average are in scoring units, seconds for the timed
// disciplines.
func Score(metric Metric, value, average float64) (float64, error) {
	if average == 0 {
		return 0, ErrInvalidReferenceData
	}

	var score float64
	if metric.LowerIsBetter() {
		score = scoreBaseline + ((average-value)/average)*scoreBaseline
	} else {
		score = scoreBaseline + ((value-average)/average)*scoreBaseline
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score, nil
}

type ProfileAxis struct {
	Metric  Metric  `json:"metric"`
	Label   string  `json:"label"`
	Value   float64 `json:"value"`
	Average float64 `json:"average"`
	Score   float64 `json:"score"`
}

// Profile is the five-axis radar of a user's physical test results.
type Profile struct {
	UserID   string        `json:"user_id"`
	Baseline float64       `json:"baseline"`
	Axes     []ProfileAxis `json:"axes"`
}

// BuildProfile scores the latest measurement of a user against the
// average reference row of its school grade. A user with no
// measurements gets an empty profile, a measurement without a usable
// average row is an error.
func BuildProfile(userID string, measurements []Measurement, references map[RefKey]Reference) (*Profile, error) {
	profile := &Profile{
		UserID:   userID,
		Baseline: scoreBaseline,
		Axes:     []ProfileAxis{},
	}
	if len(measurements) == 0 {
		return profile, nil
	}

	latest := measurements[0]
	for _, m := range measurements[1:] {
		if m.Date.After(latest.Date) || (m.Date.Equal(latest.Date) && m.ID > latest.ID) {
			latest = m
		}
	}

	average, ok := references[RefKey{Grade: latest.Grade, Type: ReferenceTypeAverage}]
	if !ok {
		return nil, ErrInvalidReferenceData
	}

	for _, metric := range AllMetrics {
		value := latest.MetricValue(metric)
		averageValue := average.MetricValue(metric)

		score, err := Score(metric, value, averageValue)
		if err != nil {
			return nil, err
		}

		profile.Axes = append(profile.Axes, ProfileAxis{
			Metric:  metric,
			Label:   metric.Label(),
			Value:   value,
			Average: averageValue,
			Score:   score,
		})
	}

	return profile, nil
}
