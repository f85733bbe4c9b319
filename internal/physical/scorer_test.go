package physical

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMeasurement(id int, date time.Time) Measurement {
	return Measurement{
		ID:                 id,
		UserID:             "mika",
		Grade:              "3",
		Date:               date,
		LongJumpCm:         110,
		FiftyMeterRunMs:    950,
		SpiderMs:           1500,
		EightShapeRunCount: 12,
		BallThrowCm:        600,
	}
}

func testAverageReference() Reference {
	return Reference{
		Grade:              "3",
		Type:               ReferenceTypeAverage,
		LongJumpCm:         100,
		FiftyMeterRunMs:    1000,
		SpiderMs:           1500,
		EightShapeRunCount: 10,
		BallThrowCm:        500,
	}
}

func TestScore_higherIsBetter(t *testing.T) {
	// long jump of 110cm against a cohort average of 100cm
	score, err := Score(MetricLongJump, 110, 100)
	require.NoError(t, err)
	assert.InDelta(t, 55.0, score, 0.0001)

	// exactly average
	score, err = Score(MetricBallThrow, 500, 500)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, score, 0.0001)

	// 10% below average
	score, err = Score(MetricEightShapeRun, 9, 10)
	require.NoError(t, err)
	assert.InDelta(t, 45.0, score, 0.0001)
}

func TestScore_lowerIsBetter(t *testing.T) {
	// 9.5s sprint against a 10.0s cohort average
	score, err := Score(MetricFiftyMeterRun, 9.5, 10.0)
	require.NoError(t, err)
	assert.InDelta(t, 52.5, score, 0.0001)

	// 9.53s, hundredths keep the precision
	score, err = Score(MetricFiftyMeterRun, 9.53, 10.0)
	require.NoError(t, err)
	assert.InDelta(t, 52.35, score, 0.0001)

	// slower than average
	score, err = Score(MetricSpider, 11.0, 10.0)
	require.NoError(t, err)
	assert.InDelta(t, 45.0, score, 0.0001)
}

func TestScore_clamped(t *testing.T) {
	// three times the average jump distance
	score, err := Score(MetricLongJump, 300, 100)
	require.NoError(t, err)
	assert.Equal(t, 100.0, score)

	// two and a half times slower than average
	score, err = Score(MetricSpider, 25.0, 10.0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, score)
}

func TestScore_zeroAverage(t *testing.T) {
	_, err := Score(MetricLongJump, 100, 0)
	assert.ErrorIs(t, err, ErrInvalidReferenceData)

	_, err = Score(MetricFiftyMeterRun, 9.5, 0)
	assert.ErrorIs(t, err, ErrInvalidReferenceData)
}

func TestScore_monotonic(t *testing.T) {
	// a better result never scores lower
	prevScore := -1.0
	for value := 50.0; value <= 150.0; value += 5 {
		score, err := Score(MetricLongJump, value, 100)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, score, prevScore)
		prevScore = score
	}

	prevScore = 101.0
	for value := 5.0; value <= 15.0; value += 0.5 {
		score, err := Score(MetricFiftyMeterRun, value, 10.0)
		require.NoError(t, err)
		assert.LessOrEqual(t, score, prevScore)
		prevScore = score
	}
}

func TestBuildProfile(t *testing.T) {
	measurements := []Measurement{
		testMeasurement(1, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)),
	}
	references := map[RefKey]Reference{
		{Grade: "3", Type: ReferenceTypeAverage}: testAverageReference(),
	}

	profile, err := BuildProfile("mika", measurements, references)
	require.NoError(t, err)
	assert.Equal(t, "mika", profile.UserID)
	assert.Equal(t, 50.0, profile.Baseline)

	// all five disciplines are on the profile, in the fixed axis order
	require.Len(t, profile.Axes, 5)
	assert.Equal(t, MetricLongJump, profile.Axes[0].Metric)
	assert.InDelta(t, 55.0, profile.Axes[0].Score, 0.0001)
	assert.InDelta(t, 110.0, profile.Axes[0].Value, 0.0001)
	assert.InDelta(t, 100.0, profile.Axes[0].Average, 0.0001)

	// the timed disciplines are converted from hundredths to seconds
	assert.Equal(t, MetricFiftyMeterRun, profile.Axes[1].Metric)
	assert.InDelta(t, 9.5, profile.Axes[1].Value, 0.0001)
	assert.InDelta(t, 10.0, profile.Axes[1].Average, 0.0001)
	assert.InDelta(t, 52.5, profile.Axes[1].Score, 0.0001)

	assert.Equal(t, MetricSpider, profile.Axes[2].Metric)
	assert.InDelta(t, 50.0, profile.Axes[2].Score, 0.0001)
	assert.Equal(t, MetricEightShapeRun, profile.Axes[3].Metric)
	assert.InDelta(t, 60.0, profile.Axes[3].Score, 0.0001)
	assert.Equal(t, MetricBallThrow, profile.Axes[4].Metric)
	assert.InDelta(t, 60.0, profile.Axes[4].Score, 0.0001)
}

func TestBuildProfile_latestMeasurementWins(t *testing.T) {
	older := testMeasurement(1, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
	older.LongJumpCm = 90
	newer := testMeasurement(2, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))

	references := map[RefKey]Reference{
		{Grade: "3", Type: ReferenceTypeAverage}: testAverageReference(),
	}

	profile, err := BuildProfile("mika", []Measurement{older, newer}, references)
	require.NoError(t, err)
	require.Len(t, profile.Axes, 5)
	assert.InDelta(t, 55.0, profile.Axes[0].Score, 0.0001)
}

func TestBuildProfile_sameDayHigherIDWins(t *testing.T) {
	date := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	first := testMeasurement(1, date)
	first.LongJumpCm = 90
	corrected := testMeasurement(2, date)

	references := map[RefKey]Reference{
		{Grade: "3", Type: ReferenceTypeAverage}: testAverageReference(),
	}

	profile, err := BuildProfile("mika", []Measurement{corrected, first}, references)
	require.NoError(t, err)
	require.Len(t, profile.Axes, 5)
	assert.InDelta(t, 55.0, profile.Axes[0].Score, 0.0001)
}

func TestBuildProfile_missingReference(t *testing.T) {
	measurements := []Measurement{
		testMeasurement(1, time.Now()),
	}

	// no average row for grade 3, a maximum row alone is not enough
	references := map[RefKey]Reference{
		{Grade: "3", Type: ReferenceTypeMaximum}: {
			Grade: "3", Type: ReferenceTypeMaximum,
			LongJumpCm: 180, FiftyMeterRunMs: 750, SpiderMs: 1100,
			EightShapeRunCount: 20, BallThrowCm: 900,
		},
	}

	_, err := BuildProfile("mika", measurements, references)
	assert.ErrorIs(t, err, ErrInvalidReferenceData)
}

func TestBuildProfile_noMeasurements(t *testing.T) {
	profile, err := BuildProfile("mika", nil, map[RefKey]Reference{})
	require.NoError(t, err)
	assert.Empty(t, profile.Axes)
	assert.Equal(t, 50.0, profile.Baseline)
}
