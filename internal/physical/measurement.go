package physical

import "time"

// Metric is one of the five physical test disciplines, the axes of the
// profile radar.
type Metric string

const (
	MetricLongJump      Metric = "long_jump"
	MetricFiftyMeterRun Metric = "fifty_meter_run"
	MetricSpider        Metric = "spider"
	MetricEightShapeRun Metric = "eight_shape_run"
	MetricBallThrow     Metric = "ball_throw"
)

// AllMetrics is the fixed axis order of the physical profile radar.
var AllMetrics = []Metric{
	MetricLongJump,
	MetricFiftyMeterRun,
	MetricSpider,
	MetricEightShapeRun,
	MetricBallThrow,
}

// LowerIsBetter reports whether a smaller measured value is the better
// result, which is the case for the timed disciplines.
func (m Metric) LowerIsBetter() bool {
	return m == MetricFiftyMeterRun || m == MetricSpider
}

func (m Metric) Label() string {
	switch m {
	case MetricLongJump:
		return "Long Jump"
	case MetricFiftyMeterRun:
		return "50m Run"
	case MetricSpider:
		return "Spider"
	case MetricEightShapeRun:
		return "8-Shape Run"
	case MetricBallThrow:
		return "Ball Throw"
	default:
		return "Unknown"
	}
}

// Measurement is one dated set of the five physical test values of a
// user. The timed disciplines are stored as integer hundredths of a
// second, e.g. a 50m time of 9.53s is stored as 953. Distances are in
// centimeters, the 8-shape run is a repetition count.
type Measurement struct {
	ID                 int       `json:"id"`
	UserID             string    `json:"user_id"`
	Grade              string    `json:"grade"`
	Date               time.Time `json:"date"`
	LongJumpCm         float64   `json:"long_jump_cm"`
	FiftyMeterRunMs    int       `json:"fifty_meter_run_ms"`
	SpiderMs           int       `json:"spider_ms"`
	EightShapeRunCount float64   `json:"eight_shape_run_count"`
	BallThrowCm        float64   `json:"ball_throw_cm"`
}

// MetricValue returns the value of one discipline in scoring units,
// converting the stored hundredths of the timed fields to seconds.
func (m Measurement) MetricValue(metric Metric) float64 {
	switch metric {
	case MetricLongJump:
		return m.LongJumpCm
	case MetricFiftyMeterRun:
		return float64(m.FiftyMeterRunMs) / 100
	case MetricSpider:
		return float64(m.SpiderMs) / 100
	case MetricEightShapeRun:
		return m.EightShapeRunCount
	case MetricBallThrow:
		return m.BallThrowCm
	default:
		return 0
	}
}

// ReferenceType says whether a reference row holds the cohort average
// or the cohort maximum of a school grade.
type ReferenceType string

const (
	ReferenceTypeAverage ReferenceType = "average"
	ReferenceTypeMaximum ReferenceType = "maximum"
)

func (rt ReferenceType) Valid() bool {
	return rt == ReferenceTypeAverage || rt == ReferenceTypeMaximum
}

// Reference is one cohort row of the five disciplines for a school
// grade, same field shape and units as Measurement.
type Reference struct {
	Grade              string        `json:"grade"`
	Type               ReferenceType `json:"type"`
	LongJumpCm         float64       `json:"long_jump_cm"`
	FiftyMeterRunMs    int           `json:"fifty_meter_run_ms"`
	SpiderMs           int           `json:"spider_ms"`
	EightShapeRunCount float64       `json:"eight_shape_run_count"`
	BallThrowCm        float64       `json:"ball_throw_cm"`
}

func (r Reference) MetricValue(metric Metric) float64 {
	switch metric {
	case MetricLongJump:
		return r.LongJumpCm
	case MetricFiftyMeterRun:
		return float64(r.FiftyMeterRunMs) / 100
	case MetricSpider:
		return float64(r.SpiderMs) / 100
	case MetricEightShapeRun:
		return r.EightShapeRunCount
	case MetricBallThrow:
		return r.BallThrowCm
	default:
		return 0
	}
}

// RefKey identifies a cohort reference row.
type RefKey struct {
	Grade string
	Type  ReferenceType
}
