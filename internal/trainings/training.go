package trainings

// TrainingType groups trainings into the categories shown on the karte.
type TrainingType int

const (
	TrainingTypeFlexibility TrainingType = 1
	TrainingTypeCore        TrainingType = 2
	TrainingTypeStrength    TrainingType = 3
	TrainingTypeLadder      TrainingType = 4
	TrainingTypeWarmup      TrainingType = 5
	TrainingTypeCooldown    TrainingType = 6
)

// TypesInKarteOrder is the fixed category order of the karte page.
var TypesInKarteOrder = []TrainingType{
	TrainingTypeFlexibility,
	TrainingTypeCore,
	TrainingTypeStrength,
	TrainingTypeLadder,
	TrainingTypeWarmup,
	TrainingTypeCooldown,
}

func (tt TrainingType) Valid() bool {
	return tt >= TrainingTypeFlexibility && tt <= TrainingTypeCooldown
}

// Label returns the category heading used by the karte page. The
// flexibility category is historically labeled "Stretch" there.
func (tt TrainingType) Label() string {
	switch tt {
	case TrainingTypeFlexibility:
		return "Stretch"
	case TrainingTypeCore:
		return "Core"
	case TrainingTypeStrength:
		return "Strength"
	case TrainingTypeLadder:
		return "Ladder"
	case TrainingTypeWarmup:
		return "Warmup"
	case TrainingTypeCooldown:
		return "Cooldown"
	default:
		return "Unknown"
	}
}

// Training is a single item of the training catalog, e.g. "Plank hold 60s".
type Training struct {
	ID           int          `json:"id"`
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	TrainingType TrainingType `json:"training_type"`
}
