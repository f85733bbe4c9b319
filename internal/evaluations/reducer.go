package evaluations

// ReduceLatest collapses a list of evaluations to the single current one
// per (user, training) pair. The evaluation with the most recent date
// wins, and for two evaluations on the same day the one inserted later
// (higher ID) wins. The input is not modified, the output keeps the
// order in which each (user, training) pair first appears.
func ReduceLatest(evals []Evaluation) []Evaluation {
	type pairKey struct {
		userID     string
		trainingID int
	}

	latestIdx := make(map[pairKey]int)
	var keysInOrder []pairKey

	for i, e := range evals {
		key := pairKey{userID: e.UserID, trainingID: e.TrainingID}
		currentIdx, seen := latestIdx[key]
		if !seen {
			latestIdx[key] = i
			keysInOrder = append(keysInOrder, key)
			continue
		}

		current := evals[currentIdx]
		if SameDay(e.Date, current.Date) {
			if e.ID > current.ID {
				latestIdx[key] = i
			}
			continue
		}
		if e.Date.After(current.Date) {
			latestIdx[key] = i
		}
	}

	reduced := make([]Evaluation, 0, len(keysInOrder))
	for _, key := range keysInOrder {
		reduced = append(reduced, evals[latestIdx[key]])
	}
	return reduced
}
