package irt

//
// CalibrationState owns the person and item parameters of a single
// calibration. Students and Items keep their input order; Theta and B
// are indexed in parallel with them.
//
type CalibrationState struct {
	Students []string
	Items    []string
	Theta    []float64
	B        []float64

	Iterations int
	Converged  bool
	// largest update in the final iteration
	MaxDelta float64

	studentIdx map[string]int
	itemIdx    map[string]int
}

func newState(students, items []string) *CalibrationState {
	st := &CalibrationState{
		studentIdx: make(map[string]int, len(students)),
		itemIdx:    make(map[string]int, len(items)),
	}
	for _, s := range students {
		if _, dup := st.studentIdx[s]; dup {
			continue
		}
		st.studentIdx[s] = len(st.Students)
		st.Students = append(st.Students, s)
	}
	for _, i := range items {
		if _, dup := st.itemIdx[i]; dup {
			continue
		}
		st.itemIdx[i] = len(st.Items)
		st.Items = append(st.Items, i)
	}
	st.Theta = make([]float64, len(st.Students))
	st.B = make([]float64, len(st.Items))
	return st
}

// Ability returns theta for a student.
func (st *CalibrationState) Ability(studentID string) (float64, bool) {
	s, ok := st.studentIdx[studentID]
	if !ok {
		return 0, false
	}
	return st.Theta[s], true
}

// Difficulty returns b for an item.
func (st *CalibrationState) Difficulty(itemID string) (float64, bool) {
	i, ok := st.itemIdx[itemID]
	if !ok {
		return 0, false
	}
	return st.B[i], true
}

// Prob is the model probability for a student/item pair. Unknown
// ids are treated as parameter 0.
func (st *CalibrationState) Prob(studentID, itemID string) float64 {
	theta, _ := st.Ability(studentID)
	b, _ := st.Difficulty(itemID)
	return Probability(theta, b)
}

func (st *CalibrationState) AbilityMap() map[string]float64 {
	m := make(map[string]float64, len(st.Students))
	for s, id := range st.Students {
		m[id] = st.Theta[s]
	}
	return m
}

func (st *CalibrationState) DifficultyMap() map[string]float64 {
	m := make(map[string]float64, len(st.Items))
	for i, id := range st.Items {
		m[id] = st.B[i]
	}
	return m
}
