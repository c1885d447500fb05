package sdc

// StageHistory holds the committed state (u) and function (r) snapshots of
// the K implicit stages of one time step in two fixed arenas, sized once by
// SetNumberOfImplicitStages.
type StageHistory struct {
	k, dof    int
	u, r      []float64
	committed []bool
	count     int
}

func NewStageHistory(K, dof int) (h *StageHistory) {
	h = &StageHistory{
		k:         K,
		dof:       dof,
		u:         make([]float64, K*dof),
		r:         make([]float64, K*dof),
		committed: make([]bool, K),
	}
	return
}

// Capacity is the number of implicit stages K.
func (h *StageHistory) Capacity() int { return h.k }

// Len is the number of distinct stages committed since the last Reset.
func (h *StageHistory) Len() int { return h.count }

func (h *StageHistory) Has(k int) bool { return k >= 0 && k < h.k && h.committed[k] }

func (h *StageHistory) Commit(k int, u, r []float64) {
	copy(h.u[k*h.dof:(k+1)*h.dof], u)
	copy(h.r[k*h.dof:(k+1)*h.dof], r)
	if !h.committed[k] {
		h.committed[k] = true
		h.count++
	}
}

// U and R are views into the arena, valid until the next Commit or Reset of stage k.
func (h *StageHistory) U(k int) []float64 { return h.u[k*h.dof : (k+1)*h.dof] }
func (h *StageHistory) R(k int) []float64 { return h.r[k*h.dof : (k+1)*h.dof] }

func (h *StageHistory) Reset() {
	for i := range h.committed {
		h.committed[i] = false
	}
	h.count = 0
}
