package bdsp

import (
	"math"
	"math/cmplx"
)

// stateTree is the binary tree over the amplitudes of a 2^n vector. Level k
// holds 2^k nodes; node (k, j) has children (k+1, 2j) and (k+1, 2j+1), and
// level n holds the amplitudes themselves.
type stateTree struct {
	levels    int
	magnitude [][]float64
	phase     [][]float64
}

// newStateTree builds magnitudes (Euclidean norm of the children) and phases
// (mean phase of the children) bottom-up.
func newStateTree(vector []complex128, n int) *stateTree {
	t := &stateTree{
		levels:    n,
		magnitude: make([][]float64, n+1),
		phase:     make([][]float64, n+1),
	}

	t.magnitude[n] = make([]float64, len(vector))
	t.phase[n] = make([]float64, len(vector))
	for i, amp := range vector {
		t.magnitude[n][i] = cmplx.Abs(amp)
		t.phase[n][i] = cmplx.Phase(amp)
	}

	for k := n - 1; k >= 0; k-- {
		size := 1 << k
		t.magnitude[k] = make([]float64, size)
		t.phase[k] = make([]float64, size)
		for j := range size {
			l, r := 2*j, 2*j+1
			t.magnitude[k][j] = math.Hypot(t.magnitude[k+1][l], t.magnitude[k+1][r])
			t.phase[k][j] = (t.phase[k+1][l] + t.phase[k+1][r]) / 2
		}
	}
	return t
}

// angleTree holds, for every internal node, the RY angle splitting its weight
// between the children and the RZ angle setting their relative phase.
type angleTree struct {
	ry [][]float64
	rz [][]float64
}

func (t *stateTree) angles() *angleTree {
	a := &angleTree{
		ry: make([][]float64, t.levels),
		rz: make([][]float64, t.levels),
	}
	for k := range t.levels {
		size := 1 << k
		a.ry[k] = make([]float64, size)
		a.rz[k] = make([]float64, size)
		for j := range size {
			l, r := 2*j, 2*j+1
			a.ry[k][j] = 2 * math.Atan2(t.magnitude[k+1][r], t.magnitude[k+1][l])
			a.rz[k][j] = t.phase[k+1][r] - t.phase[k+1][l]
		}
	}
	return a
}

// slice returns the angles of the 2^depth nodes at level k+depth below node
// (k, j), left to right.
func slice(levels [][]float64, k, j, depth int) []float64 {
	width := 1 << depth
	return levels[k+depth][j*width : (j+1)*width]
}
