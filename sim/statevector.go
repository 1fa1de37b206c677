package sim

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/qdeck/bdsp/circuit"
)

// ErrUnknownGate is returned when a circuit holds a gate the simulator cannot apply.
var ErrUnknownGate = errors.New("unknown gate")

// matrix is a single-qubit operator in row-major order.
type matrix [2][2]complex128

// StateVector holds 2^NumQubits amplitudes; qubit q is bit q of the basis index.
type StateVector struct {
	Amplitudes []complex128
	NumQubits  int
}

// NewStateVector returns |0…0⟩ over numQubits qubits.
func NewStateVector(numQubits int) *StateVector {
	amps := make([]complex128, 1<<numQubits)
	amps[0] = 1
	return &StateVector{Amplitudes: amps, NumQubits: numQubits}
}

// Clone returns an independent copy of the state.
func (s *StateVector) Clone() *StateVector {
	amps := make([]complex128, len(s.Amplitudes))
	copy(amps, s.Amplitudes)
	return &StateVector{Amplitudes: amps, NumQubits: s.NumQubits}
}

func param(params []float64, i int) float64 {
	if i < len(params) {
		return params[i]
	}
	return 0
}

func phase(theta float64) complex128 {
	return cmplx.Exp(complex(0, theta))
}

func rx(theta float64) matrix {
	c := complex(math.Cos(theta/2), 0)
	js := complex(0, -math.Sin(theta/2))
	return matrix{{c, js}, {js, c}}
}

func ry(theta float64) matrix {
	c := complex(math.Cos(theta/2), 0)
	s := complex(math.Sin(theta/2), 0)
	return matrix{{c, -s}, {s, c}}
}

func rz(theta float64) matrix {
	return matrix{{phase(-theta / 2), 0}, {0, phase(theta / 2)}}
}

func u3(theta, phi, lambda float64) matrix {
	c := complex(math.Cos(theta/2), 0)
	s := complex(math.Sin(theta/2), 0)
	return matrix{
		{c, -phase(lambda) * s},
		{phase(phi) * s, phase(phi+lambda) * c},
	}
}

// singleQubitMatrix returns the operator applied to the target of a
// (possibly controlled) gate, keyed by the gate type with any leading "C"
// of a controlled variant stripped.
func singleQubitMatrix(gateType string, params []float64, dagger bool) (matrix, bool) {
	h := complex(1.0/math.Sqrt2, 0)
	switch gateType {
	case "I", "ID":
		return matrix{{1, 0}, {0, 1}}, true
	case "H":
		return matrix{{h, h}, {h, -h}}, true
	case "X":
		return matrix{{0, 1}, {1, 0}}, true
	case "Y":
		return matrix{{0, -1i}, {1i, 0}}, true
	case "Z":
		return matrix{{1, 0}, {0, -1}}, true
	case "S":
		if dagger {
			return matrix{{1, 0}, {0, -1i}}, true
		}
		return matrix{{1, 0}, {0, 1i}}, true
	case "SDG":
		return matrix{{1, 0}, {0, -1i}}, true
	case "T":
		if dagger {
			return matrix{{1, 0}, {0, phase(-math.Pi / 4)}}, true
		}
		return matrix{{1, 0}, {0, phase(math.Pi / 4)}}, true
	case "TDG":
		return matrix{{1, 0}, {0, phase(-math.Pi / 4)}}, true
	case "SX":
		a, b := complex(0.5, 0.5), complex(0.5, -0.5)
		if dagger {
			a, b = b, a
		}
		return matrix{{a, b}, {b, a}}, true
	case "RX":
		return rx(param(params, 0)), true
	case "RY":
		return ry(param(params, 0)), true
	case "RZ":
		return rz(param(params, 0)), true
	case "P", "U1":
		return matrix{{1, 0}, {0, phase(param(params, 0))}}, true
	case "U2":
		return u3(math.Pi/2, param(params, 0), param(params, 1)), true
	case "U3", "U":
		return u3(param(params, 0), param(params, 1), param(params, 2)), true
	}
	return matrix{}, false
}

// applyMatrix applies m to qubit q on every basis pair whose control bits
// (ctrlMask) are all set.
func (s *StateVector) applyMatrix(q int, m matrix, ctrlMask int) {
	bit := 1 << q
	for i := range s.Amplitudes {
		if i&bit != 0 || i&ctrlMask != ctrlMask {
			continue
		}
		j := i | bit
		a0, a1 := s.Amplitudes[i], s.Amplitudes[j]
		s.Amplitudes[i] = m[0][0]*a0 + m[0][1]*a1
		s.Amplitudes[j] = m[1][0]*a0 + m[1][1]*a1
	}
}

// applySwap exchanges qubits q1 and q2 on every basis state whose control
// bits are all set.
func (s *StateVector) applySwap(q1, q2, ctrlMask int) {
	bit1 := 1 << q1
	bit2 := 1 << q2
	for i := range s.Amplitudes {
		if i&bit1 != 0 && i&bit2 == 0 && i&ctrlMask == ctrlMask {
			j := (i &^ bit1) | bit2
			s.Amplitudes[i], s.Amplitudes[j] = s.Amplitudes[j], s.Amplitudes[i]
		}
	}
}

// ApplyGate applies a single gate. MEASURE and BARRIER are no-ops here;
// sampling happens in the backend.
func (s *StateVector) ApplyGate(g circuit.Gate) error {
	for _, q := range g.Qubits() {
		if q < 0 || q >= s.NumQubits {
			if g.Type == "BARRIER" {
				continue
			}
			return fmt.Errorf("%s: qubit %d out of range [0,%d)", g, q, s.NumQubits)
		}
	}

	switch g.Type {
	case "MEASURE", "BARRIER":
		return nil
	case "SWAP":
		s.applySwap(g.Control, g.Target, 0)
		return nil
	case "CSWAP":
		if len(g.Controls) != 2 {
			return fmt.Errorf("%s: cswap needs a control and a swap partner", g)
		}
		s.applySwap(g.Controls[1], g.Target, 1<<g.Controls[0])
		return nil
	case "CCX":
		mask := 0
		for _, c := range g.Controls {
			mask |= 1 << c
		}
		m, _ := singleQubitMatrix("X", nil, false)
		s.applyMatrix(g.Target, m, mask)
		return nil
	}

	if g.Control >= 0 {
		base := g.Type
		if base == "CU1" || base == "CP" {
			base = "U1"
		} else if len(base) > 1 && base[0] == 'C' {
			base = base[1:]
		}
		m, ok := singleQubitMatrix(base, g.Params, g.IsDagger)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownGate, g.Type)
		}
		s.applyMatrix(g.Target, m, 1<<g.Control)
		return nil
	}

	mask := 0
	for _, c := range g.Controls {
		mask |= 1 << c
	}
	m, ok := singleQubitMatrix(g.Type, g.Params, g.IsDagger)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownGate, g.Type)
	}
	s.applyMatrix(g.Target, m, mask)
	return nil
}

// Run simulates the circuit from |0…0⟩, applying gates in step order.
func Run(c *circuit.Circuit) (*StateVector, error) {
	if c.NumQubits == 0 {
		return NewStateVector(1), nil
	}
	state := NewStateVector(c.NumQubits)
	ordered := c.Clone()
	ordered.Schedule()
	for _, gate := range ordered.Gates {
		if err := state.ApplyGate(gate); err != nil {
			return nil, err
		}
	}
	return state, nil
}

// Probabilities returns |amplitude|^2 for every basis state.
func (s *StateVector) Probabilities() []float64 {
	probs := make([]float64, len(s.Amplitudes))
	for i, amp := range s.Amplitudes {
		probs[i] = real(amp * cmplx.Conj(amp))
	}
	return probs
}

// Marginal returns the exact outcome distribution of measuring qubits, read
// as an integer with qubits[0] as the most significant bit.
func (s *StateVector) Marginal(qubits []int) []float64 {
	out := make([]float64, 1<<len(qubits))
	for i, p := range s.Probabilities() {
		out[extract(i, qubits)] += p
	}
	return out
}

// extract gathers the bits of basis index i at the given qubit positions,
// qubits[0] first (most significant).
func extract(i int, qubits []int) int {
	v := 0
	for _, q := range qubits {
		v = v<<1 | (i>>q)&1
	}
	return v
}

// Norm returns the Euclidean norm of the state.
func (s *StateVector) Norm() float64 {
	sum := 0.0
	for _, p := range s.Probabilities() {
		sum += p
	}
	return math.Sqrt(sum)
}
