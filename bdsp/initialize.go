// Package bdsp synthesizes state preparation circuits with the bidirectional
// strategy: the amplitude tree is cut at a configurable level, the subtrees
// below the cut are loaded top-down with multiplexed rotations, and the
// levels above it are merged bottom-up with controlled swaps.
//
// The split parameter s trades depth for width. With n = log2(len(vector)):
//
//	s = n   top-down, n qubits, O(2^n) depth
//	s = 1   bottom-up, 2^n - 1 qubits, O(n^2) depth
//	s = ⌈n/2⌉ (default) sublinear in both
//
// Bottom-up merging leaves the non-output qubits entangled with the data
// register, so the prepared state is exact on the output qubits' measurement
// statistics, not as a pure state of the whole register.
package bdsp

import (
	"errors"
	"fmt"
	"io"
	"math"
	"math/bits"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/qdeck/bdsp/circuit"
)

var (
	// ErrNotPowerOfTwo is returned for vectors whose length is not 2^n with n >= 1.
	ErrNotPowerOfTwo = errors.New("state length must be a power of two >= 2")
	// ErrNotNormalized is returned for vectors whose Euclidean norm is not 1.
	ErrNotNormalized = errors.New("state vector is not normalized")
	// ErrSplitRange is returned for a split outside [1, n].
	ErrSplitRange = errors.New("split out of range")
	// ErrBadOptParam is returned by ParseOptParams for values of the wrong type.
	ErrBadOptParam = errors.New("invalid option parameter")
)

// NormTolerance is the largest accepted deviation of ‖v‖ from 1.
const NormTolerance = 1e-6

// Options configures the synthesis. A nil Split selects DefaultSplit.
type Options struct {
	Split *int
}

// WithSplit returns Options selecting split s.
func WithSplit(s int) Options {
	return Options{Split: &s}
}

// ParseOptParams reads the {"split": value} mapping used by callers that pass
// options untyped. A missing or nil split means automatic. Unknown keys are ignored.
func ParseOptParams(params map[string]any) (Options, error) {
	raw, ok := params["split"]
	if !ok || raw == nil {
		return Options{}, nil
	}
	switch v := raw.(type) {
	case int:
		return WithSplit(v), nil
	case int64:
		return WithSplit(int(v)), nil
	case float64:
		if v != math.Trunc(v) {
			return Options{}, fmt.Errorf("%w: split %v is not an integer", ErrBadOptParam, v)
		}
		return WithSplit(int(v)), nil
	case *int:
		return Options{Split: v}, nil
	}
	return Options{}, fmt.Errorf("%w: split has type %T", ErrBadOptParam, raw)
}

// DefaultSplit is the split used when none is given: ⌈n/2⌉, at least 1.
func DefaultSplit(n int) int {
	return max((n+1)/2, 1)
}

// QubitCount returns the width of the circuit for n data qubits and split s.
func QubitCount(n, s int) int {
	return (s+1)<<(n-s) - 1
}

// Preparer builds a circuit that prepares a normalized state vector.
type Preparer interface {
	Prepare(vector []complex128, opts Options) (*circuit.Circuit, error)
}

// Initializer is the bidirectional Preparer.
type Initializer struct {
	Logger *log.Logger
}

// Initialize prepares vector with a default Initializer.
func Initialize(vector []complex128, opts Options) (*circuit.Circuit, error) {
	return Initializer{}.Prepare(vector, opts)
}

// NumQubits returns log2(len(vector)), or ErrNotPowerOfTwo.
func NumQubits(vector []complex128) (int, error) {
	size := len(vector)
	if size < 2 || size&(size-1) != 0 {
		return 0, fmt.Errorf("%w: got %d", ErrNotPowerOfTwo, size)
	}
	return bits.TrailingZeros(uint(size)), nil
}

// Prepare returns the circuit preparing vector on its Output qubits.
func (in Initializer) Prepare(vector []complex128, opts Options) (*circuit.Circuit, error) {
	n, err := NumQubits(vector)
	if err != nil {
		return nil, err
	}

	norm := 0.0
	for _, amp := range vector {
		norm += real(amp)*real(amp) + imag(amp)*imag(amp)
	}
	if math.Abs(math.Sqrt(norm)-1) > NormTolerance {
		return nil, fmt.Errorf("%w: norm %.9f", ErrNotNormalized, math.Sqrt(norm))
	}

	split := DefaultSplit(n)
	if opts.Split != nil {
		split = *opts.Split
	}
	if split < 1 || split > n {
		return nil, fmt.Errorf("%w: split %d not in [1, %d]", ErrSplitRange, split, n)
	}

	angles := newStateTree(vector, n).angles()
	c := build(angles, n, split)

	logger := in.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	logger.Debug("synthesized state preparation",
		"data_qubits", n,
		"split", split,
		"qubits", c.NumQubits,
		"gates", len(c.Gates),
	)
	return c, nil
}

// build lays out the circuit: one qubit per node above the cut level n-s,
// s qubits per subtree rooted at the cut.
func build(angles *angleTree, n, s int) *circuit.Circuit {
	cut := n - s
	c := circuit.New(QubitCount(n, s))
	next := 0
	alloc := func(k int) []int {
		qs := make([]int, k)
		for i := range qs {
			qs[i] = next
			next++
		}
		return qs
	}

	// registers[k][j] is the data register of node (k, j) once merged.
	registers := make([][][]int, cut+1)
	registers[cut] = make([][]int, 1<<cut)
	for j := range registers[cut] {
		registers[cut][j] = alloc(s)
	}
	nodeQubit := make([][]int, cut)
	for k := range cut {
		nodeQubit[k] = alloc(1 << k)
	}

	// Top-down loading of every subtree below the cut.
	for j, reg := range registers[cut] {
		for depth := range s {
			// controls least significant first: reg[depth-1] … reg[0]
			controls := slices.Clone(reg[:depth])
			slices.Reverse(controls)
			multiplex(c, "RY", slice(angles.ry, cut, j, depth), controls, reg[depth])
			multiplex(c, "RZ", slice(angles.rz, cut, j, depth), controls, reg[depth])
		}
	}

	// Nodes above the cut are independent single-qubit rotations.
	for k := range cut {
		for j, q := range nodeQubit[k] {
			multiplex(c, "RY", angles.ry[k][j:j+1], nil, q)
			multiplex(c, "RZ", angles.rz[k][j:j+1], nil, q)
		}
	}

	// Bottom-up merging: a set node qubit swaps its right subtree's register
	// into its left subtree's register.
	for k := cut - 1; k >= 0; k-- {
		registers[k] = make([][]int, 1<<k)
		for j, q := range nodeQubit[k] {
			left, right := registers[k+1][2*j], registers[k+1][2*j+1]
			for i := range left {
				c.Append("CSWAP", nil, q, left[i], right[i])
			}
			registers[k][j] = append([]int{q}, left...)
		}
	}

	c.Output = registers[0][0]
	return c
}
