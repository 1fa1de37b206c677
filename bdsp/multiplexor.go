package bdsp

import (
	"math"
	"math/bits"
	"slices"

	"github.com/qdeck/bdsp/circuit"
)

// negligible angles are dropped instead of emitted as rotations.
const angleEpsilon = 1e-12

func negligible(angles []float64) bool {
	return !slices.ContainsFunc(angles, func(a float64) bool { return math.Abs(a) > angleEpsilon })
}

// multiplex appends a uniformly controlled rotation: for every control value
// v, gate(angles[v]) acts on target, where bit b of v is controls[b].
//
// The rotation is decomposed into 2^k plain rotations interleaved with CNOTs
// whose controls walk a Gray code, so that
//
//	angles[v] = Σ_i θ_i · (-1)^popcount(gray(i) & v)
//
// and θ = 2^-k · Mᵀ · angles for the ±1 matrix M of that relation.
func multiplex(c *circuit.Circuit, gate string, angles []float64, controls []int, target int) {
	if negligible(angles) {
		return
	}
	k := len(controls)
	if k == 0 {
		c.Append(gate, []float64{angles[0]}, target)
		return
	}

	size := 1 << k
	theta := make([]float64, size)
	for i := range size {
		g := gray(i)
		sum := 0.0
		for v, a := range angles {
			if bits.OnesCount(uint(g&v))%2 == 1 {
				sum -= a
			} else {
				sum += a
			}
		}
		theta[i] = sum / float64(size)
	}

	for i := range size {
		if math.Abs(theta[i]) > angleEpsilon {
			c.Append(gate, []float64{theta[i]}, target)
		}
		flip := gray(i) ^ gray((i+1)%size)
		c.Append("CX", nil, controls[bits.TrailingZeros(uint(flip))], target)
	}
}

func gray(i int) int {
	return i ^ (i >> 1)
}
