package sim

import (
	"context"
	"fmt"
	"strconv"

	"github.com/qdeck/bdsp/circuit"
)

// Measurement measures qubits into a fresh classical register, executes the
// circuit for shots repetitions and returns the empirical probability of every
// outcome. Entry m is the frequency of reading m with qubits[0] as the most
// significant bit; outcomes never observed are 0. c itself is not modified.
func Measurement(ctx context.Context, backend Backend, c *circuit.Circuit, qubits []int, shots int) ([]float64, error) {
	measured := c.Clone()
	first := measured.AddClassicalRegister(len(qubits))
	measured.MeasureAll(qubits, first)

	counts, err := backend.Execute(ctx, measured, shots)
	if err != nil {
		return nil, err
	}

	// The new register holds the highest classical bits, which lead the bitstring.
	n := len(qubits)
	probs := make([]float64, 1<<n)
	for key, count := range counts {
		if len(key) < n {
			return nil, fmt.Errorf("outcome %q shorter than %d bits", key, n)
		}
		m, err := strconv.ParseUint(key[:n], 2, 64)
		if err != nil {
			return nil, fmt.Errorf("outcome %q: %w", key, err)
		}
		probs[m] += float64(count)
	}
	for i := range probs {
		probs[i] /= float64(shots)
	}
	return probs, nil
}
