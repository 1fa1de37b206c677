package circuit

import (
	"slices"
)

// Append places a gate at the earliest step after every gate that already
// touches one of its qubits. qubits lists controls first and the target last;
// CCX and CSWAP take two controls, two-qubit gates one.
func (c *Circuit) Append(gateType string, params []float64, qubits ...int) {
	step := 0
	for _, g := range c.Gates {
		if g.Type == "BARRIER" || slices.ContainsFunc(qubits, g.gateReferences) {
			step = max(step, g.Step+1)
		}
	}

	target := qubits[len(qubits)-1]
	switch controls := qubits[:len(qubits)-1]; len(controls) {
	case 0:
		c.AddParameterizedGate(gateType, target, step, params)
	case 1:
		c.AddParameterizedGate(gateType, target, step, params, controls[0])
	default:
		c.AddMultiControlGate(gateType, target, step, slices.Clone(controls))
		c.Gates[len(c.Gates)-1].Params = params
	}
}

// Barrier appends a barrier after every gate placed so far.
func (c *Circuit) Barrier() {
	c.AddBarrier(c.MaxSteps)
}

// Schedule reassigns every gate step so that each gate runs as soon as the
// qubits it touches are free. Barriers occupy a step of their own and
// synchronise all qubits. Gate order on any single qubit is preserved.
func (c *Circuit) Schedule() {
	gates := c.ordered()
	free := make(map[int]int) // qubit -> first free step
	floor := 0                // first step after the last barrier
	maxSteps := 0

	for i := range gates {
		g := &gates[i]
		if g.Type == "BARRIER" {
			step := floor
			for _, s := range free {
				step = max(step, s)
			}
			g.Step = step
			floor = step + 1
			clear(free)
		} else {
			step := floor
			for _, q := range g.Qubits() {
				step = max(step, free[q])
			}
			g.Step = step
			for _, q := range g.Qubits() {
				free[q] = step + 1
			}
		}
		maxSteps = max(maxSteps, g.Step+1)
	}

	slices.SortStableFunc(gates, func(a, b Gate) int { return a.Step - b.Step })
	c.Gates = gates
	c.MaxSteps = maxSteps
}

// Depth returns the number of steps occupied by operations other than barriers
// and measurements, after scheduling a copy of the circuit.
func (c *Circuit) Depth() int {
	scheduled := c.Clone()
	scheduled.Schedule()
	steps := make(map[int]bool)
	for _, g := range scheduled.Gates {
		if g.Type == "BARRIER" || g.Type == "MEASURE" {
			continue
		}
		steps[g.Step] = true
	}
	return len(steps)
}

// Stats summarises the resources a circuit uses.
type Stats struct {
	Qubits int
	Depth  int
	Gates  int
	CNOTs  int
	ByType map[string]int
}

// cnotCost is the CNOT count of the textbook decomposition of each entangling gate.
var cnotCost = map[string]int{
	"CX": 1, "CZ": 1, "SWAP": 3, "CH": 2,
	"CRX": 2, "CRY": 2, "CRZ": 2, "CU1": 2,
	"CCX": 6, "CSWAP": 8,
}

// Stats counts gates by type and estimates the CNOT cost of the circuit.
func (c *Circuit) Stats() Stats {
	st := Stats{
		Qubits: c.NumQubits,
		Depth:  c.Depth(),
		ByType: make(map[string]int),
	}
	for _, g := range c.Gates {
		if g.Type == "BARRIER" || g.Type == "MEASURE" {
			continue
		}
		st.Gates++
		st.ByType[g.Type]++
		st.CNOTs += cnotCost[g.Type]
	}
	return st
}
