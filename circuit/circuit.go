package circuit

import (
	"slices"
)

// Gate represents a quantum gate placed on the circuit.
type Gate struct {
	Type     string
	Target   int
	Control  int       // -1 if not a controlled gate
	Controls []int     // Multiple control qubits (CCX, CSWAP)
	Cbit     int       // classical bit written by MEASURE, -1 otherwise
	Step     int       // position in circuit timeline
	Params   []float64 // Parameters for parameterized gates
	IsDagger bool      // True if gate is dagger (adjoint)
}

// Circuit holds the quantum circuit state.
type Circuit struct {
	NumQubits int
	NumCbits  int
	Gates     []Gate
	MaxSteps  int

	// Output lists the qubits holding the prepared data register, most
	// significant first. Empty means qubits 0..NumQubits-1.
	Output []int
}

// New returns an empty circuit over numQubits qubits.
func New(numQubits int) *Circuit {
	return &Circuit{NumQubits: numQubits}
}

// Clone returns a deep copy of the circuit.
func (c *Circuit) Clone() *Circuit {
	clone := &Circuit{
		NumQubits: c.NumQubits,
		NumCbits:  c.NumCbits,
		MaxSteps:  c.MaxSteps,
		Gates:     make([]Gate, len(c.Gates)),
		Output:    slices.Clone(c.Output),
	}
	for i, g := range c.Gates {
		g.Controls = slices.Clone(g.Controls)
		g.Params = slices.Clone(g.Params)
		clone.Gates[i] = g
	}
	return clone
}

func (c *Circuit) push(g Gate) {
	c.Gates = append(c.Gates, g)
	if g.Step >= c.MaxSteps {
		c.MaxSteps = g.Step + 1
	}
}

// AddGate appends a gate to the circuit.
func (c *Circuit) AddGate(gateType string, target, step int, control ...int) {
	ctrl := -1
	if len(control) > 0 {
		ctrl = control[0]
	}
	c.push(Gate{
		Type:    gateType,
		Target:  target,
		Control: ctrl,
		Cbit:    -1,
		Step:    step,
	})
}

// AddParameterizedGate appends a parameterized gate to the circuit.
func (c *Circuit) AddParameterizedGate(gateType string, target, step int, params []float64, control ...int) {
	ctrl := -1
	if len(control) > 0 {
		ctrl = control[0]
	}
	c.push(Gate{
		Type:    gateType,
		Target:  target,
		Control: ctrl,
		Cbit:    -1,
		Step:    step,
		Params:  params,
	})
}

// AddMultiControlGate appends a multi-controlled gate to the circuit.
// For CSWAP the first control is the swap control and target/Controls[1]
// are the swapped pair.
func (c *Circuit) AddMultiControlGate(gateType string, target, step int, controls []int) {
	c.push(Gate{
		Type:     gateType,
		Target:   target,
		Control:  -1,
		Controls: controls,
		Cbit:     -1,
		Step:     step,
	})
}

// AddDaggerGate appends a dagger (adjoint) gate to the circuit.
func (c *Circuit) AddDaggerGate(gateType string, target, step int) {
	c.push(Gate{
		Type:     gateType,
		Target:   target,
		Control:  -1,
		Cbit:     -1,
		Step:     step,
		IsDagger: true,
	})
}

// AddMeasure appends a measurement of qubit into classical bit cbit.
func (c *Circuit) AddMeasure(qubit, cbit, step int) {
	c.push(Gate{
		Type:    "MEASURE",
		Target:  qubit,
		Control: -1,
		Cbit:    cbit,
		Step:    step,
	})
	if cbit >= c.NumCbits {
		c.NumCbits = cbit + 1
	}
}

// AddBarrier appends a barrier spanning all qubits at the given step.
func (c *Circuit) AddBarrier(step int) {
	// Remove any existing barrier at this step
	c.Gates = slices.DeleteFunc(c.Gates, func(g Gate) bool {
		return g.Step == step && g.Type == "BARRIER"
	})
	c.push(Gate{
		Type:    "BARRIER",
		Target:  -1, // spans all qubits
		Control: -1,
		Cbit:    -1,
		Step:    step,
	})
}

// AddClassicalRegister grows the classical register by n bits and returns
// the index of the first new bit.
func (c *Circuit) AddClassicalRegister(n int) int {
	first := c.NumCbits
	c.NumCbits += n
	return first
}

// MeasureAll measures qubits[k] into classical bit firstCbit+len(qubits)-1-k,
// so the register value read as an integer is the basis index with qubits[0]
// as its most significant bit.
func (c *Circuit) MeasureAll(qubits []int, firstCbit int) {
	step := c.MaxSteps
	for k, q := range qubits {
		c.AddMeasure(q, firstCbit+len(qubits)-1-k, step)
	}
}

// DataQubits returns the qubits holding the prepared register.
func (c *Circuit) DataQubits() []int {
	if len(c.Output) > 0 {
		return slices.Clone(c.Output)
	}
	qubits := make([]int, c.NumQubits)
	for i := range qubits {
		qubits[i] = i
	}
	return qubits
}

// Qubits returns every qubit the gate touches, target last.
func (g Gate) Qubits() []int {
	var qs []int
	if g.Control >= 0 {
		qs = append(qs, g.Control)
	}
	qs = append(qs, g.Controls...)
	if g.Target >= 0 {
		qs = append(qs, g.Target)
	}
	return qs
}

// gateReferences reports whether the gate references the given qubit.
func (g Gate) gateReferences(qubit int) bool {
	return slices.Contains(g.Qubits(), qubit)
}

// GetGateAt returns the gate at the given step and qubit, or nil.
func (c *Circuit) GetGateAt(step, qubit int) *Gate {
	for i := range c.Gates {
		g := &c.Gates[i]
		if g.Step == step && g.gateReferences(qubit) {
			return g
		}
	}
	return nil
}

// HasMeasurements reports whether any qubit is measured.
func (c *Circuit) HasMeasurements() bool {
	return slices.ContainsFunc(c.Gates, func(g Gate) bool { return g.Type == "MEASURE" })
}
