package circuit

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQASMGateSet(t *testing.T) {
	qasm := `OPENQASM 2.0;
include "qelib1.inc";

qreg q[3];
creg c[2];

h q[1];
cx q[1], q[2];
ry(pi/4) q[0];
rz(-0.25) q[2];
sdg q[0];
cswap q[0], q[1], q[2];
ccx q[0], q[1], q[2];
measure q[0] -> c[1];
measure q[1] -> c[0];`

	c := Circuit{}
	require.NoError(t, c.ParseQASM(qasm))

	assert.Equal(t, 3, c.NumQubits)
	assert.Equal(t, 2, c.NumCbits)
	require.Len(t, c.Gates, 9)

	types := make([]string, len(c.Gates))
	for i, g := range c.Gates {
		types[i] = g.Type
	}
	assert.Equal(t, []string{"H", "RY", "CX", "S", "RZ", "CSWAP", "CCX", "MEASURE", "MEASURE"}, types)

	s := c.Gates[3]
	assert.True(t, s.IsDagger)
	assert.Equal(t, 0, s.Target)

	cswap := c.Gates[5]
	assert.Equal(t, []int{0, 1}, cswap.Controls)
	assert.Equal(t, 2, cswap.Target)

	m := c.Gates[7]
	assert.Equal(t, 0, m.Target)
	assert.Equal(t, 1, m.Cbit)
}

func TestParseQASMUnsupported(t *testing.T) {
	tests := []struct {
		name string
		stmt string
	}{
		{"classical control", "if (c[0]==1) x q[1];"},
		{"reset", "reset q[0];"},
		{"unknown two qubit gate", "foo q[0], q[1];"},
		{"unknown parameterized gate", "bogus(0.5) q[0];"},
		{"unknown controlled rotation", "crw(0.5) q[0], q[1];"},
		{"unknown three qubit gate", "ccz q[0], q[1], q[2];"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Circuit{}
			err := c.ParseQASM("qreg q[3];\n" + tt.stmt)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUnsupported)
			assert.Contains(t, err.Error(), "line 2")
			assert.Empty(t, c.Gates)
		})
	}
}

func TestParseQASMKnownGates(t *testing.T) {
	c := Circuit{}
	require.NoError(t, c.ParseQASM("qreg q[3];\nh q[0];\nsdg q[1];\nu3(0.1, 0.2, 0.3) q[2];\ncp(pi/4) q[0], q[1];\ncy q[1], q[2];"))
	require.Len(t, c.Gates, 5)
	assert.Equal(t, "S", c.Gates[1].Type)
	assert.True(t, c.Gates[1].IsDagger)
	assert.Equal(t, "CU1", c.Gates[3].Type)
	assert.Equal(t, "CY", c.Gates[4].Type)
}

func TestRoundTripQASM(t *testing.T) {
	c := New(4)
	c.Output = []int{3, 1, 0}
	c.Append("RY", []float64{1.234567890123}, 0)
	c.Append("RZ", []float64{math.Pi / 2}, 1)
	c.Append("CX", nil, 0, 1)
	c.Append("CSWAP", nil, 2, 0, 3)
	c.Barrier()
	first := c.AddClassicalRegister(3)
	c.MeasureAll(c.DataQubits(), first)

	qasm := c.ToQASM()
	assert.Contains(t, qasm, "// output q[3], q[1], q[0]")
	assert.Contains(t, qasm, "rz(pi/2) q[1];")
	assert.Contains(t, qasm, "cswap q[2], q[0], q[3];")
	assert.Contains(t, qasm, "measure q[3] -> c[2];")

	c2 := Circuit{}
	require.NoError(t, c2.ParseQASM(qasm))
	assert.Equal(t, c.Output, c2.Output)
	assert.Equal(t, c.NumCbits, c2.NumCbits)
	require.Len(t, c2.Gates, len(c.Gates))
	assert.InDelta(t, 1.234567890123, c2.Gates[0].Params[0], 1e-15)
	assert.Equal(t, c.ToQASM(), c2.ToQASM())
}

func TestParseParamExpr(t *testing.T) {
	tests := []struct {
		input string
		want  float64
		ok    bool
	}{
		{"1.5707", 1.5707, true},
		{"-0.5", -0.5, true},
		{"1e-3", 1e-3, true},
		{"0", 0, true},
		{"pi", math.Pi, true},
		{"PI", math.Pi, true},
		{"pi/2", math.Pi / 2, true},
		{"2pi", 2 * math.Pi, true},
		{"3*pi/4", 3 * math.Pi / 4, true},
		{"-3*pi/4", -3 * math.Pi / 4, true},
		{" 3 * pi / 4 ", 3 * math.Pi / 4, true},
		{"", 0, false},
		{"abc", 0, false},
		{"pi/0", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseParamExpr(tt.input)
		if !assert.Equal(t, tt.ok, ok, "ParseParamExpr(%q)", tt.input) {
			continue
		}
		if ok {
			assert.InDelta(t, tt.want, got, 1e-10, "ParseParamExpr(%q)", tt.input)
		}
	}
}

func TestFormatParam(t *testing.T) {
	tests := []struct {
		input float64
		want  string
	}{
		{math.Pi, "pi"},
		{math.Pi / 2, "pi/2"},
		{3 * math.Pi / 4, "3*pi/4"},
		{-math.Pi / 2, "-pi/2"},
		{2 * math.Pi, "2*pi"},
		{1.5, "1.5"},
		{0, "0"},
		{0.1234567890123, "0.1234567890123"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatParam(tt.input))
	}
}

func TestParseParams(t *testing.T) {
	assert.Len(t, ParseParams("pi/2"), 1)
	assert.Len(t, ParseParams("pi/2, pi/4"), 2)
	assert.Nil(t, ParseParams("pi/2,garbage"))
	assert.Nil(t, ParseParams(""))
}

func TestScheduleParallelGates(t *testing.T) {
	c := New(4)
	c.AddGate("H", 0, 0)
	c.AddGate("H", 1, 1)
	c.AddGate("CX", 1, 2, 0)
	c.AddGate("X", 2, 3)
	c.Schedule()

	steps := map[string]int{}
	for _, g := range c.Gates {
		steps[g.String()] = g.Step
	}
	assert.Equal(t, 0, steps["H[0]"])
	assert.Equal(t, 0, steps["H[1]"])
	assert.Equal(t, 0, steps["X[2]"])
	assert.Equal(t, 1, steps["CX[0 1]"])
	assert.Equal(t, 2, c.Depth())
}

func TestScheduleBarrier(t *testing.T) {
	c := New(2)
	c.Append("H", nil, 0)
	c.Barrier()
	c.Append("H", nil, 1)

	c.Schedule()
	require.Len(t, c.Gates, 3)
	assert.Equal(t, 0, c.Gates[0].Step)
	assert.Equal(t, "BARRIER", c.Gates[1].Type)
	assert.Equal(t, 1, c.Gates[1].Step)
	assert.Equal(t, 2, c.Gates[2].Step)
	assert.Equal(t, 2, c.Depth())
}

func TestStats(t *testing.T) {
	c := New(3)
	c.Append("RY", []float64{0.3}, 0)
	c.Append("CX", nil, 0, 1)
	c.Append("CSWAP", nil, 0, 1, 2)
	c.MeasureAll([]int{0, 1, 2}, c.AddClassicalRegister(3))

	st := c.Stats()
	assert.Equal(t, 3, st.Qubits)
	assert.Equal(t, 3, st.Gates)
	assert.Equal(t, 9, st.CNOTs)
	assert.Equal(t, 3, st.Depth)
	assert.Equal(t, 1, st.ByType["CSWAP"])
	assert.True(t, strings.HasPrefix(c.Gates[0].String(), "RY(0.3)"))
}
