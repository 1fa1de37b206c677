package circuit

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// ErrUnsupported is returned by ParseQASM for statements outside the supported gate set.
var ErrUnsupported = errors.New("unsupported qasm statement")

// Pre-compiled regexps for QASM parsing.
var (
	singleGateRegex      = regexp.MustCompile(`^(\w+)\s+q\[(\d+)\];?$`)
	singleGateParamRegex = regexp.MustCompile(`^(\w+)\s*\(\s*(` + paramPattern + `(?:\s*,\s*` + paramPattern + `)*)\s*\)\s+q\[(\d+)\];?$`)
	twoQubitRegex        = regexp.MustCompile(`^(\w+)\s+q\[(\d+)\],\s*q\[(\d+)\];?$`)
	twoQubitParamRegex   = regexp.MustCompile(`^(\w+)\s*\(\s*(` + paramPattern + `)\s*\)\s+q\[(\d+)\],\s*q\[(\d+)\];?$`)
	threeQubitRegex      = regexp.MustCompile(`^(\w+)\s+q\[(\d+)\],\s*q\[(\d+)\],\s*q\[(\d+)\];?$`)
	measureRegex         = regexp.MustCompile(`^measure\s+q\[(\d+)\]\s*->\s*(\w+)\[(\d+)\];?$`)
	qregRegex            = regexp.MustCompile(`qreg\s+(\w+)\[(\d+)\]`)
	cregRegex            = regexp.MustCompile(`creg\s+(\w+)\[(\d+)\]`)
	outputRegex          = regexp.MustCompile(`^//\s*output\s+(.*)$`)
	qubitRefRegex        = regexp.MustCompile(`q\[(\d+)\]`)
)

var twoQubitGates = map[string]string{
	"CX": "cx", "CY": "cy", "CZ": "cz", "SWAP": "swap", "CH": "ch",
	"CRX": "crx", "CRY": "cry", "CRZ": "crz", "CU1": "cu1", "CP": "cu1",
}

var singleQubitGates = map[string]bool{
	"I": true, "ID": true, "H": true, "X": true, "Y": true, "Z": true,
	"S": true, "SDG": true, "T": true, "TDG": true, "SX": true, "SXDG": true,
	"RX": true, "RY": true, "RZ": true, "P": true, "U1": true, "U2": true, "U3": true, "U": true,
}

// ToQASM generates QASM 2.0 output from the circuit.
func (c *Circuit) ToQASM() string {
	numQubits := max(c.NumQubits, 1)

	var sb strings.Builder
	sb.WriteString("OPENQASM 2.0;\n")
	sb.WriteString("include \"qelib1.inc\";\n\n")
	fmt.Fprintf(&sb, "qreg q[%d];\n", numQubits)
	if c.NumCbits > 0 {
		fmt.Fprintf(&sb, "creg c[%d];\n", c.NumCbits)
	}
	if len(c.Output) > 0 {
		refs := make([]string, len(c.Output))
		for i, q := range c.Output {
			refs[i] = fmt.Sprintf("q[%d]", q)
		}
		fmt.Fprintf(&sb, "// output %s\n", strings.Join(refs, ", "))
	}
	sb.WriteString("\n")

	for _, gate := range c.ordered() {
		writeGateQASM(&sb, gate, numQubits)
	}
	return sb.String()
}

// ordered returns the gates sorted by step, keeping insertion order within a step.
func (c *Circuit) ordered() []Gate {
	gates := slices.Clone(c.Gates)
	slices.SortStableFunc(gates, func(a, b Gate) int { return a.Step - b.Step })
	return gates
}

func writeGateQASM(sb *strings.Builder, gate Gate, numQubits int) {
	switch {
	case gate.Type == "BARRIER":
		qubits := make([]string, numQubits)
		for q := range numQubits {
			qubits[q] = fmt.Sprintf("q[%d]", q)
		}
		fmt.Fprintf(sb, "barrier %s;\n", strings.Join(qubits, ", "))
	case gate.Type == "MEASURE":
		fmt.Fprintf(sb, "measure q[%d] -> c[%d];\n", gate.Target, gate.Cbit)
	case len(gate.Controls) > 0:
		gateType := strings.ToLower(gate.Type)
		if gateType == "toffoli" {
			gateType = "ccx"
		}
		fmt.Fprintf(sb, "%s ", gateType)
		for _, ctrl := range gate.Controls {
			fmt.Fprintf(sb, "q[%d], ", ctrl)
		}
		fmt.Fprintf(sb, "q[%d];\n", gate.Target)
	case gate.Control >= 0:
		name, ok := twoQubitGates[gate.Type]
		if !ok {
			name = strings.ToLower(gate.Type)
		}
		if len(gate.Params) > 0 {
			fmt.Fprintf(sb, "%s(%s) q[%d], q[%d];\n", name, FormatParam(gate.Params[0]), gate.Control, gate.Target)
		} else {
			fmt.Fprintf(sb, "%s q[%d], q[%d];\n", name, gate.Control, gate.Target)
		}
	default:
		gateType := strings.ToLower(gate.Type)
		switch {
		case len(gate.Params) > 0:
			fmt.Fprintf(sb, "%s(%s) q[%d];\n", gateType, formatParamList(gate.Params), gate.Target)
		case gate.IsDagger:
			fmt.Fprintf(sb, "%sdg q[%d];\n", gateType, gate.Target)
		default:
			fmt.Fprintf(sb, "%s q[%d];\n", gateType, gate.Target)
		}
	}
}

// ParseQASM parses QASM text and rebuilds the circuit from it. Gate steps are
// recomputed with Schedule once parsing succeeds.
func (c *Circuit) ParseQASM(qasm string) error {
	c.Gates = nil
	c.MaxSteps = 0
	c.Output = nil
	step := 0

	for lineNo, line := range strings.Split(qasm, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if matches := outputRegex.FindStringSubmatch(line); matches != nil {
			for _, ref := range qubitRefRegex.FindAllStringSubmatch(matches[1], -1) {
				q, _ := strconv.Atoi(ref[1])
				c.Output = append(c.Output, q)
			}
			continue
		}
		if strings.HasPrefix(line, "//") ||
			strings.HasPrefix(line, "OPENQASM") ||
			strings.HasPrefix(line, "include") {
			continue
		}
		if strings.HasPrefix(line, "qreg") {
			if matches := qregRegex.FindStringSubmatch(line); matches != nil {
				c.NumQubits, _ = strconv.Atoi(matches[2])
			}
			continue
		}
		if strings.HasPrefix(line, "creg") {
			if matches := cregRegex.FindStringSubmatch(line); matches != nil {
				c.NumCbits, _ = strconv.Atoi(matches[2])
			}
			continue
		}
		if strings.HasPrefix(line, "barrier") {
			c.AddBarrier(step)
			step++
			continue
		}

		if matches := measureRegex.FindStringSubmatch(line); matches != nil {
			source, _ := strconv.Atoi(matches[1])
			cbit, _ := strconv.Atoi(matches[3])
			c.AddMeasure(source, cbit, step)
			step++
			continue
		}

		unsupported := func() error {
			return fmt.Errorf("line %d: %w: %q", lineNo+1, ErrUnsupported, line)
		}

		if matches := twoQubitRegex.FindStringSubmatch(line); matches != nil {
			gateType := strings.ToUpper(matches[1])
			if _, ok := twoQubitGates[gateType]; !ok {
				return unsupported()
			}
			if gateType == "CP" {
				gateType = "CU1"
			}
			control, _ := strconv.Atoi(matches[2])
			target, _ := strconv.Atoi(matches[3])
			c.AddGate(gateType, target, step, control)
			step++
			continue
		}

		if matches := singleGateParamRegex.FindStringSubmatch(line); matches != nil {
			if !singleQubitGates[strings.ToUpper(matches[1])] {
				return unsupported()
			}
			params := ParseParams(matches[2])
			if params == nil {
				return fmt.Errorf("line %d: bad parameters %q: %w", lineNo+1, matches[2], ErrUnsupported)
			}
			target, _ := strconv.Atoi(matches[3])
			c.AddParameterizedGate(strings.ToUpper(matches[1]), target, step, params)
			step++
			continue
		}

		if matches := twoQubitParamRegex.FindStringSubmatch(line); matches != nil {
			gateType := strings.ToUpper(matches[1])
			if _, ok := twoQubitGates[gateType]; !ok {
				return unsupported()
			}
			if gateType == "CP" {
				gateType = "CU1"
			}
			param, _ := ParseParamExpr(matches[2])
			control, _ := strconv.Atoi(matches[3])
			target, _ := strconv.Atoi(matches[4])
			c.AddParameterizedGate(gateType, target, step, []float64{param}, control)
			step++
			continue
		}

		if matches := threeQubitRegex.FindStringSubmatch(line); matches != nil {
			gateType := strings.ToUpper(matches[1])
			q1, _ := strconv.Atoi(matches[2])
			q2, _ := strconv.Atoi(matches[3])
			q3, _ := strconv.Atoi(matches[4])
			switch gateType {
			case "CCX", "TOFFOLI":
				c.AddMultiControlGate("CCX", q3, step, []int{q1, q2})
			case "CSWAP", "FREDKIN":
				c.AddMultiControlGate("CSWAP", q3, step, []int{q1, q2})
			default:
				return unsupported()
			}
			step++
			continue
		}

		if matches := singleGateRegex.FindStringSubmatch(line); matches != nil {
			gateType := strings.ToUpper(matches[1])
			if !singleQubitGates[gateType] {
				return unsupported()
			}
			target, _ := strconv.Atoi(matches[2])
			if base, ok := strings.CutSuffix(gateType, "DG"); ok {
				c.AddDaggerGate(base, target, step)
			} else {
				c.AddGate(gateType, target, step)
			}
			step++
			continue
		}

		return unsupported()
	}

	c.Schedule()
	return nil
}
