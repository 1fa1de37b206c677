package tui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/qdeck/bdsp/circuit"
)

// cellInfo describes what occupies a single cell in the circuit grid.
type cellInfo struct {
	gate        *circuit.Gate
	isControl   bool
	isTarget    bool
	vertAbove   bool
	vertBelow   bool
	passThrough bool
	isBarrier   bool
}

// getCellInfo returns rendering information for the cell at (step, qubit).
func getCellInfo(c *circuit.Circuit, step, qubit int) cellInfo {
	var info cellInfo

	if gate := c.GetGateAt(step, qubit); gate != nil {
		info.gate = gate
		switch {
		case gate.Type == "CSWAP":
			// the first control selects; the other two wires swap
			info.isControl = gate.Controls[0] == qubit
			info.isTarget = !info.isControl
		case gate.Control == qubit || slices.Contains(gate.Controls, qubit):
			info.isControl = true
		case gate.Target == qubit && (gate.Control >= 0 || len(gate.Controls) > 0):
			info.isTarget = true
		}
	}

	for i := range c.Gates {
		g := &c.Gates[i]
		if g.Step != step {
			continue
		}
		if g.Type == "BARRIER" {
			info.isBarrier = true
			if info.gate == nil {
				info.gate = g
			}
			continue
		}

		qs := g.Qubits()
		if len(qs) < 2 {
			continue
		}
		minQ, maxQ := slices.Min(qs), slices.Max(qs)
		if qubit >= minQ && qubit <= maxQ {
			if qubit > minQ {
				info.vertAbove = true
			}
			if qubit < maxQ {
				info.vertBelow = true
			}
			if qubit > minQ && qubit < maxQ && info.gate == nil {
				info.passThrough = true
			}
		}
	}
	return info
}

// padCenter centres a string within the given width.
func padCenter(s string, width int) string {
	if len(s) >= width {
		return s[:width]
	}
	total := width - len(s)
	left := total / 2
	right := total - left
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", right)
}

// gateDisplayName returns a short display name for a gate type.
func gateDisplayName(g *circuit.Gate) string {
	switch {
	case g.Type == "MEASURE":
		return "M"
	case g.IsDagger:
		return g.Type + "†"
	default:
		return g.Type
	}
}

// controlSymbol returns the wire symbol for a control qubit.
func controlSymbol(gateType string) string {
	if gateType == "SWAP" {
		return "×"
	}
	return "●"
}

// targetSymbol returns the wire symbol for the target of a controlled gate.
func targetSymbol(gateType string) string {
	switch gateType {
	case "CZ":
		return "●"
	case "SWAP", "CSWAP":
		return "×"
	case "CX", "CCX":
		return "⊕"
	default:
		return "■"
	}
}

// renderCell returns 3 lines (top, mid, bot) for a single cell.
// Each line is exactly cellW visual characters wide.
func renderCell(info cellInfo) (top, mid, bot string) {
	emptyRow := strings.Repeat(" ", cellW)
	halfW := cellW / 2
	vertRow := strings.Repeat(" ", halfW) + "│" + strings.Repeat(" ", cellW-halfW-1)
	dashL := (cellW - 1) / 2
	dashR := cellW - dashL - 1

	wire := func(sym string) {
		top, bot = emptyRow, emptyRow
		if info.vertAbove {
			top = vertRow
		}
		if info.vertBelow {
			bot = vertRow
		}
		mid = strings.Repeat("─", dashL) + gateStyle.Render(sym) + strings.Repeat("─", dashR)
	}

	switch {
	case info.isBarrier:
		top = vertRow
		mid = strings.Repeat("─", dashL) + "│" + strings.Repeat("─", dashR)
		bot = vertRow

	case info.gate != nil && info.isControl:
		wire(controlSymbol(info.gate.Type))

	case info.gate != nil && info.isTarget:
		wire(targetSymbol(info.gate.Type))

	case info.gate != nil:
		margin := (cellW - gateBoxW) / 2
		rightMargin := cellW - margin - gateBoxW
		name := padCenter(gateDisplayName(info.gate), gateNameW)

		top = strings.Repeat(" ", margin) + gateStyle.Render("┌"+strings.Repeat("─", gateNameW)+"┐") + strings.Repeat(" ", rightMargin)
		mid = strings.Repeat("─", margin) + gateStyle.Render("┤"+name+"├") + strings.Repeat("─", rightMargin)
		bot = strings.Repeat(" ", margin) + gateStyle.Render("└"+strings.Repeat("─", gateNameW)+"┘") + strings.Repeat(" ", rightMargin)

	case info.passThrough:
		top = vertRow
		mid = strings.Repeat("─", dashL) + "┼" + strings.Repeat("─", dashR)
		bot = vertRow

	default:
		top = emptyRow
		if info.vertAbove {
			top = vertRow
		}
		mid = strings.Repeat("─", cellW)
		bot = emptyRow
		if info.vertBelow {
			bot = vertRow
		}
	}
	return
}

// renderGrid renders the qubit rows [startQubit, startQubit+rows) over the
// steps [startStep, startStep+steps). Data register wires are labelled with
// their bit position.
func renderGrid(c *circuit.Circuit, startStep, steps, startQubit, rows int) string {
	var sb strings.Builder

	header := strings.Repeat(" ", labelVisualW)
	for step := startStep; step < startStep+steps; step++ {
		header += dimStyle.Render(padCenter(fmt.Sprintf("%d", step), cellW))
	}
	sb.WriteString(header + "\n")

	output := c.DataQubits()
	for qubit := startQubit; qubit < min(startQubit+rows, c.NumQubits); qubit++ {
		topLine := strings.Repeat(" ", labelVisualW)
		label := qubitLabelStyle.Render(fmt.Sprintf("%-5s", fmt.Sprintf("q[%d]", qubit)))
		if slices.Contains(output, qubit) {
			label = outputLabelStyle.Render(fmt.Sprintf("%-5s", fmt.Sprintf("q[%d]", qubit)))
		}
		midLine := label + "──"
		botLine := strings.Repeat(" ", labelVisualW)

		for step := startStep; step < startStep+steps; step++ {
			top, mid, bot := renderCell(getCellInfo(c, step, qubit))
			topLine += top
			midLine += mid
			botLine += bot
		}

		sb.WriteString(topLine + "\n")
		sb.WriteString(midLine + "\n")
		sb.WriteString(botLine + "\n")
	}
	return sb.String()
}
