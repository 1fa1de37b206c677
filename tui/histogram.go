package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/qdeck/bdsp/verify"
)

// renderHistogram draws one bar per outcome: the empirical frequency as a
// bar and the theoretical probability as a marker on the same row.
func renderHistogram(res *verify.Result, rows int) string {
	var sb strings.Builder

	n := 0
	for 1<<(n+1) <= len(res.Theoretical) {
		n++
	}
	outcomes := min(len(res.Theoretical), len(res.Empirical))
	scale := 0.0
	for i := range outcomes {
		scale = max(scale, res.Theoretical[i], res.Empirical[i])
	}
	if scale == 0 {
		scale = 1
	}

	shown := min(outcomes, max(rows, 1))
	for i := range shown {
		emp, th := res.Empirical[i], res.Theoretical[i]
		filled := int(emp / scale * histBarW)
		mark := min(int(th/scale*histBarW), histBarW-1)

		bar := []rune(strings.Repeat("█", filled) + strings.Repeat(" ", histBarW-filled))
		var line strings.Builder
		for col, r := range bar {
			switch {
			case col == mark:
				line.WriteString(theoreticalMarkStyle.Render("│"))
			case r == '█':
				line.WriteString(empiricalBarStyle.Render("█"))
			default:
				line.WriteRune(' ')
			}
		}

		label := fmt.Sprintf("%0*b", n, i)
		row := fmt.Sprintf("%s %s %.4f / %.4f", qubitLabelStyle.Render(label), line.String(), emp, th)
		if i == res.WorstIndex {
			row += activeGateStyle.Render("  ◀ worst")
		}
		sb.WriteString(row + "\n")
	}
	if shown < len(res.Theoretical) {
		fmt.Fprintf(&sb, "%s\n", dimStyle.Render(fmt.Sprintf("… %d more outcomes", len(res.Theoretical)-shown)))
	}
	return sb.String()
}

// verdict renders the pass/fail line of a trial.
func verdict(res *verify.Result) string {
	status := passStyle.Render("PASS")
	if !res.Passed {
		status = failStyle.Render("FAIL")
	}
	return fmt.Sprintf("%s  max |Δ| %.4f at %d  qubits %d  depth %d  cnots %d  %s",
		status, res.MaxDeviation, res.WorstIndex, res.Qubits, res.Stats.Depth, res.Stats.CNOTs,
		res.Duration.Round(time.Microsecond))
}
