package tui

import (
	"fmt"
	"strings"

	"github.com/qdeck/bdsp/bdsp"
	"github.com/qdeck/bdsp/verify"
)

// pickerItem is one strategy choice in the picker popup.
type pickerItem struct {
	strategy verify.Strategy
	name     string
	hint     string
}

var strategyPicker = []pickerItem{
	{strategy: verify.BottomUp, name: "Bottom-up", hint: "split=1, shallow, 2^n-1 qubits"},
	{strategy: verify.TopDown, name: "Top-down", hint: "split=n, deep, n qubits"},
	{strategy: verify.Sublinear, name: "Sublinear", hint: "split=⌈n/2⌉"},
}

func pickerIndex(s verify.Strategy) int {
	for i, item := range strategyPicker {
		if item.strategy == s {
			return i
		}
	}
	return 0
}

// renderPicker renders the floating strategy picker.
func (m Model) renderPicker() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Strategy"))
	sb.WriteString("\n")
	sb.WriteString(dimStyle.Render(strings.Repeat("─", 44)))
	sb.WriteString("\n")

	for i, item := range strategyPicker {
		split, _ := verify.StrategySplit(item.strategy, m.qubits)
		s := bdsp.DefaultSplit(m.qubits)
		if split != nil {
			s = *split
		}
		width := fmt.Sprintf("%d qubits", bdsp.QubitCount(m.qubits, s))
		if i == m.pickerItem {
			sb.WriteString(menuSelectedStyle.Render(" ▸ "))
			sb.WriteString(menuSelectedStyle.Render(fmt.Sprintf("%-11s", item.name)))
			sb.WriteString(gateStyle.Render(fmt.Sprintf("%-10s", width)))
		} else {
			sb.WriteString("   ")
			sb.WriteString(menuNormalStyle.Render(fmt.Sprintf("%-11s", item.name)))
			sb.WriteString(dimStyle.Render(fmt.Sprintf("%-10s", width)))
		}
		sb.WriteString(dimStyle.Render(" " + item.hint))
		sb.WriteString("\n")
	}
	sb.WriteString(dimStyle.Render(" ↑↓ Select  ⏎ Run  Esc ✕"))

	return menuBorderStyle.Render(sb.String())
}
