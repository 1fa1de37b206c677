// Package tui is a terminal viewer for a single verification trial: the
// synthesized circuit, its QASM and the measured distribution.
package tui

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/qdeck/bdsp/verify"
)

// focus represents which panel/mode has keyboard input.
type focus int

const (
	focusCircuit focus = iota
	focusQASM
	focusPicker
)

// Model represents the TUI application state.
type Model struct {
	verifier *verify.Verifier
	rng      *rand.Rand
	qubits   int
	strategy verify.Strategy
	vector   []complex128

	result  *verify.Result
	err     error
	running bool

	width          int
	height         int
	viewStartStep  int
	viewStartQubit int
	qasmView       textarea.Model
	focus          focus
	pickerItem     int
	statusMsg      string // transient status message (e.g. save confirmation)

	// SavePath is where ctrl+s writes the QASM of the current circuit.
	SavePath string
}

// trialMsg carries a finished trial back into Update.
type trialMsg struct {
	result *verify.Result
	err    error
}

// New returns a viewer that verifies random targets over qubits data qubits.
func New(v *verify.Verifier, rng *rand.Rand, qubits int) Model {
	ta := textarea.New()
	ta.Placeholder = "No circuit yet"
	ta.SetWidth(40)
	ta.SetHeight(20)
	ta.ShowLineNumbers = true
	ta.KeyMap.InsertNewline.SetEnabled(false)

	return Model{
		verifier: v,
		rng:      rng,
		qubits:   qubits,
		strategy: verify.Sublinear,
		vector:   verify.RandomState(rng, qubits),
		running:  true,
		qasmView: ta,
		focus:    focusCircuit,
		SavePath: "circuit.qasm",
	}
}

// runTrial verifies the current target with the current strategy.
func (m Model) runTrial() tea.Cmd {
	v, vector, strategy, n := m.verifier, m.vector, m.strategy, m.qubits
	return func() tea.Msg {
		split, err := verify.StrategySplit(strategy, n)
		if err != nil {
			return trialMsg{err: err}
		}
		res, err := v.Trial(context.Background(), vector, split)
		return trialMsg{result: res, err: err}
	}
}

// ──────────────────────────── Init / Update ────────────────────────────

func (m Model) Init() tea.Cmd {
	return m.runTrial()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.qasmView.SetWidth(max(msg.Width/3-6, 20))
		m.qasmView.SetHeight(max(m.topHeight()-6, 4))

	case trialMsg:
		m.running = false
		m.result, m.err = msg.result, msg.err
		m.viewStartStep, m.viewStartQubit = 0, 0
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Trial error: %v", msg.err)
			m.qasmView.SetValue("")
			break
		}
		m.qasmView.SetValue(msg.result.Circuit.ToQASM())

	case tea.KeyMsg:
		key := msg.String()
		m.statusMsg = ""

		if key == "ctrl+c" {
			return m, tea.Quit
		}

		switch m.focus {
		case focusCircuit:
			switch key {
			case "q":
				return m, tea.Quit
			case "tab":
				m.focus = focusQASM
				m.qasmView.Focus()
			case "s":
				m.focus = focusPicker
				m.pickerItem = pickerIndex(m.strategy)
			case "r":
				m.vector = verify.RandomState(m.rng, m.qubits)
				m.running = true
				return m, m.runTrial()
			case "ctrl+s":
				m.save()
			case "left", "h":
				if m.viewStartStep > 0 {
					m.viewStartStep--
				}
			case "right", "l":
				if m.result != nil && m.viewStartStep < m.result.Circuit.MaxSteps-1 {
					m.viewStartStep++
				}
			case "up", "k":
				if m.viewStartQubit > 0 {
					m.viewStartQubit--
				}
			case "down", "j":
				if m.result != nil && m.viewStartQubit < m.result.Qubits-1 {
					m.viewStartQubit++
				}
			}

		case focusPicker:
			switch key {
			case "esc":
				m.focus = focusCircuit
			case "up", "k":
				if m.pickerItem > 0 {
					m.pickerItem--
				}
			case "down", "j":
				if m.pickerItem < len(strategyPicker)-1 {
					m.pickerItem++
				}
			case "enter":
				m.strategy = strategyPicker[m.pickerItem].strategy
				m.focus = focusCircuit
				m.running = true
				return m, m.runTrial()
			}

		case focusQASM:
			switch key {
			case "tab", "esc":
				m.focus = focusCircuit
				m.qasmView.Blur()
			case "up", "down", "pgup", "pgdown", "home", "end", "ctrl+home", "ctrl+end":
				// read-only: only navigation reaches the textarea
				var cmd tea.Cmd
				m.qasmView, cmd = m.qasmView.Update(msg)
				return m, cmd
			}
		}
	}

	return m, nil
}

func (m *Model) save() {
	if m.result == nil {
		m.statusMsg = "Nothing to save"
		return
	}
	if err := os.WriteFile(m.SavePath, []byte(m.result.Circuit.ToQASM()), 0644); err != nil {
		m.statusMsg = fmt.Sprintf("Save error: %v", err)
		return
	}
	m.statusMsg = "Saved " + m.SavePath
}

// ──────────────────────────── View ────────────────────────────

const controlsHeight = 4

func (m Model) histogramRows() int {
	return min(1<<m.qubits, 16)
}

func (m Model) topHeight() int {
	return max(m.height-controlsHeight-m.histogramRows()-6, 8)
}

// View renders the UI.
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	qasmWidth := m.width / 3
	circuitWidth := m.width - qasmWidth - 4
	topHeight := m.topHeight()

	topRow := lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderCircuitPanel(circuitWidth, topHeight),
		m.renderQASMPanel(qasmWidth, topHeight),
	)
	frame := lipgloss.JoinVertical(lipgloss.Left,
		topRow,
		m.renderHistogramPanel(m.width-4),
		m.renderControlsPanel(m.width-4, controlsHeight-2),
	)

	if m.focus == focusPicker {
		frame = overlayAt(frame, m.renderPicker(), 2, 2)
	}
	return frame
}

// renderCircuitPanel renders the circuit grid panel.
func (m Model) renderCircuitPanel(width, height int) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%s %s\n\n", titleStyle.Render("State Preparation"), dimStyle.Render(string(m.strategy)))

	switch {
	case m.running:
		sb.WriteString(activeGateStyle.Render("Running trial…"))
	case m.err != nil:
		sb.WriteString(failStyle.Render(m.err.Error()))
	case m.result != nil:
		c := m.result.Circuit
		steps := max((width-labelVisualW-4)/cellW, 1)
		rows := max((height-8)/3, 1)
		if m.viewStartStep > 0 || m.viewStartQubit > 0 {
			fmt.Fprintf(&sb, "  ◀ steps %d–%d of %d, qubits from q[%d]\n",
				m.viewStartStep, min(m.viewStartStep+steps, c.MaxSteps)-1, c.MaxSteps, m.viewStartQubit)
		}
		sb.WriteString(renderGrid(c, m.viewStartStep, steps, m.viewStartQubit, rows))
	}

	if m.statusMsg != "" {
		fmt.Fprintf(&sb, "\n  %s", activeGateStyle.Render(m.statusMsg))
	}
	return circuitStyle.Width(width).Height(height).Render(sb.String())
}

// renderQASMPanel renders the read-only QASM panel.
func (m Model) renderQASMPanel(width, height int) string {
	var sb strings.Builder

	title := "QASM"
	if m.focus == focusQASM {
		title += " [ACTIVE]"
	}
	sb.WriteString(titleStyle.Render(title))
	sb.WriteString("\n\n")
	sb.WriteString(m.qasmView.View())

	return qasmStyle.Width(width).Height(height).Render(sb.String())
}

// renderHistogramPanel renders empirical vs theoretical probabilities.
func (m Model) renderHistogramPanel(width int) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Distribution"))
	sb.WriteString(dimStyle.Render("  empirical █  theoretical │"))
	sb.WriteString("\n")
	if m.result != nil && !m.running {
		sb.WriteString(renderHistogram(m.result, m.histogramRows()))
		sb.WriteString(verdict(m.result))
	}
	return histogramStyle.Width(width).Render(sb.String())
}

// renderControlsPanel renders the bottom help/controls bar.
func (m Model) renderControlsPanel(width, height int) string {
	var sb strings.Builder

	sb.WriteString(activeGateStyle.Render("Navigate: "))
	sb.WriteString("←→/hl Scroll steps  ↑↓/jk Scroll qubits  Tab QASM")
	sb.WriteString("\n")
	sb.WriteString(activeGateStyle.Render("Actions:  "))
	sb.WriteString("s Strategy  r New target  ^S Save  q/^C Quit")

	return controlsStyle.Width(width).Height(height).Render(sb.String())
}
