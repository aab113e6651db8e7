package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/tetratelabs/wazero/api"
	"golang.org/x/term"

	"github.com/wippyai/ribosome/engine"
)

var interactiveCmd = &cobra.Command{
	Use:   "interactive MODULE",
	Short: "Pick exports and call them from a terminal UI",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			return fmt.Errorf("interactive mode needs a terminal")
		}
		p := tea.NewProgram(newInteractiveModel(args[0]), tea.WithAltScreen())
		_, err := p.Run()
		return err
	},
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#3C7A5A")).
			Padding(0, 1)

	funcStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#98FB98"))
	typeStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#87CEEB"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FAFAFA")).Background(lipgloss.Color("#3C7A5A"))
	resultStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#90EE90"))
	printStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
)

type modelState int

const (
	stateSelectFunc modelState = iota
	stateInputArgs
	stateShowResult
)

type export struct {
	name    string
	params  []api.ValueType
	results []api.ValueType
}

type interactiveModel struct {
	err      error
	sess     *session
	bytecode []byte
	filename string
	output   []string
	exports  []export
	inputs   []textinput.Model
	selected int
	focusIdx int
	state    modelState
}

type loadedMsg struct {
	err      error
	sess     *session
	bytecode []byte
	exports  []export
}

type callResultMsg struct {
	err    error
	output []string
}

func newInteractiveModel(filename string) *interactiveModel {
	return &interactiveModel{filename: filename, state: stateSelectFunc}
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.load
}

func (m *interactiveModel) load() tea.Msg {
	ctx := context.Background()

	bytecode, err := readModule(m.filename)
	if err != nil {
		return loadedMsg{err: err}
	}

	eng := engine.New(ctx, nil)
	defer eng.Close(ctx)
	mod, err := eng.Compile(ctx, bytecode)
	if err != nil {
		return loadedMsg{err: err}
	}
	defer mod.Close(ctx)

	var exports []export
	for name, def := range mod.ExportedFunctions() {
		exports = append(exports, export{name: name, params: def.ParamTypes(), results: def.ResultTypes()})
	}
	sort.Slice(exports, func(i, j int) bool { return exports[i].name < exports[j].name })

	sess, err := openSession(ctx)
	if err != nil {
		return loadedMsg{err: err}
	}
	return loadedMsg{sess: sess, bytecode: bytecode, exports: exports}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.state != stateInputArgs || msg.String() == "ctrl+c" {
				if m.sess != nil {
					m.sess.Close(context.Background())
				}
				return m, tea.Quit
			}

		case "up", "k":
			if m.state == stateSelectFunc && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectFunc && m.selected < len(m.exports)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectFunc:
				if len(m.exports) == 0 {
					return m, nil
				}
				m.prepareInputs()
				if len(m.inputs) == 0 {
					return m, m.call
				}
				m.state = stateInputArgs
				return m, nil

			case stateInputArgs:
				return m, m.call

			case stateShowResult:
				m.reset()
			}

		case "tab":
			if m.state == stateInputArgs && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
			}

		case "esc":
			if m.state != stateSelectFunc {
				m.reset()
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.sess = msg.sess
		m.bytecode = msg.bytecode
		m.exports = msg.exports

	case callResultMsg:
		m.output = msg.output
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateInputArgs {
		cmds := make([]tea.Cmd, len(m.inputs))
		for i := range m.inputs {
			m.inputs[i], cmds[i] = m.inputs[i].Update(msg)
		}
		return m, tea.Batch(cmds...)
	}
	return m, nil
}

func (m *interactiveModel) reset() {
	m.state = stateSelectFunc
	m.inputs = nil
	m.output = nil
	m.err = nil
}

func (m *interactiveModel) prepareInputs() {
	e := m.exports[m.selected]
	m.inputs = make([]textinput.Model, len(e.params))
	for i, t := range e.params {
		ti := textinput.New()
		ti.Placeholder = api.ValueTypeName(t)
		ti.Prompt = fmt.Sprintf("arg%d: ", i)
		ti.Width = 40
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func (m *interactiveModel) call() tea.Msg {
	e := m.exports[m.selected]
	values := make([]string, len(m.inputs))
	for i, input := range m.inputs {
		values[i] = input.Value()
	}
	args, err := parseArgs(e.params, values)
	if err != nil {
		return callResultMsg{err: err}
	}

	out, err := m.sess.call(context.Background(), m.bytecode, e.name, args)
	if err != nil {
		return callResultMsg{err: err}
	}

	var lines []string
	for _, v := range out.DebugOutput() {
		lines = append(lines, printStyle.Render(fmt.Sprintf("print %d", v)))
	}
	for _, addr := range out.Commits() {
		lines = append(lines, typeStyle.Render("commit "+addr.String()))
	}
	lines = append(lines, resultStyle.Render(out.Result()))
	return callResultMsg{output: lines}
}

func (m *interactiveModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}
	if m.sess == nil {
		return "Loading module..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("ribosome"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectFunc:
		if len(m.exports) == 0 {
			b.WriteString("The module exports no functions.\n\n")
			b.WriteString(helpStyle.Render("q quit"))
			break
		}
		b.WriteString("Select an export to call:\n\n")
		for i, e := range m.exports {
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + formatExport(e)))
			} else {
				b.WriteString("  " + formatExport(e))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter call • q quit"))

	case stateInputArgs:
		e := m.exports[m.selected]
		b.WriteString(fmt.Sprintf("Calling %s\n\n", funcStyle.Render(e.name)))
		for _, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter call • esc back"))

	case stateShowResult:
		e := m.exports[m.selected]
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", funcStyle.Render(e.name)))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(strings.Join(m.output, "\n"))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func formatExport(e export) string {
	params := make([]string, len(e.params))
	for i, t := range e.params {
		params[i] = typeStyle.Render(api.ValueTypeName(t))
	}
	s := funcStyle.Render(e.name) + "(" + strings.Join(params, ", ") + ")"
	if len(e.results) > 0 {
		results := make([]string, len(e.results))
		for i, t := range e.results {
			results[i] = api.ValueTypeName(t)
		}
		s += " -> " + typeStyle.Render(strings.Join(results, ", "))
	}
	return s
}
