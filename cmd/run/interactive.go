package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/strffi/errors"
	"github.com/wippyai/strffi/runtime"
	"github.com/wippyai/strffi/signature"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type interactiveModel struct {
	err      error
	caller   caller
	result   string
	funcs    []funcInfo
	inputs   []textinput.Model
	selected int
	focusIdx int
	state    modelState
}

type funcInfo struct {
	name       string
	decl       string
	resultType string
	params     []paramInfo
}

type paramInfo struct {
	name     string
	typeStr  string
	optional bool
}

type modelState int

const (
	stateSelectFunc modelState = iota
	stateInputArgs
	stateShowResult
)

func newInteractiveModel(reg *runtime.Registry, c caller) *interactiveModel {
	m := &interactiveModel{caller: c, state: stateSelectFunc}
	for _, e := range reg.Exports() {
		sig := e.Signature()
		fi := funcInfo{name: e.Name, decl: signature.String(sig)}
		for _, p := range sig.Params {
			fi.params = append(fi.params, paramInfo{
				name:     p.Name,
				typeStr:  signature.TypeString(p.Type),
				optional: p.Optional,
			})
		}
		if sig.Result != nil {
			fi.resultType = signature.TypeString(sig.Result)
		}
		m.funcs = append(m.funcs, fi)
	}
	return m
}

type callResultMsg struct {
	err    error
	result string
}

func (m *interactiveModel) Init() tea.Cmd {
	return nil
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "q":
			if m.state != stateInputArgs {
				return m, tea.Quit
			}

		case "up", "k":
			if m.state == stateSelectFunc && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectFunc && m.selected < len(m.funcs)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectFunc:
				if len(m.funcs) == 0 {
					return m, nil
				}
				m.prepareInputs()
				if len(m.inputs) == 0 {
					return m, m.callFunction
				}
				m.state = stateInputArgs
				return m, nil

			case stateInputArgs:
				return m, m.callFunction

			case stateShowResult:
				m.reset()
			}

		case "tab", "shift+tab":
			if m.state == stateInputArgs && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				step := 1
				if msg.String() == "shift+tab" {
					step = len(m.inputs) - 1
				}
				m.focusIdx = (m.focusIdx + step) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
			}
			return m, nil

		case "esc":
			switch m.state {
			case stateInputArgs:
				m.state = stateSelectFunc
				m.inputs = nil
			case stateShowResult:
				m.reset()
			}
			return m, nil
		}

	case callResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
		return m, nil
	}

	if m.state == stateInputArgs {
		var cmds []tea.Cmd
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m *interactiveModel) reset() {
	m.state = stateSelectFunc
	m.inputs = nil
	m.result = ""
	m.err = nil
}

func (m *interactiveModel) prepareInputs() {
	f := m.funcs[m.selected]
	m.inputs = make([]textinput.Model, len(f.params))
	for i, p := range f.params {
		ti := textinput.New()
		ti.Placeholder = p.typeStr
		if p.optional {
			ti.Placeholder += " (optional)"
		}
		ti.Prompt = p.name + ": "
		ti.Width = 40
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

// callArgs collects the field values. Trailing empty optional fields are
// omitted rather than passed as empty strings.
func (m *interactiveModel) callArgs() []string {
	f := m.funcs[m.selected]
	args := make([]string, len(m.inputs))
	for i, input := range m.inputs {
		args[i] = input.Value()
	}
	n := len(args)
	for n > 0 && f.params[n-1].optional && args[n-1] == "" {
		n--
	}
	return args[:n]
}

func (m *interactiveModel) callFunction() tea.Msg {
	f := m.funcs[m.selected]
	result, err := m.caller.Call(context.Background(), f.name, m.callArgs())
	return callResultMsg{result: result, err: err}
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("strffi runner"))
	b.WriteString(fmt.Sprintf(" %d exports\n\n", len(m.funcs)))

	switch m.state {
	case stateSelectFunc:
		b.WriteString("Select a function to call:\n\n")
		for i, f := range m.funcs {
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + f.decl))
			} else {
				b.WriteString("  " + m.formatFunc(f))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter call • q quit"))

	case stateInputArgs:
		f := m.funcs[m.selected]
		b.WriteString(fmt.Sprintf("Calling %s\n\n", funcStyle.Render(f.name)))
		for i, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString(" ")
			b.WriteString(typeStyle.Render(f.params[i].typeStr))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter call • esc back"))

	case stateShowResult:
		f := m.funcs[m.selected]
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", funcStyle.Render(f.name)))
		b.WriteString(renderResult(m.result, m.err))
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func renderResult(result string, err error) string {
	if err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v", err))
	}
	if diag, ok := errors.ParseWire(result); ok {
		kind := string(diag.Class)
		if diag.Type != "" {
			kind += " " + string(diag.Type)
		}
		return errorStyle.Render(kind+": "+diag.Message) + "\n" + helpStyle.Render(result)
	}
	if result == "" {
		return helpStyle.Render("(empty)")
	}
	return resultStyle.Render(result)
}

func (m *interactiveModel) formatFunc(f funcInfo) string {
	var params []string
	for _, p := range f.params {
		typ := p.typeStr
		if p.optional {
			typ = "option<" + typ + ">"
		}
		params = append(params, p.name+": "+typeStyle.Render(typ))
	}
	result := ""
	if f.resultType != "" {
		result = " -> " + typeStyle.Render(f.resultType)
	}
	return funcStyle.Render(f.name) + "(" + strings.Join(params, ", ") + ")" + result
}

func runInteractive(reg *runtime.Registry, c caller) error {
	p := tea.NewProgram(newInteractiveModel(reg, c), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
