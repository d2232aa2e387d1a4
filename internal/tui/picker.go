// Package tui provides a terminal category picker built on Bubble Tea.
package tui

import (
	"fmt"
	"strings"

	"github.com/Veraticus/spice-budget/internal/cli"
	"github.com/Veraticus/spice-budget/internal/model"
	"github.com/Veraticus/spice-budget/internal/pattern"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Mode is the picker's input state.
type Mode int

// Picker modes.
const (
	ModeSelecting Mode = iota
	ModeEnteringCustom
)

// Outcome is how the user left the picker.
type Outcome int

// Picker outcomes.
const (
	OutcomePending Outcome = iota
	OutcomeChosen
	OutcomeSkipped
	OutcomeQuit
)

type option struct {
	category string
	reason   string
}

var cursorStyle = lipgloss.NewStyle().Foreground(cli.PrimaryColor).Bold(true)

// PickerModel lets the user choose a category for one transaction.
type PickerModel struct {
	keys        KeyMap
	customInput textinput.Model
	transaction model.Transaction
	chosen      string
	options     []option
	cursor      int
	mode        Mode
	outcome     Outcome
}

// NewPickerModel lists the rule suggestions first, then the remaining known categories.
func NewPickerModel(txn model.Transaction, suggestions []pattern.Suggestion, known []string) PickerModel {
	input := textinput.New()
	input.Placeholder = "Enter custom category..."
	input.CharLimit = 50

	seen := make(map[string]bool)
	var options []option
	for _, s := range suggestions {
		if seen[s.Category] {
			continue
		}
		seen[s.Category] = true
		options = append(options, option{category: s.Category, reason: s.Reason})
	}
	for _, c := range known {
		if seen[c] || strings.EqualFold(c, model.UncategorizedCategory) {
			continue
		}
		seen[c] = true
		options = append(options, option{category: c})
	}

	return PickerModel{
		keys:        DefaultKeyMap(),
		customInput: input,
		transaction: txn,
		options:     options,
	}
}

// Init implements tea.Model.
func (m PickerModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m PickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	if m.mode == ModeEnteringCustom {
		return m.updateCustom(keyMsg)
	}

	switch {
	case key.Matches(keyMsg, m.keys.Quit):
		m.outcome = OutcomeQuit
		return m, tea.Quit
	case key.Matches(keyMsg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(keyMsg, m.keys.Down):
		if m.cursor < len(m.options)-1 {
			m.cursor++
		}
	case key.Matches(keyMsg, m.keys.Select):
		if len(m.options) == 0 {
			return m, nil
		}
		m.chosen = m.options[m.cursor].category
		m.outcome = OutcomeChosen
		return m, tea.Quit
	case key.Matches(keyMsg, m.keys.Skip):
		m.outcome = OutcomeSkipped
		return m, tea.Quit
	case key.Matches(keyMsg, m.keys.Custom):
		m.mode = ModeEnteringCustom
		m.customInput.SetValue("")
		return m, m.customInput.Focus()
	}
	return m, nil
}

func (m PickerModel) updateCustom(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		m.outcome = OutcomeQuit
		return m, tea.Quit
	case tea.KeyEsc:
		m.mode = ModeSelecting
		m.customInput.Blur()
		return m, nil
	case tea.KeyEnter:
		value := strings.TrimSpace(m.customInput.Value())
		if value == "" {
			return m, nil
		}
		m.chosen = value
		m.outcome = OutcomeChosen
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.customInput, cmd = m.customInput.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m PickerModel) View() string {
	var b strings.Builder

	txn := m.transaction
	date := "pending"
	if d, ok := txn.EffectiveDate(); ok {
		date = d.Format("Jan 2, 2006")
	}
	details := fmt.Sprintf("%s · %s\n%s", date, cli.FormatMoney(txn.Amount), txn.Description)
	b.WriteString(cli.RenderBox(txn.Counterparty(), details))
	b.WriteString("\n\n")

	if m.mode == ModeEnteringCustom {
		b.WriteString(m.customInput.View())
		b.WriteString("\n\n" + cli.SubtleStyle.Render("enter to save · esc to go back"))
		return b.String()
	}

	if len(m.options) == 0 {
		b.WriteString(cli.SubtleStyle.Render("No suggestions. Press c to type a category.") + "\n")
	}
	for i, opt := range m.options {
		line := "  " + opt.category
		if i == m.cursor {
			line = cursorStyle.Render("▸ " + opt.category)
		}
		if opt.reason != "" {
			line += "  " + cli.SubtleStyle.Render(opt.reason)
		}
		b.WriteString(line + "\n")
	}

	bindings := m.keys.ShortHelp()
	help := make([]string, 0, len(bindings))
	for _, binding := range bindings {
		h := binding.Help()
		help = append(help, h.Key+" "+h.Desc)
	}
	b.WriteString("\n" + cli.SubtleStyle.Render(strings.Join(help, " · ")))
	return b.String()
}

// Mode returns the current input mode.
func (m PickerModel) Mode() Mode {
	return m.mode
}

// Result reports how the picker ended and the category chosen, if any.
func (m PickerModel) Result() (Outcome, string) {
	return m.outcome, m.chosen
}
