package tui

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/spice-budget/internal/model"
	"github.com/Veraticus/spice-budget/internal/pattern"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTransaction() model.Transaction {
	day := time.Date(2025, time.January, 9, 0, 0, 0, 0, time.UTC)
	return model.Transaction{
		ID:           "t1",
		AccountID:    "chk",
		Description:  "WINCO FOODS #42",
		MerchantName: "WinCo",
		PostedDate:   &day,
		Amount:       decimal.RequireFromString("52.10"),
	}
}

func testSuggestions() []pattern.Suggestion {
	return []pattern.Suggestion{
		{Category: "Groceries", Reason: "rule 1", RuleID: 1},
		{Category: "Household", Reason: "rule 2", RuleID: 2},
	}
}

func keyRune(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func press(t *testing.T, m PickerModel, msgs ...tea.KeyMsg) (PickerModel, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, msg := range msgs {
		var next tea.Model
		next, cmd = m.Update(msg)
		var ok bool
		m, ok = next.(PickerModel)
		require.True(t, ok)
	}
	return m, cmd
}

func TestNewPickerModelOptions(t *testing.T) {
	m := NewPickerModel(testTransaction(), testSuggestions(), []string{"Rent", "Groceries", "Uncategorized"})

	var names []string
	for _, opt := range m.options {
		names = append(names, opt.category)
	}
	assert.Equal(t, []string{"Groceries", "Household", "Rent"}, names)
}

func TestPickerModelUpdate(t *testing.T) {
	tests := []struct {
		name     string
		keys     []tea.KeyMsg
		outcome  Outcome
		category string
	}{
		{
			name:     "enter picks first suggestion",
			keys:     []tea.KeyMsg{{Type: tea.KeyEnter}},
			outcome:  OutcomeChosen,
			category: "Groceries",
		},
		{
			name:     "down then enter",
			keys:     []tea.KeyMsg{keyRune('j'), {Type: tea.KeyEnter}},
			outcome:  OutcomeChosen,
			category: "Household",
		},
		{
			name:     "cursor stops at last option",
			keys:     []tea.KeyMsg{{Type: tea.KeyDown}, {Type: tea.KeyDown}, {Type: tea.KeyDown}, {Type: tea.KeyDown}, {Type: tea.KeyEnter}},
			outcome:  OutcomeChosen,
			category: "Rent",
		},
		{
			name:     "cursor stops at first option",
			keys:     []tea.KeyMsg{keyRune('k'), {Type: tea.KeyUp}, {Type: tea.KeyEnter}},
			outcome:  OutcomeChosen,
			category: "Groceries",
		},
		{
			name:    "skip",
			keys:    []tea.KeyMsg{keyRune('s')},
			outcome: OutcomeSkipped,
		},
		{
			name:    "quit",
			keys:    []tea.KeyMsg{keyRune('q')},
			outcome: OutcomeQuit,
		},
		{
			name:     "custom category",
			keys:     []tea.KeyMsg{keyRune('c'), keyRune('P'), keyRune('e'), keyRune('t'), keyRune('s'), {Type: tea.KeyEnter}},
			outcome:  OutcomeChosen,
			category: "Pets",
		},
		{
			name:    "empty custom category is ignored",
			keys:    []tea.KeyMsg{keyRune('c'), {Type: tea.KeyEnter}},
			outcome: OutcomePending,
		},
		{
			name:     "escape returns to the list",
			keys:     []tea.KeyMsg{keyRune('c'), keyRune('x'), {Type: tea.KeyEsc}, {Type: tea.KeyEnter}},
			outcome:  OutcomeChosen,
			category: "Groceries",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewPickerModel(testTransaction(), testSuggestions(), []string{"Rent"})
			m, _ = press(t, m, tt.keys...)

			outcome, category := m.Result()
			assert.Equal(t, tt.outcome, outcome)
			assert.Equal(t, tt.category, category)
		})
	}
}

func TestPickerModelCustomModeKeysAreText(t *testing.T) {
	m := NewPickerModel(testTransaction(), testSuggestions(), nil)
	m, _ = press(t, m, keyRune('c'), keyRune('q'), keyRune('s'))

	assert.Equal(t, ModeEnteringCustom, m.Mode())
	outcome, _ := m.Result()
	assert.Equal(t, OutcomePending, outcome)
	assert.Equal(t, "qs", m.customInput.Value())
}

func TestPickerModelEnterWithoutOptions(t *testing.T) {
	m := NewPickerModel(testTransaction(), nil, nil)
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	outcome, _ := m.Result()
	assert.Equal(t, OutcomePending, outcome)
	assert.Contains(t, m.View(), "No suggestions")
}

func TestPickerModelView(t *testing.T) {
	m := NewPickerModel(testTransaction(), testSuggestions(), nil)
	view := m.View()

	assert.Contains(t, view, "WinCo")
	assert.Contains(t, view, "$52.10")
	assert.Contains(t, view, "Jan 9, 2025")
	assert.Contains(t, view, "Groceries")
	assert.Contains(t, view, "rule 2")
	assert.Contains(t, view, "skip")

	m, _ = press(t, m, keyRune('c'))
	assert.Contains(t, m.View(), "esc to go back")
}

func runPrompter(t *testing.T, p *Prompter) (string, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return p.ChooseCategory(ctx, testTransaction(), testSuggestions())
}

func TestPrompterChooseCategory(t *testing.T) {
	var out bytes.Buffer
	p := New([]string{"Rent"}, WithIO(strings.NewReader("\r"), &out))

	category, err := runPrompter(t, p)
	require.NoError(t, err)
	assert.Equal(t, "Groceries", category)
}

func TestPrompterSkipAndQuit(t *testing.T) {
	var out bytes.Buffer

	category, err := runPrompter(t, New(nil, WithIO(strings.NewReader("s"), &out)))
	require.NoError(t, err)
	assert.Empty(t, category)

	_, err = runPrompter(t, New(nil, WithIO(strings.NewReader("q"), &out)))
	assert.ErrorIs(t, err, ErrQuit)
}

func TestPrompterRemembersCustomCategories(t *testing.T) {
	p := New([]string{"Rent"})
	p.remember("Pets")
	p.remember("Rent")

	assert.Equal(t, []string{"Rent", "Pets"}, p.known)
}
