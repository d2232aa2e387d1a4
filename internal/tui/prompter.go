package tui

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Veraticus/spice-budget/internal/engine"
	"github.com/Veraticus/spice-budget/internal/model"
	"github.com/Veraticus/spice-budget/internal/pattern"
	tea "github.com/charmbracelet/bubbletea"
)

// ErrQuit is returned when the user leaves the picker.
var ErrQuit = errors.New("categorization quit")

// Prompter implements engine.Prompter by running a picker per transaction.
type Prompter struct {
	input   io.Reader
	output  io.Writer
	known   []string
	options []tea.ProgramOption
}

// Option configures a Prompter.
type Option func(*Prompter)

// WithIO runs the picker on the given streams instead of the terminal.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(p *Prompter) {
		p.input = in
		p.output = out
	}
}

// WithAltScreen runs the picker full screen.
func WithAltScreen() Option {
	return func(p *Prompter) {
		p.options = append(p.options, tea.WithAltScreen())
	}
}

// New creates a prompter that offers the known categories after each transaction's suggestions.
func New(known []string, opts ...Option) *Prompter {
	p := &Prompter{known: append([]string(nil), known...)}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ChooseCategory implements engine.Prompter. An empty result means the user skipped.
func (p *Prompter) ChooseCategory(ctx context.Context, txn model.Transaction, suggestions []pattern.Suggestion) (string, error) {
	options := append([]tea.ProgramOption{tea.WithContext(ctx)}, p.options...)
	if p.input != nil {
		options = append(options, tea.WithInput(p.input))
	}
	if p.output != nil {
		options = append(options, tea.WithOutput(p.output))
	}

	final, err := tea.NewProgram(NewPickerModel(txn, suggestions, p.known), options...).Run()
	if err != nil {
		return "", fmt.Errorf("failed to run picker: %w", err)
	}

	picker, ok := final.(PickerModel)
	if !ok {
		return "", fmt.Errorf("unexpected picker model %T", final)
	}

	outcome, category := picker.Result()
	switch outcome {
	case OutcomeChosen:
		p.remember(category)
		return category, nil
	case OutcomeQuit:
		return "", ErrQuit
	default:
		return "", nil
	}
}

func (p *Prompter) remember(category string) {
	for _, c := range p.known {
		if c == category {
			return
		}
	}
	p.known = append(p.known, category)
}

// Ensure Prompter implements engine.Prompter.
var _ engine.Prompter = (*Prompter)(nil)
