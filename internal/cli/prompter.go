package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/Veraticus/spice-budget/internal/model"
	"github.com/Veraticus/spice-budget/internal/pattern"
)

// ErrInputTerminated is returned when input ends before an answer is given.
var ErrInputTerminated = errors.New("input terminated")

// Prompter asks the user to confirm actions and pick categories.
type Prompter struct {
	writer           io.Writer
	reader           *NonBlockingReader
	recentCategories []string
}

// NewPrompter creates a prompter. Nil reader and writer default to stdin and stdout.
func NewPrompter(reader io.Reader, writer io.Writer) *Prompter {
	if reader == nil {
		reader = os.Stdin
	}
	if writer == nil {
		writer = os.Stdout
	}
	return &Prompter{
		reader: NewNonBlockingReader(reader),
		writer: writer,
	}
}

// Confirm asks a yes/no question. Anything but y/yes is no.
func (p *Prompter) Confirm(ctx context.Context, question string) (bool, error) {
	if _, err := fmt.Fprint(p.writer, FormatPrompt(question+" [y/N]")); err != nil {
		return false, fmt.Errorf("failed to write prompt: %w", err)
	}
	answer, err := p.readLine(ctx)
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// ChooseCategory shows a transaction with its suggestions and returns the chosen category.
// An empty result means the user skipped it.
func (p *Prompter) ChooseCategory(ctx context.Context, txn model.Transaction, suggestions []pattern.Suggestion) (string, error) {
	if _, err := fmt.Fprintln(p.writer, p.formatTransaction(txn, suggestions)); err != nil {
		return "", fmt.Errorf("failed to write transaction: %w", err)
	}

	for {
		if _, err := fmt.Fprint(p.writer, FormatPrompt("Choose [1-"+strconv.Itoa(len(suggestions))+"], (c)ustom, (s)kip")); err != nil {
			return "", fmt.Errorf("failed to write prompt: %w", err)
		}
		choice, err := p.readLine(ctx)
		if err != nil {
			return "", err
		}

		switch strings.ToLower(choice) {
		case "", "s", "skip":
			return "", nil
		case "c", "custom":
			category, err := p.promptCustomCategory(ctx)
			if err != nil {
				return "", err
			}
			p.trackCategory(category)
			return category, nil
		}

		if n, err := strconv.Atoi(choice); err == nil && n >= 1 && n <= len(suggestions) {
			category := suggestions[n-1].Category
			p.trackCategory(category)
			return category, nil
		}

		if _, err := fmt.Fprintln(p.writer, FormatError("Invalid choice. Please try again.")); err != nil {
			slog.Warn("Failed to write error message", "error", err)
		}
	}
}

func (p *Prompter) formatTransaction(txn model.Transaction, suggestions []pattern.Suggestion) string {
	var b strings.Builder

	date := "pending"
	if d, ok := txn.EffectiveDate(); ok {
		date = d.Format("Jan 2, 2006")
	}
	fmt.Fprintf(&b, "  Date: %s\n", date)
	fmt.Fprintf(&b, "  Amount: %s\n", FormatMoney(txn.Amount))
	fmt.Fprintf(&b, "  Description: %s\n", txn.Description)
	if txn.MerchantName != "" {
		fmt.Fprintf(&b, "  Merchant: %s\n", txn.MerchantName)
	}

	if len(suggestions) == 0 {
		b.WriteString("\n" + SubtleStyle.Render("No rule suggestions."))
	} else {
		b.WriteString("\nSuggestions:\n")
		for i, s := range suggestions {
			fmt.Fprintf(&b, "  %d. %s %s\n", i+1, BoldStyle.Render(s.Category), SubtleStyle.Render(s.Reason))
		}
	}

	return RenderBox("Transaction: "+txn.Counterparty(), strings.TrimRight(b.String(), "\n"))
}

func (p *Prompter) promptCustomCategory(ctx context.Context) (string, error) {
	if len(p.recentCategories) > 0 {
		if _, err := fmt.Fprintln(p.writer, FormatInfo("Recent categories: "+strings.Join(p.recentCategories, ", "))); err != nil {
			slog.Warn("Failed to write recent categories", "error", err)
		}
	}

	for {
		if _, err := fmt.Fprint(p.writer, FormatPrompt("Enter category")); err != nil {
			return "", fmt.Errorf("failed to write category prompt: %w", err)
		}
		category, err := p.readLine(ctx)
		if err != nil {
			return "", err
		}
		if category != "" {
			return category, nil
		}
		if _, err := fmt.Fprintln(p.writer, FormatError("Category cannot be empty. Please try again.")); err != nil {
			slog.Warn("Failed to write empty category error", "error", err)
		}
	}
}

// trackCategory keeps the ten most recent distinct choices, newest first.
func (p *Prompter) trackCategory(category string) {
	recent := []string{category}
	for _, c := range p.recentCategories {
		if c != category && len(recent) < 10 {
			recent = append(recent, c)
		}
	}
	p.recentCategories = recent
}

func (p *Prompter) readLine(ctx context.Context) (string, error) {
	line, err := p.reader.ReadLine(ctx)
	if errors.Is(err, io.EOF) {
		return "", ErrInputTerminated
	}
	return line, err
}
