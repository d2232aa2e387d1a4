package engine

import (
	"context"

	"github.com/Veraticus/spice-budget/internal/model"
	"github.com/Veraticus/spice-budget/internal/pattern"
)

// Prompter asks the user to categorize a transaction no rule matched.
// An empty category means the transaction was skipped.
type Prompter interface {
	ChooseCategory(ctx context.Context, txn model.Transaction, suggestions []pattern.Suggestion) (string, error)
}
