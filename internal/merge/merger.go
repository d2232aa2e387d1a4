// Package merge combines the primary account feed with secondary imported records.
package merge

import (
	"log/slog"
	"sort"

	"github.com/Veraticus/spice-budget/internal/model"
)

// Options controls how secondary records are admitted.
type Options struct {
	// SecondarySyncEnabled drops secondary records on days the primary feed already covers.
	SecondarySyncEnabled bool
}

// Result is the merged transaction set plus counters describing what was dropped.
type Result struct {
	Transactions []model.Transaction
	Skipped      int // secondary records with missing or malformed dates
	Overlapping  int // secondary records dropped because the primary feed covers their day
	Duplicates   int // records collapsed by the dedup key
}

// Merge unifies both feeds into one deduplicated list.
// Neither input is modified.
func Merge(primary []model.Transaction, secondary []model.ImportedTransaction, opts Options) Result {
	logger := slog.Default().With("component", "merger")

	covered := make(map[string]bool, len(primary))
	if opts.SecondarySyncEnabled {
		for i := range primary {
			if d, ok := primary[i].EffectiveDate(); ok {
				covered[d.Format(model.DateLayout)] = true
			}
		}
	}

	var result Result
	combined := make([]model.Transaction, 0, len(primary)+len(secondary))
	for i := range primary {
		txn := primary[i]
		if txn.Source == "" {
			txn.Source = model.SourcePrimary
		}
		combined = append(combined, txn)
	}

	for i, rec := range secondary {
		txn, err := Convert(rec, i)
		if err != nil {
			result.Skipped++
			logger.Debug("Skipping secondary record", "index", i, "date", rec.TransactionDate, "error", err)
			continue
		}
		if covered[txn.PostedDate.Format(model.DateLayout)] {
			result.Overlapping++
			continue
		}
		combined = append(combined, txn)
	}

	result.Transactions, result.Duplicates = Dedup(combined)

	logger.Debug("Merged feeds",
		"primary", len(primary),
		"secondary", len(secondary),
		"merged", len(result.Transactions),
		"skipped", result.Skipped,
		"overlapping", result.Overlapping,
		"duplicates", result.Duplicates)

	return result
}

// Dedup keeps the first transaction for each dedup key and reports how many were dropped.
func Dedup(txns []model.Transaction) ([]model.Transaction, int) {
	seen := make(map[string]bool, len(txns))
	out := make([]model.Transaction, 0, len(txns))
	for i := range txns {
		key := txns[i].DedupKey()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, txns[i])
	}
	return out, len(txns) - len(out)
}

// SortByDate orders transactions newest first; undated transactions go last.
// Ties keep their relative order.
func SortByDate(txns []model.Transaction) {
	sort.SliceStable(txns, func(i, j int) bool {
		di, oki := txns[i].EffectiveDate()
		dj, okj := txns[j].EffectiveDate()
		switch {
		case oki && okj:
			return di.After(dj)
		case oki:
			return true
		default:
			return false
		}
	})
}
