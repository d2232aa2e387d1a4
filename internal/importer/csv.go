// Package importer reads uploaded CSV exports into secondary-feed records.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Veraticus/spice-budget/internal/model"
	"github.com/shopspring/decimal"
)

// ErrMissingColumn is returned when a required header is absent.
var ErrMissingColumn = errors.New("missing required column")

// Column names, matched case-insensitively against the header row.
const (
	colID          = "id"
	colDate        = "date"
	colAmount      = "amount"
	colDescription = "description"
	colExtended    = "extended"
	colMerchant    = "merchant"
	colCategory    = "category"
	colBalance     = "balance"
)

// headerAliases maps each column to the header spellings seen in exports.
var headerAliases = map[string][]string{
	colID:          {"transaction id", "id"},
	colDate:        {"transaction date", "date", "posting date", "posted date"},
	colAmount:      {"transaction amount", "amount"},
	colDescription: {"transaction description", "description", "name"},
	colExtended:    {"extended description", "memo"},
	colMerchant:    {"merchant name", "merchant", "payee"},
	colCategory:    {"category"},
	colBalance:     {"balance", "running balance"},
}

// Options adjusts how a file is read.
type Options struct {
	// InvertSign negates amounts for exports that record debits as negative.
	InvertSign bool
}

// CSVParser parses header-mapped CSV exports.
type CSVParser struct {
	logger *slog.Logger
	opts   Options
}

// NewCSVParser creates a parser with the given options.
func NewCSVParser(opts Options) *CSVParser {
	return &CSVParser{
		opts:   opts,
		logger: slog.Default().With("component", "csv_importer"),
	}
}

// Parse reads every data row of the file for the given account.
// Dates are kept as raw text; they are validated when records are merged.
func (p *CSVParser) Parse(r io.Reader, accountID string) ([]model.ImportedTransaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}

	columns, err := mapHeader(header)
	if err != nil {
		return nil, err
	}

	var records []model.ImportedTransaction
	for row := 2; ; row++ {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		if isBlank(fields) {
			continue
		}

		rec, err := p.parseRow(fields, columns, accountID)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		records = append(records, rec)
	}

	p.logger.Debug("Parsed CSV file", "account", accountID, "records", len(records))
	return records, nil
}

func (p *CSVParser) parseRow(fields []string, columns map[string]int, accountID string) (model.ImportedTransaction, error) {
	get := func(col string) string {
		idx, ok := columns[col]
		if !ok || idx >= len(fields) {
			return ""
		}
		return strings.TrimSpace(fields[idx])
	}

	amount, err := parseAmount(get(colAmount))
	if err != nil {
		return model.ImportedTransaction{}, fmt.Errorf("parsing amount %q: %w", get(colAmount), err)
	}
	if p.opts.InvertSign {
		amount = amount.Neg()
	}

	balance := decimal.Zero
	if raw := get(colBalance); raw != "" {
		balance, err = parseAmount(raw)
		if err != nil {
			return model.ImportedTransaction{}, fmt.Errorf("parsing balance %q: %w", raw, err)
		}
	}

	rec := model.ImportedTransaction{
		AccountID:              accountID,
		TransactionDate:        get(colDate),
		TransactionAmount:      amount,
		TransactionDescription: get(colDescription),
		ExtendedDescription:    get(colExtended),
		MerchantName:           get(colMerchant),
		Category:               get(colCategory),
		Balance:                balance,
	}

	if raw := get(colID); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			p.logger.Debug("Ignoring non-numeric row id", "id", raw)
		} else {
			rec.ID = &id
		}
	}

	return rec, nil
}

// mapHeader resolves column positions. Date and amount are required.
func mapHeader(header []string) (map[string]int, error) {
	positions := make(map[string]int, len(header))
	for i, name := range header {
		positions[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}

	columns := make(map[string]int)
	for col, aliases := range headerAliases {
		for _, alias := range aliases {
			if idx, ok := positions[alias]; ok {
				columns[col] = idx
				break
			}
		}
	}

	for _, required := range []string{colDate, colAmount} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, required)
		}
	}
	return columns, nil
}

// parseAmount accepts plain decimals plus "$", thousands separators, and (parenthesized) negatives.
func parseAmount(raw string) (decimal.Decimal, error) {
	value := strings.TrimSpace(raw)
	negative := false
	if strings.HasPrefix(value, "(") && strings.HasSuffix(value, ")") {
		negative = true
		value = value[1 : len(value)-1]
	}
	value = strings.NewReplacer("$", "", ",", "", " ", "").Replace(value)

	amount, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, err
	}
	if negative {
		amount = amount.Neg()
	}
	return amount, nil
}

func isBlank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
