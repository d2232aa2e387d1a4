package model

import "github.com/shopspring/decimal"

// ImportedTransaction is a row from the secondary (uploaded file) feed.
// Its schema is looser than Transaction: the id may be missing and the
// date is kept as the raw text from the file.
type ImportedTransaction struct {
	ID                     *int64
	TransactionAmount      decimal.Decimal
	Balance                decimal.Decimal
	TransactionDate        string
	TransactionDescription string
	ExtendedDescription    string
	MerchantName           string
	Category               string
	AccountID              string
}

// Account is a financial account owned by a user.
type Account struct {
	ID                   string
	UserID               string
	Name                 string
	SecondarySyncEnabled bool // imported rows on days the primary feed covers are dropped
}
