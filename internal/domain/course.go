package domain

import "github.com/shopspring/decimal"

// Course is read from the catalog; the ledger only consumes the configured
// installment count at registration time.
type Course struct {
	ID                  int64
	Name                string
	Duration            string
	Fee                 decimal.Decimal
	MonthlyInstallments int
	IsActive            bool
}
