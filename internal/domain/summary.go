package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionSummary aggregates the ledger entries of one account over a
// trailing day-window. All fields are well-defined zeros when the window
// holds no entries.
type TransactionSummary struct {
	AccountID     uuid.UUID       `json:"account_id"`
	WindowDays    int             `json:"window_days"`
	EntryCount    int             `json:"entry_count"`
	TotalDebits   decimal.Decimal `json:"total_debits"`
	TotalCredits  decimal.Decimal `json:"total_credits"`
	NetChange     decimal.Decimal `json:"net_change"`
	AverageDebit  decimal.Decimal `json:"average_debit"`
	AverageCredit decimal.Decimal `json:"average_credit"`
	MaxDebit      decimal.Decimal `json:"max_debit"`
	MaxCredit     decimal.Decimal `json:"max_credit"`
}
