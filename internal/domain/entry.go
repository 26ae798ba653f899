package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EntryType string

const (
	EntryTypeDebit  EntryType = "DEBIT"
	EntryTypeCredit EntryType = "CREDIT"
)

// Entry is one immutable ledger record: a single debit or credit against one
// account, with a snapshot of the balance immediately after it was applied.
// Entries are insert-only; nothing in the service updates or deletes them.
type Entry struct {
	ID             uuid.UUID       `json:"id"`
	AccountID      uuid.UUID       `json:"account_id"`
	Type           EntryType       `json:"type"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	Description    string          `json:"description,omitempty"`
	CounterpartyID *uuid.UUID      `json:"counterparty_id,omitempty"`
	TransferID     *uuid.UUID      `json:"transfer_id,omitempty"`
	BalanceAfter   decimal.Decimal `json:"balance_after"`
	CreatedAt      time.Time       `json:"created_at"`
}

// SignedAmount returns the amount negated for debits, unchanged for credits.
func (e *Entry) SignedAmount() decimal.Decimal {
	if e.Type == EntryTypeDebit {
		return e.Amount.Neg()
	}
	return e.Amount
}

type EntryRepository interface {
	CreateEntry(entry *Entry) error
	// ListEntriesByAccount returns entries newest first.
	ListEntriesByAccount(accountID uuid.UUID, limit, offset int) ([]*Entry, error)
	CountEntriesByAccount(accountID uuid.UUID) (int64, error)
	// ListEntriesSince returns entries created at or after the cutoff, oldest first.
	ListEntriesSince(accountID uuid.UUID, since time.Time) ([]*Entry, error)
}
