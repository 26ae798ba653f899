package service

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"banking-ledger/internal/domain"
	"banking-ledger/internal/errors"
)

// SummaryService aggregates ledger entries over a trailing day-window. Pure
// read-only; all arithmetic is decimal, never binary floating point.
type SummaryService struct {
	store  domain.Store
	logger *slog.Logger
}

func NewSummaryService(store domain.Store, logger *slog.Logger) *SummaryService {
	return &SummaryService{
		store:  store,
		logger: logger,
	}
}

const (
	defaultSummaryDays = 30
	maxSummaryDays     = 365
)

// Summarize computes entry count, per-type sums, net change (credits minus
// debits), and per-type average and maximum for an owned account. An empty
// window yields zero values, not an error.
func (s *SummaryService) Summarize(accountID, requesterID uuid.UUID, days int) (*domain.TransactionSummary, error) {
	if days < 1 {
		days = defaultSummaryDays
	}
	if days > maxSummaryDays {
		return nil, errors.NewAppError(errors.InvalidInput, "summary window too large")
	}

	account, err := s.store.Accounts().GetAccount(accountID)
	if err != nil {
		return nil, err
	}
	if account.OwnerID != requesterID {
		return nil, errors.ErrAccountNotFound
	}

	since := time.Now().AddDate(0, 0, -days)
	entries, err := s.store.Entries().ListEntriesSince(accountID, since)
	if err != nil {
		return nil, err
	}

	summary := &domain.TransactionSummary{
		AccountID:  accountID,
		WindowDays: days,
		EntryCount: len(entries),
	}

	var debitCount, creditCount int64
	for _, entry := range entries {
		switch entry.Type {
		case domain.EntryTypeDebit:
			debitCount++
			summary.TotalDebits = summary.TotalDebits.Add(entry.Amount)
			if entry.Amount.GreaterThan(summary.MaxDebit) {
				summary.MaxDebit = entry.Amount
			}
		case domain.EntryTypeCredit:
			creditCount++
			summary.TotalCredits = summary.TotalCredits.Add(entry.Amount)
			if entry.Amount.GreaterThan(summary.MaxCredit) {
				summary.MaxCredit = entry.Amount
			}
		}
	}

	summary.NetChange = summary.TotalCredits.Sub(summary.TotalDebits)
	if debitCount > 0 {
		summary.AverageDebit = summary.TotalDebits.DivRound(decimal.NewFromInt(debitCount), 4)
	}
	if creditCount > 0 {
		summary.AverageCredit = summary.TotalCredits.DivRound(decimal.NewFromInt(creditCount), 4)
	}

	s.logger.Info("Summary computed",
		"account_id", accountID,
		"window_days", days,
		"entry_count", summary.EntryCount)
	return summary, nil
}
