package repository

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"banking-ledger/internal/domain"
	"banking-ledger/internal/errors"
)

type entryRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewEntryRepository(db SQLExecutor, logger *slog.Logger) domain.EntryRepository {
	return &entryRepository{
		db:     db,
		logger: logger,
	}
}

const entryColumns = `id, account_id, entry_type, amount, currency, description, counterparty_id, transfer_id, balance_after, created_at`

// CreateEntry appends one ledger record. Entries are never updated or
// deleted afterwards.
func (r *entryRepository) CreateEntry(entry *domain.Entry) error {
	// created_at comes from the database clock. The insert runs while the
	// account row is locked, so statement time matches commit order per
	// account even across service instances.
	query := `
		INSERT INTO entries (id, account_id, entry_type, amount, currency, description, counterparty_id, transfer_id, balance_after)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`

	var counterpartyID interface{}
	if entry.CounterpartyID != nil {
		counterpartyID = *entry.CounterpartyID
	}
	var transferID interface{}
	if entry.TransferID != nil {
		transferID = *entry.TransferID
	}

	err := r.db.QueryRow(
		query,
		entry.ID,
		entry.AccountID,
		string(entry.Type),
		entry.Amount.String(),
		entry.Currency,
		entry.Description,
		counterpartyID,
		transferID,
		entry.BalanceAfter.String(),
	).Scan(&entry.CreatedAt)

	if err != nil {
		r.logger.Error("Failed to create ledger entry",
			"account_id", entry.AccountID,
			"entry_type", entry.Type,
			"amount", entry.Amount,
			"error", err)
		return errors.NewAppError(errors.InternalError, "failed to create ledger entry").WithDetails(err.Error())
	}

	r.logger.Info("Ledger entry created",
		"entry_id", entry.ID,
		"account_id", entry.AccountID,
		"entry_type", entry.Type,
		"balance_after", entry.BalanceAfter)
	return nil
}

func (r *entryRepository) ListEntriesByAccount(accountID uuid.UUID, limit, offset int) ([]*domain.Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM entries WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	return r.queryEntries(query, accountID, limit, offset)
}

func (r *entryRepository) CountEntriesByAccount(accountID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.QueryRow(`SELECT COUNT(*) FROM entries WHERE account_id = $1`, accountID).Scan(&count)
	if err != nil {
		r.logger.Error("Failed to count ledger entries", "account_id", accountID, "error", err)
		return 0, errors.NewAppError(errors.InternalError, "failed to count ledger entries").WithDetails(err.Error())
	}
	return count, nil
}

func (r *entryRepository) ListEntriesSince(accountID uuid.UUID, since time.Time) ([]*domain.Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM entries WHERE account_id = $1 AND created_at >= $2
		ORDER BY created_at, id
	`
	return r.queryEntries(query, accountID, since)
}

func (r *entryRepository) queryEntries(query string, args ...interface{}) ([]*domain.Entry, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		r.logger.Error("Failed to list ledger entries", "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to list ledger entries").WithDetails(err.Error())
	}
	defer rows.Close()

	entries := []*domain.Entry{}
	for rows.Next() {
		var entry domain.Entry
		var entryType, amountStr, balanceAfterStr string
		var description sql.NullString
		var counterpartyID, transferID uuid.NullUUID

		err := rows.Scan(
			&entry.ID,
			&entry.AccountID,
			&entryType,
			&amountStr,
			&entry.Currency,
			&description,
			&counterpartyID,
			&transferID,
			&balanceAfterStr,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, errors.NewAppError(errors.InternalError, "failed to scan ledger entry").WithDetails(err.Error())
		}

		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return nil, errors.NewAppError(errors.InternalError, "failed to parse entry amount").WithDetails(err.Error())
		}
		balanceAfter, err := decimal.NewFromString(balanceAfterStr)
		if err != nil {
			return nil, errors.NewAppError(errors.InternalError, "failed to parse balance after").WithDetails(err.Error())
		}

		entry.Type = domain.EntryType(entryType)
		entry.Amount = amount
		entry.BalanceAfter = balanceAfter
		entry.Description = description.String
		if counterpartyID.Valid {
			id := counterpartyID.UUID
			entry.CounterpartyID = &id
		}
		if transferID.Valid {
			id := transferID.UUID
			entry.TransferID = &id
		}

		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewAppError(errors.InternalError, "failed to list ledger entries").WithDetails(err.Error())
	}
	return entries, nil
}
