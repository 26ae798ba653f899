package repository

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"banking-ledger/internal/domain"
	"banking-ledger/internal/errors"
)

type transferRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewTransferRepository(db SQLExecutor, logger *slog.Logger) domain.TransferRepository {
	return &transferRepository{
		db:     db,
		logger: logger,
	}
}

const transferColumns = `id, source_account_id, destination_account_id, amount, currency, description, status, idempotency_key, created_at, updated_at`

func (r *transferRepository) CreateTransfer(transfer *domain.Transfer) error {
	// created_at/updated_at come from the database clock so row timestamps
	// agree across service instances.
	query := `
		INSERT INTO transfers (id, source_account_id, destination_account_id, amount, currency, description, status, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`

	var idempotencyKey interface{}
	if transfer.IdempotencyKey != nil {
		idempotencyKey = *transfer.IdempotencyKey
	}

	err := r.db.QueryRow(
		query,
		transfer.ID,
		transfer.SourceAccountID,
		transfer.DestinationAccountID,
		transfer.Amount.String(),
		transfer.Currency,
		transfer.Description,
		string(transfer.Status),
		idempotencyKey,
	).Scan(&transfer.CreatedAt, &transfer.UpdatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" { // unique_violation on the idempotency key index
				r.logger.Warn("Duplicate idempotency key", "idempotency_key", transfer.IdempotencyKey)
				return errors.ErrDuplicateTransfer
			}
		}
		r.logger.Error("Failed to create transfer",
			"source_account_id", transfer.SourceAccountID,
			"destination_account_id", transfer.DestinationAccountID,
			"amount", transfer.Amount,
			"error", err)
		return errors.NewAppError(errors.InternalError, "failed to create transfer").WithDetails(err.Error())
	}

	r.logger.Info("Transfer created", "transfer_id", transfer.ID, "status", transfer.Status)
	return nil
}

func (r *transferRepository) GetTransferByID(id uuid.UUID) (*domain.Transfer, error) {
	query := `SELECT ` + transferColumns + ` FROM transfers WHERE id = $1`

	transfer, err := r.scanTransfer(r.db.QueryRow(query, id).Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrTransferNotFound
		}
		r.logger.Error("Failed to get transfer", "transfer_id", id, "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to get transfer").WithDetails(err.Error())
	}
	return transfer, nil
}

// GetTransferByIdempotencyKey returns (nil, nil) when no transfer carries the key.
func (r *transferRepository) GetTransferByIdempotencyKey(key string) (*domain.Transfer, error) {
	query := `SELECT ` + transferColumns + ` FROM transfers WHERE idempotency_key = $1`

	transfer, err := r.scanTransfer(r.db.QueryRow(query, key).Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.Error("Failed to get transfer by idempotency key", "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to get transfer").WithDetails(err.Error())
	}
	return transfer, nil
}

func (r *transferRepository) ListTransfers(filter domain.TransferFilter) ([]*domain.Transfer, int64, error) {
	conditions := []string{"(source_account_id = ANY($1) OR destination_account_id = ANY($2))"}
	args := []interface{}{
		pq.Array(uuidStrings(filter.SourceAccountIDs)),
		pq.Array(uuidStrings(filter.DestinationAccountIDs)),
	}

	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	where := strings.Join(conditions, " AND ")

	var total int64
	countQuery := `SELECT COUNT(*) FROM transfers WHERE ` + where
	if err := r.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		r.logger.Error("Failed to count transfers", "error", err)
		return nil, 0, errors.NewAppError(errors.InternalError, "failed to count transfers").WithDetails(err.Error())
	}

	args = append(args, filter.Limit, filter.Offset)
	listQuery := fmt.Sprintf(
		`SELECT %s FROM transfers WHERE %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		transferColumns, where, len(args)-1, len(args),
	)

	rows, err := r.db.Query(listQuery, args...)
	if err != nil {
		r.logger.Error("Failed to list transfers", "error", err)
		return nil, 0, errors.NewAppError(errors.InternalError, "failed to list transfers").WithDetails(err.Error())
	}
	defer rows.Close()

	transfers := []*domain.Transfer{}
	for rows.Next() {
		transfer, err := r.scanTransfer(rows.Scan)
		if err != nil {
			return nil, 0, errors.NewAppError(errors.InternalError, "failed to scan transfer").WithDetails(err.Error())
		}
		transfers = append(transfers, transfer)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewAppError(errors.InternalError, "failed to list transfers").WithDetails(err.Error())
	}
	return transfers, total, nil
}

func (r *transferRepository) scanTransfer(scan func(dest ...interface{}) error) (*domain.Transfer, error) {
	var transfer domain.Transfer
	var amountStr, status string
	var description sql.NullString
	var idempotencyKey sql.NullString

	err := scan(
		&transfer.ID,
		&transfer.SourceAccountID,
		&transfer.DestinationAccountID,
		&amountStr,
		&transfer.Currency,
		&description,
		&status,
		&idempotencyKey,
		&transfer.CreatedAt,
		&transfer.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return nil, err
	}

	transfer.Amount = amount
	transfer.Description = description.String
	transfer.Status = domain.TransferStatus(status)
	if idempotencyKey.Valid {
		key := idempotencyKey.String
		transfer.IdempotencyKey = &key
	}
	return &transfer, nil
}

func (r *transferRepository) UpdateTransferStatus(transfer *domain.Transfer, status domain.TransferStatus) error {
	query := `UPDATE transfers SET status = $1, updated_at = NOW() WHERE id = $2 RETURNING updated_at`

	var updatedAt time.Time
	err := r.db.QueryRow(query, string(status), transfer.ID).Scan(&updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return errors.ErrTransferNotFound
		}
		r.logger.Error("Failed to update transfer status",
			"transfer_id", transfer.ID, "status", status, "error", err)
		return errors.NewAppError(errors.InternalError, "failed to update transfer status").WithDetails(err.Error())
	}

	transfer.Status = status
	transfer.UpdatedAt = updatedAt
	r.logger.Info("Transfer status updated", "transfer_id", transfer.ID, "status", status)
	return nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
