package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransferStatus string

const (
	TransferStatusPending   TransferStatus = "PENDING"
	TransferStatusCompleted TransferStatus = "COMPLETED"
	TransferStatusFailed    TransferStatus = "FAILED"
	TransferStatusCancelled TransferStatus = "CANCELLED"
)

// Transfer records one movement of funds between two accounts. A COMPLETED
// transfer has exactly two entries: a DEBIT on the source and a CREDIT on the
// destination, both referencing it.
type Transfer struct {
	ID                   uuid.UUID       `json:"id"`
	SourceAccountID      uuid.UUID       `json:"source_account_id"`
	DestinationAccountID uuid.UUID       `json:"destination_account_id"`
	Amount               decimal.Decimal `json:"amount"`
	Currency             string          `json:"currency"`
	Description          string          `json:"description,omitempty"`
	Status               TransferStatus  `json:"status"`
	IdempotencyKey       *string         `json:"idempotency_key,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

type TransferDirection string

const (
	TransferDirectionIncoming TransferDirection = "incoming"
	TransferDirectionOutgoing TransferDirection = "outgoing"
	TransferDirectionAll      TransferDirection = "all"
)

// TransferFilter narrows a transfer listing. SourceAccountIDs and
// DestinationAccountIDs are matched with OR semantics; an empty slice on one
// side matches nothing on that side.
type TransferFilter struct {
	SourceAccountIDs      []uuid.UUID
	DestinationAccountIDs []uuid.UUID
	Status                *TransferStatus
	From                  *time.Time
	To                    *time.Time
	Limit                 int
	Offset                int
}

type TransferRepository interface {
	CreateTransfer(transfer *Transfer) error
	GetTransferByID(id uuid.UUID) (*Transfer, error)
	// GetTransferByIdempotencyKey returns (nil, nil) when no transfer carries the key.
	GetTransferByIdempotencyKey(key string) (*Transfer, error)
	ListTransfers(filter TransferFilter) ([]*Transfer, int64, error)
	// UpdateTransferStatus writes the new status and sets Status and
	// UpdatedAt on the passed transfer from the persisted row.
	UpdateTransferStatus(transfer *Transfer, status TransferStatus) error
}
