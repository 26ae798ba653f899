package service

import (
	"bytes"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"banking-ledger/internal/domain"
	"banking-ledger/internal/errors"
)

// TransferService moves funds between two accounts as one atomic unit: a
// transfer row, a DEBIT and a CREDIT ledger entry, and both balance updates
// commit together or not at all. Cross-request coordination is delegated
// entirely to the store's row locks and unique constraints; the service holds
// no in-process locks.
type TransferService struct {
	store  domain.Store
	logger *slog.Logger
}

func NewTransferService(store domain.Store, logger *slog.Logger) *TransferService {
	return &TransferService{
		store:  store,
		logger: logger,
	}
}

type ExecuteRequest struct {
	RequesterID          uuid.UUID
	SourceAccountID      uuid.UUID
	DestinationAccountID uuid.UUID
	Amount               decimal.Decimal
	Currency             string
	Description          string
	IdempotencyKey       *string
}

// AccountSnapshot is the account summary attached to a transfer result.
type AccountSnapshot struct {
	AccountID uuid.UUID       `json:"account_id"`
	Number    string          `json:"account_number"`
	Currency  string          `json:"currency"`
	Balance   decimal.Decimal `json:"balance"`
}

// TransferResult carries the transfer and, for freshly executed transfers,
// post-commit snapshots of both accounts. Idempotent replays return the
// original transfer without snapshots.
type TransferResult struct {
	Transfer    *domain.Transfer `json:"transfer"`
	Source      *AccountSnapshot `json:"source,omitempty"`
	Destination *AccountSnapshot `json:"destination,omitempty"`
}

// Execute runs the precondition checks in a fixed order, each failure a
// distinct error kind with no side effects, then performs the five writes in
// one store transaction. Balance sufficiency is re-validated inside that
// transaction against a locked row, not the earlier read.
func (s *TransferService) Execute(req *ExecuteRequest) (*TransferResult, error) {
	s.logger.Info("Processing transfer",
		"requester_id", req.RequesterID,
		"source_account_id", req.SourceAccountID,
		"destination_account_id", req.DestinationAccountID,
		"amount", req.Amount,
		"currency", req.Currency)

	// 1. Idempotency replay, before any mutating work. A repeated key returns
	// the original transfer regardless of the other parameters.
	if req.IdempotencyKey != nil && *req.IdempotencyKey != "" {
		existing, err := s.store.Transfers().GetTransferByIdempotencyKey(*req.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			s.logger.Info("Returning existing transfer for idempotency key",
				"transfer_id", existing.ID)
			return &TransferResult{Transfer: existing}, nil
		}
	}

	// 2. Source must exist, be owned by the requester and be ACTIVE. All
	// three failures collapse into the same error so callers cannot probe
	// which accounts exist.
	source, err := s.store.Accounts().GetAccount(req.SourceAccountID)
	if err != nil {
		if errors.CodeOf(err) == errors.AccountNotFound {
			return nil, errors.ErrSourceAccountNotFound
		}
		return nil, err
	}
	if source.OwnerID != req.RequesterID || source.Status != domain.AccountStatusActive {
		return nil, errors.ErrSourceAccountNotFound
	}

	// 3. Destination must exist and be ACTIVE; ownership is not required.
	destination, err := s.store.Accounts().GetAccount(req.DestinationAccountID)
	if err != nil {
		if errors.CodeOf(err) == errors.AccountNotFound {
			return nil, errors.ErrDestinationAccountNotFound
		}
		return nil, err
	}
	if destination.Status != domain.AccountStatusActive {
		return nil, errors.ErrDestinationAccountNotFound
	}

	// 4. A transfer cannot target its own source.
	if source.ID == destination.ID {
		return nil, errors.ErrSameAccountTransfer
	}

	// 5. The source leg must match; the destination currency is not checked.
	if req.Currency != source.Currency {
		return nil, errors.ErrCurrencyMismatch
	}

	// 6. Early sufficiency check against the unlocked read; re-done under lock.
	if !req.Amount.IsPositive() {
		return nil, errors.ErrInvalidAmount
	}
	if source.Balance.LessThan(req.Amount) {
		return nil, errors.ErrInsufficientFunds
	}

	transfer := &domain.Transfer{
		ID:                   uuid.New(),
		SourceAccountID:      source.ID,
		DestinationAccountID: destination.ID,
		Amount:               req.Amount,
		Currency:             req.Currency,
		Description:          req.Description,
		Status:               domain.TransferStatusPending,
		IdempotencyKey:       normalizeKey(req.IdempotencyKey),
	}

	var result *TransferResult
	err = s.store.WithTransaction(func(tx domain.Store) error {
		// Locks must come before the transfer insert: the insert's foreign
		// keys take KEY SHARE locks on both account rows, and two transfers
		// debiting the same source would deadlock upgrading to FOR UPDATE.
		src, dst, err := lockAccountPair(tx.Accounts(), source.ID, destination.ID)
		if err != nil {
			return err
		}

		if src.Balance.LessThan(req.Amount) {
			return errors.ErrInsufficientFunds
		}

		// The unique index on idempotency_key makes this insert the
		// at-most-once gate for racing requests with the same key.
		if err := tx.Transfers().CreateTransfer(transfer); err != nil {
			return err
		}

		newSourceBalance := src.Balance.Sub(req.Amount)
		newDestBalance := dst.Balance.Add(req.Amount)

		debit := &domain.Entry{
			ID:             uuid.New(),
			AccountID:      src.ID,
			Type:           domain.EntryTypeDebit,
			Amount:         req.Amount,
			Currency:       src.Currency,
			Description:    req.Description,
			CounterpartyID: &dst.ID,
			TransferID:     &transfer.ID,
			BalanceAfter:   newSourceBalance,
		}
		if err := tx.Entries().CreateEntry(debit); err != nil {
			return err
		}

		credit := &domain.Entry{
			ID:             uuid.New(),
			AccountID:      dst.ID,
			Type:           domain.EntryTypeCredit,
			Amount:         req.Amount,
			Currency:       dst.Currency,
			Description:    req.Description,
			CounterpartyID: &src.ID,
			TransferID:     &transfer.ID,
			BalanceAfter:   newDestBalance,
		}
		if err := tx.Entries().CreateEntry(credit); err != nil {
			return err
		}

		if err := tx.Accounts().UpdateAccountBalance(src.ID, newSourceBalance); err != nil {
			return err
		}
		if err := tx.Accounts().UpdateAccountBalance(dst.ID, newDestBalance); err != nil {
			return err
		}

		if err := tx.Transfers().UpdateTransferStatus(transfer, domain.TransferStatusCompleted); err != nil {
			return err
		}

		result = &TransferResult{
			Transfer: transfer,
			Source: &AccountSnapshot{
				AccountID: src.ID,
				Number:    src.Number,
				Currency:  src.Currency,
				Balance:   newSourceBalance,
			},
			Destination: &AccountSnapshot{
				AccountID: dst.ID,
				Number:    dst.Number,
				Currency:  dst.Currency,
				Balance:   newDestBalance,
			},
		}
		return nil
	})

	if err != nil {
		// Lost the idempotency race: another request with the same key
		// committed first. Return its transfer instead of an error.
		if errors.CodeOf(err) == errors.DuplicateTransfer && transfer.IdempotencyKey != nil {
			winner, ferr := s.store.Transfers().GetTransferByIdempotencyKey(*transfer.IdempotencyKey)
			if ferr == nil && winner != nil {
				s.logger.Info("Recovered idempotency conflict", "transfer_id", winner.ID)
				return &TransferResult{Transfer: winner}, nil
			}
			return nil, errors.NewAppError(errors.InternalError, "failed to resolve idempotency conflict")
		}
		s.logger.Error("Transfer failed", "error", err)
		return nil, err
	}

	s.logger.Info("Transfer completed", "transfer_id", transfer.ID)
	return result, nil
}

// lockAccountPair takes FOR UPDATE locks on both accounts in ascending id
// order so two transfers touching the same pair cannot deadlock.
func lockAccountPair(repo domain.AccountRepository, sourceID, destID uuid.UUID) (src, dst *domain.Account, err error) {
	firstID, secondID := sourceID, destID
	if bytes.Compare(firstID[:], secondID[:]) > 0 {
		firstID, secondID = secondID, firstID
	}

	first, err := repo.GetAccountForUpdate(firstID)
	if err != nil {
		return nil, nil, err
	}
	second, err := repo.GetAccountForUpdate(secondID)
	if err != nil {
		return nil, nil, err
	}

	if first.ID == sourceID {
		return first, second, nil
	}
	return second, first, nil
}

func normalizeKey(key *string) *string {
	if key == nil || *key == "" {
		return nil
	}
	return key
}

// GetByID returns a transfer only to an owner of its source or destination
// account; anyone else sees the same error as for a missing transfer.
func (s *TransferService) GetByID(id, requesterID uuid.UUID) (*domain.Transfer, error) {
	transfer, err := s.store.Transfers().GetTransferByID(id)
	if err != nil {
		return nil, err
	}

	visible, err := s.requesterOwnsEitherEnd(transfer, requesterID)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, errors.ErrTransferNotFound
	}
	return transfer, nil
}

func (s *TransferService) requesterOwnsEitherEnd(transfer *domain.Transfer, requesterID uuid.UUID) (bool, error) {
	for _, accountID := range []uuid.UUID{transfer.SourceAccountID, transfer.DestinationAccountID} {
		account, err := s.store.Accounts().GetAccount(accountID)
		if err != nil {
			if errors.CodeOf(err) == errors.AccountNotFound {
				continue
			}
			return false, err
		}
		if account.OwnerID == requesterID {
			return true, nil
		}
	}
	return false, nil
}

type ListTransfersRequest struct {
	RequesterID uuid.UUID
	Status      *domain.TransferStatus
	Direction   domain.TransferDirection
	From        *time.Time
	To          *time.Time
	Page        int
	Limit       int
}

type PaginationMeta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
}

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// List returns the requester's transfers. Direction is computed relative to
// the requester's account ownership: outgoing matches the source side,
// incoming the destination side, all unions both.
func (s *TransferService) List(req *ListTransfersRequest) ([]*domain.Transfer, *PaginationMeta, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	limit := req.Limit
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	accounts, err := s.store.Accounts().ListAccountsByOwner(req.RequesterID)
	if err != nil {
		return nil, nil, err
	}

	owned := make([]uuid.UUID, len(accounts))
	for i, account := range accounts {
		owned[i] = account.ID
	}

	filter := domain.TransferFilter{
		Status: req.Status,
		From:   req.From,
		To:     req.To,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
	switch req.Direction {
	case domain.TransferDirectionOutgoing:
		filter.SourceAccountIDs = owned
	case domain.TransferDirectionIncoming:
		filter.DestinationAccountIDs = owned
	case domain.TransferDirectionAll, "":
		filter.SourceAccountIDs = owned
		filter.DestinationAccountIDs = owned
	default:
		return nil, nil, errors.NewAppError(errors.InvalidInput, "direction must be incoming, outgoing or all")
	}

	transfers, total, err := s.store.Transfers().ListTransfers(filter)
	if err != nil {
		return nil, nil, err
	}

	meta := &PaginationMeta{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: (total + int64(limit) - 1) / int64(limit),
	}
	return transfers, meta, nil
}

// Cancel transitions a PENDING transfer to CANCELLED. Only the owner of the
// source account may cancel; execute() completes transfers synchronously, so
// pending transfers normally exist only when created out of band.
func (s *TransferService) Cancel(id, requesterID uuid.UUID) (*domain.Transfer, error) {
	var cancelled *domain.Transfer
	err := s.store.WithTransaction(func(tx domain.Store) error {
		transfer, err := tx.Transfers().GetTransferByID(id)
		if err != nil {
			return err
		}

		source, err := tx.Accounts().GetAccount(transfer.SourceAccountID)
		if err != nil {
			return err
		}
		if source.OwnerID != requesterID {
			return errors.ErrTransferNotFound
		}

		if transfer.Status != domain.TransferStatusPending {
			return errors.ErrTransferNotCancellable
		}

		if err := tx.Transfers().UpdateTransferStatus(transfer, domain.TransferStatusCancelled); err != nil {
			return err
		}

		cancelled = transfer
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Transfer cancelled", "transfer_id", id)
	return cancelled, nil
}
