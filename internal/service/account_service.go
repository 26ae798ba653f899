package service

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"banking-ledger/internal/domain"
	"banking-ledger/internal/errors"
)

type AccountService struct {
	store  domain.Store
	logger *slog.Logger
}

func NewAccountService(store domain.Store, logger *slog.Logger) *AccountService {
	return &AccountService{
		store:  store,
		logger: logger,
	}
}

type CreateAccountRequest struct {
	OwnerID        uuid.UUID
	Type           domain.AccountType
	Currency       string
	InitialDeposit decimal.Decimal
}

// 10 billion, same ceiling for any single balance write.
var maxInitialDeposit = decimal.NewFromInt(10_000_000_000)

// CreateAccount opens an account for the owner. A positive initial deposit is
// recorded as a CREDIT ledger entry in the same transaction as the account
// row, so replaying the ledger from zero reproduces the balance from the
// very first entry.
func (s *AccountService) CreateAccount(req *CreateAccountRequest) (*domain.Account, error) {
	s.logger.Info("Creating account",
		"owner_id", req.OwnerID,
		"account_type", req.Type,
		"currency", req.Currency,
		"initial_deposit", req.InitialDeposit)

	if !domain.ValidAccountType(req.Type) {
		return nil, errors.NewAppError(errors.InvalidInput, "account type must be CHECKING, SAVINGS or CREDIT")
	}
	if !validCurrency(req.Currency) {
		return nil, errors.NewAppError(errors.InvalidInput, "currency must be a three-letter ISO code")
	}
	if req.InitialDeposit.IsNegative() {
		return nil, errors.ErrInvalidAmount
	}
	if req.InitialDeposit.GreaterThan(maxInitialDeposit) {
		return nil, errors.NewAppError(errors.InvalidAmount, "initial deposit exceeds maximum limit")
	}

	number, err := generateAccountNumber()
	if err != nil {
		return nil, errors.NewAppError(errors.InternalError, "failed to generate account number").WithDetails(err.Error())
	}

	account := &domain.Account{
		ID:       uuid.New(),
		Number:   number,
		Type:     req.Type,
		Currency: req.Currency,
		Balance:  req.InitialDeposit,
		OwnerID:  req.OwnerID,
		Status:   domain.AccountStatusActive,
	}

	err = s.store.WithTransaction(func(tx domain.Store) error {
		if err := tx.Accounts().CreateAccount(account); err != nil {
			return err
		}
		if req.InitialDeposit.IsPositive() {
			entry := &domain.Entry{
				ID:           uuid.New(),
				AccountID:    account.ID,
				Type:         domain.EntryTypeCredit,
				Amount:       req.InitialDeposit,
				Currency:     account.Currency,
				Description:  "initial deposit",
				BalanceAfter: req.InitialDeposit,
			}
			if err := tx.Entries().CreateEntry(entry); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Account created", "account_id", account.ID, "account_number", account.Number)
	return account, nil
}

// GetAccount is owner-scoped; other requesters get the same error as for a
// missing account.
func (s *AccountService) GetAccount(id, requesterID uuid.UUID) (*domain.Account, error) {
	account, err := s.store.Accounts().GetAccount(id)
	if err != nil {
		return nil, err
	}
	if account.OwnerID != requesterID {
		return nil, errors.ErrAccountNotFound
	}
	return account, nil
}

func (s *AccountService) ListAccounts(ownerID uuid.UUID) ([]*domain.Account, error) {
	return s.store.Accounts().ListAccountsByOwner(ownerID)
}

// CloseAccount marks an owned account CLOSED. The balance is re-read under a
// row lock and must be exactly zero.
func (s *AccountService) CloseAccount(id, requesterID uuid.UUID) (*domain.Account, error) {
	var closed *domain.Account
	err := s.store.WithTransaction(func(tx domain.Store) error {
		account, err := tx.Accounts().GetAccountForUpdate(id)
		if err != nil {
			return err
		}
		if account.OwnerID != requesterID {
			return errors.ErrAccountNotFound
		}
		if account.Status == domain.AccountStatusClosed {
			return errors.NewAppError(errors.InvalidInput, "account is already closed")
		}
		if !account.Balance.IsZero() {
			return errors.ErrAccountNotEmpty
		}

		if err := tx.Accounts().UpdateAccountStatus(id, domain.AccountStatusClosed); err != nil {
			return err
		}

		account.Status = domain.AccountStatusClosed
		closed = account
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Account closed", "account_id", id)
	return closed, nil
}

type ListEntriesRequest struct {
	AccountID   uuid.UUID
	RequesterID uuid.UUID
	Page        int
	Limit       int
}

// ListEntries pages through an owned account's ledger, newest first.
func (s *AccountService) ListEntries(req *ListEntriesRequest) ([]*domain.Entry, *PaginationMeta, error) {
	if _, err := s.GetAccount(req.AccountID, req.RequesterID); err != nil {
		return nil, nil, err
	}

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

	entries, err := s.store.Entries().ListEntriesByAccount(req.AccountID, limit, (page-1)*limit)
	if err != nil {
		return nil, nil, err
	}
	total, err := s.store.Entries().CountEntriesByAccount(req.AccountID)
	if err != nil {
		return nil, nil, err
	}

	meta := &PaginationMeta{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: (total + int64(limit) - 1) / int64(limit),
	}
	return entries, meta, nil
}

func validCurrency(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, c := range code {
		if c < 'A' || c > 'Z' {
			return false
		}
	}
	return true
}

func generateAccountNumber() (string, error) {
	max := big.NewInt(1_000_000_000_000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ACCT-%012d", n), nil
}
