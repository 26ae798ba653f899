package service

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"banking-ledger/internal/domain"
	"banking-ledger/internal/errors"
)

// failures injects storage faults into a fakeStore. Shared between the root
// store and its transaction clones so counters survive the clone.
type failures struct {
	createEntryCalls  int
	failCreateEntryOn int // fail the Nth CreateEntry call, 0 = never
	failUpdateBalance bool
	hideKeyLookups    int // return "absent" for the next N idempotency lookups

	ops []string // ordered trace of row locks and transfer inserts
}

// fakeStore is an in-memory domain.Store. WithTransaction runs fn against a
// deep copy and adopts it only on success, mirroring commit/rollback.
type fakeStore struct {
	accounts  map[uuid.UUID]*domain.Account
	transfers map[uuid.UUID]*domain.Transfer
	entries   []*domain.Entry

	clock time.Time
	inTx  bool
	inj   *failures
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		accounts:  map[uuid.UUID]*domain.Account{},
		transfers: map[uuid.UUID]*domain.Transfer{},
		clock:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		inj:       &failures{},
	}
}

func (s *fakeStore) Accounts() domain.AccountRepository   { return s }
func (s *fakeStore) Entries() domain.EntryRepository      { return s }
func (s *fakeStore) Transfers() domain.TransferRepository { return s }

func (s *fakeStore) WithTransaction(fn func(domain.Store) error) error {
	if s.inTx {
		return errors.ErrCannotBeginTransaction
	}
	clone := s.clone()
	clone.inTx = true
	if err := fn(clone); err != nil {
		return err
	}
	s.accounts = clone.accounts
	s.transfers = clone.transfers
	s.entries = clone.entries
	s.clock = clone.clock
	return nil
}

func (s *fakeStore) clone() *fakeStore {
	accounts := make(map[uuid.UUID]*domain.Account, len(s.accounts))
	for id, a := range s.accounts {
		copied := *a
		accounts[id] = &copied
	}
	transfers := make(map[uuid.UUID]*domain.Transfer, len(s.transfers))
	for id, t := range s.transfers {
		copied := *t
		transfers[id] = &copied
	}
	entries := make([]*domain.Entry, len(s.entries))
	copy(entries, s.entries)
	return &fakeStore{
		accounts:  accounts,
		transfers: transfers,
		entries:   entries,
		clock:     s.clock,
		inj:       s.inj,
	}
}

func (s *fakeStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

// account repository

func (s *fakeStore) CreateAccount(account *domain.Account) error {
	for _, existing := range s.accounts {
		if existing.Number == account.Number {
			return errors.ErrDuplicateAccount
		}
	}
	now := s.tick()
	account.CreatedAt = now
	account.UpdatedAt = now
	copied := *account
	s.accounts[account.ID] = &copied
	return nil
}

func (s *fakeStore) GetAccount(id uuid.UUID) (*domain.Account, error) {
	account, ok := s.accounts[id]
	if !ok {
		return nil, errors.ErrAccountNotFound
	}
	copied := *account
	return &copied, nil
}

func (s *fakeStore) GetAccountForUpdate(id uuid.UUID) (*domain.Account, error) {
	s.inj.ops = append(s.inj.ops, "lock "+id.String())
	return s.GetAccount(id)
}

func (s *fakeStore) ListAccountsByOwner(ownerID uuid.UUID) ([]*domain.Account, error) {
	accounts := []*domain.Account{}
	for _, account := range s.accounts {
		if account.OwnerID == ownerID {
			copied := *account
			accounts = append(accounts, &copied)
		}
	}
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].CreatedAt.Before(accounts[j].CreatedAt)
	})
	return accounts, nil
}

func (s *fakeStore) UpdateAccountBalance(id uuid.UUID, newBalance decimal.Decimal) error {
	if s.inj.failUpdateBalance {
		return errors.NewAppError(errors.InternalError, "injected balance update failure")
	}
	account, ok := s.accounts[id]
	if !ok {
		return errors.ErrAccountNotFound
	}
	account.Balance = newBalance
	account.UpdatedAt = s.tick()
	return nil
}

func (s *fakeStore) UpdateAccountStatus(id uuid.UUID, status domain.AccountStatus) error {
	account, ok := s.accounts[id]
	if !ok {
		return errors.ErrAccountNotFound
	}
	account.Status = status
	account.UpdatedAt = s.tick()
	return nil
}

// entry repository

func (s *fakeStore) CreateEntry(entry *domain.Entry) error {
	s.inj.createEntryCalls++
	if s.inj.failCreateEntryOn > 0 && s.inj.createEntryCalls == s.inj.failCreateEntryOn {
		return errors.NewAppError(errors.InternalError, "injected entry insert failure")
	}
	entry.CreatedAt = s.tick()
	copied := *entry
	s.entries = append(s.entries, &copied)
	return nil
}

func (s *fakeStore) ListEntriesByAccount(accountID uuid.UUID, limit, offset int) ([]*domain.Entry, error) {
	matched := s.entriesFor(accountID)
	// newest first
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	if offset >= len(matched) {
		return []*domain.Entry{}, nil
	}
	matched = matched[offset:]
	if limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *fakeStore) CountEntriesByAccount(accountID uuid.UUID) (int64, error) {
	return int64(len(s.entriesFor(accountID))), nil
}

func (s *fakeStore) ListEntriesSince(accountID uuid.UUID, since time.Time) ([]*domain.Entry, error) {
	matched := []*domain.Entry{}
	for _, entry := range s.entriesFor(accountID) {
		if !entry.CreatedAt.Before(since) {
			matched = append(matched, entry)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})
	return matched, nil
}

func (s *fakeStore) entriesFor(accountID uuid.UUID) []*domain.Entry {
	matched := []*domain.Entry{}
	for _, entry := range s.entries {
		if entry.AccountID == accountID {
			copied := *entry
			matched = append(matched, &copied)
		}
	}
	return matched
}

// transfer repository

func (s *fakeStore) CreateTransfer(transfer *domain.Transfer) error {
	s.inj.ops = append(s.inj.ops, "create_transfer")
	if transfer.IdempotencyKey != nil {
		for _, existing := range s.transfers {
			if existing.IdempotencyKey != nil && *existing.IdempotencyKey == *transfer.IdempotencyKey {
				return errors.ErrDuplicateTransfer
			}
		}
	}
	now := s.tick()
	transfer.CreatedAt = now
	transfer.UpdatedAt = now
	copied := *transfer
	s.transfers[transfer.ID] = &copied
	return nil
}

func (s *fakeStore) GetTransferByID(id uuid.UUID) (*domain.Transfer, error) {
	transfer, ok := s.transfers[id]
	if !ok {
		return nil, errors.ErrTransferNotFound
	}
	copied := *transfer
	return &copied, nil
}

func (s *fakeStore) GetTransferByIdempotencyKey(key string) (*domain.Transfer, error) {
	if s.inj.hideKeyLookups > 0 {
		s.inj.hideKeyLookups--
		return nil, nil
	}
	for _, transfer := range s.transfers {
		if transfer.IdempotencyKey != nil && *transfer.IdempotencyKey == key {
			copied := *transfer
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) ListTransfers(filter domain.TransferFilter) ([]*domain.Transfer, int64, error) {
	matched := []*domain.Transfer{}
	for _, transfer := range s.transfers {
		if !inSet(transfer.SourceAccountID, filter.SourceAccountIDs) &&
			!inSet(transfer.DestinationAccountID, filter.DestinationAccountIDs) {
			continue
		}
		if filter.Status != nil && transfer.Status != *filter.Status {
			continue
		}
		if filter.From != nil && transfer.CreatedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && transfer.CreatedAt.After(*filter.To) {
			continue
		}
		copied := *transfer
		matched = append(matched, &copied)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	if filter.Offset >= len(matched) {
		return []*domain.Transfer{}, total, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, total, nil
}

func (s *fakeStore) UpdateTransferStatus(transfer *domain.Transfer, status domain.TransferStatus) error {
	stored, ok := s.transfers[transfer.ID]
	if !ok {
		return errors.ErrTransferNotFound
	}
	stored.Status = status
	stored.UpdatedAt = s.tick()
	transfer.Status = stored.Status
	transfer.UpdatedAt = stored.UpdatedAt
	return nil
}

func inSet(id uuid.UUID, set []uuid.UUID) bool {
	for _, candidate := range set {
		if candidate == id {
			return true
		}
	}
	return false
}

var (
	_ domain.Store              = (*fakeStore)(nil)
	_ domain.AccountRepository  = (*fakeStore)(nil)
	_ domain.EntryRepository    = (*fakeStore)(nil)
	_ domain.TransferRepository = (*fakeStore)(nil)
)
