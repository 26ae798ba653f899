package repository

import (
	"database/sql"
	"log/slog"

	"banking-ledger/internal/domain"
	"banking-ledger/internal/errors"
)

// Store is the unit of work over the ledger database. A Store built from
// *sql.DB runs each repository call in its own implicit transaction;
// WithTransaction yields a Store whose calls share one sql.Tx.
type Store struct {
	executor SQLExecutor
	logger   *slog.Logger
}

func NewStore(db *sql.DB, logger *slog.Logger) *Store {
	return &Store{
		executor: db,
		logger:   logger,
	}
}

func (s *Store) Accounts() domain.AccountRepository {
	return NewAccountRepository(s.executor, s.logger)
}

func (s *Store) Entries() domain.EntryRepository {
	return NewEntryRepository(s.executor, s.logger)
}

func (s *Store) Transfers() domain.TransferRepository {
	return NewTransferRepository(s.executor, s.logger)
}

// WithTransaction executes fn within a single database transaction. fn's
// writes commit together; any error (or panic) rolls back all of them.
func (s *Store) WithTransaction(fn func(domain.Store) error) error {
	db, ok := s.executor.(*sql.DB)
	if !ok {
		return errors.ErrCannotBeginTransaction
	}

	tx, err := db.Begin()
	if err != nil {
		return errors.NewAppError(errors.InternalError, "failed to begin transaction").WithDetails(err.Error())
	}

	txStore := &Store{
		executor: tx,
		logger:   s.logger,
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(txStore); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.NewAppError(errors.InternalError, "failed to commit transaction").WithDetails(err.Error())
	}
	return nil
}

var _ domain.Store = (*Store)(nil)
