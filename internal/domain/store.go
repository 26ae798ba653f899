package domain

// Store is the unit-of-work boundary over the ledger store. WithTransaction
// runs fn against a Store whose repositories share one database transaction;
// the writes commit together or roll back together.
type Store interface {
	Accounts() AccountRepository
	Entries() EntryRepository
	Transfers() TransferRepository
	WithTransaction(fn func(Store) error) error
}
