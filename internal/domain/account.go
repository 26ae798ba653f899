package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AccountType string

const (
	AccountTypeChecking AccountType = "CHECKING"
	AccountTypeSavings  AccountType = "SAVINGS"
	AccountTypeCredit   AccountType = "CREDIT"
)

type AccountStatus string

const (
	AccountStatusActive   AccountStatus = "ACTIVE"
	AccountStatusInactive AccountStatus = "INACTIVE"
	AccountStatusFrozen   AccountStatus = "FROZEN"
	AccountStatusClosed   AccountStatus = "CLOSED"
)

// Account balance is never mutated outside a ledger-writing transaction;
// it equals the sum of the signed amounts of all committed entries.
type Account struct {
	ID        uuid.UUID       `json:"account_id"`
	Number    string          `json:"account_number"`
	Type      AccountType     `json:"account_type"`
	Currency  string          `json:"currency"`
	Balance   decimal.Decimal `json:"balance"`
	OwnerID   uuid.UUID       `json:"owner_id"`
	Status    AccountStatus   `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func ValidAccountType(t AccountType) bool {
	switch t {
	case AccountTypeChecking, AccountTypeSavings, AccountTypeCredit:
		return true
	}
	return false
}

type AccountRepository interface {
	CreateAccount(account *Account) error
	GetAccount(id uuid.UUID) (*Account, error)
	GetAccountForUpdate(id uuid.UUID) (*Account, error)
	ListAccountsByOwner(ownerID uuid.UUID) ([]*Account, error)
	UpdateAccountBalance(id uuid.UUID, newBalance decimal.Decimal) error
	UpdateAccountStatus(id uuid.UUID, status AccountStatus) error
}
