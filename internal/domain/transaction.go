package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidAmount indicates that the amount is zero, negative or not a number.
	ErrInvalidAmount = errors.New("amount must be greater than zero")
	// ErrInsufficientFunds indicates that the account does not have sufficient balance.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrSameAccount indicates a transfer from an account to itself.
	ErrSameAccount = errors.New("cannot transfer to the same account")
)

// TransactionKind is the kind of balance-affecting event.
type TransactionKind string

// Transaction kinds.
const (
	Deposit    TransactionKind = "Deposit"
	Withdrawal TransactionKind = "Withdrawal"
	Transfer   TransactionKind = "Transfer"
)

// Direction tells whether a transaction increased or decreased the balance
// of the account it is posted against.
type Direction string

// Directions.
const (
	Inbound  Direction = "inbound"
	Outbound Direction = "outbound"
)

// Transaction is an immutable record posted against one account.
type Transaction struct {
	ID             uuid.UUID       `json:"id"`
	AccountID      uuid.UUID       `json:"account_id"`
	Kind           TransactionKind `json:"kind"`
	Direction      Direction       `json:"direction"`
	Amount         decimal.Decimal `json:"amount"` // always positive
	Description    string          `json:"description"`
	CounterpartyID *uuid.UUID      `json:"counterparty_id,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// TransferResult is the result of a transfer between two accounts.
type TransferResult struct {
	FromAccount Account     `json:"from_account"`
	ToAccount   Account     `json:"to_account"`
	FromEntry   Transaction `json:"from_entry"`
	ToEntry     Transaction `json:"to_entry"`
}
