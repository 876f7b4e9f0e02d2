// Package domain provides definitions of all entities.
package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrAccountNotFound indicates that the account is not found.
	ErrAccountNotFound = errors.New("account not found")
	// ErrInvalidCategory indicates that the account category is not supported.
	ErrInvalidCategory = errors.New("invalid account category")
	// ErrNoActiveUser indicates that the operation requires a signed-in user.
	ErrNoActiveUser = errors.New("no active user")
)

// Category is the account category, fixed at creation.
type Category string

// Account categories.
const (
	Savings    Category = "Savings"
	Checking   Category = "Checking"
	Investment Category = "Investment"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case Savings, Checking, Investment:
		return true
	}

	return false
}

// AccountStatus is the lifecycle status of an account.
type AccountStatus string

// StatusActive is the only status an account can reach.
const StatusActive AccountStatus = "Active"

// Account holds user balance data.
type Account struct {
	ID        uuid.UUID       `json:"id"`
	Owner     string          `json:"owner"`
	Number    string          `json:"number"`
	Category  Category        `json:"category"`
	Balance   decimal.Decimal `json:"balance"` // never negative
	Status    AccountStatus   `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}
