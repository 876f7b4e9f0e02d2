package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/go-petr/pet-ledger/internal/domain"
)

// Seed returns the initial accounts and transactions of a new ledger.
type Seed func(owner string, now time.Time) ([]domain.Account, []domain.Transaction)

// Seed names accepted by SeedByName.
const (
	SeedEmpty = "empty"
	SeedDemo  = "demo"
)

// SeedByName returns the seed registered under name.
func SeedByName(name string) (Seed, error) {
	switch name {
	case SeedEmpty, "":
		return EmptySeed, nil
	case SeedDemo:
		return DemoSeed, nil
	}

	return nil, fmt.Errorf("unknown ledger seed %q", name)
}

// EmptySeed starts the ledger without accounts.
func EmptySeed(string, time.Time) ([]domain.Account, []domain.Transaction) {
	return nil, nil
}

// DemoSeed starts the ledger with a savings and a checking account and a
// short history that spans the last three months.
func DemoSeed(owner string, now time.Time) ([]domain.Account, []domain.Transaction) {
	daysAgo := func(n int) time.Time {
		return now.AddDate(0, 0, -n)
	}

	savings := domain.Account{
		ID:        uuid.New(),
		Owner:     owner,
		Number:    "12345678",
		Category:  domain.Savings,
		Balance:   decimal.NewFromInt(5000),
		Status:    domain.StatusActive,
		CreatedAt: daysAgo(90),
	}

	checking := domain.Account{
		ID:        uuid.New(),
		Owner:     owner,
		Number:    "87654321",
		Category:  domain.Checking,
		Balance:   decimal.NewFromInt(2500),
		Status:    domain.StatusActive,
		CreatedAt: daysAgo(60),
	}

	toChecking, fromSavings := checking.ID, savings.ID

	txs := []domain.Transaction{
		{
			ID:          uuid.New(),
			AccountID:   savings.ID,
			Kind:        domain.Deposit,
			Direction:   domain.Inbound,
			Amount:      decimal.NewFromInt(1000),
			Description: "Initial deposit",
			CreatedAt:   daysAgo(85),
		},
		{
			ID:          uuid.New(),
			AccountID:   savings.ID,
			Kind:        domain.Deposit,
			Direction:   domain.Inbound,
			Amount:      decimal.NewFromInt(500),
			Description: "Salary",
			CreatedAt:   daysAgo(55),
		},
		{
			ID:          uuid.New(),
			AccountID:   savings.ID,
			Kind:        domain.Withdrawal,
			Direction:   domain.Outbound,
			Amount:      decimal.NewFromInt(200),
			Description: "ATM withdrawal",
			CreatedAt:   daysAgo(40),
		},
		{
			ID:          uuid.New(),
			AccountID:   checking.ID,
			Kind:        domain.Deposit,
			Direction:   domain.Inbound,
			Amount:      decimal.NewFromInt(2500),
			Description: "Initial deposit",
			CreatedAt:   daysAgo(60),
		},
		{
			ID:             uuid.New(),
			AccountID:      savings.ID,
			Kind:           domain.Transfer,
			Direction:      domain.Outbound,
			Amount:         decimal.NewFromInt(300),
			Description:    "Transfer to Checking",
			CounterpartyID: &toChecking,
			CreatedAt:      daysAgo(30),
		},
		{
			ID:             uuid.New(),
			AccountID:      checking.ID,
			Kind:           domain.Transfer,
			Direction:      domain.Inbound,
			Amount:         decimal.NewFromInt(300),
			Description:    "Transfer from Savings",
			CounterpartyID: &fromSavings,
			CreatedAt:      daysAgo(30),
		},
	}

	return []domain.Account{savings, checking}, txs
}
