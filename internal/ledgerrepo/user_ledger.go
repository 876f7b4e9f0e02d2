package ledgerrepo

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/internal/ledger"
	"github.com/go-petr/pet-ledger/pkg/errorspkg"
	"github.com/go-petr/pet-ledger/pkg/randompkg"
)

const maxNumberAttempts = 16

// Store provides the persistence needed by a UserLedger.
//
//go:generate mockgen -source user_ledger.go -destination user_ledger_mock.go -package ledgerrepo
type Store interface {
	CreateAccount(ctx context.Context, a domain.Account) (domain.Account, error)
	Accounts(ctx context.Context, owner string) ([]domain.Account, error)
	Account(ctx context.Context, owner string, id uuid.UUID) (domain.Account, error)
	Transactions(ctx context.Context, owner string, accountID uuid.UUID) ([]domain.Transaction, error)
	Deposit(ctx context.Context, arg MoveParams) (domain.Transaction, error)
	Withdraw(ctx context.Context, arg MoveParams) (domain.Transaction, error)
	Transfer(ctx context.Context, arg TransferParams) (domain.TransferResult, error)
	Seed(ctx context.Context, owner string, accounts []domain.Account, txs []domain.Transaction) (bool, error)
}

// Option configures a UserLedger.
type Option func(*UserLedger)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(u *UserLedger) {
		u.now = now
	}
}

// WithNumberGenerator replaces the display number generator.
func WithNumberGenerator(gen func() string) Option {
	return func(u *UserLedger) {
		u.newNumber = gen
	}
}

// UserLedger is the ledger of one user kept in a Store.
type UserLedger struct {
	owner     string
	store     Store
	now       func() time.Time
	newNumber func() string
	closed    atomic.Bool
}

// NewUserLedger returns the stored ledger of owner. An owner without accounts
// gets the data of seed, at most once even under concurrent sign-ins.
func NewUserLedger(ctx context.Context, store Store, owner string, seed ledger.Seed, opts ...Option) (*UserLedger, error) {
	u := &UserLedger{
		owner:     owner,
		store:     store,
		now:       time.Now,
		newNumber: randompkg.DisplayNumber,
	}

	for _, opt := range opts {
		opt(u)
	}

	if seed == nil {
		return u, nil
	}

	accounts, txs := seed(owner, u.now())
	if len(accounts) == 0 {
		return u, nil
	}

	seeded, err := u.storeSeed(ctx, accounts, txs)
	if err != nil {
		return nil, err
	}

	if seeded {
		zerolog.Ctx(ctx).Debug().Str("owner", owner).Int("accounts", len(accounts)).Msg("ledger seeded")
	}

	return u, nil
}

// storeSeed stores the seeded accounts under fresh display numbers unless the
// owner already has accounts. Seeds share their numbers across owners.
func (u *UserLedger) storeSeed(ctx context.Context, accounts []domain.Account, txs []domain.Transaction) (bool, error) {
	for i := 0; i < maxNumberAttempts; i++ {
		for j := range accounts {
			accounts[j].Number = u.newNumber()
		}

		seeded, err := u.store.Seed(ctx, u.owner, accounts, txs)
		if errors.Is(err, ErrNumberTaken) {
			continue
		}

		return seeded, err
	}

	err := fmt.Errorf("%w: no free account numbers for seed after %d attempts", errorspkg.ErrInternal, maxNumberAttempts)
	zerolog.Ctx(ctx).Error().Err(err).Send()

	return false, err
}

// Owner returns the username the ledger belongs to.
func (u *UserLedger) Owner() string {
	return u.owner
}

// Close detaches the ledger from the store. The stored data is kept.
func (u *UserLedger) Close() error {
	u.closed.Store(true)
	return nil
}

func (u *UserLedger) active() error {
	if u.closed.Load() {
		return domain.ErrNoActiveUser
	}

	return nil
}

// CreateAccount opens an empty active account of the given category.
func (u *UserLedger) CreateAccount(ctx context.Context, category domain.Category) (domain.Account, error) {
	if err := u.active(); err != nil {
		return domain.Account{}, err
	}

	if !category.Valid() {
		return domain.Account{}, domain.ErrInvalidCategory
	}

	for i := 0; i < maxNumberAttempts; i++ {
		acc, err := u.store.CreateAccount(ctx, domain.Account{
			ID:        uuid.New(),
			Owner:     u.owner,
			Number:    u.newNumber(),
			Category:  category,
			Balance:   decimal.Zero,
			Status:    domain.StatusActive,
			CreatedAt: u.now(),
		})
		if errors.Is(err, ErrNumberTaken) {
			continue
		}

		return acc, err
	}

	err := fmt.Errorf("%w: no free account number after %d attempts", errorspkg.ErrInternal, maxNumberAttempts)
	zerolog.Ctx(ctx).Error().Err(err).Send()

	return domain.Account{}, err
}

// Deposit credits amount to the account.
func (u *UserLedger) Deposit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, description string) (domain.Transaction, error) {
	if err := u.active(); err != nil {
		return domain.Transaction{}, err
	}

	return u.store.Deposit(ctx, MoveParams{
		Owner:       u.owner,
		AccountID:   accountID,
		Amount:      amount,
		Description: description,
		At:          u.now(),
	})
}

// Withdraw debits amount from the account.
func (u *UserLedger) Withdraw(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, description string) (domain.Transaction, error) {
	if err := u.active(); err != nil {
		return domain.Transaction{}, err
	}

	return u.store.Withdraw(ctx, MoveParams{
		Owner:       u.owner,
		AccountID:   accountID,
		Amount:      amount,
		Description: description,
		At:          u.now(),
	})
}

// Transfer moves amount between two accounts of the ledger.
func (u *UserLedger) Transfer(ctx context.Context, fromID, toID uuid.UUID, amount decimal.Decimal, description string) (domain.TransferResult, error) {
	if err := u.active(); err != nil {
		return domain.TransferResult{}, err
	}

	return u.store.Transfer(ctx, TransferParams{
		Owner:       u.owner,
		FromID:      fromID,
		ToID:        toID,
		Amount:      amount,
		Description: description,
		At:          u.now(),
	})
}

// Account returns the account with the given id.
func (u *UserLedger) Account(ctx context.Context, id uuid.UUID) (domain.Account, error) {
	if err := u.active(); err != nil {
		return domain.Account{}, err
	}

	return u.store.Account(ctx, u.owner, id)
}

// Accounts returns all accounts of the ledger in creation order.
func (u *UserLedger) Accounts(ctx context.Context) ([]domain.Account, error) {
	if err := u.active(); err != nil {
		return nil, err
	}

	return u.store.Accounts(ctx, u.owner)
}

// AccountTransactions returns the transactions posted to the account, newest first.
func (u *UserLedger) AccountTransactions(ctx context.Context, accountID uuid.UUID) ([]domain.Transaction, error) {
	if err := u.active(); err != nil {
		return nil, err
	}

	return u.store.Transactions(ctx, u.owner, accountID)
}
