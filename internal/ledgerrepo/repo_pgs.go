// Package ledgerrepo manages the Postgres repository layer of ledgers.
package ledgerrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/pkg/dbpkg"
	"github.com/go-petr/pet-ledger/pkg/errorspkg"
)

// ErrNumberTaken indicates that the account display number is already used.
var ErrNumberTaken = errors.New("account number already taken")

// MoveParams is the input data of a deposit or a withdrawal.
type MoveParams struct {
	Owner       string
	AccountID   uuid.UUID
	Amount      decimal.Decimal
	Description string
	At          time.Time
}

// TransferParams is the input data of a transfer.
type TransferParams struct {
	Owner       string
	FromID      uuid.UUID
	ToID        uuid.UUID
	Amount      decimal.Decimal
	Description string
	At          time.Time
}

// RepoPGS facilitates ledger repository layer logic.
type RepoPGS struct {
	db dbpkg.TxBeginner
}

// NewRepoPGS returns ledger RepoPGS.
func NewRepoPGS(db dbpkg.TxBeginner) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

type scanner interface {
	Scan(dest ...any) error
}

const accountColumns = `id, owner, number, category, balance, status, created_at`

func scanAccount(row scanner) (domain.Account, error) {
	var a domain.Account

	err := row.Scan(
		&a.ID,
		&a.Owner,
		&a.Number,
		&a.Category,
		&a.Balance,
		&a.Status,
		&a.CreatedAt,
	)

	return a, err
}

const transactionColumns = `id, account_id, kind, direction, amount, description, counterparty_id, created_at`

func scanTransaction(row scanner) (domain.Transaction, error) {
	var (
		t            domain.Transaction
		counterparty uuid.NullUUID
	)

	err := row.Scan(
		&t.ID,
		&t.AccountID,
		&t.Kind,
		&t.Direction,
		&t.Amount,
		&t.Description,
		&counterparty,
		&t.CreatedAt,
	)

	if counterparty.Valid {
		id := counterparty.UUID
		t.CounterpartyID = &id
	}

	return t, err
}

func counterpartyArg(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}

	return uuid.NullUUID{UUID: *id, Valid: true}
}

const createAccountQuery = `
INSERT INTO accounts (
    id,
    owner,
    number,
    category,
    balance,
    status,
    created_at
) VALUES (
    $1, $2, $3, $4, $5, $6, $7
) RETURNING ` + accountColumns

func createAccount(ctx context.Context, db dbpkg.SQLInterface, a domain.Account) (domain.Account, error) {
	row := db.QueryRowContext(ctx, createAccountQuery,
		a.ID,
		a.Owner,
		a.Number,
		a.Category,
		a.Balance,
		a.Status,
		a.CreatedAt,
	)

	return scanAccount(row)
}

// CreateAccount stores the account and then returns it.
func (r *RepoPGS) CreateAccount(ctx context.Context, a domain.Account) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	created, err := createAccount(ctx, r.db, a)
	if err != nil {
		if constraint, ok := dbpkg.UniqueViolation(err); ok && constraint == "accounts_number_key" {
			l.Info().Err(err).Send()
			return domain.Account{}, ErrNumberTaken
		}

		l.Error().Err(err).Send()

		return domain.Account{}, errorspkg.ErrInternal
	}

	return created, nil
}

const listAccountsQuery = `
SELECT ` + accountColumns + `
FROM accounts
WHERE owner = $1
ORDER BY created_at, number
`

// Accounts returns the accounts of owner in creation order.
func (r *RepoPGS) Accounts(ctx context.Context, owner string) ([]domain.Account, error) {
	l := zerolog.Ctx(ctx)

	rows, err := r.db.QueryContext(ctx, listAccountsQuery, owner)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}
	defer rows.Close()

	accounts := []domain.Account{}

	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			l.Error().Err(err).Send()
			return nil, errorspkg.ErrInternal
		}

		accounts = append(accounts, a)
	}

	if err := rows.Err(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	return accounts, nil
}

const getAccountQuery = `
SELECT ` + accountColumns + `
FROM accounts
WHERE id = $1 AND owner = $2
`

// Account returns the account of owner with the given id.
func (r *RepoPGS) Account(ctx context.Context, owner string, id uuid.UUID) (domain.Account, error) {
	a, err := scanAccount(r.db.QueryRowContext(ctx, getAccountQuery, id, owner))
	if err != nil {
		return domain.Account{}, mapNotFound(ctx, err)
	}

	return a, nil
}

const listTransactionsQuery = `
SELECT ` + transactionColumns + `
FROM transactions
WHERE account_id = $1
ORDER BY created_at DESC, seq DESC
`

// Transactions returns the transactions of the account, newest first.
func (r *RepoPGS) Transactions(ctx context.Context, owner string, accountID uuid.UUID) ([]domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	if _, err := r.Account(ctx, owner, accountID); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, listTransactionsQuery, accountID)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}
	defer rows.Close()

	txs := []domain.Transaction{}

	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			l.Error().Err(err).Send()
			return nil, errorspkg.ErrInternal
		}

		txs = append(txs, t)
	}

	if err := rows.Err(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	return txs, nil
}

const createTransactionQuery = `
INSERT INTO transactions (
    id,
    account_id,
    kind,
    direction,
    amount,
    description,
    counterparty_id,
    created_at
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8
) RETURNING ` + transactionColumns

func createTransaction(ctx context.Context, db dbpkg.SQLInterface, t domain.Transaction) (domain.Transaction, error) {
	row := db.QueryRowContext(ctx, createTransactionQuery,
		t.ID,
		t.AccountID,
		t.Kind,
		t.Direction,
		t.Amount,
		t.Description,
		counterpartyArg(t.CounterpartyID),
		t.CreatedAt,
	)

	return scanTransaction(row)
}

const lockAccountQuery = `
SELECT ` + accountColumns + `
FROM accounts
WHERE id = $1 AND owner = $2
FOR UPDATE
`

func lockAccount(ctx context.Context, tx *sql.Tx, owner string, id uuid.UUID) (domain.Account, error) {
	return scanAccount(tx.QueryRowContext(ctx, lockAccountQuery, id, owner))
}

const setBalanceQuery = `
UPDATE accounts
SET balance = $1
WHERE id = $2
RETURNING ` + accountColumns

func setBalance(ctx context.Context, tx *sql.Tx, id uuid.UUID, balance decimal.Decimal) (domain.Account, error) {
	return scanAccount(tx.QueryRowContext(ctx, setBalanceQuery, balance, id))
}

// Deposit credits the account and records a Deposit transaction in one
// database transaction.
func (r *RepoPGS) Deposit(ctx context.Context, arg MoveParams) (domain.Transaction, error) {
	return r.move(ctx, arg, domain.Deposit)
}

// Withdraw debits the account and records a Withdrawal transaction in one
// database transaction.
func (r *RepoPGS) Withdraw(ctx context.Context, arg MoveParams) (domain.Transaction, error) {
	return r.move(ctx, arg, domain.Withdrawal)
}

func (r *RepoPGS) move(ctx context.Context, arg MoveParams, kind domain.TransactionKind) (domain.Transaction, error) {
	var created domain.Transaction

	err := dbpkg.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		acc, err := lockAccount(ctx, tx, arg.Owner, arg.AccountID)
		if err != nil {
			return mapNotFound(ctx, err)
		}

		if !arg.Amount.IsPositive() {
			return domain.ErrInvalidAmount
		}

		direction, balance := domain.Inbound, acc.Balance.Add(arg.Amount)

		if kind == domain.Withdrawal {
			if acc.Balance.LessThan(arg.Amount) {
				return domain.ErrInsufficientFunds
			}

			direction, balance = domain.Outbound, acc.Balance.Sub(arg.Amount)
		}

		if _, err := setBalance(ctx, tx, acc.ID, balance); err != nil {
			return fmt.Errorf("set balance: %w", err)
		}

		created, err = createTransaction(ctx, tx, domain.Transaction{
			ID:          uuid.New(),
			AccountID:   acc.ID,
			Kind:        kind,
			Direction:   direction,
			Amount:      arg.Amount,
			Description: arg.Description,
			CreatedAt:   arg.At,
		})
		if err != nil {
			return fmt.Errorf("create transaction: %w", err)
		}

		return nil
	})
	if err != nil {
		return domain.Transaction{}, mapTxError(ctx, err)
	}

	return created, nil
}

// Transfer moves amount between two accounts of the owner in one database
// transaction. Both rows are locked in id order.
func (r *RepoPGS) Transfer(ctx context.Context, arg TransferParams) (domain.TransferResult, error) {
	var res domain.TransferResult

	err := dbpkg.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		from, to, err := lockPair(ctx, tx, arg.Owner, arg.FromID, arg.ToID)
		if err != nil {
			return err
		}

		if !arg.Amount.IsPositive() {
			return domain.ErrInvalidAmount
		}

		if arg.FromID == arg.ToID {
			return domain.ErrSameAccount
		}

		if from.Balance.LessThan(arg.Amount) {
			return domain.ErrInsufficientFunds
		}

		if res.FromAccount, err = setBalance(ctx, tx, from.ID, from.Balance.Sub(arg.Amount)); err != nil {
			return fmt.Errorf("set balance: %w", err)
		}

		if res.ToAccount, err = setBalance(ctx, tx, to.ID, to.Balance.Add(arg.Amount)); err != nil {
			return fmt.Errorf("set balance: %w", err)
		}

		fromCounterparty, toCounterparty := to.ID, from.ID

		res.FromEntry, err = createTransaction(ctx, tx, domain.Transaction{
			ID:             uuid.New(),
			AccountID:      from.ID,
			Kind:           domain.Transfer,
			Direction:      domain.Outbound,
			Amount:         arg.Amount,
			Description:    fmt.Sprintf("%s (to %s)", arg.Description, to.Number),
			CounterpartyID: &fromCounterparty,
			CreatedAt:      arg.At,
		})
		if err != nil {
			return fmt.Errorf("create transaction: %w", err)
		}

		res.ToEntry, err = createTransaction(ctx, tx, domain.Transaction{
			ID:             uuid.New(),
			AccountID:      to.ID,
			Kind:           domain.Transfer,
			Direction:      domain.Inbound,
			Amount:         arg.Amount,
			Description:    fmt.Sprintf("%s (from %s)", arg.Description, from.Number),
			CounterpartyID: &toCounterparty,
			CreatedAt:      arg.At,
		})
		if err != nil {
			return fmt.Errorf("create transaction: %w", err)
		}

		return nil
	})
	if err != nil {
		return domain.TransferResult{}, mapTxError(ctx, err)
	}

	return res, nil
}

// lockPair locks both accounts in id order so that concurrent transfers in
// opposite directions cannot deadlock.
func lockPair(ctx context.Context, tx *sql.Tx, owner string, fromID, toID uuid.UUID) (from, to domain.Account, err error) {
	first, second := fromID, toID
	if second.String() < first.String() {
		first, second = second, first
	}

	a, err := lockAccount(ctx, tx, owner, first)
	if err != nil {
		return from, to, mapNotFound(ctx, err)
	}

	b := a
	if second != first {
		if b, err = lockAccount(ctx, tx, owner, second); err != nil {
			return from, to, mapNotFound(ctx, err)
		}
	}

	if a.ID == fromID {
		return a, b, nil
	}

	return b, a, nil
}

const lockOwnerQuery = `SELECT pg_advisory_xact_lock(hashtext($1))`

const ownerHasAccountsQuery = `SELECT EXISTS (SELECT 1 FROM accounts WHERE owner = $1)`

// Seed stores accounts and their transactions for an owner without accounts,
// in one database transaction. It reports false and stores nothing when the
// owner already has accounts. Concurrent calls for the same owner are
// serialized by a transaction-level advisory lock. It fails with
// ErrNumberTaken when a display number is already used.
func (r *RepoPGS) Seed(ctx context.Context, owner string, accounts []domain.Account, txs []domain.Transaction) (bool, error) {
	var seeded bool

	err := dbpkg.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, lockOwnerQuery, owner); err != nil {
			return fmt.Errorf("lock owner: %w", err)
		}

		var exists bool
		if err := tx.QueryRowContext(ctx, ownerHasAccountsQuery, owner).Scan(&exists); err != nil {
			return fmt.Errorf("check accounts: %w", err)
		}

		if exists {
			return nil
		}

		for _, a := range accounts {
			if _, err := createAccount(ctx, tx, a); err != nil {
				return fmt.Errorf("create account %s: %w", a.Number, err)
			}
		}

		for _, t := range txs {
			if _, err := createTransaction(ctx, tx, t); err != nil {
				return fmt.Errorf("create transaction: %w", err)
			}
		}

		seeded = true

		return nil
	})
	if err != nil {
		if constraint, ok := dbpkg.UniqueViolation(err); ok && constraint == "accounts_number_key" {
			zerolog.Ctx(ctx).Info().Err(err).Send()
			return false, ErrNumberTaken
		}

		return false, mapTxError(ctx, err)
	}

	return seeded, nil
}

func mapNotFound(ctx context.Context, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrAccountNotFound
	}

	zerolog.Ctx(ctx).Error().Err(err).Send()

	return errorspkg.ErrInternal
}

// mapTxError returns the domain error err carries, or ErrInternal.
func mapTxError(ctx context.Context, err error) error {
	for _, target := range []error{
		domain.ErrAccountNotFound,
		domain.ErrInvalidAmount,
		domain.ErrSameAccount,
		domain.ErrInsufficientFunds,
		errorspkg.ErrInternal,
	} {
		if errors.Is(err, target) {
			return target
		}
	}

	zerolog.Ctx(ctx).Error().Err(err).Send()

	return errorspkg.ErrInternal
}
