// Package ledger implements the in-memory ledger of a signed-in user.
//
// A Ledger owns its accounts and transactions exclusively. All reads and
// writes are applied by a single goroutine, one command at a time, against
// the latest committed state, so two operations on the same account can never
// both observe the same stale balance.
package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/pkg/errorspkg"
	"github.com/go-petr/pet-ledger/pkg/randompkg"
)

// maxNumberAttempts bounds the search for an unused display number.
const maxNumberAttempts = 16

// Option configures a Ledger.
type Option func(*Ledger)

// WithSeed sets the initial data of the ledger.
func WithSeed(s Seed) Option {
	return func(l *Ledger) {
		l.seed = s
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// WithLatency delays every mutating operation by d before it is applied.
func WithLatency(d time.Duration) Option {
	return func(l *Ledger) {
		l.latency = d
	}
}

// WithNumberGenerator replaces the display number generator.
func WithNumberGenerator(gen func() string) Option {
	return func(l *Ledger) {
		l.newNumber = gen
	}
}

// Ledger is the in-memory ledger of one user.
type Ledger struct {
	owner     string
	seed      Seed
	now       func() time.Time
	latency   time.Duration
	newNumber func() string

	cmds      chan func(*state)
	done      chan struct{}
	closeOnce sync.Once
}

// New returns an active ledger for owner, seeded according to opts.
func New(owner string, opts ...Option) *Ledger {
	l := &Ledger{
		owner:     owner,
		seed:      EmptySeed,
		now:       time.Now,
		newNumber: randompkg.DisplayNumber,
		cmds:      make(chan func(*state)),
		done:      make(chan struct{}),
	}

	for _, opt := range opts {
		opt(l)
	}

	st := newState()
	accounts, txs := l.seed(owner, l.now())
	st.load(accounts, txs)

	go l.run(st)

	return l
}

// Owner returns the username the ledger belongs to.
func (l *Ledger) Owner() string {
	return l.owner
}

// Close discards the ledger state. Operations on a closed ledger fail with
// domain.ErrNoActiveUser.
func (l *Ledger) Close() error {
	l.closeOnce.Do(func() {
		close(l.done)
	})

	return nil
}

func (l *Ledger) run(st *state) {
	for {
		select {
		case <-l.done:
			return
		default:
		}

		select {
		case cmd := <-l.cmds:
			cmd(st)
		case <-l.done:
			return
		}
	}
}

// exec hands cmd to the owning goroutine and waits until it was applied.
func (l *Ledger) exec(ctx context.Context, cmd func(*state)) error {
	applied := make(chan struct{})

	select {
	case l.cmds <- func(st *state) {
		cmd(st)
		close(applied)
	}:
	case <-l.done:
		return domain.ErrNoActiveUser
	case <-ctx.Done():
		return ctx.Err()
	}

	<-applied

	return nil
}

// wait simulates the network round trip of a remote ledger.
func (l *Ledger) wait(ctx context.Context) error {
	if l.latency <= 0 {
		return nil
	}

	t := time.NewTimer(l.latency)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-l.done:
		return domain.ErrNoActiveUser
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Ledger) mutate(ctx context.Context, cmd func(*state)) error {
	if err := l.wait(ctx); err != nil {
		return err
	}

	return l.exec(ctx, cmd)
}

// CreateAccount opens an empty active account of the given category.
func (l *Ledger) CreateAccount(ctx context.Context, category domain.Category) (domain.Account, error) {
	if !category.Valid() {
		return domain.Account{}, domain.ErrInvalidCategory
	}

	var (
		acc    domain.Account
		cmdErr error
	)

	err := l.mutate(ctx, func(st *state) {
		number, ok := l.uniqueNumber(st)
		if !ok {
			cmdErr = fmt.Errorf("%w: no free account number after %d attempts", errorspkg.ErrInternal, maxNumberAttempts)
			return
		}

		acc = domain.Account{
			ID:        uuid.New(),
			Owner:     l.owner,
			Number:    number,
			Category:  category,
			Balance:   decimal.Zero,
			Status:    domain.StatusActive,
			CreatedAt: l.now(),
		}

		st.addAccount(acc)
	})
	if err != nil {
		return domain.Account{}, err
	}

	if cmdErr != nil {
		zerolog.Ctx(ctx).Error().Err(cmdErr).Send()
		return domain.Account{}, cmdErr
	}

	zerolog.Ctx(ctx).Debug().
		Str("account_id", acc.ID.String()).
		Str("category", string(category)).
		Msg("account created")

	return acc, nil
}

func (l *Ledger) uniqueNumber(st *state) (string, bool) {
	for i := 0; i < maxNumberAttempts; i++ {
		n := l.newNumber()
		if _, taken := st.numbers[n]; !taken {
			return n, true
		}
	}

	return "", false
}

// Deposit credits amount to the account and records a Deposit transaction.
func (l *Ledger) Deposit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, description string) (domain.Transaction, error) {
	var (
		tx     domain.Transaction
		cmdErr error
	)

	err := l.mutate(ctx, func(st *state) {
		i, ok := st.index[accountID]
		if !ok {
			cmdErr = domain.ErrAccountNotFound
			return
		}

		if !amount.IsPositive() {
			cmdErr = domain.ErrInvalidAmount
			return
		}

		tx = domain.Transaction{
			ID:          uuid.New(),
			AccountID:   accountID,
			Kind:        domain.Deposit,
			Direction:   domain.Inbound,
			Amount:      amount,
			Description: description,
			CreatedAt:   l.now(),
		}

		st.accounts[i].Balance = st.accounts[i].Balance.Add(amount)
		st.txs = append(st.txs, tx)
	})
	if err != nil {
		return domain.Transaction{}, err
	}

	if cmdErr != nil {
		return domain.Transaction{}, cmdErr
	}

	return tx, nil
}

// Withdraw debits amount from the account and records a Withdrawal transaction.
func (l *Ledger) Withdraw(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, description string) (domain.Transaction, error) {
	var (
		tx     domain.Transaction
		cmdErr error
	)

	err := l.mutate(ctx, func(st *state) {
		i, ok := st.index[accountID]
		if !ok {
			cmdErr = domain.ErrAccountNotFound
			return
		}

		if !amount.IsPositive() {
			cmdErr = domain.ErrInvalidAmount
			return
		}

		if st.accounts[i].Balance.LessThan(amount) {
			cmdErr = domain.ErrInsufficientFunds
			return
		}

		tx = domain.Transaction{
			ID:          uuid.New(),
			AccountID:   accountID,
			Kind:        domain.Withdrawal,
			Direction:   domain.Outbound,
			Amount:      amount,
			Description: description,
			CreatedAt:   l.now(),
		}

		st.accounts[i].Balance = st.accounts[i].Balance.Sub(amount)
		st.txs = append(st.txs, tx)
	})
	if err != nil {
		return domain.Transaction{}, err
	}

	if cmdErr != nil {
		return domain.Transaction{}, cmdErr
	}

	return tx, nil
}

// Transfer moves amount between two accounts of the ledger.
//
// Both new balances are computed from the same committed state and stored
// together with the two transfer records.
func (l *Ledger) Transfer(ctx context.Context, fromID, toID uuid.UUID, amount decimal.Decimal, description string) (domain.TransferResult, error) {
	var (
		res    domain.TransferResult
		cmdErr error
	)

	err := l.mutate(ctx, func(st *state) {
		fi, fromOK := st.index[fromID]
		ti, toOK := st.index[toID]

		if !fromOK || !toOK {
			cmdErr = domain.ErrAccountNotFound
			return
		}

		if !amount.IsPositive() {
			cmdErr = domain.ErrInvalidAmount
			return
		}

		if fromID == toID {
			cmdErr = domain.ErrSameAccount
			return
		}

		from, to := st.accounts[fi], st.accounts[ti]

		if from.Balance.LessThan(amount) {
			cmdErr = domain.ErrInsufficientFunds
			return
		}

		from.Balance = from.Balance.Sub(amount)
		to.Balance = to.Balance.Add(amount)

		now := l.now()
		fromCounterparty, toCounterparty := toID, fromID

		res = domain.TransferResult{
			FromAccount: from,
			ToAccount:   to,
			FromEntry: domain.Transaction{
				ID:             uuid.New(),
				AccountID:      fromID,
				Kind:           domain.Transfer,
				Direction:      domain.Outbound,
				Amount:         amount,
				Description:    fmt.Sprintf("%s (to %s)", description, to.Number),
				CounterpartyID: &fromCounterparty,
				CreatedAt:      now,
			},
			ToEntry: domain.Transaction{
				ID:             uuid.New(),
				AccountID:      toID,
				Kind:           domain.Transfer,
				Direction:      domain.Inbound,
				Amount:         amount,
				Description:    fmt.Sprintf("%s (from %s)", description, from.Number),
				CounterpartyID: &toCounterparty,
				CreatedAt:      now,
			},
		}

		st.accounts[fi], st.accounts[ti] = from, to
		st.txs = append(st.txs, res.FromEntry, res.ToEntry)
	})
	if err != nil {
		return domain.TransferResult{}, err
	}

	if cmdErr != nil {
		return domain.TransferResult{}, cmdErr
	}

	res.FromEntry = cloneTransaction(res.FromEntry)
	res.ToEntry = cloneTransaction(res.ToEntry)

	return res, nil
}

// Account returns the account with the given id.
func (l *Ledger) Account(ctx context.Context, id uuid.UUID) (domain.Account, error) {
	var (
		acc domain.Account
		ok  bool
	)

	err := l.exec(ctx, func(st *state) {
		var i int

		i, ok = st.index[id]
		if ok {
			acc = st.accounts[i]
		}
	})
	if err != nil {
		return domain.Account{}, err
	}

	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}

	return acc, nil
}

// Accounts returns all accounts in creation order.
func (l *Ledger) Accounts(ctx context.Context) ([]domain.Account, error) {
	var out []domain.Account

	err := l.exec(ctx, func(st *state) {
		out = make([]domain.Account, len(st.accounts))
		copy(out, st.accounts)
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// AccountTransactions returns the transactions posted to the account, newest first.
func (l *Ledger) AccountTransactions(ctx context.Context, accountID uuid.UUID) ([]domain.Transaction, error) {
	var (
		out   []domain.Transaction
		found bool
	)

	err := l.exec(ctx, func(st *state) {
		if _, found = st.index[accountID]; !found {
			return
		}

		out = st.history(func(tx domain.Transaction) bool {
			return tx.AccountID == accountID
		})
	})
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, domain.ErrAccountNotFound
	}

	return out, nil
}

// Transactions returns every transaction of the ledger, newest first.
func (l *Ledger) Transactions(ctx context.Context) ([]domain.Transaction, error) {
	var out []domain.Transaction

	err := l.exec(ctx, func(st *state) {
		out = st.history(func(domain.Transaction) bool { return true })
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

type state struct {
	accounts []domain.Account
	index    map[uuid.UUID]int
	numbers  map[string]struct{}
	txs      []domain.Transaction // append-only
}

func newState() *state {
	return &state{
		index:   make(map[uuid.UUID]int),
		numbers: make(map[string]struct{}),
	}
}

func (st *state) load(accounts []domain.Account, txs []domain.Transaction) {
	for _, a := range accounts {
		st.addAccount(a)
	}

	st.txs = append(st.txs, txs...)
}

func (st *state) addAccount(a domain.Account) {
	st.index[a.ID] = len(st.accounts)
	st.numbers[a.Number] = struct{}{}
	st.accounts = append(st.accounts, a)
}

// history returns the matching transactions ordered by timestamp descending.
// Transactions with equal timestamps are returned latest posted first.
func (st *state) history(match func(domain.Transaction) bool) []domain.Transaction {
	out := make([]domain.Transaction, 0)

	for i := len(st.txs) - 1; i >= 0; i-- {
		if match(st.txs[i]) {
			out = append(out, cloneTransaction(st.txs[i]))
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	return out
}

func cloneTransaction(tx domain.Transaction) domain.Transaction {
	if tx.CounterpartyID != nil {
		id := *tx.CounterpartyID
		tx.CounterpartyID = &id
	}

	return tx
}
