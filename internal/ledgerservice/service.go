// Package ledgerservice manages business logic layer of a user's ledger.
package ledgerservice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/internal/statement"
)

// centPlaces is the number of decimal places money is kept with.
const centPlaces = 2

// Backend provides the ledger storage needed by the service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package ledgerservice
type Backend interface {
	CreateAccount(ctx context.Context, category domain.Category) (domain.Account, error)
	Deposit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, description string) (domain.Transaction, error)
	Withdraw(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, description string) (domain.Transaction, error)
	Transfer(ctx context.Context, fromID, toID uuid.UUID, amount decimal.Decimal, description string) (domain.TransferResult, error)
	Account(ctx context.Context, id uuid.UUID) (domain.Account, error)
	Accounts(ctx context.Context) ([]domain.Account, error)
	AccountTransactions(ctx context.Context, accountID uuid.UUID) ([]domain.Transaction, error)
	Close() error
}

// Notifier delivers user-facing notifications.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}

// Overview is the dashboard summary of a ledger.
type Overview struct {
	Accounts     []domain.Account `json:"accounts"`
	AccountCount int              `json:"account_count"`
	TotalBalance decimal.Decimal  `json:"total_balance"`
}

// Line is a transaction classified as credit or debit.
type Line struct {
	domain.Transaction
	Credit bool `json:"credit"`
}

// Statement is the history of one account over a period.
type Statement struct {
	Account      domain.Account    `json:"account"`
	Period       statement.Period  `json:"period"`
	Transactions []Line            `json:"transactions"`
	Summary      statement.Summary `json:"summary"`
}

// Service facilitates ledger service layer logic for one owner.
type Service struct {
	owner    string
	backend  Backend
	notifier Notifier
	now      func() time.Time
}

// New returns ledger service of owner over backend.
func New(owner string, backend Backend, notifier Notifier) *Service {
	return &Service{
		owner:    owner,
		backend:  backend,
		notifier: notifier,
		now:      time.Now,
	}
}

// Owner returns the username the ledger belongs to.
func (s *Service) Owner() string {
	return s.owner
}

// Close disposes the backend.
func (s *Service) Close() error {
	return s.backend.Close()
}

// CreateAccount opens a new account of the given category.
func (s *Service) CreateAccount(ctx context.Context, category domain.Category) (domain.Account, error) {
	acc, err := s.backend.CreateAccount(ctx, category)
	if err != nil {
		s.fail(ctx, err, "")
		return acc, err
	}

	s.notify(ctx, domain.LevelSuccess, "Account Created",
		fmt.Sprintf("Your new %s account has been created successfully", category))

	return acc, nil
}

// Deposit adds amount to the account.
func (s *Service) Deposit(ctx context.Context, accountID uuid.UUID, amount, description string) (domain.Transaction, error) {
	amt, err := s.parseAmount(ctx, amount)
	if err != nil {
		return domain.Transaction{}, err
	}

	tx, err := s.backend.Deposit(ctx, accountID, amt, description)
	if err != nil {
		s.fail(ctx, err, "Account not found")
		return tx, err
	}

	s.notify(ctx, domain.LevelSuccess, "Deposit Successful",
		fmt.Sprintf("%s has been deposited to your account", formatAmount(amt)))

	return tx, nil
}

// Withdraw takes amount from the account.
func (s *Service) Withdraw(ctx context.Context, accountID uuid.UUID, amount, description string) (domain.Transaction, error) {
	amt, err := s.parseAmount(ctx, amount)
	if err != nil {
		return domain.Transaction{}, err
	}

	tx, err := s.backend.Withdraw(ctx, accountID, amt, description)
	if err != nil {
		s.fail(ctx, err, "Account not found")
		return tx, err
	}

	s.notify(ctx, domain.LevelSuccess, "Withdrawal Successful",
		fmt.Sprintf("%s has been withdrawn from your account", formatAmount(amt)))

	return tx, nil
}

// Transfer moves amount between two accounts of the owner.
func (s *Service) Transfer(ctx context.Context, fromID, toID uuid.UUID, amount, description string) (domain.TransferResult, error) {
	amt, err := s.parseAmount(ctx, amount)
	if err != nil {
		return domain.TransferResult{}, err
	}

	res, err := s.backend.Transfer(ctx, fromID, toID, amt, description)
	if err != nil {
		s.fail(ctx, err, "One or both accounts not found")
		return res, err
	}

	s.notify(ctx, domain.LevelSuccess, "Transfer Successful",
		fmt.Sprintf("%s has been transferred to the destination account", formatAmount(amt)))

	return res, nil
}

// Account returns the account with the given id.
func (s *Service) Account(ctx context.Context, id uuid.UUID) (domain.Account, error) {
	return s.backend.Account(ctx, id)
}

// Accounts returns all accounts of the owner in creation order.
func (s *Service) Accounts(ctx context.Context) ([]domain.Account, error) {
	return s.backend.Accounts(ctx)
}

// History returns the transactions of the account within period, newest first.
func (s *Service) History(ctx context.Context, accountID uuid.UUID, period statement.Period) ([]domain.Transaction, error) {
	txs, err := s.backend.AccountTransactions(ctx, accountID)
	if err != nil {
		return nil, err
	}

	return statement.Filter(txs, period, s.now()), nil
}

// Overview returns all accounts with their total balance.
func (s *Service) Overview(ctx context.Context) (Overview, error) {
	accounts, err := s.backend.Accounts(ctx)
	if err != nil {
		return Overview{}, err
	}

	return Overview{
		Accounts:     accounts,
		AccountCount: len(accounts),
		TotalBalance: statement.TotalBalance(accounts),
	}, nil
}

// Statement returns the account, its history within period and the totals.
func (s *Service) Statement(ctx context.Context, accountID uuid.UUID, period statement.Period) (Statement, error) {
	acc, err := s.backend.Account(ctx, accountID)
	if err != nil {
		return Statement{}, err
	}

	txs, err := s.History(ctx, accountID, period)
	if err != nil {
		return Statement{}, err
	}

	lines := make([]Line, 0, len(txs))
	for _, tx := range txs {
		lines = append(lines, Line{Transaction: tx, Credit: statement.IsCredit(tx)})
	}

	return Statement{
		Account:      acc,
		Period:       period,
		Transactions: lines,
		Summary:      statement.Summarize(txs),
	}, nil
}

// parseAmount converts a client amount to money with at most two decimal
// places. Zero and negative amounts are left to the backend.
func (s *Service) parseAmount(ctx context.Context, amount string) (decimal.Decimal, error) {
	amt, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil || !amt.Equal(amt.Truncate(centPlaces)) {
		zerolog.Ctx(ctx).Info().Str("amount", amount).Msg("invalid amount")
		s.fail(ctx, domain.ErrInvalidAmount, "")

		return decimal.Decimal{}, domain.ErrInvalidAmount
	}

	return amt, nil
}

func (s *Service) fail(ctx context.Context, err error, notFoundMsg string) {
	if errors.Is(err, domain.ErrNoActiveUser) || errors.Is(err, context.Canceled) {
		return
	}

	msg := "Something went wrong, please try again"

	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		msg = notFoundMsg
	case errors.Is(err, domain.ErrInvalidAmount):
		msg = "Amount must be greater than zero"
	case errors.Is(err, domain.ErrInsufficientFunds):
		msg = "Insufficient funds"
	case errors.Is(err, domain.ErrSameAccount):
		msg = "Cannot transfer to the same account"
	case errors.Is(err, domain.ErrInvalidCategory):
		msg = "Invalid account category"
	}

	s.notify(ctx, domain.LevelError, "Error", msg)
}

func (s *Service) notify(ctx context.Context, level domain.NotificationLevel, title, msg string) {
	n := domain.Notification{
		ID:        uuid.New(),
		Owner:     s.owner,
		Level:     level,
		Title:     title,
		Message:   msg,
		CreatedAt: s.now(),
	}

	if err := s.notifier.Notify(ctx, n); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("title", title).Msg("notification not delivered")
	}
}

func formatAmount(amount decimal.Decimal) string {
	return "$" + amount.StringFixed(centPlaces)
}
