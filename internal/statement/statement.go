// Package statement derives read-only views from ledger data.
package statement

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/go-petr/pet-ledger/internal/domain"
)

// ErrInvalidPeriod indicates that the statement period is not supported.
var ErrInvalidPeriod = errors.New("invalid period")

// Period is the time window of a statement.
type Period string

// Supported periods.
const (
	All        Period = "all"
	Last7Days  Period = "last7days"
	Last30Days Period = "last30days"
	Last90Days Period = "last90days"
)

// ParsePeriod returns the period named s. An empty s means All.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(s); p {
	case "":
		return All, nil
	case All, Last7Days, Last30Days, Last90Days:
		return p, nil
	}

	return "", ErrInvalidPeriod
}

func (p Period) days() int {
	switch p {
	case Last7Days:
		return 7
	case Last30Days:
		return 30
	case Last90Days:
		return 90
	}

	return 0
}

// Cutoff returns the earliest timestamp included in the period and false
// for All.
func (p Period) Cutoff(now time.Time) (time.Time, bool) {
	n := p.days()
	if n == 0 {
		return time.Time{}, false
	}

	return now.AddDate(0, 0, -n), true
}

// Filter returns the transactions created within the period, keeping their order.
func Filter(txs []domain.Transaction, p Period, now time.Time) []domain.Transaction {
	cutoff, ok := p.Cutoff(now)
	if !ok {
		return txs
	}

	out := make([]domain.Transaction, 0, len(txs))

	for _, tx := range txs {
		if !tx.CreatedAt.Before(cutoff) {
			out = append(out, tx)
		}
	}

	return out
}

// Summary aggregates a list of transactions.
type Summary struct {
	Count            int             `json:"count"`
	TotalDeposits    decimal.Decimal `json:"total_deposits"`
	TotalWithdrawals decimal.Decimal `json:"total_withdrawals"`
	NetChange        decimal.Decimal `json:"net_change"`
}

// Summarize totals deposits and withdrawals. Transfers count toward neither.
func Summarize(txs []domain.Transaction) Summary {
	s := Summary{
		Count:            len(txs),
		TotalDeposits:    decimal.Zero,
		TotalWithdrawals: decimal.Zero,
	}

	for _, tx := range txs {
		switch tx.Kind {
		case domain.Deposit:
			s.TotalDeposits = s.TotalDeposits.Add(tx.Amount)
		case domain.Withdrawal:
			s.TotalWithdrawals = s.TotalWithdrawals.Add(tx.Amount)
		}
	}

	s.NetChange = s.TotalDeposits.Sub(s.TotalWithdrawals)

	return s
}

// IsCredit reports whether tx increased the balance of its account.
func IsCredit(tx domain.Transaction) bool {
	return tx.Kind == domain.Deposit || (tx.Kind == domain.Transfer && tx.Direction == domain.Inbound)
}

// TotalBalance sums the balances of accounts.
func TotalBalance(accounts []domain.Account) decimal.Decimal {
	total := decimal.Zero

	for _, a := range accounts {
		total = total.Add(a.Balance)
	}

	return total
}
