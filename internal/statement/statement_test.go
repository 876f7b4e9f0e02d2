package statement

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/go-petr/pet-ledger/internal/domain"
)

func tx(kind domain.TransactionKind, dir domain.Direction, amount int64, at time.Time) domain.Transaction {
	return domain.Transaction{
		ID:        uuid.New(),
		AccountID: uuid.New(),
		Kind:      kind,
		Direction: dir,
		Amount:    decimal.NewFromInt(amount),
		CreatedAt: at,
	}
}

func TestParsePeriod(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		input   string
		want    Period
		wantErr error
	}{
		{input: "", want: All},
		{input: "all", want: All},
		{input: "last7days", want: Last7Days},
		{input: "last30days", want: Last30Days},
		{input: "last90days", want: Last90Days},
		{input: "lastyear", wantErr: ErrInvalidPeriod},
		{input: "ALL", wantErr: ErrInvalidPeriod},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.input, func(t *testing.T) {
			t.Parallel()

			got, err := ParsePeriod(tc.input)
			if err != tc.wantErr {
				t.Fatalf("ParsePeriod(%q) error = %v, want %v", tc.input, err, tc.wantErr)
			}

			if got != tc.want {
				t.Errorf("ParsePeriod(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestFilter(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 6, 30, 10, 0, 0, 0, time.UTC)
	daysAgo := func(n int) time.Time { return now.AddDate(0, 0, -n) }

	txs := []domain.Transaction{
		tx(domain.Deposit, domain.Inbound, 1, daysAgo(1)),
		tx(domain.Deposit, domain.Inbound, 2, daysAgo(7)),
		tx(domain.Deposit, domain.Inbound, 3, daysAgo(8)),
		tx(domain.Deposit, domain.Inbound, 4, daysAgo(45)),
		tx(domain.Deposit, domain.Inbound, 5, daysAgo(120)),
	}

	testCases := []struct {
		period Period
		want   []domain.Transaction
	}{
		{period: All, want: txs},
		{period: Last7Days, want: txs[:2]},
		{period: Last30Days, want: txs[:3]},
		{period: Last90Days, want: txs[:4]},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(string(tc.period), func(t *testing.T) {
			t.Parallel()

			got := Filter(txs, tc.period, now)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("Filter(%q) mismatch (-want +got):\n%s", tc.period, diff)
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	now := time.Now()

	txs := []domain.Transaction{
		tx(domain.Deposit, domain.Inbound, 100, now),
		tx(domain.Deposit, domain.Inbound, 50, now),
		tx(domain.Withdrawal, domain.Outbound, 30, now),
		tx(domain.Transfer, domain.Inbound, 1000, now),
		tx(domain.Transfer, domain.Outbound, 500, now),
	}

	got := Summarize(txs)

	require.Equal(t, 5, got.Count)
	require.True(t, got.TotalDeposits.Equal(decimal.NewFromInt(150)))
	require.True(t, got.TotalWithdrawals.Equal(decimal.NewFromInt(30)))
	require.True(t, got.NetChange.Equal(decimal.NewFromInt(120)))

	empty := Summarize(nil)
	require.Zero(t, empty.Count)
	require.True(t, empty.NetChange.IsZero())
}

func TestIsCredit(t *testing.T) {
	t.Parallel()

	now := time.Now()

	require.True(t, IsCredit(tx(domain.Deposit, domain.Inbound, 1, now)))
	require.True(t, IsCredit(tx(domain.Transfer, domain.Inbound, 1, now)))
	require.False(t, IsCredit(tx(domain.Withdrawal, domain.Outbound, 1, now)))
	require.False(t, IsCredit(tx(domain.Transfer, domain.Outbound, 1, now)))
}

func TestTotalBalance(t *testing.T) {
	t.Parallel()

	accounts := []domain.Account{
		{Balance: decimal.NewFromInt(5000)},
		{Balance: decimal.RequireFromString("2500.55")},
	}

	require.True(t, TotalBalance(accounts).Equal(decimal.RequireFromString("7500.55")))
	require.True(t, TotalBalance(nil).IsZero())
}
