package ledgerservice

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	gomock "github.com/golang/mock/gomock"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/internal/ledger"
	"github.com/go-petr/pet-ledger/internal/notifier"
	"github.com/go-petr/pet-ledger/internal/statement"
	"github.com/go-petr/pet-ledger/pkg/errorspkg"
	"github.com/go-petr/pet-ledger/pkg/randompkg"
)

type eqNotificationMatcher struct {
	owner string
	level domain.NotificationLevel
	title string
	msg   string
}

func (e eqNotificationMatcher) Matches(x interface{}) bool {
	n, ok := x.(domain.Notification)
	if !ok {
		return false
	}

	return n.ID != uuid.Nil && n.Owner == e.owner && n.Level == e.level && n.Title == e.title && n.Message == e.msg
}

func (e eqNotificationMatcher) String() string {
	return fmt.Sprintf("matches notification %s/%s %q: %q", e.owner, e.level, e.title, e.msg)
}

func EqNotification(owner string, level domain.NotificationLevel, title, msg string) gomock.Matcher {
	return eqNotificationMatcher{owner, level, title, msg}
}

type eqDecimalMatcher struct {
	d decimal.Decimal
}

func (e eqDecimalMatcher) Matches(x interface{}) bool {
	d, ok := x.(decimal.Decimal)
	return ok && d.Equal(e.d)
}

func (e eqDecimalMatcher) String() string {
	return "is decimal equal to " + e.d.String()
}

func EqDecimal(s string) gomock.Matcher {
	return eqDecimalMatcher{decimal.RequireFromString(s)}
}

func randomAccount(owner string) domain.Account {
	return domain.Account{
		ID:        uuid.New(),
		Owner:     owner,
		Number:    randompkg.DisplayNumber(),
		Category:  domain.Category(randompkg.Category()),
		Balance:   randompkg.MoneyAmountBetween(100, 1_000),
		Status:    domain.StatusActive,
		CreatedAt: time.Now().Truncate(time.Second),
	}
}

func TestCreateAccount(t *testing.T) {
	t.Parallel()

	owner := randompkg.Owner()
	account := randomAccount(owner)
	account.Category = domain.Investment

	testCases := []struct {
		name       string
		category   domain.Category
		buildStubs func(b *MockBackend, n *MockNotifier)
		wantErr    error
	}{
		{
			name:     "OK",
			category: domain.Investment,
			buildStubs: func(b *MockBackend, n *MockNotifier) {
				b.EXPECT().CreateAccount(gomock.Any(), domain.Investment).Times(1).Return(account, nil)
				n.EXPECT().
					Notify(gomock.Any(), EqNotification(owner, domain.LevelSuccess, "Account Created",
						"Your new Investment account has been created successfully")).
					Times(1).
					Return(nil)
			},
		},
		{
			name:     "InvalidCategory",
			category: domain.Category("Loan"),
			buildStubs: func(b *MockBackend, n *MockNotifier) {
				b.EXPECT().CreateAccount(gomock.Any(), domain.Category("Loan")).Times(1).
					Return(domain.Account{}, domain.ErrInvalidCategory)
				n.EXPECT().
					Notify(gomock.Any(), EqNotification(owner, domain.LevelError, "Error", "Invalid account category")).
					Times(1).
					Return(nil)
			},
			wantErr: domain.ErrInvalidCategory,
		},
		{
			name:     "NoActiveUser",
			category: domain.Savings,
			buildStubs: func(b *MockBackend, n *MockNotifier) {
				b.EXPECT().CreateAccount(gomock.Any(), domain.Savings).Times(1).
					Return(domain.Account{}, domain.ErrNoActiveUser)
				n.EXPECT().Notify(gomock.Any(), gomock.Any()).Times(0)
			},
			wantErr: domain.ErrNoActiveUser,
		},
		{
			name:     "NotifierFailureIsIgnored",
			category: domain.Investment,
			buildStubs: func(b *MockBackend, n *MockNotifier) {
				b.EXPECT().CreateAccount(gomock.Any(), domain.Investment).Times(1).Return(account, nil)
				n.EXPECT().Notify(gomock.Any(), gomock.Any()).Times(1).Return(errors.New("broker down"))
			},
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			backend := NewMockBackend(ctrl)
			notif := NewMockNotifier(ctrl)
			tc.buildStubs(backend, notif)

			s := New(owner, backend, notif)

			got, err := s.CreateAccount(context.Background(), tc.category)
			if err != tc.wantErr {
				t.Fatalf("CreateAccount(%q) error = %v, want %v", tc.category, err, tc.wantErr)
			}

			if tc.wantErr == nil && !cmp.Equal(got, account) {
				t.Errorf("CreateAccount(%q) = %+v, want %+v", tc.category, got, account)
			}
		})
	}
}

func TestMoneyMovements(t *testing.T) {
	t.Parallel()

	owner := randompkg.Owner()
	from, to := randomAccount(owner), randomAccount(owner)

	type call func(s *Service) error

	depositOf := func(raw string) call {
		return func(s *Service) error {
			_, err := s.Deposit(context.Background(), from.ID, raw, "test")
			return err
		}
	}

	withdrawOf := func(raw string) call {
		return func(s *Service) error {
			_, err := s.Withdraw(context.Background(), from.ID, raw, "test")
			return err
		}
	}

	transferOf := func(raw string) call {
		return func(s *Service) error {
			_, err := s.Transfer(context.Background(), from.ID, to.ID, raw, "test")
			return err
		}
	}

	deposit, withdraw, transfer := depositOf("12.5"), withdrawOf("12.50"), transferOf(" 12.5 ")

	noBackendCall := func(b *MockBackend) {
		b.EXPECT().Deposit(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
		b.EXPECT().Withdraw(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
		b.EXPECT().Transfer(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	}

	testCases := []struct {
		name       string
		call       call
		buildStubs func(b *MockBackend)
		wantLevel  domain.NotificationLevel
		wantTitle  string
		wantMsg    string
		wantErr    error
	}{
		{
			name: "DepositOK",
			call: deposit,
			buildStubs: func(b *MockBackend) {
				b.EXPECT().Deposit(gomock.Any(), from.ID, EqDecimal("12.5"), "test").Times(1).Return(domain.Transaction{}, nil)
			},
			wantLevel: domain.LevelSuccess,
			wantTitle: "Deposit Successful",
			wantMsg:   "$12.50 has been deposited to your account",
		},
		{
			name: "DepositNotFound",
			call: deposit,
			buildStubs: func(b *MockBackend) {
				b.EXPECT().Deposit(gomock.Any(), from.ID, EqDecimal("12.5"), "test").Times(1).
					Return(domain.Transaction{}, domain.ErrAccountNotFound)
			},
			wantLevel: domain.LevelError,
			wantTitle: "Error",
			wantMsg:   "Account not found",
			wantErr:   domain.ErrAccountNotFound,
		},
		{
			name: "WithdrawOK",
			call: withdraw,
			buildStubs: func(b *MockBackend) {
				b.EXPECT().Withdraw(gomock.Any(), from.ID, EqDecimal("12.5"), "test").Times(1).Return(domain.Transaction{}, nil)
			},
			wantLevel: domain.LevelSuccess,
			wantTitle: "Withdrawal Successful",
			wantMsg:   "$12.50 has been withdrawn from your account",
		},
		{
			name: "WithdrawInsufficientFunds",
			call: withdraw,
			buildStubs: func(b *MockBackend) {
				b.EXPECT().Withdraw(gomock.Any(), from.ID, EqDecimal("12.5"), "test").Times(1).
					Return(domain.Transaction{}, domain.ErrInsufficientFunds)
			},
			wantLevel: domain.LevelError,
			wantTitle: "Error",
			wantMsg:   "Insufficient funds",
			wantErr:   domain.ErrInsufficientFunds,
		},
		{
			name: "TransferOK",
			call: transfer,
			buildStubs: func(b *MockBackend) {
				b.EXPECT().Transfer(gomock.Any(), from.ID, to.ID, EqDecimal("12.5"), "test").Times(1).
					Return(domain.TransferResult{}, nil)
			},
			wantLevel: domain.LevelSuccess,
			wantTitle: "Transfer Successful",
			wantMsg:   "$12.50 has been transferred to the destination account",
		},
		{
			name: "TransferNotFound",
			call: transfer,
			buildStubs: func(b *MockBackend) {
				b.EXPECT().Transfer(gomock.Any(), from.ID, to.ID, EqDecimal("12.5"), "test").Times(1).
					Return(domain.TransferResult{}, domain.ErrAccountNotFound)
			},
			wantLevel: domain.LevelError,
			wantTitle: "Error",
			wantMsg:   "One or both accounts not found",
			wantErr:   domain.ErrAccountNotFound,
		},
		{
			name: "TransferInvalidAmount",
			call: transfer,
			buildStubs: func(b *MockBackend) {
				b.EXPECT().Transfer(gomock.Any(), from.ID, to.ID, EqDecimal("12.5"), "test").Times(1).
					Return(domain.TransferResult{}, domain.ErrInvalidAmount)
			},
			wantLevel: domain.LevelError,
			wantTitle: "Error",
			wantMsg:   "Amount must be greater than zero",
			wantErr:   domain.ErrInvalidAmount,
		},
		{
			name: "TransferSameAccount",
			call: transfer,
			buildStubs: func(b *MockBackend) {
				b.EXPECT().Transfer(gomock.Any(), from.ID, to.ID, EqDecimal("12.5"), "test").Times(1).
					Return(domain.TransferResult{}, domain.ErrSameAccount)
			},
			wantLevel: domain.LevelError,
			wantTitle: "Error",
			wantMsg:   "Cannot transfer to the same account",
			wantErr:   domain.ErrSameAccount,
		},
		{
			name:       "DepositNotANumber",
			call:       depositOf("abc"),
			buildStubs: noBackendCall,
			wantLevel:  domain.LevelError,
			wantTitle:  "Error",
			wantMsg:    "Amount must be greater than zero",
			wantErr:    domain.ErrInvalidAmount,
		},
		{
			name:       "DepositNaN",
			call:       depositOf("NaN"),
			buildStubs: noBackendCall,
			wantLevel:  domain.LevelError,
			wantTitle:  "Error",
			wantMsg:    "Amount must be greater than zero",
			wantErr:    domain.ErrInvalidAmount,
		},
		{
			name:       "DepositSubCent",
			call:       depositOf("1e-30"),
			buildStubs: noBackendCall,
			wantLevel:  domain.LevelError,
			wantTitle:  "Error",
			wantMsg:    "Amount must be greater than zero",
			wantErr:    domain.ErrInvalidAmount,
		},
		{
			name: "DepositTrailingZeroCents",
			call: depositOf("7.500"),
			buildStubs: func(b *MockBackend) {
				b.EXPECT().Deposit(gomock.Any(), from.ID, EqDecimal("7.5"), "test").Times(1).Return(domain.Transaction{}, nil)
			},
			wantLevel: domain.LevelSuccess,
			wantTitle: "Deposit Successful",
			wantMsg:   "$7.50 has been deposited to your account",
		},
		{
			name:       "WithdrawMissingAmount",
			call:       withdrawOf(""),
			buildStubs: noBackendCall,
			wantLevel:  domain.LevelError,
			wantTitle:  "Error",
			wantMsg:    "Amount must be greater than zero",
			wantErr:    domain.ErrInvalidAmount,
		},
		{
			name:       "TransferNotANumber",
			call:       transferOf("true"),
			buildStubs: noBackendCall,
			wantLevel:  domain.LevelError,
			wantTitle:  "Error",
			wantMsg:    "Amount must be greater than zero",
			wantErr:    domain.ErrInvalidAmount,
		},
		{
			name: "TransferInternal",
			call: transfer,
			buildStubs: func(b *MockBackend) {
				b.EXPECT().Transfer(gomock.Any(), from.ID, to.ID, EqDecimal("12.5"), "test").Times(1).
					Return(domain.TransferResult{}, errorspkg.ErrInternal)
			},
			wantLevel: domain.LevelError,
			wantTitle: "Error",
			wantMsg:   "Something went wrong, please try again",
			wantErr:   errorspkg.ErrInternal,
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			backend := NewMockBackend(ctrl)
			tc.buildStubs(backend)

			notif := NewMockNotifier(ctrl)
			notif.EXPECT().
				Notify(gomock.Any(), EqNotification(owner, tc.wantLevel, tc.wantTitle, tc.wantMsg)).
				Times(1).
				Return(nil)

			err := tc.call(New(owner, backend, notif))
			if err != tc.wantErr {
				t.Errorf("error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestOverview(t *testing.T) {
	t.Parallel()

	owner := randompkg.Owner()
	ctx := context.Background()

	l := ledger.New(owner, ledger.WithSeed(ledger.DemoSeed))
	s := New(owner, l, notifier.Log{})
	t.Cleanup(func() { _ = s.Close() })

	got, err := s.Overview(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, got.AccountCount)
	require.Len(t, got.Accounts, 2)
	require.True(t, got.TotalBalance.Equal(decimal.NewFromInt(7500)))
}

func TestStatement(t *testing.T) {
	t.Parallel()

	owner := randompkg.Owner()
	ctx := context.Background()
	feed := notifier.NewFeed(10)

	l := ledger.New(owner, ledger.WithSeed(ledger.DemoSeed))
	s := New(owner, l, feed)
	t.Cleanup(func() { _ = s.Close() })

	accounts, err := s.Accounts(ctx)
	require.NoError(t, err)

	savings, checking := accounts[0], accounts[1]

	_, err = s.Transfer(ctx, savings.ID, checking.ID, "100", "Rent")
	require.NoError(t, err)

	_, err = s.Withdraw(ctx, savings.ID, "50", "Groceries")
	require.NoError(t, err)

	_, err = s.Deposit(ctx, savings.ID, "20", "Refund")
	require.NoError(t, err)

	testCases := []struct {
		period        statement.Period
		wantCount     int
		wantDeposits  int64
		wantWithdraws int64
		wantNetChange int64
	}{
		{period: statement.Last7Days, wantCount: 3, wantDeposits: 20, wantWithdraws: 50, wantNetChange: -30},
		{period: statement.Last90Days, wantCount: 7, wantDeposits: 1520, wantWithdraws: 250, wantNetChange: 1270},
		{period: statement.All, wantCount: 7, wantDeposits: 1520, wantWithdraws: 250, wantNetChange: 1270},
	}

	for _, tc := range testCases {
		got, err := s.Statement(ctx, savings.ID, tc.period)
		require.NoError(t, err)

		require.Equal(t, tc.period, got.Period, "period %s", tc.period)
		require.Equal(t, savings.ID, got.Account.ID)
		require.True(t, got.Account.Balance.Equal(decimal.NewFromInt(4870)))
		require.Len(t, got.Transactions, tc.wantCount, "period %s", tc.period)
		require.Equal(t, tc.wantCount, got.Summary.Count)
		require.True(t, got.Summary.TotalDeposits.Equal(decimal.NewFromInt(tc.wantDeposits)), "period %s", tc.period)
		require.True(t, got.Summary.TotalWithdrawals.Equal(decimal.NewFromInt(tc.wantWithdraws)), "period %s", tc.period)
		require.True(t, got.Summary.NetChange.Equal(decimal.NewFromInt(tc.wantNetChange)), "period %s", tc.period)
	}

	st, err := s.Statement(ctx, checking.ID, statement.Last7Days)
	require.NoError(t, err)
	require.Len(t, st.Transactions, 1)
	require.True(t, st.Transactions[0].Credit)
	require.Equal(t, "Rent (from 12345678)", st.Transactions[0].Description)

	_, err = s.Statement(ctx, uuid.New(), statement.All)
	require.ErrorIs(t, err, domain.ErrAccountNotFound)

	notes := feed.List(owner)
	require.Len(t, notes, 3)
	require.Equal(t, "Deposit Successful", notes[0].Title)
	require.Equal(t, "Withdrawal Successful", notes[1].Title)
	require.Equal(t, "Transfer Successful", notes[2].Title)
}
