package ledgerrepo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/internal/ledger"
	"github.com/go-petr/pet-ledger/pkg/errorspkg"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func sequence(numbers ...string) func() string {
	i := 0

	return func() string {
		n := numbers[i%len(numbers)]
		i++

		return n
	}
}

func TestNewUserLedgerSeeding(t *testing.T) {
	owner := "alice"
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	testCases := []struct {
		name       string
		seed       ledger.Seed
		buildStubs func(store *MockStore)
		wantErr    error
	}{
		{
			name: "NoSeed",
			seed: nil,
			buildStubs: func(store *MockStore) {
				store.EXPECT().Seed(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
		},
		{
			name: "ExistingAccountsKept",
			seed: ledger.DemoSeed,
			buildStubs: func(store *MockStore) {
				store.EXPECT().Seed(gomock.Any(), owner, gomock.Any(), gomock.Any()).Times(1).Return(false, nil)
			},
		},
		{
			name: "EmptySeedStoresNothing",
			seed: ledger.EmptySeed,
			buildStubs: func(store *MockStore) {
				store.EXPECT().Seed(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
		},
		{
			name: "DemoSeedStored",
			seed: ledger.DemoSeed,
			buildStubs: func(store *MockStore) {
				store.EXPECT().Seed(gomock.Any(), owner, gomock.Any(), gomock.Any()).Times(1).
					DoAndReturn(func(_ context.Context, _ string, accounts []domain.Account, txs []domain.Transaction) (bool, error) {
						if len(accounts) != 2 || len(txs) != 6 {
							t.Errorf("Seed: got %d accounts and %d transactions, want 2 and 6", len(accounts), len(txs))
						}

						for _, a := range accounts {
							if a.Number != "11111111" && a.Number != "22222222" {
								t.Errorf("Seeded number: got %q, want a fresh number", a.Number)
							}
						}

						return true, nil
					})
			},
		},
		{
			name: "NumberTakenRetried",
			seed: ledger.DemoSeed,
			buildStubs: func(store *MockStore) {
				gomock.InOrder(
					store.EXPECT().Seed(gomock.Any(), owner, gomock.Any(), gomock.Any()).Times(1).Return(false, ErrNumberTaken),
					store.EXPECT().Seed(gomock.Any(), owner, gomock.Any(), gomock.Any()).Times(1).Return(true, nil),
				)
			},
		},
		{
			name: "NumbersExhausted",
			seed: ledger.DemoSeed,
			buildStubs: func(store *MockStore) {
				store.EXPECT().Seed(gomock.Any(), owner, gomock.Any(), gomock.Any()).Times(maxNumberAttempts).
					Return(false, ErrNumberTaken)
			},
			wantErr: errorspkg.ErrInternal,
		},
		{
			name: "SeedError",
			seed: ledger.DemoSeed,
			buildStubs: func(store *MockStore) {
				store.EXPECT().Seed(gomock.Any(), owner, gomock.Any(), gomock.Any()).Times(1).
					Return(false, errorspkg.ErrInternal)
			},
			wantErr: errorspkg.ErrInternal,
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			store := NewMockStore(ctrl)
			tc.buildStubs(store)

			got, err := NewUserLedger(context.Background(), store, owner, tc.seed,
				WithClock(fixedClock(now)),
				WithNumberGenerator(sequence("11111111", "22222222")),
			)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("NewUserLedger(...) returned error: %v, want %v", err, tc.wantErr)
			}

			if tc.wantErr == nil && got.Owner() != owner {
				t.Errorf("Owner(): got %q, want %q", got.Owner(), owner)
			}
		})
	}
}

func TestUserLedgerCreateAccount(t *testing.T) {
	owner := "alice"
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	testCases := []struct {
		name       string
		category   domain.Category
		buildStubs func(store *MockStore)
		wantErr    error
	}{
		{
			name:     "OK",
			category: domain.Checking,
			buildStubs: func(store *MockStore) {
				store.EXPECT().CreateAccount(gomock.Any(), gomock.Any()).Times(1).
					DoAndReturn(func(_ context.Context, a domain.Account) (domain.Account, error) {
						return a, nil
					})
			},
		},
		{
			name:     "InvalidCategory",
			category: domain.Category("Loan"),
			buildStubs: func(store *MockStore) {
				store.EXPECT().CreateAccount(gomock.Any(), gomock.Any()).Times(0)
			},
			wantErr: domain.ErrInvalidCategory,
		},
		{
			name:     "NumberTakenRetried",
			category: domain.Savings,
			buildStubs: func(store *MockStore) {
				gomock.InOrder(
					store.EXPECT().CreateAccount(gomock.Any(), gomock.Any()).Times(2).Return(domain.Account{}, ErrNumberTaken),
					store.EXPECT().CreateAccount(gomock.Any(), gomock.Any()).Times(1).
						DoAndReturn(func(_ context.Context, a domain.Account) (domain.Account, error) {
							return a, nil
						}),
				)
			},
		},
		{
			name:     "NumbersExhausted",
			category: domain.Savings,
			buildStubs: func(store *MockStore) {
				store.EXPECT().CreateAccount(gomock.Any(), gomock.Any()).Times(maxNumberAttempts).
					Return(domain.Account{}, ErrNumberTaken)
			},
			wantErr: errorspkg.ErrInternal,
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			store := NewMockStore(ctrl)
			tc.buildStubs(store)

			u, err := NewUserLedger(context.Background(), store, owner, nil,
				WithClock(fixedClock(now)),
				WithNumberGenerator(sequence("12121212")),
			)
			if err != nil {
				t.Fatalf("NewUserLedger(...) returned error: %v", err)
			}

			got, err := u.CreateAccount(context.Background(), tc.category)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("CreateAccount(%q) returned error: %v, want %v", tc.category, err, tc.wantErr)
			}

			if tc.wantErr != nil {
				return
			}

			want := domain.Account{
				Owner:     owner,
				Number:    "12121212",
				Category:  tc.category,
				Balance:   decimal.Zero,
				Status:    domain.StatusActive,
				CreatedAt: now,
			}

			ignoreID := cmpopts.IgnoreFields(domain.Account{}, "ID")
			if diff := cmp.Diff(want, got, ignoreID); diff != "" {
				t.Errorf("CreateAccount(%q) mismatch (-want +got):\n%s", tc.category, diff)
			}
		})
	}
}

func TestUserLedgerDelegates(t *testing.T) {
	owner := "alice"
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	fromID, toID := uuid.New(), uuid.New()
	amount := decimal.NewFromInt(25)

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := NewMockStore(ctrl)

	u, err := NewUserLedger(context.Background(), store, owner, nil, WithClock(fixedClock(now)))
	if err != nil {
		t.Fatalf("NewUserLedger(...) returned error: %v", err)
	}

	move := MoveParams{Owner: owner, AccountID: fromID, Amount: amount, Description: "cash", At: now}
	transfer := TransferParams{Owner: owner, FromID: fromID, ToID: toID, Amount: amount, Description: "rent", At: now}

	store.EXPECT().Deposit(gomock.Any(), move).Times(1).Return(domain.Transaction{}, nil)
	store.EXPECT().Withdraw(gomock.Any(), move).Times(1).Return(domain.Transaction{}, domain.ErrInsufficientFunds)
	store.EXPECT().Transfer(gomock.Any(), transfer).Times(1).Return(domain.TransferResult{}, nil)
	store.EXPECT().Account(gomock.Any(), owner, fromID).Times(1).Return(domain.Account{}, domain.ErrAccountNotFound)
	store.EXPECT().Accounts(gomock.Any(), owner).Times(1).Return([]domain.Account{}, nil)
	store.EXPECT().Transactions(gomock.Any(), owner, fromID).Times(1).Return([]domain.Transaction{}, nil)

	ctx := context.Background()

	if _, err := u.Deposit(ctx, fromID, amount, "cash"); err != nil {
		t.Errorf("Deposit returned error: %v", err)
	}

	if _, err := u.Withdraw(ctx, fromID, amount, "cash"); !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Errorf("Withdraw returned error: %v, want %v", err, domain.ErrInsufficientFunds)
	}

	if _, err := u.Transfer(ctx, fromID, toID, amount, "rent"); err != nil {
		t.Errorf("Transfer returned error: %v", err)
	}

	if _, err := u.Account(ctx, fromID); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Errorf("Account returned error: %v, want %v", err, domain.ErrAccountNotFound)
	}

	if _, err := u.Accounts(ctx); err != nil {
		t.Errorf("Accounts returned error: %v", err)
	}

	if _, err := u.AccountTransactions(ctx, fromID); err != nil {
		t.Errorf("AccountTransactions returned error: %v", err)
	}
}

func TestUserLedgerClosed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	u, err := NewUserLedger(context.Background(), NewMockStore(ctrl), "alice", nil)
	if err != nil {
		t.Fatalf("NewUserLedger(...) returned error: %v", err)
	}

	if err := u.Close(); err != nil {
		t.Fatalf("Close() returned error: %v", err)
	}

	ctx := context.Background()
	id := uuid.New()

	if _, err := u.CreateAccount(ctx, domain.Savings); !errors.Is(err, domain.ErrNoActiveUser) {
		t.Errorf("CreateAccount: got %v, want %v", err, domain.ErrNoActiveUser)
	}

	if _, err := u.Deposit(ctx, id, decimal.NewFromInt(1), ""); !errors.Is(err, domain.ErrNoActiveUser) {
		t.Errorf("Deposit: got %v, want %v", err, domain.ErrNoActiveUser)
	}

	if _, err := u.Accounts(ctx); !errors.Is(err, domain.ErrNoActiveUser) {
		t.Errorf("Accounts: got %v, want %v", err, domain.ErrNoActiveUser)
	}
}
