package tokenpkg

import (
	"testing"

	"github.com/go-petr/pet-ledger/pkg/randompkg"
)

func TestNew(t *testing.T) {
	t.Parallel()

	key := randompkg.String(32)

	testCases := []struct {
		name      string
		tokenType string
		wantErr   bool
		check     func(m Maker) bool
	}{
		{
			name:      "Default",
			tokenType: "",
			check: func(m Maker) bool {
				_, ok := m.(*PasetoMaker)
				return ok
			},
		},
		{
			name:      "Paseto",
			tokenType: TypePaseto,
			check: func(m Maker) bool {
				_, ok := m.(*PasetoMaker)
				return ok
			},
		},
		{
			name:      "JWT",
			tokenType: TypeJWT,
			check: func(m Maker) bool {
				_, ok := m.(*JWTMaker)
				return ok
			},
		},
		{
			name:      "Unsupported",
			tokenType: "macaroon",
			wantErr:   true,
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := New(tc.tokenType, key)
			if tc.wantErr {
				if err == nil {
					t.Errorf("New(%q) returned nil error, want error", tc.tokenType)
				}

				return
			}

			if err != nil {
				t.Fatalf("New(%q) returned error: %v", tc.tokenType, err)
			}

			if !tc.check(got) {
				t.Errorf("New(%q) returned %T", tc.tokenType, got)
			}
		})
	}
}
