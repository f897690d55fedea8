package promotion

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock implementations ---

type mockDiscountRepo struct {
	discounts []Discount
	err       error
}

func (m *mockDiscountRepo) FindActiveFor(_ context.Context, _, _ string, _ time.Time) ([]Discount, error) {
	return m.discounts, m.err
}

// --- Helpers ---

var testNow = time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)

func liveDiscount(id string, typ DiscountType, value string, priority int, createdAt time.Time) Discount {
	return Discount{
		ID:         id,
		Title:      "Promo " + id,
		Type:       typ,
		Value:      decimal.RequireFromString(value),
		StartsAt:   testNow.Add(-24 * time.Hour),
		EndsAt:     testNow.Add(24 * time.Hour),
		Active:     true,
		ProductIDs: []string{"p1"},
		Priority:   priority,
		CreatedAt:  createdAt,
	}
}

// --- Tests ---

func TestDiscountValidate(t *testing.T) {
	tests := []struct {
		name     string
		discount Discount
		wantErr  error
	}{
		{
			name:     "valid percentage",
			discount: Discount{Type: DiscountPercentage, Value: decimal.NewFromInt(25), ProductIDs: []string{"p1"}},
		},
		{
			name:     "valid fixed",
			discount: Discount{Type: DiscountFixed, Value: decimal.RequireFromString("5.50"), CategoryIDs: []string{"c1"}},
		},
		{
			name:     "percentage zero",
			discount: Discount{Type: DiscountPercentage, Value: decimal.Zero, ProductIDs: []string{"p1"}},
			wantErr:  ErrInvalidDiscountValue,
		},
		{
			name:     "percentage above hundred",
			discount: Discount{Type: DiscountPercentage, Value: decimal.NewFromInt(101), ProductIDs: []string{"p1"}},
			wantErr:  ErrInvalidDiscountValue,
		},
		{
			name:     "percentage fractional",
			discount: Discount{Type: DiscountPercentage, Value: decimal.RequireFromString("12.5"), ProductIDs: []string{"p1"}},
			wantErr:  ErrInvalidDiscountValue,
		},
		{
			name:     "fixed negative",
			discount: Discount{Type: DiscountFixed, Value: decimal.NewFromInt(-1), ProductIDs: []string{"p1"}},
			wantErr:  ErrInvalidDiscountValue,
		},
		{
			name:     "no target",
			discount: Discount{Type: DiscountFixed, Value: decimal.NewFromInt(5)},
			wantErr:  ErrNoDiscountTarget,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.discount.Validate()
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestResolveForProduct_HighestPriorityWins(t *testing.T) {
	repo := &mockDiscountRepo{discounts: []Discount{
		liveDiscount("d1", DiscountPercentage, "10", 1, testNow.Add(-time.Hour)),
		liveDiscount("d2", DiscountPercentage, "20", 5, testNow.Add(-2*time.Hour)),
		liveDiscount("d3", DiscountFixed, "3", 2, testNow.Add(-time.Minute)),
	}}
	e := NewEngine(repo)

	winner, err := e.ResolveForProduct(context.Background(), "p1", "c1", testNow)
	require.NoError(t, err)
	require.NotNil(t, winner)
	assert.Equal(t, "d2", winner.ID)
}

func TestResolveForProduct_TieGoesToNewest(t *testing.T) {
	repo := &mockDiscountRepo{discounts: []Discount{
		liveDiscount("older", DiscountPercentage, "10", 3, testNow.Add(-2*time.Hour)),
		liveDiscount("newer", DiscountPercentage, "15", 3, testNow.Add(-time.Hour)),
	}}
	e := NewEngine(repo)

	winner, err := e.ResolveForProduct(context.Background(), "p1", "c1", testNow)
	require.NoError(t, err)
	require.NotNil(t, winner)
	assert.Equal(t, "newer", winner.ID)
}

func TestResolveForProduct_OutsideWindow(t *testing.T) {
	expired := liveDiscount("d1", DiscountPercentage, "10", 1, testNow)
	expired.EndsAt = testNow.Add(-time.Minute)
	upcoming := liveDiscount("d2", DiscountPercentage, "20", 1, testNow)
	upcoming.StartsAt = testNow.Add(time.Minute)

	e := NewEngine(&mockDiscountRepo{discounts: []Discount{expired, upcoming}})

	winner, err := e.ResolveForProduct(context.Background(), "p1", "c1", testNow)
	require.NoError(t, err)
	assert.Nil(t, winner)
}

func TestResolveForProduct_CategoryTarget(t *testing.T) {
	d := liveDiscount("d1", DiscountPercentage, "10", 1, testNow)
	d.ProductIDs = nil
	d.CategoryIDs = []string{"c1"}
	e := NewEngine(&mockDiscountRepo{discounts: []Discount{d}})

	winner, err := e.ResolveForProduct(context.Background(), "p9", "c1", testNow)
	require.NoError(t, err)
	require.NotNil(t, winner)

	winner, err = e.ResolveForProduct(context.Background(), "p9", "c2", testNow)
	require.NoError(t, err)
	assert.Nil(t, winner)
}

func TestApply(t *testing.T) {
	pct := liveDiscount("d1", DiscountPercentage, "25", 1, testNow)
	fixed := liveDiscount("d2", DiscountFixed, "15", 1, testNow)

	tests := []struct {
		name     string
		discount *Discount
		price    string
		want     string
	}{
		{"nil discount", nil, "19.99", "19.99"},
		{"percentage", &pct, "19.99", "14.99"},
		{"fixed", &fixed, "19.99", "4.99"},
		{"fixed floors at zero", &fixed, "10.00", "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Apply(tt.discount, decimal.RequireFromString(tt.price))
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)),
				"got %s, want %s", got, tt.want)
		})
	}
}
