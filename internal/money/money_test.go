package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRound_HalfUp(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "exact cents untouched", in: "49.99", want: "49.99"},
		{name: "half rounds up", in: "10.005", want: "10.01"},
		{name: "below half rounds down", in: "10.0049", want: "10"},
		{name: "three quarters rounds up", in: "0.555", want: "0.56"},
		{name: "zero", in: "0", want: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Round(decimal.RequireFromString(tt.in))
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)),
				"got %s, want %s", got, tt.want)
		})
	}
}

func TestMinorUnits(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{in: "49.99", want: 4999},
		{in: "149.97", want: 14997},
		{in: "100", want: 10000},
		{in: "0.005", want: 1},
		{in: "0", want: 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, MinorUnits(decimal.RequireFromString(tt.in)), "for %s", tt.in)
	}
}

func TestFromMinorUnits_RoundTrip(t *testing.T) {
	d := FromMinorUnits(14997)
	assert.True(t, d.Equal(decimal.RequireFromString("149.97")))
	assert.Equal(t, int64(14997), MinorUnits(d))
}

func TestFloorZero(t *testing.T) {
	assert.True(t, FloorZero(decimal.NewFromInt(-5)).IsZero())
	assert.True(t, FloorZero(decimal.NewFromInt(5)).Equal(decimal.NewFromInt(5)))
}
