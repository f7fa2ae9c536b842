package domain

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustAppend(t *testing.T, l Ledger, qty int64, price float64) Ledger {
	t.Helper()
	out, err := l.Append(qty, price)
	require.NoError(t, err)
	return out
}

func TestLedger_LastPrice(t *testing.T) {
	t.Run("empty ledger is absent", func(t *testing.T) {
		var l Ledger
		_, ok := l.LastPrice()
		assert.False(t, ok)
	})

	t.Run("returns most recently appended price", func(t *testing.T) {
		l := mustAppend(t, Ledger{}, 10, 20)
		l = mustAppend(t, l, 5, 30)
		l = mustAppend(t, l, 1, 25)

		p, ok := l.LastPrice()
		require.True(t, ok)
		assert.Equal(t, 25.0, p)
	})

	t.Run("order sensitive", func(t *testing.T) {
		a := mustAppend(t, mustAppend(t, Ledger{}, 1, 10), 1, 20)
		b := mustAppend(t, mustAppend(t, Ledger{}, 1, 20), 1, 10)

		pa, _ := a.LastPrice()
		pb, _ := b.LastPrice()
		assert.Equal(t, 20.0, pa)
		assert.Equal(t, 10.0, pb)
	})
}

func TestLedger_Append(t *testing.T) {
	t.Run("does not mutate receiver", func(t *testing.T) {
		base := mustAppend(t, Ledger{}, 10, 20)
		next := mustAppend(t, base, 5, 30)

		assert.Equal(t, 1, base.Len())
		assert.Equal(t, 2, next.Len())
		p, _ := base.LastPrice()
		assert.Equal(t, 20.0, p)
	})

	t.Run("siblings do not share storage", func(t *testing.T) {
		base := mustAppend(t, Ledger{}, 10, 20)
		a := mustAppend(t, base, 1, 1)
		b := mustAppend(t, base, 2, 2)

		assert.Equal(t, []LedgerEntry{{10, 20}, {1, 1}}, a.Entries())
		assert.Equal(t, []LedgerEntry{{10, 20}, {2, 2}}, b.Entries())
	})

	t.Run("zero quantity allowed", func(t *testing.T) {
		l := mustAppend(t, Ledger{}, 0, 12.5)
		assert.Equal(t, 1, l.Len())
	})

	tests := []struct {
		name  string
		qty   int64
		price float64
		is    error
	}{
		{"negative quantity", -1, 10, ErrInvalidQuantity},
		{"zero price", 1, 0, ErrInvalidPrice},
		{"negative price", 1, -3, ErrInvalidPrice},
		{"nan price", 1, math.NaN(), ErrInvalidPrice},
		{"positive infinite price", 1, math.Inf(1), ErrInvalidPrice},
		{"negative infinite price", 1, math.Inf(-1), ErrInvalidPrice},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := mustAppend(t, Ledger{}, 3, 7)
			out, err := l.Append(tt.qty, tt.price)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.is))
			assert.Equal(t, l.Entries(), out.Entries())
		})
	}
}

func TestLedger_Entries_ReturnsCopy(t *testing.T) {
	l := mustAppend(t, Ledger{}, 10, 20)
	entries := l.Entries()
	entries[0].Quantity = 999

	e, _ := l.Last()
	assert.Equal(t, int64(10), e.Quantity)
}

func TestLedger_Valuation(t *testing.T) {
	l := mustAppend(t, Ledger{}, 10, 20)
	l = mustAppend(t, l, 5, 30)

	assert.Equal(t, 600.0, l.TotalValue(40))
	assert.Equal(t, 250.0, l.TotalProfit(40))
	assert.Equal(t, int64(15), l.TotalQuantity())
	assert.Equal(t, 350.0, l.CostBasis())

	t.Run("idempotent", func(t *testing.T) {
		assert.Equal(t, l.TotalValue(40), l.TotalValue(40))
		assert.Equal(t, l.TotalProfit(40), l.TotalProfit(40))
		assert.Equal(t, 2, l.Len())
	})

	t.Run("empty ledger is zero", func(t *testing.T) {
		var empty Ledger
		assert.Equal(t, 0.0, empty.TotalValue(40))
		assert.Equal(t, 0.0, empty.TotalProfit(40))
	})

	t.Run("profit rounds to cents", func(t *testing.T) {
		r := mustAppend(t, Ledger{}, 3, 10.333)
		assert.Equal(t, 3.0, r.TotalProfit(11.333))
		assert.Equal(t, -1.0, r.TotalProfit(10))
	})
}

func TestErrors(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := NewQuoteFetchError("AAPL", cause)

	assert.True(t, errors.Is(err, ErrQuoteFetch))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, ErrInvalidPrice))
	assert.Same(t, err, NewQuoteFetchError("AAPL", err))

	var ip error = &InvalidPriceError{Price: -1}
	assert.True(t, errors.Is(ip, ErrInvalidPrice))
	assert.Contains(t, ip.Error(), "-1")
}

func TestValidPrice(t *testing.T) {
	assert.True(t, ValidPrice(0.01))
	assert.True(t, ValidPrice(math.MaxFloat64))
	for _, p := range []float64{0, -1, math.NaN(), math.Inf(1), math.Inf(-1)} {
		assert.False(t, ValidPrice(p), "price %v", p)
	}
}

func TestDirectionOf(t *testing.T) {
	assert.Equal(t, DirectionUp, DirectionOf(0.5))
	assert.Equal(t, DirectionDown, DirectionOf(-0.01))
	assert.Equal(t, DirectionFlat, DirectionOf(0))
}
