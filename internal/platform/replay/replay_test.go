package replay

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/dipbuyer/internal/domain"
)

func TestSource_PlaysInOrder(t *testing.T) {
	ctx := context.Background()
	src := New(100, 90)

	p, err := src.Price(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 100.0, p)

	p, err = src.Price(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 90.0, p)

	_, err = src.Price(ctx, "AAPL")
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, []string{"AAPL", "AAPL", "AAPL"}, src.Calls())
	assert.Equal(t, 0, src.Remaining())
}

func TestSource_ScriptedError(t *testing.T) {
	boom := errors.New("boom")
	src := NewSteps(Step{Err: boom}, Step{Price: 5})

	_, err := src.Price(context.Background(), "X")
	assert.ErrorIs(t, err, boom)
	p, err := src.Price(context.Background(), "X")
	require.NoError(t, err)
	assert.Equal(t, 5.0, p)
}

func TestSource_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := New(1)
	_, err := src.Price(ctx, "X")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, src.Remaining())
}

func TestParse(t *testing.T) {
	src, err := Parse(" 100, 90,95 ,80,")
	require.NoError(t, err)
	assert.Equal(t, 4, src.Remaining())

	_, err = Parse("100,abc")
	assert.Error(t, err)

	_, err = Parse(" , ")
	assert.Error(t, err)

	for _, list := range []string{"100,inf", "100,-Inf", "NaN", "100,0", "100,-5"} {
		_, err = Parse(list)
		assert.ErrorIs(t, err, domain.ErrInvalidPrice, list)
	}
}
