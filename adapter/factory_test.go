package adapter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/wsproxy/api"
	"github.com/momentics/wsproxy/pool"
)

func TestParseKind(t *testing.T) {
	for _, k := range Kinds() {
		got, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	for _, alias := range []string{"SingleFrame", "single_frame", " single-frame "} {
		got, err := ParseKind(alias)
		require.NoError(t, err, alias)
		assert.Equal(t, KindSingleFrame, got)
	}
	_, err := ParseKind("ring")
	assert.ErrorIs(t, err, api.ErrInvalidArgument)
	assert.Equal(t, "Kind(42)", Kind(42).String())
}

func TestNewValidates(t *testing.T) {
	_, err := New(KindStatic, WithCapacity(0))
	assert.ErrorIs(t, err, api.ErrInvalidArgument)

	_, err = New(KindCircular, WithWaitTimeout(-time.Second))
	assert.ErrorIs(t, err, api.ErrInvalidArgument)

	_, err = New(Kind(99))
	assert.ErrorIs(t, err, api.ErrInvalidArgument)

	a, err := New(KindSingleFrame, WithCapacity(0))
	require.NoError(t, err)
	assert.IsType(t, &SingleFrame{}, a)

	a, err = New(KindNaive, WithCapacity(0))
	require.NoError(t, err)
	assert.IsType(t, &Naive{}, a)
}

func TestFactoryUnderBudget(t *testing.T) {
	budget := pool.NewBudget(pool.Heap{}, 100)
	f, err := NewFactory(KindCircular, WithCapacity(40), WithAllocator(budget))
	require.NoError(t, err)

	first, err := f()
	require.NoError(t, err)
	_, err = f()
	require.NoError(t, err)
	assert.Equal(t, 80, budget.InUse())

	_, err = f()
	assert.ErrorIs(t, err, api.ErrAllocationFailure)

	first.(Releaser).Release()
	assert.Equal(t, 40, budget.InUse())
	_, err = f()
	assert.NoError(t, err)
}

func TestNewFactoryRejectsBadOptions(t *testing.T) {
	_, err := NewFactory(KindDynamic, WithCapacity(-1))
	assert.ErrorIs(t, err, api.ErrInvalidArgument)
}
