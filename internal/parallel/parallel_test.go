package parallel

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFor(t *testing.T) {
	cfg := DefaultConfig()

	var counter int64
	n := 1000

	For(n, func(_ int) {
		atomic.AddInt64(&counter, 1)
	}, cfg)

	if counter != int64(n) {
		t.Errorf("Expected %d, got %d", n, counter)
	}
}

func TestFor_Sequential(t *testing.T) {
	cfg := Config{Enabled: false}

	var counter int64
	For(100, func(_ int) {
		atomic.AddInt64(&counter, 1)
	}, cfg)

	if counter != 100 {
		t.Errorf("Expected 100, got %d", counter)
	}
}

func TestFor_SmallChunk(t *testing.T) {
	// Test that small work units fall back to sequential.
	cfg := DefaultConfig()

	var counter int64
	n := cfg.MinChunkSize - 1

	For(n, func(_ int) {
		atomic.AddInt64(&counter, 1)
	}, cfg)

	if counter != int64(n) {
		t.Errorf("Expected %d, got %d", n, counter)
	}
}

func TestMap_IndexOrder(t *testing.T) {
	p := NewPool(4)

	got, err := Map(context.Background(), p, 20, func(_ context.Context, i int) (int, error) {
		// Later indices finish first.
		time.Sleep(time.Duration(20-i) * 100 * time.Microsecond)
		return i * i, nil
	})
	require.NoError(t, err)
	require.Len(t, got, 20)
	for i, v := range got {
		assert.Equal(t, i*i, v)
	}
}

func TestMap_LowestIndexError(t *testing.T) {
	p := NewPool(3)
	errA := errors.New("task 2 failed")
	errB := errors.New("task 5 failed")

	_, err := Map(context.Background(), p, 8, func(_ context.Context, i int) (struct{}, error) {
		switch i {
		case 2:
			return struct{}{}, errA
		case 5:
			return struct{}{}, errB
		}
		return struct{}{}, nil
	})
	assert.ErrorIs(t, err, errA)
}

func TestMap_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls int64
	_, err := Map(ctx, NewPool(2), 10, func(_ context.Context, _ int) (int, error) {
		atomic.AddInt64(&calls, 1)
		return 0, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, atomic.LoadInt64(&calls))
}

func TestNewPool_MinimumOneWorker(t *testing.T) {
	assert.Equal(t, 1, NewPool(0).Workers())
	assert.Equal(t, 1, NewPool(-3).Workers())
	assert.Equal(t, 6, NewPool(6).Workers())
}

func BenchmarkFor(b *testing.B) {
	cfg := DefaultConfig()
	n := 10000

	b.Run("parallel", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			var sum int64
			For(n, func(j int) {
				atomic.AddInt64(&sum, int64(j))
			}, cfg)
		}
	})

	b.Run("sequential", func(b *testing.B) {
		seq := Config{Enabled: false}
		for i := 0; i < b.N; i++ {
			var sum int64
			For(n, func(j int) {
				atomic.AddInt64(&sum, int64(j))
			}, seq)
		}
	})
}
