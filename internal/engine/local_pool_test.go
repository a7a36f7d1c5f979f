package engine_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/adaptocr/internal/engine"
	"github.com/MeKo-Tech/adaptocr/internal/engine/enginetest"
	"github.com/MeKo-Tech/adaptocr/internal/ocrerr"
)

func TestLocalPool_BoundsConcurrency(t *testing.T) {
	fake := enginetest.New().Default(enginetest.Behavior{Text: "ok", Delay: 30 * time.Millisecond})
	pool := fake.Pool(2)
	defer pool.Close()

	var wg sync.WaitGroup
	resps := make([]engine.Response, 12)
	for i := range resps {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var err error
			resps[i], err = pool.Recognize(context.Background(), engine.Request{ID: fmt.Sprint(i), Pass: "pass1"}, time.Second)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 2, fake.Peak())
	assert.LessOrEqual(t, enginetest.MaxOverlap(resps), 2)
	assert.Equal(t, 12, fake.CallCount("pass1"))
}

func TestLocalPool_Timeout(t *testing.T) {
	fake := enginetest.New().On("pass2", enginetest.Behavior{Delay: time.Minute})
	pool := fake.Pool(1)
	defer pool.Close()

	_, err := pool.Recognize(context.Background(), engine.Request{Pass: "pass2"}, 50*time.Millisecond)
	var timeoutErr *ocrerr.OCRTimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, 50*time.Millisecond, timeoutErr.Timeout)

	// The slot is free again.
	resp, err := pool.Recognize(context.Background(), engine.Request{Pass: "pass1"}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "text", resp.Text)
}

func TestLocalPool_EngineError(t *testing.T) {
	fake := enginetest.New().On("pass1", enginetest.Behavior{Err: errors.New("tesseract: bad image")})
	pool := fake.Pool(1)
	defer pool.Close()

	_, err := pool.Recognize(context.Background(), engine.Request{Pass: "pass1"}, time.Second)
	var engErr *ocrerr.OCREngineError
	require.ErrorAs(t, err, &engErr)
	assert.Equal(t, "pass1", engErr.Pass)
}

func TestLocalPool_FillsMetadata(t *testing.T) {
	pool := enginetest.New().Pool(1)
	defer pool.Close()
	resp, err := pool.Recognize(context.Background(), engine.Request{ID: "x", Pass: "pass1"}, 0)
	require.NoError(t, err)
	assert.Equal(t, "x", resp.ID)
	assert.NotZero(t, resp.WorkerPID)
	assert.False(t, resp.Started.IsZero())
}

func TestLocalPool_CloseAndCancel(t *testing.T) {
	fake := enginetest.New()
	pool := fake.Pool(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := pool.Recognize(ctx, engine.Request{Pass: "pass1"}, time.Second)
	assert.Equal(t, ocrerr.KindCancelled, ocrerr.KindOf(err))

	require.NoError(t, pool.Close())
	require.NoError(t, pool.Close())
	assert.True(t, fake.Closed())
	_, err = pool.Recognize(context.Background(), engine.Request{Pass: "pass1"}, time.Second)
	assert.ErrorIs(t, err, engine.ErrPoolClosed)
}

func TestNewLocalPool_Validation(t *testing.T) {
	_, err := engine.NewLocalPool(enginetest.New(), 0)
	assert.True(t, ocrerr.IsFatal(err))
	_, err = engine.NewLocalPool(nil, 1)
	assert.Error(t, err)

	p, err := engine.LocalFactory(enginetest.New())(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Size())
}
