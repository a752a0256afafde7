package cryptox

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestPool_DefaultSize(t *testing.T) {
	assert.Positive(t, NewPool(0).Size())
	assert.Equal(t, 3, NewPool(3).Size())
}

func TestPool_BoundsConcurrency(t *testing.T) {
	p := NewPool(2)

	var running, peak atomic.Int64
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := p.Do(context.Background(), func() error {
				n := running.Add(1)
				for {
					old := peak.Load()
					if n <= old || peak.CompareAndSwap(old, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				running.Add(-1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int64(2))
	assert.Zero(t, p.InFlight())
}

func TestPool_PropagatesJobError(t *testing.T) {
	boom := errors.New("boom")
	err := NewPool(1).Do(context.Background(), func() error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestPool_CallerReleasedOnCancel(t *testing.T) {
	p := NewPool(1)
	release := make(chan struct{})
	started := make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		errCh <- p.Do(ctx, func() error {
			close(started)
			<-release
			return nil
		})
	}()

	<-started
	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)
	assert.Equal(t, int64(1), p.InFlight())

	close(release)
	require.Eventually(t, func() bool { return p.InFlight() == 0 }, time.Second, time.Millisecond)

	assert.NoError(t, p.Do(context.Background(), func() error { return nil }))
}
