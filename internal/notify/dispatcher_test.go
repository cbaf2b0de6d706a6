package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu      sync.Mutex
	got     []Notification
	block   chan struct{}
	blockOn bool
}

func (r *recordingNotifier) Send(ctx context.Context, n Notification) error {
	if r.blockOn {
		select {
		case <-r.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
	return nil
}

func (r *recordingNotifier) Name() string { return "recording" }

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.got)
}

func TestDispatcherDeliversAsync(t *testing.T) {
	rec := &recordingNotifier{}
	d := NewDispatcher(rec, 8, zerolog.Nop())

	d.Dispatch(Notification{Kind: KindTrade, Title: "one"})
	d.Dispatch(Notification{Kind: KindExit, Title: "two"})

	require.Eventually(t, func() bool { return rec.count() == 2 },
		2*time.Second, 10*time.Millisecond)
	d.Close()
}

func TestDispatchNeverBlocksWhenFull(t *testing.T) {
	rec := &recordingNotifier{block: make(chan struct{}), blockOn: true}
	d := NewDispatcher(rec, 2, zerolog.Nop())

	done := make(chan struct{})
	go func() {
		for i := 0; i < 50; i++ {
			d.Dispatch(Notification{Kind: KindStatus, Title: "n"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Dispatch blocked on a full queue")
	}

	close(rec.block)
	rec.blockOn = false
	d.Close()
}

func TestDispatcherCloseDrainsQueue(t *testing.T) {
	rec := &recordingNotifier{}
	d := NewDispatcher(rec, 16, zerolog.Nop())

	for i := 0; i < 5; i++ {
		d.Dispatch(Notification{Kind: KindTrade, Title: "queued"})
	}
	d.Close()

	assert.Equal(t, 5, rec.count())
}

func TestMultiNotifierLevelFilter(t *testing.T) {
	rec := &recordingNotifier{}
	m := NewMultiNotifier("errors_only", zerolog.Nop(), rec)
	ctx := context.Background()

	require.NoError(t, m.Send(ctx, Notification{Kind: KindTrade, Title: "trade"}))
	require.NoError(t, m.Send(ctx, Notification{Kind: KindError, Title: "error"}))

	require.Equal(t, 1, rec.count())
	assert.Equal(t, KindError, rec.got[0].Kind)
}

func TestMultiNotifierTradesOnly(t *testing.T) {
	rec := &recordingNotifier{}
	m := NewMultiNotifier("trades_only", zerolog.Nop(), rec)
	ctx := context.Background()

	require.NoError(t, m.Send(ctx, Notification{Kind: KindStatus}))
	require.NoError(t, m.Send(ctx, Notification{Kind: KindTrade}))
	require.NoError(t, m.Send(ctx, Notification{Kind: KindExit}))

	assert.Equal(t, 2, rec.count())
}
