package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Dispatcher queues notifications and delivers them asynchronously so the
// engine's tick path never blocks on a slow channel. The queue is bounded;
// when full, new notifications are dropped and logged.
type Dispatcher struct {
	notifier Notifier
	queue    chan Notification
	logger   zerolog.Logger

	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

// NewDispatcher creates and starts a dispatcher with the given queue size.
func NewDispatcher(notifier Notifier, queueSize int, logger zerolog.Logger) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 64
	}
	d := &Dispatcher{
		notifier: notifier,
		queue:    make(chan Notification, queueSize),
		logger:   logger.With().Str("component", "dispatcher").Logger(),
		done:     make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

// Dispatch enqueues a notification. It never blocks; a full queue drops the
// notification.
func (d *Dispatcher) Dispatch(n Notification) {
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now()
	}
	select {
	case d.queue <- n:
	default:
		d.logger.Warn().Str("title", n.Title).Msg("Notification queue full, dropping")
	}
}

// Close drains the queue and stops the worker.
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		close(d.done)
	})
	d.wg.Wait()
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case n := <-d.queue:
			d.deliver(n)
		case <-d.done:
			// Drain whatever is already queued.
			for {
				select {
				case n := <-d.queue:
					d.deliver(n)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(n Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := d.notifier.Send(ctx, n); err != nil {
		d.logger.Warn().Err(err).Str("title", n.Title).Msg("Notification delivery failed")
	}
}
