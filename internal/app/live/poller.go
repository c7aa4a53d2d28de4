package live

import (
	"context"
	"time"
)

// poller runs tick on a fixed interval from a single goroutine, so ticks never overlap.
// A tick that comes due while the previous one still runs is dropped by the ticker.
type poller struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// startPoller starts the loop. When tick returns an error the loop ends and onExit
// receives it; done is already closed by then, so onExit may call stop.
// A stopped poller never calls onExit.
func startPoller(interval time.Duration, tick func(ctx context.Context) error, onExit func(error)) *poller {
	ctx, cancel := context.WithCancel(context.Background())
	p := &poller{cancel: cancel, done: make(chan struct{})}
	go p.loop(ctx, interval, tick, onExit)
	return p
}

func (p *poller) loop(ctx context.Context, interval time.Duration, tick func(ctx context.Context) error, onExit func(error)) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			close(p.done)
			return
		case <-t.C:
		}
		err := tick(ctx)
		if ctx.Err() != nil {
			close(p.done)
			return
		}
		if err != nil {
			close(p.done)
			if onExit != nil {
				onExit(err)
			}
			return
		}
	}
}

// stop cancels the loop and waits for it. Safe to call more than once.
func (p *poller) stop() {
	if p == nil {
		return
	}
	p.cancel()
	<-p.done
}
