package live

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestPollerTicksAreSerialized(t *testing.T) {
	var running, overlaps, ticks atomic.Int32
	p := startPoller(time.Millisecond, func(ctx context.Context) error {
		if running.Add(1) > 1 {
			overlaps.Add(1)
		}
		time.Sleep(5 * time.Millisecond)
		running.Add(-1)
		ticks.Add(1)
		return nil
	}, nil)
	time.Sleep(60 * time.Millisecond)
	p.stop()
	p.stop()

	if overlaps.Load() != 0 {
		t.Errorf("ticks overlapped %d times", overlaps.Load())
	}
	if ticks.Load() == 0 {
		t.Error("no ticks ran")
	}
	after := ticks.Load()
	time.Sleep(20 * time.Millisecond)
	if ticks.Load() != after {
		t.Error("ticks ran after stop")
	}
}

func TestPollerExitCanStopItself(t *testing.T) {
	boom := errors.New("boom")
	exited := make(chan error, 1)
	var p *poller
	ready := make(chan struct{})
	p = startPoller(time.Millisecond, func(ctx context.Context) error {
		return boom
	}, func(err error) {
		<-ready
		p.stop()
		exited <- err
	})
	close(ready)

	select {
	case err := <-exited:
		if !errors.Is(err, boom) {
			t.Errorf("onExit(%v), want boom", err)
		}
	case <-time.After(time.Second):
		t.Fatal("onExit deadlocked")
	}
}

func TestStoppedPollerDoesNotReportExit(t *testing.T) {
	called := make(chan struct{}, 1)
	p := startPoller(time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, func(error) { called <- struct{}{} })
	time.Sleep(10 * time.Millisecond)
	p.stop()
	select {
	case <-called:
		t.Error("onExit called after stop")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestOptionsDefaults(t *testing.T) {
	cases := []struct {
		in, want Options
	}{
		{Options{}, Options{PollInterval: DefaultPollInterval, GatherGrace: DefaultGatherGrace}},
		{Options{PollInterval: time.Second, GatherGrace: -time.Second}, Options{PollInterval: time.Second}},
		{Options{PollInterval: -1, GatherGrace: time.Millisecond}, Options{PollInterval: DefaultPollInterval, GatherGrace: time.Millisecond}},
	}
	for _, c := range cases {
		if got := c.in.withDefaults(); got != c.want {
			t.Errorf("%+v.withDefaults() = %+v, want %+v", c.in, got, c.want)
		}
	}
}
