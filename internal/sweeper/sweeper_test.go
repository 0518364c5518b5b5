package sweeper

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRunOnceRunsEverySweepDespiteFailures(t *testing.T) {
	var ran []string
	sweeps := []Sweep{
		{Name: "first", Run: func(context.Context) (int, error) {
			ran = append(ran, "first")
			return 2, nil
		}},
		{Name: "broken", Run: func(context.Context) (int, error) {
			ran = append(ran, "broken")
			return 0, errors.New("boom")
		}},
		{Name: "last", Run: func(context.Context) (int, error) {
			ran = append(ran, "last")
			return 0, nil
		}},
	}
	r := NewRunner(sweeps, time.Minute, nil)
	r.RunOnce(context.Background())

	want := []string{"first", "broken", "last"}
	if len(ran) != len(want) {
		t.Fatalf("ran %v, want %v", ran, want)
	}
	for i := range want {
		if ran[i] != want[i] {
			t.Fatalf("ran %v, want %v", ran, want)
		}
	}
}

func TestRunSweepsImmediatelyAndStopsOnCancel(t *testing.T) {
	ticks := make(chan struct{}, 8)
	r := NewRunner([]Sweep{{Name: "tick", Run: func(context.Context) (int, error) {
		ticks <- struct{}{}
		return 0, nil
	}}}, time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	select {
	case <-ticks:
	case <-time.After(2 * time.Second):
		t.Fatal("first sweep did not run immediately")
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop on cancel")
	}
}

func TestNewRunnerDefaultsInterval(t *testing.T) {
	r := NewRunner(nil, 0, nil)
	if r.Interval != time.Minute {
		t.Fatalf("Interval = %v, want 1m", r.Interval)
	}
}

func TestAcquireLockWithoutRedis(t *testing.T) {
	r := NewRunner(nil, time.Minute, nil)
	if !r.acquireLock(context.Background()) {
		t.Fatal("lock should always be granted without redis")
	}
}
