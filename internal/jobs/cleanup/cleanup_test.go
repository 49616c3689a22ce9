package cleanup

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeSweeper struct {
	cutoff time.Time
	swept  int64
	err    error
	calls  int
}

func (f *fakeSweeper) FailStalePending(_ context.Context, cutoff time.Time) (int64, error) {
	f.calls++
	f.cutoff = cutoff
	return f.swept, f.err
}

func TestRunSweepsWithConfiguredTTL(t *testing.T) {
	now := time.Date(2026, time.March, 3, 9, 0, 0, 0, time.UTC)
	sweeper := &fakeSweeper{swept: 4}

	job := New(sweeper, 6*time.Hour, nil)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run cleanup job: %v", err)
	}

	want := now.Add(-6 * time.Hour)
	if !sweeper.cutoff.Equal(want) {
		t.Fatalf("cutoff = %v, want %v", sweeper.cutoff, want)
	}
}

func TestRunDefaultsPendingTTL(t *testing.T) {
	now := time.Date(2026, time.March, 3, 9, 0, 0, 0, time.UTC)
	sweeper := &fakeSweeper{}

	job := New(sweeper, 0, nil)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run cleanup job: %v", err)
	}

	want := now.Add(-24 * time.Hour)
	if !sweeper.cutoff.Equal(want) {
		t.Fatalf("cutoff = %v, want %v", sweeper.cutoff, want)
	}
}

func TestRunPropagatesSweepError(t *testing.T) {
	sweeper := &fakeSweeper{err: errors.New("connection reset")}

	job := New(sweeper, time.Hour, nil)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected sweep error")
	}
}

func TestRunWithoutSweeperIsNoOp(t *testing.T) {
	job := New(nil, time.Hour, nil)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run cleanup job: %v", err)
	}
}
