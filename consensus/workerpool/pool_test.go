package workerpool

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSubmitRunsJobAndReportsError(t *testing.T) {
	p := New(2)
	f := p.Submit(func() error { return nil })
	require.NoError(t, f.Wait())

	f2 := p.Submit(func() error { return errBoom })
	require.ErrorIs(t, f2.Wait(), errBoom)
}

var errBoom = errTestError("boom")

type errTestError string

func (e errTestError) Error() string { return string(e) }

func TestRunExecutesAllJobsConcurrently(t *testing.T) {
	p := New(4)
	var count int32
	jobs := make([]func(ctx context.Context) error, 10)
	for i := range jobs {
		jobs[i] = func(ctx context.Context) error {
			atomic.AddInt32(&count, 1)
			return nil
		}
	}
	err := p.Run(context.Background(), jobs)
	require.NoError(t, err)
	require.EqualValues(t, 10, count)
}

func TestRunPropagatesFirstError(t *testing.T) {
	p := New(2)
	jobs := []func(ctx context.Context) error{
		func(ctx context.Context) error { return nil },
		func(ctx context.Context) error { return errBoom },
	}
	err := p.Run(context.Background(), jobs)
	require.ErrorIs(t, err, errBoom)
}
