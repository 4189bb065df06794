package gen

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoroutineSteps(t *testing.T) {
	child := func(co *Co) error { return nil }
	var resolved any
	co := New(func(co *Co) error {
		co.Suspend()
		co.Spawn(child)
		v, err := co.Await(AwaitFunc(func(ctx context.Context) (any, error) { return 42, nil }))
		if err != nil {
			return err
		}
		resolved = v
		return nil
	})

	step, err := co.Resume(nil)
	require.NoError(t, err)
	assert.Equal(t, Suspend, step.Kind)

	step, err = co.Resume(nil)
	require.NoError(t, err)
	assert.Equal(t, Spawn, step.Kind)
	assert.NotNil(t, step.Child)

	step, err = co.Resume(nil)
	require.NoError(t, err)
	require.Equal(t, Await, step.Kind)
	v, err := step.Await.Wait(context.Background())
	require.NoError(t, err)

	step, err = co.Resume(Resolution{Value: v})
	require.NoError(t, err)
	assert.Equal(t, Done, step.Kind)
	assert.Equal(t, 42, resolved)
	assert.True(t, co.Done())

	step, err = co.Resume(nil)
	assert.NoError(t, err)
	assert.Equal(t, Done, step.Kind)
}

func TestCoroutineAwaitError(t *testing.T) {
	boom := errors.New("boom")
	co := New(func(co *Co) error {
		_, err := co.Await(AwaitFunc(func(ctx context.Context) (any, error) { return nil, boom }))
		return err
	})

	_, err := co.Resume(nil)
	require.NoError(t, err)
	_, err = co.Resume(Resolution{Err: boom})
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, co.Err(), boom)
}

func TestCoroutinePanicBecomesError(t *testing.T) {
	cause := errors.New("cause")
	co := New(func(co *Co) error {
		co.Suspend()
		panic(cause)
	})

	_, err := co.Resume(nil)
	require.NoError(t, err)
	_, err = co.Resume(nil)

	var panicErr *PanicError
	require.ErrorAs(t, err, &panicErr)
	assert.ErrorIs(t, err, cause)
	assert.NotEmpty(t, panicErr.Stack)
}

func TestCoroutineStopRunsDeferred(t *testing.T) {
	cleaned := false
	co := New(func(co *Co) error {
		defer func() { cleaned = true }()
		for {
			co.Suspend()
		}
	})

	_, err := co.Resume(nil)
	require.NoError(t, err)
	co.Stop()

	assert.True(t, cleaned)
	assert.True(t, co.Done())
	assert.NoError(t, co.Err())
}

func TestCoroutineStopFromInsideIsDeferred(t *testing.T) {
	var self *Coroutine
	resumed := 0
	self = New(func(co *Co) error {
		for {
			resumed++
			self.Stop()
			co.Suspend()
		}
	})

	step, err := self.Resume(nil)
	require.NoError(t, err)
	assert.Equal(t, Suspend, step.Kind)
	assert.True(t, self.Done())

	step, _ = self.Resume(nil)
	assert.Equal(t, Done, step.Kind)
	assert.Equal(t, 1, resumed)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "suspend", Suspend.String())
	assert.Equal(t, "await", Await.String())
	assert.Equal(t, "kind(9)", Kind(9).String())
}
