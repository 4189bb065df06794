package signals

import (
	"context"
	"runtime/debug"
	"sync"
)

// Promise is an asynchronously loaded value. Until the loader finishes it
// exposes its initial value; afterwards it exposes the loaded one.
type Promise[T any] struct {
	mu      sync.Mutex
	value   T
	err     error
	settled bool
	done    chan struct{}
	owner   any
	stack   []byte
	context *DependencyContext
}

// PromiseInfo describes a promise that was pending at the end of a frame.
type PromiseInfo struct {
	Owner any
	Stack []byte
	Err   error
}

type pendingPromise interface {
	wait(ctx context.Context) error
	settle() PromiseInfo
}

// CollectPromise starts load in the background and registers it as
// pending. When called while a signal is computing, that signal is marked
// dirty once the value arrives and ConsumePromises runs.
func CollectPromise[T any](ctx context.Context, load func(context.Context) (T, error), initial T) *Promise[T] {
	p := &Promise[T]{
		value: initial,
		done:  make(chan struct{}),
		stack: debug.Stack(),
	}
	if active := currentCollector(); active != nil {
		p.context = active
		p.owner = active.owner
	}
	go func() {
		v, err := load(ctx)
		p.mu.Lock()
		if err != nil {
			p.err = err
		} else {
			p.value = v
		}
		p.settled = true
		p.mu.Unlock()
		close(p.done)
	}()
	collecting.promises = append(collecting.promises, p)
	return p
}

// Get returns the latest value. A rejected promise panics with its error so
// the failure surfaces through whichever signal read it.
func (p *Promise[T]) Get() T {
	v, err := p.Result()
	if err != nil {
		panic(err)
	}
	return v
}

// Result returns the latest value and the loader error, if any.
func (p *Promise[T]) Result() (T, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value, p.err
}

// Settled reports whether the loader finished.
func (p *Promise[T]) Settled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.settled
}

func (p *Promise[T]) wait(ctx context.Context) error {
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Promise[T]) settle() PromiseInfo {
	if p.context != nil {
		p.context.MarkDirty()
	}
	_, err := p.Result()
	return PromiseInfo{Owner: p.owner, Stack: p.stack, Err: err}
}

// HasPromises reports whether any collected promise was not consumed yet.
func HasPromises() bool {
	return len(collecting.promises) > 0
}

// ConsumePromises waits for every currently pending promise, marks the
// signals that collected them dirty and removes them from the pending list.
// Promises collected while waiting stay pending.
func ConsumePromises(ctx context.Context) ([]PromiseInfo, error) {
	pending := append([]pendingPromise(nil), collecting.promises...)
	for _, p := range pending {
		if err := p.wait(ctx); err != nil {
			return nil, err
		}
	}

	infos := make([]PromiseInfo, 0, len(pending))
	for _, p := range pending {
		infos = append(infos, p.settle())
	}
	collecting.promises = collecting.promises[len(pending):]
	return infos, nil
}
