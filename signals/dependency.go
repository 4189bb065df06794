// Package signals implements reactive values with automatic dependency
// tracking.
//
// Reading a signal while another signal is computing its value records a
// dependency between the two. Writing a signal marks everything that read it
// dirty, and dirty computed signals re-run their producer lazily on the next
// read.
//
// Dependency collection uses a package-level stack. Signals are meant to be
// used from the single goroutine that drives the animation threads and are
// not safe for concurrent use.
package signals

import (
	"errors"
	"fmt"
	"runtime/debug"
)

// ErrCollectionOrder is raised when dependency collection is finished for a
// context that is not the one currently collecting.
var ErrCollectionOrder = errors.New("signals: startCollecting/finishCollecting called out of order")

// CircularDependencyError is raised when a context is read while its own
// value is being computed.
type CircularDependencyError struct {
	Owner any
	Stack []byte
}

func (e *CircularDependencyError) Error() string {
	if e.Owner != nil {
		return fmt.Sprintf("a circular dependency occurred between signals (owner %v)", e.Owner)
	}
	return "a circular dependency occurred between signals"
}

// flagDispatcher is a dirty flag whose subscribers are notified on the
// rising edge only.
type flagDispatcher struct {
	raised      bool
	subscribers []*DependencyContext
}

func (f *flagDispatcher) raise() {
	if f.raised {
		return
	}
	f.raised = true
	subscribers := append([]*DependencyContext(nil), f.subscribers...)
	for _, s := range subscribers {
		s.MarkDirty()
	}
}

func (f *flagDispatcher) reset() {
	f.raised = false
}

func (f *flagDispatcher) subscribe(c *DependencyContext) {
	for _, s := range f.subscribers {
		if s == c {
			return
		}
	}
	f.subscribers = append(f.subscribers, c)
	if f.raised {
		c.MarkDirty()
	}
}

func (f *flagDispatcher) unsubscribe(c *DependencyContext) {
	for i, s := range f.subscribers {
		if s == c {
			f.subscribers = append(f.subscribers[:i], f.subscribers[i+1:]...)
			return
		}
	}
}

type collection struct {
	active   map[*DependencyContext]bool
	stack    []*DependencyContext
	promises []pendingPromise
}

var collecting = &collection{active: make(map[*DependencyContext]bool)}

// DependencyContext tracks what a computed value read and who read it.
type DependencyContext struct {
	owner        any
	dependencies []*flagDispatcher
	event        flagDispatcher
}

// NewDependencyContext creates a context belonging to owner.
func NewDependencyContext(owner any) *DependencyContext {
	return &DependencyContext{owner: owner}
}

// Owner returns the entity the context belongs to.
func (c *DependencyContext) Owner() any {
	return c.owner
}

// IsDirty reports whether the context changed since it was last consumed.
func (c *DependencyContext) IsDirty() bool {
	return c.event.raised
}

// MarkDirty raises the dirty flag and notifies dependents.
func (c *DependencyContext) MarkDirty() {
	c.event.raise()
}

// StartCollecting makes c the context that records dependencies. It fails
// when c is already collecting further up the stack.
func (c *DependencyContext) StartCollecting() error {
	if collecting.active[c] {
		return &CircularDependencyError{Owner: c.owner, Stack: debug.Stack()}
	}
	collecting.active[c] = true
	collecting.stack = append(collecting.stack, c)
	return nil
}

// FinishCollecting ends the collection started by StartCollecting.
func (c *DependencyContext) FinishCollecting() {
	delete(collecting.active, c)
	n := len(collecting.stack)
	if n == 0 || collecting.stack[n-1] != c {
		panic(ErrCollectionOrder)
	}
	collecting.stack[n-1] = nil
	collecting.stack = collecting.stack[:n-1]
}

// Collect registers c as a dependency of the context currently collecting.
func (c *DependencyContext) Collect() {
	active := currentCollector()
	if active == nil {
		return
	}
	active.addDependency(&c.event)
	c.event.subscribe(active)
}

// ClearDependencies unsubscribes from everything c read so far.
func (c *DependencyContext) ClearDependencies() {
	for _, dep := range c.dependencies {
		dep.unsubscribe(c)
	}
	c.dependencies = nil
}

// Dispose detaches the context from the dependency graph.
func (c *DependencyContext) Dispose() {
	c.ClearDependencies()
	c.event.subscribers = nil
	c.owner = nil
}

func (c *DependencyContext) addDependency(d *flagDispatcher) {
	for _, dep := range c.dependencies {
		if dep == d {
			return
		}
	}
	c.dependencies = append(c.dependencies, d)
}

func currentCollector() *DependencyContext {
	if n := len(collecting.stack); n > 0 {
		return collecting.stack[n-1]
	}
	return nil
}

// IsCollecting reports whether any context is currently collecting.
func IsCollecting() bool {
	return len(collecting.stack) > 0
}
