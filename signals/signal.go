package signals

import (
	"github.com/fogleman/ease"

	"github.com/matt-g-everett/ledmotion/flow"
	"github.com/matt-g-everett/ledmotion/gen"
)

// TimingFunction maps linear progress in [0, 1] to eased progress.
type TimingFunction func(t float64) float64

// Interpolation blends two values at progress t.
type Interpolation[T any] func(from, to T, t float64) T

// Value is the raw content of a signal: either a constant or a producer
// that is re-run whenever something it read changes.
type Value[T any] struct {
	Constant T
	Producer func() T
}

// Const wraps a constant value.
func Const[T any](v T) *Value[T] {
	return &Value[T]{Constant: v}
}

// Func wraps a producer function.
func Func[T any](fn func() T) *Value[T] {
	return &Value[T]{Producer: fn}
}

// IsReactive reports whether the value is computed by a producer.
func (v *Value[T]) IsReactive() bool {
	return v != nil && v.Producer != nil
}

// Extensions lets a signal type replace how it is read, written and
// tweened. Nil hooks fall back to the base implementation.
type Extensions[T any] struct {
	Getter  func() T
	Setter  func(raw *Value[T])
	Tweener func(co *gen.Co, to T, seconds float64, timing TimingFunction, interp Interpolation[T]) error
}

// Option configures a Signal.
type Option[T any] func(s *Signal[T])

// WithOwner records the entity the signal belongs to.
func WithOwner[T any](owner any) Option[T] {
	return func(s *Signal[T]) { s.owner = owner }
}

// WithParser sets the hook every constant passes through before caching.
func WithParser[T any](parse func(T) T) Option[T] {
	return func(s *Signal[T]) { s.parser = parse }
}

// WithInterpolation sets the default interpolation used by tweens.
func WithInterpolation[T any](interp Interpolation[T]) Option[T] {
	return func(s *Signal[T]) { s.interpolation = interp }
}

// WithEquality lets constant writes of an equal value be recognized, both
// to skip redundant invalidation and in IsInitial.
func WithEquality[T any](equal func(a, b T) bool) Option[T] {
	return func(s *Signal[T]) { s.equal = equal }
}

// WithExtensions overrides the getter, setter or tweener.
func WithExtensions[T any](ext Extensions[T]) Option[T] {
	return func(s *Signal[T]) { s.ext = ext }
}

// Signal is a gettable, settable and tweenable reactive cell.
type Signal[T any] struct {
	DependencyContext
	initial       *Value[T]
	current       *Value[T]
	last          T
	parser        func(T) T
	interpolation Interpolation[T]
	equal         func(a, b T) bool
	ext           Extensions[T]
	tweening      bool
}

// New creates a signal holding a constant.
func New[T any](initial T, opts ...Option[T]) *Signal[T] {
	return newSignal(Const(initial), opts)
}

// NewFunc creates a computed signal.
func NewFunc[T any](fn func() T, opts ...Option[T]) *Signal[T] {
	return newSignal(Func(fn), opts)
}

func newSignal[T any](initial *Value[T], opts []Option[T]) *Signal[T] {
	s := new(Signal[T])
	for _, opt := range opts {
		opt(s)
	}
	if s.interpolation == nil {
		s.interpolation = Discrete[T]
	}
	if s.ext.Getter == nil {
		s.ext.Getter = s.getter
	}
	if s.ext.Setter == nil {
		s.ext.Setter = s.setter
	}
	if s.ext.Tweener == nil {
		s.ext.Tweener = s.tweener
	}

	s.initial = initial
	s.current = initial
	if !initial.IsReactive() {
		s.last = s.parse(initial.Constant)
	}
	s.MarkDirty()
	return s
}

// Equal is an equality function for comparable types.
func Equal[T comparable](a, b T) bool {
	return a == b
}

// Discrete jumps from one value to the other at the end of a tween.
func Discrete[T any](from, to T, t float64) T {
	if t < 1 {
		return from
	}
	return to
}

// Lerp interpolates numbers linearly.
func Lerp(from, to, t float64) float64 {
	return from + (to-from)*t
}

// Number creates a numeric signal that tweens linearly.
func Number(initial float64, opts ...Option[float64]) *Signal[float64] {
	base := []Option[float64]{WithInterpolation[float64](Lerp), WithEquality[float64](Equal[float64])}
	return New(initial, append(base, opts...)...)
}

func (s *Signal[T]) parse(v T) T {
	if s.parser == nil {
		return v
	}
	return s.parser(v)
}

func (s *Signal[T]) same(a, b *Value[T]) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil || a.IsReactive() || b.IsReactive() || s.equal == nil {
		return false
	}
	return s.equal(a.Constant, b.Constant)
}

// Get returns the current value, recomputing it if anything it depends on
// changed. A circular dependency panics with *CircularDependencyError.
func (s *Signal[T]) Get() T {
	return s.ext.Getter()
}

// Set replaces the value with a constant.
func (s *Signal[T]) Set(v T) {
	s.ext.Setter(Const(v))
}

// SetFunc replaces the value with a producer.
func (s *Signal[T]) SetFunc(fn func() T) {
	s.ext.Setter(Func(fn))
}

// SetRaw writes a raw value as is.
func (s *Signal[T]) SetRaw(raw *Value[T]) {
	s.ext.Setter(raw)
}

func (s *Signal[T]) getter() T {
	if s.event.raised && s.current.IsReactive() {
		s.ClearDependencies()
		if err := s.StartCollecting(); err != nil {
			panic(err)
		}
		func() {
			defer s.FinishCollecting()
			s.last = s.parse(s.current.Producer())
		}()
	}
	s.event.reset()
	s.Collect()
	return s.last
}

func (s *Signal[T]) setter(raw *Value[T]) {
	if s.same(s.current, raw) {
		return
	}
	s.current = raw
	s.ClearDependencies()
	if !raw.IsReactive() {
		s.last = s.parse(raw.Constant)
	}
	s.MarkDirty()
}

// Reset restores the value the signal was created with.
func (s *Signal[T]) Reset() {
	if s.initial != nil {
		s.ext.Setter(s.initial)
	}
}

// Save freezes the current computed value as a constant.
func (s *Signal[T]) Save() {
	s.Set(s.Get())
}

// IsInitial reports whether the raw value is still the initial one.
func (s *Signal[T]) IsInitial() bool {
	s.Collect()
	return s.same(s.current, s.initial)
}

// Initial returns the raw value the signal was created with.
func (s *Signal[T]) Initial() *Value[T] {
	return s.initial
}

// Raw returns the raw current value without evaluating it.
func (s *Signal[T]) Raw() *Value[T] {
	return s.current
}

// IsTweening reports whether a tween is currently writing the signal.
func (s *Signal[T]) IsTweening() bool {
	return s.tweening
}

// Interpolation returns the default interpolation of the signal.
func (s *Signal[T]) Interpolation() Interpolation[T] {
	return s.interpolation
}

// Dispose detaches the signal from the dependency graph.
func (s *Signal[T]) Dispose() {
	s.DependencyContext.Dispose()
	s.initial = nil
	s.current = nil
	var zero T
	s.last = zero
}

// Tween starts an animation chain towards to using the default timing
// function and interpolation.
func (s *Signal[T]) Tween(to T, seconds float64) *Chain[T] {
	return s.TweenWith(to, seconds, nil, nil)
}

// TweenWith starts an animation chain with explicit timing and
// interpolation. Nil arguments select the defaults.
func (s *Signal[T]) TweenWith(to T, seconds float64, timing TimingFunction, interp Interpolation[T]) *Chain[T] {
	if timing == nil {
		timing = ease.InOutCubic
	}
	if interp == nil {
		interp = s.interpolation
	}
	c := &Chain[T]{signal: s, initial: s.Get(), timing: timing, interp: interp}
	return c.ToWith(to, seconds, timing, interp)
}

func (s *Signal[T]) tween(co *gen.Co, to T, seconds float64, timing TimingFunction, interp Interpolation[T]) error {
	s.tweening = true
	defer func() { s.tweening = false }()
	if err := s.ext.Tweener(co, to, seconds, timing, interp); err != nil {
		return err
	}
	s.Set(to)
	return nil
}

func (s *Signal[T]) tweener(co *gen.Co, to T, seconds float64, timing TimingFunction, interp Interpolation[T]) error {
	from := s.Get()
	target := s.parse(to)
	return flow.Tween(co, seconds, func(progress, _ float64) {
		s.Set(interp(from, target, timing(progress)))
	})
}
