package contracts

// Optional holds a value that may be absent on the wire.
// The zero value is unset.
type Optional[T any] struct {
	value T
	set   bool
}

// Some wraps a present value
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, set: true}
}

// None returns an unset optional
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// FromPtr converts a pointer into an optional, nil being unset
func FromPtr[T any](v *T) Optional[T] {
	if v == nil {
		return None[T]()
	}
	return Some(*v)
}

// Get returns the value and whether it is set
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.set
}

// IsSet reports whether a value is present
func (o Optional[T]) IsSet() bool {
	return o.set
}

// OrElse returns the value, or def when unset
func (o Optional[T]) OrElse(def T) T {
	if o.set {
		return o.value
	}
	return def
}

// EqualFunc compares two optionals: both unset, or both set and equal by eq
func (o Optional[T]) EqualFunc(other Optional[T], eq func(a, b T) bool) bool {
	if o.set != other.set {
		return false
	}
	if !o.set {
		return true
	}
	return eq(o.value, other.value)
}

// OptionalEqual compares optionals of comparable values
func OptionalEqual[T comparable](a, b Optional[T]) bool {
	return a.EqualFunc(b, func(x, y T) bool { return x == y })
}
