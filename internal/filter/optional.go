package filter

// Optional holds either no value or exactly one value of T. The zero value is unset.
type Optional[T any] struct {
	value T
	set   bool
}

func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, set: true}
}

func None[T any]() Optional[T] {
	return Optional[T]{}
}

func (o Optional[T]) Get() (T, bool) {
	return o.value, o.set
}

func (o Optional[T]) IsSet() bool {
	return o.set
}

func (o Optional[T]) OrElse(fallback T) T {
	if o.set {
		return o.value
	}
	return fallback
}

type number interface {
	~int | ~int64 | ~float64
}

// Range is an inclusive interval where either bound may be unset
type Range[T number] struct {
	Min Optional[T]
	Max Optional[T]
}

func Between[T number](lo, hi T) Range[T] {
	return Range[T]{Min: Some(lo), Max: Some(hi)}
}

func (r Range[T]) IsSet() bool {
	return r.Min.IsSet() || r.Max.IsSet()
}

// Contains reports whether v lies inside the range, unset bounds being open
func (r Range[T]) Contains(v T) bool {
	if lo, ok := r.Min.Get(); ok && v < lo {
		return false
	}
	if hi, ok := r.Max.Get(); ok && v > hi {
		return false
	}
	return true
}
