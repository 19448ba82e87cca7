package backtest

import "iter"

// Window pairs an element with its successor. HasNext is false for the last element.
type Window[T any] struct {
	Current T
	Next    T
	HasNext bool
}

// Pairwise walks seq with one element of look-ahead.
func Pairwise[T any](seq iter.Seq[T]) iter.Seq[Window[T]] {
	return func(yield func(Window[T]) bool) {
		var prev T
		have := false
		for v := range seq {
			if have && !yield(Window[T]{Current: prev, Next: v, HasNext: true}) {
				return
			}
			prev, have = v, true
		}
		if have {
			yield(Window[T]{Current: prev})
		}
	}
}
