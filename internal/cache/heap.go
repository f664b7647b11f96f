// Bookrec - User-Based Collaborative Filtering for Book Ratings
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookrec

package cache

// Heap is a binary min-heap ordered by less. The minimum element is the one
// for which less(x, y) holds against every other y.
//
// When maxLen > 0 the heap keeps at most maxLen elements, evicting the
// minimum on overflow. Ordering by "ranks worse" therefore retains the
// maxLen best elements, which is how top-K selection uses it.
//
// Heap is not safe for concurrent use.
type Heap[T any] struct {
	items  []T
	less   func(a, b T) bool
	maxLen int
}

// NewHeap creates a heap ordered by less with an optional bound (0 = unbounded).
func NewHeap[T any](less func(a, b T) bool, maxLen int) *Heap[T] {
	capHint := maxLen
	if capHint <= 0 {
		capHint = 16
	}
	return &Heap[T]{
		items:  make([]T, 0, capHint+1),
		less:   less,
		maxLen: maxLen,
	}
}

// Push adds v. If the heap was full, the minimum is removed and returned
// with true (this may be v itself).
func (h *Heap[T]) Push(v T) (T, bool) {
	if h.maxLen > 0 && len(h.items) >= h.maxLen {
		// Full: v only gets in if it beats the current minimum.
		if !h.less(h.items[0], v) {
			return v, true
		}
		evicted := h.items[0]
		h.items[0] = v
		h.bubbleDown(0)
		return evicted, true
	}

	h.items = append(h.items, v)
	h.bubbleUp(len(h.items) - 1)
	var zero T
	return zero, false
}

// Pop removes and returns the minimum.
func (h *Heap[T]) Pop() (T, bool) {
	var zero T
	n := len(h.items)
	if n == 0 {
		return zero, false
	}

	top := h.items[0]
	h.items[0] = h.items[n-1]
	h.items[n-1] = zero
	h.items = h.items[:n-1]
	if len(h.items) > 0 {
		h.bubbleDown(0)
	}
	return top, true
}

// Peek returns the minimum without removing it.
func (h *Heap[T]) Peek() (T, bool) {
	if len(h.items) == 0 {
		var zero T
		return zero, false
	}
	return h.items[0], true
}

// Len returns the number of elements.
func (h *Heap[T]) Len() int {
	return len(h.items)
}

// Drain pops every element and returns them in ascending order.
func (h *Heap[T]) Drain() []T {
	out := make([]T, 0, len(h.items))
	for len(h.items) > 0 {
		v, _ := h.Pop()
		out = append(out, v)
	}
	return out
}

// DrainDescending pops every element and returns them largest first.
func (h *Heap[T]) DrainDescending() []T {
	out := make([]T, len(h.items))
	for i := len(out) - 1; i >= 0; i-- {
		out[i], _ = h.Pop()
	}
	return out
}

func (h *Heap[T]) bubbleUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !h.less(h.items[i], h.items[parent]) {
			break
		}
		h.items[i], h.items[parent] = h.items[parent], h.items[i]
		i = parent
	}
}

func (h *Heap[T]) bubbleDown(i int) {
	n := len(h.items)
	for {
		smallest := i
		left := 2*i + 1
		right := 2*i + 2

		if left < n && h.less(h.items[left], h.items[smallest]) {
			smallest = left
		}
		if right < n && h.less(h.items[right], h.items[smallest]) {
			smallest = right
		}
		if smallest == i {
			return
		}

		h.items[i], h.items[smallest] = h.items[smallest], h.items[i]
		i = smallest
	}
}
