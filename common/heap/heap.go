// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package heap

import "container/heap"

// Heap is a generic priority queue. The element ranked highest by the
// comparison function is retrieved first. The zero value is an empty heap
// retrieving elements in an unspecified order.
type Heap[T any] struct {
	data data[T]
}

// New creates a heap ordering its elements using the given comparison. The
// function must return a positive value if a has a higher priority than b, a
// negative value if b has a higher priority, and zero otherwise.
func New[T any](cmp func(a, b T) int) Heap[T] {
	return Heap[T]{data: data[T]{cmp: cmp}}
}

// Add inserts a new element into the heap.
func (h *Heap[T]) Add(element T) {
	heap.Push(&h.data, element)
}

// Peek returns the element with the highest priority without removing it.
func (h *Heap[T]) Peek() (T, bool) {
	if len(h.data.elements) == 0 {
		var zero T
		return zero, false
	}
	return h.data.elements[0], true
}

// Pop removes and returns the element with the highest priority.
func (h *Heap[T]) Pop() (T, bool) {
	if len(h.data.elements) == 0 {
		var zero T
		return zero, false
	}
	return heap.Pop(&h.data).(T), true
}

// Size returns the number of elements in the heap.
func (h *Heap[T]) Size() int {
	return len(h.data.elements)
}

// Elements returns the elements of the heap in an unspecified order.
func (h *Heap[T]) Elements() []T {
	res := make([]T, len(h.data.elements))
	copy(res, h.data.elements)
	return res
}

type data[T any] struct {
	elements []T
	cmp      func(a, b T) int
}

func (d *data[T]) Len() int {
	return len(d.elements)
}

func (d *data[T]) Less(i, j int) bool {
	if d.cmp == nil {
		return false
	}
	return d.cmp(d.elements[i], d.elements[j]) > 0
}

func (d *data[T]) Swap(i, j int) {
	d.elements[i], d.elements[j] = d.elements[j], d.elements[i]
}

func (d *data[T]) Push(x any) {
	d.elements = append(d.elements, x.(T))
}

func (d *data[T]) Pop() any {
	last := len(d.elements) - 1
	res := d.elements[last]
	var zero T
	d.elements[last] = zero
	d.elements = d.elements[:last]
	return res
}
