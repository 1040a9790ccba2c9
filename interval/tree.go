// Package interval provides a height-balanced (AVL) interval tree indexing
// half-open ranges [time, time+duration) for point-overlap queries.
//
// Every node stores the maximum right endpoint of its subtree, which lets a
// point query skip whole subtrees that end before the point.
package interval

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidInterval is returned when an event has no usable time or a negative duration.
var ErrInvalidInterval = errors.New("interval: events must have a time and a non-negative duration")

// Event is anything that occupies a range of time.
type Event interface {
	comparable
	Time() float64
	Duration() float64
}

// Tree is an AVL tree keyed by interval start.
type Tree[E Event] struct {
	root   *node[E]
	length int
}

type node[E Event] struct {
	event  E
	low    float64
	high   float64
	max    float64
	height int

	left, right *node[E]

	// parent is only used for walking back up to the root.
	parent *node[E]
}

// New creates an empty tree.
func New[E Event]() *Tree[E] {
	return &Tree[E]{}
}

// Len returns the number of intervals in the tree.
func (t *Tree[E]) Len() int {
	return t.length
}

// Height returns the height of the tree, -1 when it is empty.
func (t *Tree[E]) Height() int {
	return height(t.root)
}

// Add inserts the event's interval and rebalances every ancestor on the insertion path.
func (t *Tree[E]) Add(event E) error {
	low, duration := event.Time(), event.Duration()
	if math.IsNaN(low) || math.IsNaN(duration) || duration < 0 {
		return fmt.Errorf("%w: time=%v duration=%v", ErrInvalidInterval, low, duration)
	}

	n := &node[E]{
		event: event,
		low:   low,
		high:  low + duration,
		max:   low + duration,
	}

	if t.root == nil {
		t.root = n
	} else {
		current := t.root
		for {
			if n.low <= current.low {
				if current.left == nil {
					current.setLeft(n)
					break
				}
				current = current.left
			} else {
				if current.right == nil {
					current.setRight(n)
					break
				}
				current = current.right
			}
		}
	}

	t.length++
	t.rebalanceFrom(n)

	return nil
}

// Remove deletes the event from the tree and reports whether it was found.
func (t *Tree[E]) Remove(event E) bool {
	n := t.find(event)
	if n == nil {
		return false
	}

	t.removeNode(n)
	t.length--

	return true
}

// Search returns the events whose interval contains point, ordered by start.
func (t *Tree[E]) Search(point float64) []E {
	var nodes []*node[E]
	t.root.search(point, &nodes)
	return events(nodes)
}

// SearchAfter returns the events that start at or after point, ordered by start.
func (t *Tree[E]) SearchAfter(point float64) []E {
	var nodes []*node[E]
	t.root.searchAfter(point, &nodes)
	return events(nodes)
}

// ForEach visits every event in order of start. The tree may be modified from fn.
func (t *Tree[E]) ForEach(fn func(E) error) error {
	var nodes []*node[E]
	t.root.inOrder(&nodes)
	return visit(events(nodes), fn)
}

// ForEachAtTime visits every event whose interval contains point. The tree may be modified from fn.
func (t *Tree[E]) ForEachAtTime(point float64, fn func(E) error) error {
	return visit(t.Search(point), fn)
}

// ForEachAfter visits every event that starts at or after point. The tree may be modified from fn.
func (t *Tree[E]) ForEachAfter(point float64, fn func(E) error) error {
	return visit(t.SearchAfter(point), fn)
}

// Cancel removes every event that starts at or after the given time.
func (t *Tree[E]) Cancel(after float64) {
	for _, event := range t.SearchAfter(after) {
		t.Remove(event)
	}
}

// Clear removes every event.
func (t *Tree[E]) Clear() {
	t.root = nil
	t.length = 0
}

func visit[E Event](items []E, fn func(E) error) error {
	for _, item := range items {
		if err := fn(item); err != nil {
			return err
		}
	}
	return nil
}

func events[E Event](nodes []*node[E]) []E {
	out := make([]E, len(nodes))
	for i, n := range nodes {
		out[i] = n.event
	}
	return out
}

// find locates the node holding event with a point query at its own start.
// Empty intervals never contain their start, so those fall back to a walk
// over the nodes that share the start.
func (t *Tree[E]) find(event E) *node[E] {
	low := event.Time()

	var candidates []*node[E]
	t.root.search(low, &candidates)
	for _, n := range candidates {
		if n.event == event {
			return n
		}
	}

	return t.root.findExact(low, event)
}

func (n *node[E]) findExact(low float64, event E) *node[E] {
	if n == nil {
		return nil
	}

	switch {
	case low < n.low:
		return n.left.findExact(low, event)
	case low > n.low:
		return n.right.findExact(low, event)
	}

	if n.event == event {
		return n
	}
	if found := n.left.findExact(low, event); found != nil {
		return found
	}
	return n.right.findExact(low, event)
}

func (t *Tree[E]) removeNode(n *node[E]) {
	var start *node[E]

	switch {
	case n.left == nil && n.right == nil:
		start = n.parent
		t.replaceChild(n.parent, n, nil)
	case n.right == nil:
		start = n.parent
		t.replaceChild(n.parent, n, n.left)
	case n.left == nil:
		start = n.parent
		t.replaceChild(n.parent, n, n.right)
	default:
		// Two children: take the successor from the heavier side.
		var replacement *node[E]
		if n.balance() > 0 {
			replacement = n.left
			if replacement.right == nil {
				replacement.setRight(n.right)
				start = replacement
			} else {
				for replacement.right != nil {
					replacement = replacement.right
				}
				start = replacement.parent
				start.setRight(replacement.left)
				replacement.setLeft(n.left)
				replacement.setRight(n.right)
			}
		} else {
			replacement = n.right
			if replacement.left == nil {
				replacement.setLeft(n.left)
				start = replacement
			} else {
				for replacement.left != nil {
					replacement = replacement.left
				}
				start = replacement.parent
				start.setLeft(replacement.right)
				replacement.setLeft(n.left)
				replacement.setRight(n.right)
			}
		}
		t.replaceChild(n.parent, n, replacement)
	}

	n.left, n.right, n.parent = nil, nil, nil
	t.rebalanceFrom(start)
}

// rebalanceFrom recomputes height and max from n up to the root, rotating any node that is out of balance.
func (t *Tree[E]) rebalanceFrom(n *node[E]) {
	for n != nil {
		n.update()
		n = t.rebalance(n)
		n = n.parent
	}
}

// rebalance returns the node that occupies n's position afterwards.
func (t *Tree[E]) rebalance(n *node[E]) *node[E] {
	balance := n.balance()
	if balance > 1 {
		if n.left.balance() < 0 {
			t.rotateLeft(n.left)
		}
		return t.rotateRight(n)
	}
	if balance < -1 {
		if n.right.balance() > 0 {
			t.rotateRight(n.right)
		}
		return t.rotateLeft(n)
	}
	return n
}

func (t *Tree[E]) rotateLeft(n *node[E]) *node[E] {
	parent := n.parent
	pivot := n.right

	n.setRight(pivot.left)
	pivot.setLeft(n)
	t.replaceChild(parent, n, pivot)

	n.update()
	pivot.update()

	return pivot
}

func (t *Tree[E]) rotateRight(n *node[E]) *node[E] {
	parent := n.parent
	pivot := n.left

	n.setLeft(pivot.right)
	pivot.setRight(n)
	t.replaceChild(parent, n, pivot)

	n.update()
	pivot.update()

	return pivot
}

func (t *Tree[E]) replaceChild(parent, old, replacement *node[E]) {
	switch {
	case parent == nil:
		t.root = replacement
	case parent.left == old:
		parent.left = replacement
	default:
		parent.right = replacement
	}

	if replacement != nil {
		replacement.parent = parent
	}
}

func (n *node[E]) setLeft(child *node[E]) {
	n.left = child
	if child != nil {
		child.parent = n
	}
}

func (n *node[E]) setRight(child *node[E]) {
	n.right = child
	if child != nil {
		child.parent = n
	}
}

func (n *node[E]) update() {
	n.height = 1 + intMax(height(n.left), height(n.right))

	n.max = n.high
	if n.left != nil && n.left.max > n.max {
		n.max = n.left.max
	}
	if n.right != nil && n.right.max > n.max {
		n.max = n.right.max
	}
}

func (n *node[E]) balance() int {
	return height(n.left) - height(n.right)
}

func (n *node[E]) search(point float64, results *[]*node[E]) {
	if n == nil || point > n.max {
		return
	}

	n.left.search(point, results)

	if n.low <= point && point < n.high {
		*results = append(*results, n)
	}

	if n.low > point {
		return
	}

	n.right.search(point, results)
}

func (n *node[E]) searchAfter(point float64, results *[]*node[E]) {
	if n == nil {
		return
	}

	if n.low >= point {
		n.left.searchAfter(point, results)
		*results = append(*results, n)
	}

	n.right.searchAfter(point, results)
}

func (n *node[E]) inOrder(results *[]*node[E]) {
	if n == nil {
		return
	}
	n.left.inOrder(results)
	*results = append(*results, n)
	n.right.inOrder(results)
}

func height[E Event](n *node[E]) int {
	if n == nil {
		return -1
	}
	return n.height
}

func intMax(a, b int) int {
	if a > b {
		return a
	}
	return b
}
