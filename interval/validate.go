package interval

import (
	"fmt"
	"math"
)

// Validate walks the whole tree and checks the parent links, the ordering of
// starts, the stored heights and maxima, and the AVL balance factor of every
// node. It is linear in the size of the tree.
func (t *Tree[E]) Validate() error {
	if t.root != nil && t.root.parent != nil {
		return fmt.Errorf("root has a parent")
	}

	count := 0
	if _, _, err := t.root.validate(&count, math.Inf(-1), math.Inf(1)); err != nil {
		return err
	}
	if count != t.length {
		return fmt.Errorf("length is %d but the tree holds %d nodes", t.length, count)
	}

	return nil
}

// validate checks the subtree rooted at n. Every start in it must lie within
// [lo, hi], the bounds inherited from its ancestors.
func (n *node[E]) validate(count *int, lo, hi float64) (int, float64, error) {
	if n == nil {
		return -1, 0, nil
	}
	*count++

	for _, child := range []*node[E]{n.left, n.right} {
		if child != nil && child.parent != n {
			return 0, 0, fmt.Errorf("node [%v, %v) has a child with a stale parent link", n.low, n.high)
		}
	}
	if n.low < lo || n.low > hi {
		return 0, 0, fmt.Errorf("node starts at %v outside the range [%v, %v] of its ancestors", n.low, lo, hi)
	}

	lh, lmax, err := n.left.validate(count, lo, n.low)
	if err != nil {
		return 0, 0, err
	}
	rh, rmax, err := n.right.validate(count, n.low, hi)
	if err != nil {
		return 0, 0, err
	}

	h := 1 + intMax(lh, rh)
	if h != n.height {
		return 0, 0, fmt.Errorf("node at %v stores height %d, want %d", n.low, n.height, h)
	}
	if balance := lh - rh; balance > 1 || balance < -1 {
		return 0, 0, fmt.Errorf("node at %v has balance factor %d", n.low, balance)
	}

	max := n.high
	if n.left != nil && lmax > max {
		max = lmax
	}
	if n.right != nil && rmax > max {
		max = rmax
	}
	if max != n.max {
		return 0, 0, fmt.Errorf("node at %v stores max %v, want %v", n.low, n.max, max)
	}

	return h, max, nil
}
