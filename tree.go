package rrcf

import (
	"fmt"
	"math"
	"math/rand"
)

// Tree is a robust random cut tree over full d-dimensional points. It
// supports online insertion and forgetting of points and computes the
// collusive displacement anomaly score for any of its leaves.
//
// The general variant stores a complete point view at every leaf and
// recomputes subtree bounding boxes from the leaves whenever one is needed.
// For the memory-optimized variant over a scalar stream, see ShingledTree.
//
// A Tree is not safe for concurrent mutation.
type Tree struct {
	root node
	dims int
	rng  *rand.Rand
}

// NewTree creates an empty tree for points of the given dimensionality,
// drawing its cuts from rng.
func NewTree(rng *rand.Rand, dims int) *Tree {
	assert(rng != nil, "tree requires a random source")
	assert(dims > 0, "tree requires a positive dimension")
	return &Tree{dims: dims, rng: rng}
}

// Dims returns the tree's point dimensionality.
func (t *Tree) Dims() int { return t.dims }

// Size returns the number of point occurrences in the tree, counting
// duplicates.
func (t *Tree) Size() int {
	if t.root == nil {
		return 0
	}
	return t.root.count()
}

// InsertPoint inserts p and returns its leaf. If a leaf storing an equal
// point exists on the query path, its count and every ancestor count are
// incremented instead of growing the tree. Otherwise a new leaf splits off
// from the subtree selected by a sequence of random cuts.
func (t *Tree) InsertPoint(p Point) (*Leaf, error) {
	if p.Dims() != t.dims {
		return nil, fmt.Errorf("rrcf: inserting a %d-dimensional point into a %d-dimensional tree: %w", p.Dims(), t.dims, ErrDimensionMismatch)
	}

	if t.root == nil {
		leaf := &Leaf{point: p, num: 1}
		t.root = leaf
		return leaf, nil
	}

	if dup := t.FindLeaf(p); dup != nil {
		updateLeafCountUpwards(dup, 1)
		return dup, nil
	}

	cur := t.root
	var parent *Branch
	var leaf *Leaf
	var branch *Branch
	useLeftSide := false
	depth := 0
	for {
		lo, hi := t.subtreeBox(cur)
		c := insertPointCut(t.rng, p, lo, hi)
		if c.Value < lo[c.Dim] {
			// p lies strictly left of the subtree's projection: wrap the
			// subtree with the new leaf on the left.
			leaf = &Leaf{point: p, num: 1, depth: depth + 1}
			branch = &Branch{cut: c, left: leaf, right: cur, num: leaf.num + cur.count()}
			break
		} else if c.Value >= hi[c.Dim] && p.At(c.Dim) > c.Value {
			// Symmetric right escape; the strict form keeps the boundary
			// consistent with the descend rule (<= goes left).
			leaf = &Leaf{point: p, num: 1, depth: depth + 1}
			branch = &Branch{cut: c, left: cur, right: leaf, num: leaf.num + cur.count()}
			break
		} else {
			b, ok := cur.(*Branch)
			assert(ok, "cut descended into a leaf")
			parent = b
			depth++
			if p.At(b.cut.Dim) <= b.cut.Value {
				cur = b.left
				useLeftSide = true
			} else {
				cur = b.right
				useLeftSide = false
			}
		}
	}

	assert(branch != nil, "insertion found no cut")
	cur.setParent(branch)
	leaf.parent = branch
	branch.parent = parent
	if parent != nil {
		if useLeftSide {
			parent.left = branch
		} else {
			parent.right = branch
		}
	} else {
		t.root = branch
	}
	adjustLeafDepths(cur, 1)
	updateLeafCountUpwards(leafParentOrNil(parent), 1)
	return leaf, nil
}

// ForgetPoint removes one occurrence of p and returns its former leaf. When
// the leaf holds duplicates only the counts decrease; otherwise the leaf is
// deleted and its sibling is promoted into the parent's slot. Returns
// ErrNotFound if no leaf on the query path stores an equal point.
func (t *Tree) ForgetPoint(p Point) (*Leaf, error) {
	leaf := t.FindLeaf(p)
	if leaf == nil {
		return nil, fmt.Errorf("rrcf: forgetting a point that is not in the tree: %w", ErrNotFound)
	}

	if leaf.num > 1 {
		updateLeafCountUpwards(leaf, -1)
		return leaf, nil
	}

	if t.root == node(leaf) {
		t.root = nil
		return leaf, nil
	}

	parent := leaf.parent
	sib := sibling(leaf)

	if t.root == node(parent) {
		sib.setParent(nil)
		leaf.parent = nil
		t.root = sib
		adjustLeafDepths(sib, -1)
		return leaf, nil
	}

	grandparent := parent.parent
	sib.setParent(grandparent)
	if grandparent.left == node(parent) {
		grandparent.left = sib
	} else {
		grandparent.right = sib
	}
	leaf.parent = nil
	adjustLeafDepths(sib, -1)
	updateLeafCountUpwards(grandparent, -1)
	return leaf, nil
}

// Query descends from the root by comparing p against each branch's cut and
// returns the leaf reached. The returned leaf does not necessarily store a
// point equal to p. Returns nil on an empty tree.
func (t *Tree) Query(p Point) *Leaf {
	cur := t.root
	if cur == nil {
		return nil
	}
	for {
		b, ok := cur.(*Branch)
		if !ok {
			return cur.(*Leaf)
		}
		if p.At(b.cut.Dim) <= b.cut.Value {
			cur = b.left
		} else {
			cur = b.right
		}
	}
}

// FindLeaf returns the leaf storing a point equal to p, or nil. The lookup
// follows the query descent, so a point whose insertion path was restructured
// afterwards may not be found even though it is in the tree.
func (t *Tree) FindLeaf(p Point) *Leaf {
	nearest := t.Query(p)
	if nearest != nil && pointsEqual(nearest.point, p) {
		return nearest
	}
	return nil
}

// CollusiveDisplacement estimates how structurally disruptive removing the
// leaf (together with a colluding subtree) would be: the maximum
// sibling-to-self count ratio over the leaf-to-root walk, floor-divided.
// Returns 0 when the leaf is the root.
func (t *Tree) CollusiveDisplacement(leaf *Leaf) int {
	if t.root == node(leaf) {
		return 0
	}
	maxResult := 0
	var cur node = leaf
	for {
		parent := cur.parentBranch()
		if parent == nil {
			break
		}
		displacement := sibling(cur).count() / cur.count()
		if displacement > maxResult {
			maxResult = displacement
		}
		cur = parent
	}
	return maxResult
}

// MapLeaves calls fn for every leaf, left subtrees first.
func (t *Tree) MapLeaves(fn func(*Leaf)) {
	mapLeavesFrom(t.root, fn)
}

func mapLeavesFrom(n node, fn func(*Leaf)) {
	switch v := n.(type) {
	case *Leaf:
		fn(v)
	case *Branch:
		mapLeavesFrom(v.left, fn)
		mapLeavesFrom(v.right, fn)
	}
}

// MapBranches calls fn for every branch in post-order.
func (t *Tree) MapBranches(fn func(*Branch)) {
	mapBranchesFrom(t.root, fn)
}

func mapBranchesFrom(n node, fn func(*Branch)) {
	if b, ok := n.(*Branch); ok {
		mapBranchesFrom(b.left, fn)
		mapBranchesFrom(b.right, fn)
		fn(b)
	}
}

// subtreeBox computes the bounding box of n's subtree from its leaves.
// O(subtree size).
func (t *Tree) subtreeBox(n node) (lo, hi []float64) {
	lo = make([]float64, t.dims)
	hi = make([]float64, t.dims)
	for i := range lo {
		lo[i] = math.Inf(1)
		hi[i] = math.Inf(-1)
	}
	mapLeavesFrom(n, func(l *Leaf) {
		for i := 0; i < t.dims; i++ {
			v := l.point.At(i)
			if v < lo[i] {
				lo[i] = v
			}
			if v > hi[i] {
				hi[i] = v
			}
		}
	})
	return lo, hi
}

// String renders the tree with box-drawing glyphs for golden-test
// comparison. Branches render as a bare "─+" line; leaves render their
// coordinates. Returns the empty string for an empty tree.
func (t *Tree) String() string {
	if t.root == nil {
		return ""
	}
	w := newTreeWriter()
	t.writeNode(w, t.root)
	return w.String()
}

func (t *Tree) writeNode(w *treeWriter, n node) {
	switch v := n.(type) {
	case *Leaf:
		w.text("(" + formatVector(pointCoords(v.point)) + ")\n")
	case *Branch:
		w.text("─+\n")
		w.connector(true)
		t.writeNode(w, v.left)
		w.pop()
		w.connector(false)
		t.writeNode(w, v.right)
		w.pop()
	}
}
