package rrcf

import (
	"fmt"
	"math"
	"math/rand"
)

// ShingledTree is a robust random cut tree over sliding windows of a shared
// scalar buffer. It upholds the same contract as Tree but its leaves store
// only a window start index, and every branch carries bit-packed bounding-box
// metadata so that descent reconstructs child boxes in O(d) per level instead
// of scanning the subtree's leaves.
//
// The tree caches its root bounding box. After any structural mutation the
// per-branch metadata and the root box are rebuilt bottom-up; the decoded
// boxes therefore always equal the exact per-subtree min/max over leaves.
//
// A ShingledTree is not safe for concurrent mutation.
type ShingledTree struct {
	root    shingledNode
	dims    int
	rng     *rand.Rand
	rootMin []float64
	rootMax []float64
}

// NewShingledTree creates an empty tree over windows of width shingleSize,
// drawing its cuts from rng.
func NewShingledTree(rng *rand.Rand, shingleSize int) *ShingledTree {
	assert(rng != nil, "tree requires a random source")
	assert(shingleSize > 0, "tree requires a positive shingle size")
	return &ShingledTree{dims: shingleSize, rng: rng}
}

// Dims returns the window width.
func (t *ShingledTree) Dims() int { return t.dims }

// Size returns the number of point occurrences in the tree, counting
// duplicates.
func (t *ShingledTree) Size() int {
	if t.root == nil {
		return 0
	}
	return t.root.count()
}

// MinBox returns a copy of the coordinate-wise minimum over all leaves, or
// nil for an empty tree.
func (t *ShingledTree) MinBox() []float64 {
	if t.rootMin == nil {
		return nil
	}
	out := make([]float64, t.dims)
	copy(out, t.rootMin)
	return out
}

// MaxBox returns a copy of the coordinate-wise maximum over all leaves, or
// nil for an empty tree.
func (t *ShingledTree) MaxBox() []float64 {
	if t.rootMax == nil {
		return nil
	}
	out := make([]float64, t.dims)
	copy(out, t.rootMax)
	return out
}

// InsertPoint inserts the window p and returns its leaf. Equal windows
// collapse into one leaf with incremented counts. The descent decodes the
// bounding box of each visited subtree from the branch metadata before
// drawing that level's cut.
func (t *ShingledTree) InsertPoint(p ShingledPoint) (*ShingledLeaf, error) {
	if p.Dims() != t.dims {
		return nil, fmt.Errorf("rrcf: inserting a %d-wide window into a tree of shingle size %d: %w", p.Dims(), t.dims, ErrDimensionMismatch)
	}

	if t.root == nil {
		leaf := &ShingledLeaf{point: p, num: 1}
		t.root = leaf
		t.rootMin = pointCoords(p)
		t.rootMax = pointCoords(p)
		return leaf, nil
	}

	if dup := t.FindLeaf(p); dup != nil {
		// Rebind the leaf to the newest equal window: when equal windows are
		// forgotten oldest first, the leaf's view stays readable until its
		// last occurrence is forgotten.
		dup.point = p
		updateShingledCountUpwards(dup, 1)
		return dup, nil
	}

	cur := t.root
	var parent *ShingledBranch
	var leaf *ShingledLeaf
	var branch *ShingledBranch
	useLeftSide := false
	depth := 0
	lo := make([]float64, t.dims)
	hi := make([]float64, t.dims)
	copy(lo, t.rootMin)
	copy(hi, t.rootMax)
	for {
		c := insertPointCut(t.rng, p, lo, hi)
		if c.Value < lo[c.Dim] {
			leaf = &ShingledLeaf{point: p, num: 1, depth: depth + 1}
			branch = t.newBranch(c, leaf, cur)
			break
		} else if c.Value >= hi[c.Dim] && p.At(c.Dim) > c.Value {
			leaf = &ShingledLeaf{point: p, num: 1, depth: depth + 1}
			branch = t.newBranch(c, cur, leaf)
			break
		} else {
			b, ok := cur.(*ShingledBranch)
			assert(ok, "cut descended into a leaf")
			parent = b
			depth++
			if p.At(b.cut.Dim) <= b.cut.Value {
				b.decodeChildBox(lo, hi, true)
				cur = b.left
				useLeftSide = true
			} else {
				b.decodeChildBox(lo, hi, false)
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
	adjustShingledLeafDepths(cur, 1)
	updateShingledCountUpwards(shingledParentOrNil(parent), 1)
	t.populateBoundingBoxes()
	return leaf, nil
}

// newBranch allocates a branch over the two children with empty box metadata;
// populateBoundingBoxes fills the metadata before the operation returns.
func (t *ShingledTree) newBranch(c Cut, left, right shingledNode) *ShingledBranch {
	return &ShingledBranch{
		cut:    c,
		left:   left,
		right:  right,
		num:    left.count() + right.count(),
		minDir: newBitset(t.dims),
		minVal: make([]float64, t.dims),
		maxDir: newBitset(t.dims),
		maxVal: make([]float64, t.dims),
	}
}

// ForgetPoint removes one occurrence of the window p and returns its former
// leaf. Returns ErrNotFound if no leaf on the query path stores an equal
// window.
func (t *ShingledTree) ForgetPoint(p ShingledPoint) (*ShingledLeaf, error) {
	leaf := t.FindLeaf(p)
	if leaf == nil {
		return nil, fmt.Errorf("rrcf: forgetting a point that is not in the tree: %w", ErrNotFound)
	}

	if leaf.num > 1 {
		updateShingledCountUpwards(leaf, -1)
		return leaf, nil
	}

	if t.root == shingledNode(leaf) {
		t.root = nil
		t.rootMin = nil
		t.rootMax = nil
		return leaf, nil
	}

	parent := leaf.parent
	sib := shingledSibling(leaf)

	if t.root == shingledNode(parent) {
		sib.setParent(nil)
		leaf.parent = nil
		t.root = sib
		adjustShingledLeafDepths(sib, -1)
		t.populateBoundingBoxes()
		return leaf, nil
	}

	grandparent := parent.parent
	sib.setParent(grandparent)
	if grandparent.left == shingledNode(parent) {
		grandparent.left = sib
	} else {
		grandparent.right = sib
	}
	leaf.parent = nil
	adjustShingledLeafDepths(sib, -1)
	updateShingledCountUpwards(grandparent, -1)
	t.populateBoundingBoxes()
	return leaf, nil
}

// Query descends from the root by comparing p against each branch's cut and
// returns the leaf reached. Returns nil on an empty tree.
func (t *ShingledTree) Query(p ShingledPoint) *ShingledLeaf {
	cur := t.root
	if cur == nil {
		return nil
	}
	for {
		b, ok := cur.(*ShingledBranch)
		if !ok {
			return cur.(*ShingledLeaf)
		}
		if p.At(b.cut.Dim) <= b.cut.Value {
			cur = b.left
		} else {
			cur = b.right
		}
	}
}

// FindLeaf returns the leaf storing a window equal to p, or nil. Like the
// general variant, the lookup follows the query descent and may miss a window
// whose insertion path was restructured afterwards.
func (t *ShingledTree) FindLeaf(p ShingledPoint) *ShingledLeaf {
	nearest := t.Query(p)
	if nearest != nil && pointsEqual(nearest.point, p) {
		return nearest
	}
	return nil
}

// CollusiveDisplacement returns the maximum sibling-to-self count ratio over
// the leaf-to-root walk, floor-divided; 0 when the leaf is the root.
func (t *ShingledTree) CollusiveDisplacement(leaf *ShingledLeaf) int {
	if t.root == shingledNode(leaf) {
		return 0
	}
	maxResult := 0
	var cur shingledNode = leaf
	for {
		parent := cur.parentShingledBranch()
		if parent == nil {
			break
		}
		displacement := shingledSibling(cur).count() / cur.count()
		if displacement > maxResult {
			maxResult = displacement
		}
		cur = parent
	}
	return maxResult
}

// MapLeaves calls fn for every leaf, left subtrees first.
func (t *ShingledTree) MapLeaves(fn func(*ShingledLeaf)) {
	mapShingledLeavesFrom(t.root, fn)
}

func mapShingledLeavesFrom(n shingledNode, fn func(*ShingledLeaf)) {
	switch v := n.(type) {
	case *ShingledLeaf:
		fn(v)
	case *ShingledBranch:
		mapShingledLeavesFrom(v.left, fn)
		mapShingledLeavesFrom(v.right, fn)
	}
}

// MapBranches calls fn for every branch in post-order.
func (t *ShingledTree) MapBranches(fn func(*ShingledBranch)) {
	mapShingledBranchesFrom(t.root, fn)
}

func mapShingledBranchesFrom(n shingledNode, fn func(*ShingledBranch)) {
	if b, ok := n.(*ShingledBranch); ok {
		mapShingledBranchesFrom(b.left, fn)
		mapShingledBranchesFrom(b.right, fn)
		fn(b)
	}
}

// populateBoundingBoxes rebuilds every branch's packed box metadata and the
// cached root box bottom-up. This is the reference box-maintenance strategy;
// an incremental path must match it exactly to replace it. O(n*d).
func (t *ShingledTree) populateBoundingBoxes() {
	if t.root == nil {
		t.rootMin = nil
		t.rootMax = nil
		return
	}
	lo, hi := populateFrom(t.root)
	t.rootMin = lo
	t.rootMax = hi
}

// populateFrom recomputes metadata in n's subtree and returns its box.
func populateFrom(n shingledNode) (lo, hi []float64) {
	switch v := n.(type) {
	case *ShingledLeaf:
		return pointCoords(v.point), pointCoords(v.point)
	case *ShingledBranch:
		leftLo, leftHi := populateFrom(v.left)
		rightLo, rightHi := populateFrom(v.right)
		v.encodeChildBoxes(leftLo, leftHi, rightLo, rightHi)
		lo = make([]float64, len(leftLo))
		hi = make([]float64, len(leftHi))
		for i := range lo {
			lo[i] = math.Min(leftLo[i], rightLo[i])
			hi[i] = math.Max(leftHi[i], rightHi[i])
		}
		return lo, hi
	}
	assert(false, "unknown node variant")
	return nil, nil
}

// String renders the tree with box-drawing glyphs. Every branch line carries
// its cut and decoded bounding box; the skeleton is byte-identical to the
// general variant's rendering of the same structure.
func (t *ShingledTree) String() string {
	if t.root == nil {
		return ""
	}
	w := newTreeWriter()
	lo := make([]float64, t.dims)
	hi := make([]float64, t.dims)
	copy(lo, t.rootMin)
	copy(hi, t.rootMax)
	t.writeNode(w, t.root, lo, hi)
	return w.String()
}

func (t *ShingledTree) writeNode(w *treeWriter, n shingledNode, lo, hi []float64) {
	switch v := n.(type) {
	case *ShingledLeaf:
		w.text("(" + formatVector(pointCoords(v.point)) + ")\n")
	case *ShingledBranch:
		w.text(fmt.Sprintf("─+ cut: (%d, %s), box: (%s, %s)\n",
			v.cut.Dim, formatFloat(v.cut.Value), formatVector(lo), formatVector(hi)))
		childLo := make([]float64, len(lo))
		childHi := make([]float64, len(hi))

		copy(childLo, lo)
		copy(childHi, hi)
		v.decodeChildBox(childLo, childHi, true)
		w.connector(true)
		t.writeNode(w, v.left, childLo, childHi)
		w.pop()

		copy(childLo, lo)
		copy(childHi, hi)
		v.decodeChildBox(childLo, childHi, false)
		w.connector(false)
		t.writeNode(w, v.right, childLo, childHi)
		w.pop()
	}
}
