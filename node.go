package rrcf

// node is the tagged Leaf/Branch variant of the general tree. Child links are
// owning (parent to child); the parent link is a pure back-reference and is
// nil exactly at the root.
type node interface {
	parentBranch() *Branch
	setParent(b *Branch)
	count() int
}

// Leaf is a terminal node storing one point view. Value-equal duplicates
// collapse into a single leaf with num > 1.
type Leaf struct {
	point  Point
	num    int
	depth  int
	parent *Branch
}

// Point returns the stored point view.
func (l *Leaf) Point() Point { return l.point }

// Num returns how many inserted occurrences this leaf represents.
func (l *Leaf) Num() int { return l.num }

// Depth returns the number of branches between this leaf and the root.
func (l *Leaf) Depth() int { return l.depth }

func (l *Leaf) parentBranch() *Branch { return l.parent }
func (l *Leaf) setParent(b *Branch)   { l.parent = b }
func (l *Leaf) count() int            { return l.num }

// Branch is an internal node carrying a cut and two children.
// num is the total leaf count of its subtree.
type Branch struct {
	cut    Cut
	left   node
	right  node
	num    int
	parent *Branch
}

// Cut returns the branch's splitting hyperplane.
func (b *Branch) Cut() Cut { return b.cut }

// Num returns the total number of point occurrences in the branch's subtree.
func (b *Branch) Num() int { return b.num }

func (b *Branch) parentBranch() *Branch { return b.parent }
func (b *Branch) setParent(p *Branch)   { b.parent = p }
func (b *Branch) count() int            { return b.num }

// sibling returns the other child of n's parent. n must not be the root.
func sibling(n node) node {
	p := n.parentBranch()
	assert(p != nil, "sibling of the root does not exist")
	if p.left == n {
		return p.right
	}
	assert(p.right == n, "node is not a child of its parent")
	return p.left
}

// updateLeafCountUpwards adds delta to the counts of n and all its ancestors.
func updateLeafCountUpwards(n node, delta int) {
	for n != nil {
		switch v := n.(type) {
		case *Leaf:
			v.num += delta
			n = leafParentOrNil(v.parent)
		case *Branch:
			v.num += delta
			n = leafParentOrNil(v.parent)
		}
	}
}

// leafParentOrNil converts a possibly-nil *Branch into a possibly-nil node.
// A plain conversion of a nil *Branch would produce a non-nil interface.
func leafParentOrNil(b *Branch) node {
	if b == nil {
		return nil
	}
	return b
}

// adjustLeafDepths adds delta to the depth of every leaf in n's subtree.
func adjustLeafDepths(n node, delta int) {
	switch v := n.(type) {
	case *Leaf:
		v.depth += delta
	case *Branch:
		adjustLeafDepths(v.left, delta)
		adjustLeafDepths(v.right, delta)
	}
}
