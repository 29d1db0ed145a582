package rrcf

import (
	"math"
	"math/rand"
	"testing"
)

// checkTreeInvariants verifies the structural invariants of a general tree:
// count consistency, partition correctness, parent back-references, and leaf
// depths.
func checkTreeInvariants(t *testing.T, tree *Tree) {
	t.Helper()
	if tree.root == nil {
		return
	}
	if tree.root.parentBranch() != nil {
		t.Fatalf("root has a parent")
	}
	checkNodeInvariants(t, tree.root, 0)
}

func checkNodeInvariants(t *testing.T, n node, depth int) {
	t.Helper()
	switch v := n.(type) {
	case *Leaf:
		if v.num < 1 {
			t.Fatalf("leaf has num %d, want >= 1", v.num)
		}
		if v.depth != depth {
			t.Errorf("leaf depth = %d, want %d", v.depth, depth)
		}
	case *Branch:
		if v.left == nil || v.right == nil {
			t.Fatalf("branch with nil child")
		}
		if v.left.parentBranch() != v || v.right.parentBranch() != v {
			t.Fatalf("child does not point back at its parent")
		}
		if v.num != v.left.count()+v.right.count() {
			t.Fatalf("branch num = %d, want %d + %d", v.num, v.left.count(), v.right.count())
		}
		mapLeavesFrom(v.left, func(l *Leaf) {
			if l.point.At(v.cut.Dim) > v.cut.Value {
				t.Errorf("left leaf coord %v > cut value %v on dim %d",
					l.point.At(v.cut.Dim), v.cut.Value, v.cut.Dim)
			}
		})
		mapLeavesFrom(v.right, func(l *Leaf) {
			if l.point.At(v.cut.Dim) <= v.cut.Value {
				t.Errorf("right leaf coord %v <= cut value %v on dim %d",
					l.point.At(v.cut.Dim), v.cut.Value, v.cut.Dim)
			}
		})
		checkNodeInvariants(t, v.left, depth+1)
		checkNodeInvariants(t, v.right, depth+1)
	}
}

// checkShingledInvariants verifies the structural invariants of a shingled
// tree plus box tightness: the boxes decoded top-down from the packed branch
// metadata must equal the exact per-subtree min/max over leaves, and the
// cached root box must cover all leaves exactly.
func checkShingledInvariants(t *testing.T, tree *ShingledTree) {
	t.Helper()
	if tree.root == nil {
		if tree.rootMin != nil || tree.rootMax != nil {
			t.Fatalf("empty tree still caches a root box")
		}
		return
	}
	if tree.root.parentShingledBranch() != nil {
		t.Fatalf("root has a parent")
	}

	wantLo, wantHi := bruteForceBox(tree.root, tree.dims)
	if !equalFloats(tree.rootMin, wantLo) || !equalFloats(tree.rootMax, wantHi) {
		t.Fatalf("root box = (%v, %v), want (%v, %v)", tree.rootMin, tree.rootMax, wantLo, wantHi)
	}

	lo := make([]float64, tree.dims)
	hi := make([]float64, tree.dims)
	copy(lo, tree.rootMin)
	copy(hi, tree.rootMax)
	checkShingledNodeInvariants(t, tree.root, lo, hi, tree.dims, 0)
}

func checkShingledNodeInvariants(t *testing.T, n shingledNode, lo, hi []float64, dims, depth int) {
	t.Helper()

	wantLo, wantHi := bruteForceBox(n, dims)
	if !equalFloats(lo, wantLo) || !equalFloats(hi, wantHi) {
		t.Fatalf("decoded box = (%v, %v), want (%v, %v)", lo, hi, wantLo, wantHi)
	}

	switch v := n.(type) {
	case *ShingledLeaf:
		if v.num < 1 {
			t.Fatalf("leaf has num %d, want >= 1", v.num)
		}
		if v.depth != depth {
			t.Errorf("leaf depth = %d, want %d", v.depth, depth)
		}
	case *ShingledBranch:
		if v.left == nil || v.right == nil {
			t.Fatalf("branch with nil child")
		}
		if v.left.parentShingledBranch() != v || v.right.parentShingledBranch() != v {
			t.Fatalf("child does not point back at its parent")
		}
		if v.num != v.left.count()+v.right.count() {
			t.Fatalf("branch num = %d, want %d + %d", v.num, v.left.count(), v.right.count())
		}
		mapShingledLeavesFrom(v.left, func(l *ShingledLeaf) {
			if l.point.At(v.cut.Dim) > v.cut.Value {
				t.Errorf("left leaf coord %v > cut value %v on dim %d",
					l.point.At(v.cut.Dim), v.cut.Value, v.cut.Dim)
			}
		})
		mapShingledLeavesFrom(v.right, func(l *ShingledLeaf) {
			if l.point.At(v.cut.Dim) <= v.cut.Value {
				t.Errorf("right leaf coord %v <= cut value %v on dim %d",
					l.point.At(v.cut.Dim), v.cut.Value, v.cut.Dim)
			}
		})

		leftLo := make([]float64, dims)
		leftHi := make([]float64, dims)
		copy(leftLo, lo)
		copy(leftHi, hi)
		v.decodeChildBox(leftLo, leftHi, true)
		checkShingledNodeInvariants(t, v.left, leftLo, leftHi, dims, depth+1)

		rightLo := make([]float64, dims)
		rightHi := make([]float64, dims)
		copy(rightLo, lo)
		copy(rightHi, hi)
		v.decodeChildBox(rightLo, rightHi, false)
		checkShingledNodeInvariants(t, v.right, rightLo, rightHi, dims, depth+1)
	}
}

func bruteForceBox(n shingledNode, dims int) (lo, hi []float64) {
	lo = make([]float64, dims)
	hi = make([]float64, dims)
	for i := range lo {
		lo[i] = math.Inf(1)
		hi[i] = math.Inf(-1)
	}
	mapShingledLeavesFrom(n, func(l *ShingledLeaf) {
		for i := 0; i < dims; i++ {
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

func equalFloats(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// TestInvariants_RandomOperations stresses both variants with random
// insert/forget sequences and checks every invariant after every operation.
func TestInvariants_RandomOperations(t *testing.T) {
	const (
		seed    = 7
		dims    = 3
		iters   = 400
		maxSize = 25
	)

	opRng := rand.New(rand.NewSource(99))
	tree := NewTree(rand.New(rand.NewSource(seed)), dims)
	shingled := NewShingledTree(rand.New(rand.NewSource(seed)), dims)
	buf := NewBoundedBuffer(iters * dims)

	type entry struct {
		dense    DensePoint
		shingled ShingledPoint
	}
	var live []entry

	for i := 0; i < iters; i++ {
		if len(live) > 0 && (opRng.Float64() > 0.8 || tree.Size() > maxSize) {
			k := opRng.Intn(len(live))
			e := live[k]
			_, errDense := tree.ForgetPoint(e.dense)
			_, errShingled := shingled.ForgetPoint(e.shingled)
			if (errDense == nil) != (errShingled == nil) {
				t.Fatalf("iteration %d: forget disagreement: dense err %v, shingled err %v", i, errDense, errShingled)
			}
			live = append(live[:k], live[k+1:]...)
		} else {
			coords := make(DensePoint, dims)
			start := buf.Next()
			for d := 0; d < dims; d++ {
				coords[d] = float64(opRng.Intn(10000))
				buf.Add(coords[d])
			}
			sp := NewShingledPoint(buf, start, dims)
			if _, err := tree.InsertPoint(coords); err != nil {
				t.Fatalf("iteration %d: insert: %v", i, err)
			}
			if _, err := shingled.InsertPoint(sp); err != nil {
				t.Fatalf("iteration %d: shingled insert: %v", i, err)
			}
			live = append(live, entry{dense: coords, shingled: sp})
		}

		checkTreeInvariants(t, tree)
		checkShingledInvariants(t, shingled)
	}
}
