package rrcf

// Point is a read-only view of d floating-point coordinates. Trees store the
// view a caller passes in; the coordinates it exposes must stay stable for as
// long as the point is held by a tree.
type Point interface {
	// Dims returns the dimensionality d.
	Dims() int
	// At returns coordinate i, 0 <= i < Dims().
	At(i int) float64
}

// DensePoint is a point that owns its coordinate array.
type DensePoint []float64

func (p DensePoint) Dims() int        { return len(p) }
func (p DensePoint) At(i int) float64 { return p[i] }

// ShingledPoint is a sliding window of width dims over a shared BoundedBuffer,
// viewed as a dims-dimensional point. It stores only the window's start index;
// coordinate i reads the buffer at logical index start+i.
type ShingledPoint struct {
	buf   *BoundedBuffer
	start uint64
	dims  int
}

// NewShingledPoint creates a window of width dims starting at the given
// logical buffer index.
func NewShingledPoint(buf *BoundedBuffer, start uint64, dims int) ShingledPoint {
	assert(buf != nil, "shingled point requires a buffer")
	assert(dims > 0, "shingled point requires a positive width")
	return ShingledPoint{buf: buf, start: start, dims: dims}
}

// Start returns the window's start index in the underlying buffer.
func (p ShingledPoint) Start() uint64 { return p.start }

func (p ShingledPoint) Dims() int { return p.dims }

func (p ShingledPoint) At(i int) float64 {
	v, err := p.buf.Get(p.start + uint64(i))
	assert(err == nil, "shingled point reads an evicted buffer position")
	return v
}

// pointCoords materializes a point view into a fresh coordinate slice.
func pointCoords(p Point) []float64 {
	coords := make([]float64, p.Dims())
	for i := range coords {
		coords[i] = p.At(i)
	}
	return coords
}

// pointsEqual reports whether two point views expose the same coordinates.
// Two windows over the same buffer with the same start index are equal
// without reading coordinates; all other pairs compare coordinate-wise, so
// value-equal duplicates collapse regardless of where they came from.
func pointsEqual(a, b Point) bool {
	if sa, ok := a.(ShingledPoint); ok {
		if sb, ok := b.(ShingledPoint); ok && sa.buf == sb.buf && sa.start == sb.start && sa.dims == sb.dims {
			return true
		}
	}
	if a.Dims() != b.Dims() {
		return false
	}
	for i := 0; i < a.Dims(); i++ {
		if a.At(i) != b.At(i) {
			return false
		}
	}
	return true
}
