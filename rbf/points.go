package rbf

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/kdtree"

	"github.com/cubayang/FOAM-FSI/utils"
)

// rankTol is the relative singular value below which a direction of the
// cloud counts as collapsed.
const rankTol = 1.e-10

// PointSet is an ordered, immutable cloud of Dim-dimensional coordinates,
// split in contiguous row blocks across the worker grid. Point identity is
// the position in the set. Mesh motion replaces a PointSet, it never edits one.
type PointSet struct {
	dim        int
	coords     []float64 // row major, Len() x dim
	partitions *utils.PartitionMap
}

// NewPointSet copies coords (row major, len(coords)/dim points) and
// distributes the points over parallelDegree workers, zero meaning one per CPU.
func NewPointSet(dim int, coords []float64, parallelDegree int) (ps *PointSet, err error) {
	if dim < 1 {
		err = fmt.Errorf("point dimension must be positive, have %d", dim)
		return
	}
	if len(coords)%dim != 0 {
		err = fmt.Errorf("%w: %d coordinates do not split into %d-D points",
			ErrDimensionMismatch, len(coords), dim)
		return
	}
	n := len(coords) / dim
	ps = &PointSet{
		dim:        dim,
		coords:     append([]float64(nil), coords...),
		partitions: utils.NewPartitionMap(utils.ParallelDegreeFor(parallelDegree, n), n),
	}
	return
}

// NewPointSetFromPoints is NewPointSet for a slice of points.
func NewPointSetFromPoints(points [][]float64, parallelDegree int) (ps *PointSet, err error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("empty point list has no dimension")
	}
	var (
		dim    = len(points[0])
		coords = make([]float64, 0, dim*len(points))
	)
	for i, p := range points {
		if len(p) != dim {
			return nil, fmt.Errorf("%w: point %d has %d coordinates, expected %d",
				ErrDimensionMismatch, i, len(p), dim)
		}
		coords = append(coords, p...)
	}
	return NewPointSet(dim, coords, parallelDegree)
}

func (ps *PointSet) Len() int { return len(ps.coords) / ps.dim }
func (ps *PointSet) Dim() int { return ps.dim }

func (ps *PointSet) At(i, d int) float64 { return ps.coords[i*ps.dim+d] }

// Point returns a copy of point i.
func (ps *PointSet) Point(i int) (p []float64) {
	p = make([]float64, ps.dim)
	copy(p, ps.coords[i*ps.dim:(i+1)*ps.dim])
	return
}

func (ps *PointSet) Partitions() *utils.PartitionMap { return ps.partitions }

func (ps *PointSet) point(i int) []float64 { return ps.coords[i*ps.dim : (i+1)*ps.dim] }

// Distance is the Euclidean distance between point i of ps and point j of other.
func (ps *PointSet) Distance(i int, other *PointSet, j int) float64 {
	var (
		a, b = ps.point(i), other.point(j)
		sum  float64
	)
	for d := range a {
		dx := a[d] - b[d]
		sum += dx * dx
	}
	return math.Sqrt(sum)
}

// Extent returns the bounding box edge length in every dimension.
func (ps *PointSet) Extent() (ext []float64) {
	ext = make([]float64, ps.dim)
	if ps.Len() == 0 {
		return
	}
	for d := 0; d < ps.dim; d++ {
		min, max := math.Inf(1), math.Inf(-1)
		for i := 0; i < ps.Len(); i++ {
			x := ps.At(i, d)
			min = math.Min(min, x)
			max = math.Max(max, x)
		}
		ext[d] = max - min
	}
	return
}

// Centroid is the mean of the points.
func (ps *PointSet) Centroid() (c []float64) {
	c = make([]float64, ps.dim)
	n := ps.Len()
	if n == 0 {
		return
	}
	for i := 0; i < n; i++ {
		floats.Add(c, ps.point(i))
	}
	floats.Scale(1/float64(n), c)
	return
}

// PrincipalAxes returns an orthonormal basis of the affine hull of the
// cloud, one unit vector per independent direction, ordered by decreasing
// spread. Directions whose singular value of the centred coordinates is
// below rankTol times the largest one are dropped, so a line has one axis
// and a flat surface in 3-D has two whatever their orientation.
func (ps *PointSet) PrincipalAxes() (axes [][]float64) {
	var (
		n = ps.Len()
		c = ps.Centroid()
	)
	if n < 2 {
		return
	}
	X := mat.NewDense(n, ps.dim, nil)
	for i := 0; i < n; i++ {
		row := X.RawRowView(i)
		floats.SubTo(row, ps.point(i), c)
	}
	var svd mat.SVD
	if ok := svd.Factorize(X, mat.SVDThinV); !ok {
		return
	}
	var (
		sv = svd.Values(nil)
		V  mat.Dense
	)
	svd.VTo(&V)
	for k, s := range sv {
		if s <= rankTol*sv[0] || s == 0 {
			break
		}
		axes = append(axes, mat.Col(nil, k, &V))
	}
	return
}

// Duplicates returns every pair (i < j) of points closer than tol.
func (ps *PointSet) Duplicates(tol float64) (pairs [][2]int) {
	n := ps.Len()
	if n < 2 {
		return
	}
	pts := make(indexedPoints, n)
	for i := range pts {
		pts[i] = indexedPoint{x: ps.point(i), i: i}
	}
	tree := kdtree.New(pts, false)
	for i := 0; i < n; i++ {
		keeper := kdtree.NewDistKeeper(tol * tol)
		tree.NearestSet(keeper, indexedPoint{x: ps.point(i), i: i})
		for _, c := range keeper.Heap {
			if c.Comparable == nil {
				continue
			}
			if j := c.Comparable.(indexedPoint).i; j > i {
				pairs = append(pairs, [2]int{i, j})
			}
		}
	}
	sort.Slice(pairs, func(a, b int) bool {
		if pairs[a][0] != pairs[b][0] {
			return pairs[a][0] < pairs[b][0]
		}
		return pairs[a][1] < pairs[b][1]
	})
	return
}

// indexedPoint keeps the position of a point through the k-d tree pivoting.
type indexedPoint struct {
	x []float64
	i int
}

func (p indexedPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	return p.x[d] - c.(indexedPoint).x[d]
}

func (p indexedPoint) Dims() int { return len(p.x) }

// Distance is squared, as kdtree expects.
func (p indexedPoint) Distance(c kdtree.Comparable) (sum float64) {
	q := c.(indexedPoint)
	for d := range p.x {
		dx := p.x[d] - q.x[d]
		sum += dx * dx
	}
	return
}

type indexedPoints []indexedPoint

func (p indexedPoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p indexedPoints) Len() int                              { return len(p) }
func (p indexedPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }
func (p indexedPoints) Pivot(d kdtree.Dim) int {
	pl := pointPlane{indexedPoints: p, Dim: d}
	return kdtree.Partition(pl, kdtree.MedianOfRandoms(pl, 100))
}

type pointPlane struct {
	indexedPoints
	kdtree.Dim
}

func (p pointPlane) Less(i, j int) bool {
	return p.indexedPoints[i].x[p.Dim] < p.indexedPoints[j].x[p.Dim]
}

func (p pointPlane) Slice(start, end int) kdtree.SortSlicer {
	return pointPlane{indexedPoints: p.indexedPoints[start:end], Dim: p.Dim}
}

func (p pointPlane) Swap(i, j int) {
	p.indexedPoints[i], p.indexedPoints[j] = p.indexedPoints[j], p.indexedPoints[i]
}
