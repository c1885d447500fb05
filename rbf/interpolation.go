package rbf

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
)

/*
	Collocation RBF interpolation between two point clouds.

	Source points x_i carry the field, target points y_i receive it:
		H[i,j]   = phi(|x_i - x_j|)   (source x source)
		Phi[i,j] = phi(|y_i - x_j|)   (target x source)
	With polynomial precision terms P = [1, (x - x0) V] the system is augmented to
		| H   P | |c|   |v|
		| P^T 0 | |d| = |0|
	and the target field is [Phi Q] [c; d], with Q = [1, (y - x0) V]. x0 is the
	source centroid and the columns of V are the principal axes of the source
	cloud, so a line or a tilted plane carries exactly as many linear terms as
	it has independent directions and P keeps full column rank.
	The LU factors of the (augmented) H are kept until the next Compute, so
	every field transferred over the same geometry costs two triangular solves
	and one matrix product.
*/

type State uint8

const (
	Uninitialized State = iota
	Initialized
	Stale // a Compute failed or is in progress; the old factors are gone
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initialized:
		return "initialized"
	case Stale:
		return "stale"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

type Options struct {
	// Polynomial appends constant and linear precision terms, making the
	// interpolation exact for constant and linear fields.
	Polynomial bool
	// DuplicateTol is the distance, relative to the largest extent of the
	// source cloud, below which two source points count as coincident.
	// A negative value leaves detection to the factorization alone.
	DuplicateTol float64
}

func DefaultOptions() Options {
	return Options{
		Polynomial:   true,
		DuplicateTol: 1.e-10,
	}
}

type Interpolation struct {
	Options
	function       Function
	source, target *PointSet
	poly           linearBasis
	H, Phi         *mat.Dense
	lu             mat.LU
	state          State
}

func NewInterpolation(opts ...Options) (c *Interpolation) {
	c = &Interpolation{
		Options: DefaultOptions(),
	}
	if len(opts) != 0 {
		c.Options = opts[0]
	}
	return
}

// Compute takes ownership of both point sets, assembles H and Phi with the
// given kernel and factorizes H. Any previous factorization is discarded
// before the new geometry is examined, so a failed Compute leaves the
// engine uninitialized.
func (c *Interpolation) Compute(function Function, source, target *PointSet) (err error) {
	var (
		start = time.Now()
	)
	c.invalidate()
	defer func() {
		if err != nil {
			factorizationsTotal.WithLabelValues("failed").Inc()
			return
		}
		factorizationsTotal.WithLabelValues("ok").Inc()
		computeDuration.Observe(time.Since(start).Seconds())
	}()
	if function == nil {
		return fmt.Errorf("rbf compute: no radial basis function supplied")
	}
	if source == nil || source.Len() == 0 {
		return fmt.Errorf("%w: empty source point set", ErrDimensionMismatch)
	}
	if target == nil || target.Len() == 0 {
		return fmt.Errorf("%w: empty target point set", ErrDimensionMismatch)
	}
	if source.Dim() != target.Dim() {
		return fmt.Errorf("%w: source points are %d-D, target points are %d-D",
			ErrDimensionMismatch, source.Dim(), target.Dim())
	}
	if c.DuplicateTol >= 0 {
		if pairs := source.Duplicates(c.DuplicateTol * sourceScale(source)); len(pairs) != 0 {
			return fmt.Errorf("%w: %d coincident source point pairs, first is (%d, %d)",
				ErrSingularSystem, len(pairs), pairs[0][0], pairs[0][1])
		}
	}
	var (
		poly  linearBasis
		nPoly int
	)
	if c.Polynomial {
		poly = linearBasis{origin: source.Centroid(), axes: source.PrincipalAxes()}
		nPoly = 1 + len(poly.axes)
	}
	var (
		n, m = source.Len(), target.Len()
		N    = n + nPoly
		H    = mat.NewDense(N, N, nil)
		Phi  = mat.NewDense(m, N, nil)
	)
	// Every worker assembles the rows of the points it owns
	err = source.Partitions().Collective(func(np, kMin, kMax int) error {
		for i := kMin; i < kMax; i++ {
			fillRow(H.RawRowView(i), function, source, i, source, poly)
		}
		return nil
	})
	if err != nil {
		return
	}
	for j := 0; j < n; j++ {
		for p := 0; p < nPoly; p++ {
			H.Set(n+p, j, H.At(j, n+p))
		}
	}
	err = target.Partitions().Collective(func(np, kMin, kMax int) error {
		for i := kMin; i < kMax; i++ {
			fillRow(Phi.RawRowView(i), function, target, i, source, poly)
		}
		return nil
	})
	if err != nil {
		return
	}
	c.lu.Factorize(H)
	if cond := c.lu.Cond(); math.IsInf(cond, 0) || math.IsNaN(cond) || cond > mat.ConditionTolerance {
		c.lu.Reset()
		return fmt.Errorf("%w: condition number %g for %d source points", ErrSingularSystem, cond, n)
	}
	c.function = function
	c.source, c.target = source, target
	c.poly = poly
	c.H, c.Phi = H, Phi
	c.state = Initialized
	return
}

// fillRow writes one row of kernel values of point i of from against every
// source point, followed by the polynomial terms of point i.
func fillRow(row []float64, function Function, from *PointSet, i int, source *PointSet, poly linearBasis) {
	n := source.Len()
	for j := 0; j < n; j++ {
		row[j] = function.Phi(from.Distance(i, source, j))
	}
	if len(row) == n {
		return
	}
	row[n] = 1
	x := from.point(i)
	for p, axis := range poly.axes {
		var sum float64
		for d, v := range axis {
			sum += (x[d] - poly.origin[d]) * v
		}
		row[n+1+p] = sum
	}
}

// linearBasis holds the coordinates the linear precision terms are taken in.
type linearBasis struct {
	origin []float64
	axes   [][]float64
}

func sourceScale(source *PointSet) (scale float64) {
	for _, e := range source.Extent() {
		scale = math.Max(scale, e)
	}
	if scale == 0 {
		scale = 1
	}
	return
}

func (c *Interpolation) invalidate() {
	if c.state != Uninitialized {
		c.state = Stale
	}
	c.lu.Reset()
	c.H, c.Phi = nil, nil
	c.source, c.target = nil, nil
	c.function = nil
	c.poly = linearBasis{}
}

// Initialized reports whether a factorization for the current geometry is cached.
func (c *Interpolation) Initialized() bool { return c.state == Initialized }

func (c *Interpolation) State() State { return c.state }

func (c *Interpolation) Source() *PointSet { return c.source }
func (c *Interpolation) Target() *PointSet { return c.target }

// Interpolate maps a field given on the source points, one column per
// component, onto the target points. The returned matrix is freshly
// allocated, values is only read.
func (c *Interpolation) Interpolate(values mat.Matrix) (R *mat.Dense, err error) {
	if c.state != Initialized {
		err = fmt.Errorf("%w: engine is %s", ErrUninitializedUse, c.state)
		return
	}
	var (
		nr, nc = values.Dims()
		n, m   = c.source.Len(), c.target.Len()
		N, _   = c.H.Dims()
	)
	if nr != n || nc < 1 {
		err = fmt.Errorf("%w: field is %dx%d, source point count is %d",
			ErrDimensionMismatch, nr, nc, n)
		return
	}
	B := mat.NewDense(N, nc, nil)
	B.Slice(0, n, 0, nc).(*mat.Dense).Copy(values)
	var coef mat.Dense
	if err = c.lu.SolveTo(&coef, false, B); err != nil {
		err = fmt.Errorf("%w: %v", ErrSingularSystem, err)
		return
	}
	R = mat.NewDense(m, nc, nil)
	err = c.target.Partitions().Collective(func(np, kMin, kMax int) error {
		if kMax == kMin {
			return nil
		}
		R.Slice(kMin, kMax, 0, nc).(*mat.Dense).Mul(c.Phi.Slice(kMin, kMax, 0, N), &coef)
		return nil
	})
	if err != nil {
		R = nil
		return
	}
	interpolationsTotal.Add(float64(nc))
	return
}

// InterpolateVec is Interpolate for a single scalar field.
func (c *Interpolation) InterpolateVec(values []float64) (r []float64, err error) {
	if c.state != Initialized {
		err = fmt.Errorf("%w: engine is %s", ErrUninitializedUse, c.state)
		return
	}
	if len(values) != c.source.Len() {
		err = fmt.Errorf("%w: field has %d values, source point count is %d",
			ErrDimensionMismatch, len(values), c.source.Len())
		return
	}
	var R *mat.Dense
	if R, err = c.Interpolate(mat.NewVecDense(len(values), values)); err != nil {
		return
	}
	r = mat.Col(nil, 0, R)
	return
}
