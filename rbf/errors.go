package rbf

import "errors"

var (
	// ErrSingularSystem means the kernel matrix could not be factorized for
	// the supplied geometry: coincident source points or kernel support that
	// leaves the system rank deficient. The caller must supply new points.
	ErrSingularSystem = errors.New("singular rbf system")
	// ErrUninitializedUse is an Interpolate call without a successful Compute.
	ErrUninitializedUse = errors.New("rbf interpolation used before compute")
	// ErrDimensionMismatch flags field or coordinate arrays whose size does
	// not match the point sets.
	ErrDimensionMismatch = errors.New("dimension mismatch")
)
