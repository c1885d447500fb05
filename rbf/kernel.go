package rbf

import (
	"fmt"
	"math"
	"strings"

	"github.com/cubayang/FOAM-FSI/utils"
)

// Function is a radial basis function: a weight that only depends on the
// Euclidean distance between two points.
type Function interface {
	Phi(r float64) float64
}

type ThinPlateSpline struct{}

func (ThinPlateSpline) Phi(r float64) float64 {
	if r <= 0 {
		return 0
	}
	return r * r * math.Log(r)
}

type VolumeSpline struct{}

func (VolumeSpline) Phi(r float64) float64 { return r }

type Gaussian struct {
	Shape float64
}

func (g Gaussian) Phi(r float64) float64 {
	er := g.Shape * r
	return math.Exp(-er * er)
}

type InverseMultiquadric struct {
	Shape float64
}

func (m InverseMultiquadric) Phi(r float64) float64 {
	er := m.Shape * r
	return 1. / math.Sqrt(1+er*er)
}

// Wendland is the compactly supported family, zero beyond Radius.
// Order is the smoothness index: 0, 2, 4 or 6.
type Wendland struct {
	Order  int
	Radius float64
}

func (w Wendland) Phi(r float64) float64 {
	xi := r / w.Radius
	if xi >= 1 {
		return 0
	}
	oneM := 1 - xi
	switch w.Order {
	case 0:
		return utils.POW(oneM, 2)
	case 2:
		return utils.POW(oneM, 4) * (4*xi + 1)
	case 4:
		return utils.POW(oneM, 6) * (35*xi*xi + 18*xi + 3)
	case 6:
		return utils.POW(oneM, 8) * (32*xi*xi*xi + 25*xi*xi + 8*xi + 1)
	}
	panic(fmt.Sprintf("unsupported Wendland order %d", w.Order))
}

// NewFunction selects a kernel by name. The radius is the support radius of
// the Wendland functions and the inverse shape parameter of the Gaussian and
// inverse multiquadric kernels; it is ignored by the spline kernels.
func NewFunction(name string, radius float64) (f Function, err error) {
	var (
		shape = 1.
	)
	if radius > 0 {
		shape = 1. / radius
	}
	needsRadius := func() error {
		if radius <= 0 {
			return fmt.Errorf("kernel %q needs a positive radius, have %v", name, radius)
		}
		return nil
	}
	switch strings.ToLower(name) {
	case "tps", "thinplatespline":
		f = ThinPlateSpline{}
	case "volume", "volumespline":
		f = VolumeSpline{}
	case "gaussian":
		f = Gaussian{Shape: shape}
	case "imq", "inversemultiquadric":
		f = InverseMultiquadric{Shape: shape}
	case "wendlandc0", "wendlandc2", "wendlandc4", "wendlandc6":
		if err = needsRadius(); err != nil {
			return
		}
		order := int(name[len(name)-1] - '0')
		f = Wendland{Order: order, Radius: radius}
	default:
		err = fmt.Errorf("unknown radial basis function %q", name)
	}
	return
}
