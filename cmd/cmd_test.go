package cmd

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cubayang/FOAM-FSI/InputParameters"
	"github.com/cubayang/FOAM-FSI/rbf"
)

func TestProcessInput(t *testing.T) {
	{ // No file
		_, err := processInput("")
		assert.Error(t, err)
	}
	{
		fileInput := []byte(`
Title: Test Case
Solver: Diffusion1D
SDC:
  Nodes: 2
  Sweeps: 0
Diffusion:
  N: 15
  Kappa: 0.5
`)
		name := filepath.Join(t.TempDir(), "case.yaml")
		require.NoError(t, os.WriteFile(name, fileInput, 0644))
		ip, err := processInput(name)
		require.NoError(t, err)
		assert.Equal(t, "Diffusion1D", ip.Solver)
		assert.Equal(t, 15, ip.Diffusion.N)
		assert.Equal(t, 0.5, ip.Diffusion.Kappa)
		assert.Equal(t, 2, ip.SDC.Nodes)
		ip.Print()
	}
	{ // Missing file
		_, err := processInput(filepath.Join(t.TempDir(), "none.yaml"))
		assert.Error(t, err)
	}
}

func TestRunTransfer(t *testing.T) {
	{ // Explicit clouds: a linear field is reproduced
		ip := InputParameters.NewFSIParameters()
		ip.Transfer.Source = [][]float64{{0, 0}, {1, 0}, {0, 1}, {1, 1}, {0.4, 0.6}}
		ip.Transfer.Target = [][]float64{{0.5, 0.5}, {0.2, 0.9}}
		for _, p := range ip.Transfer.Source {
			ip.Transfer.Values = append(ip.Transfer.Values, []float64{1 + p[0] - 2*p[1], 3})
		}
		tr, err := RunTransfer(ip)
		require.NoError(t, err)
		r, c := tr.Result.Dims()
		assert.Equal(t, 2, r)
		assert.Equal(t, 2, c)
		assert.InDelta(t, 1+0.5-1, tr.Result.At(0, 0), 1.e-10)
		assert.InDelta(t, 1+0.2-1.8, tr.Result.At(1, 0), 1.e-10)
		assert.InDelta(t, 3., tr.Result.At(1, 1), 1.e-10)
		tr.Print()
	}
	{ // Generated clouds and field
		ip := InputParameters.NewFSIParameters()
		ip.Transfer.NSource, ip.Transfer.NTarget = 200, 10
		ip.RBF.ParallelDegree = 3
		tr, err := RunTransfer(ip)
		require.NoError(t, err)
		assert.Equal(t, 200, tr.Source.Len())
		assert.Equal(t, 3, tr.Source.Partitions().ParallelDegree)
		for i := 0; i < tr.Target.Len(); i++ {
			exact := math.Sin(math.Pi*tr.Target.At(i, 0)) + math.Sin(math.Pi*tr.Target.At(i, 1))
			assert.InDelta(t, exact, tr.Result.At(i, 0), 1.e-2)
		}
	}
	{ // Field rows must match the source cloud
		ip := InputParameters.NewFSIParameters()
		ip.Transfer.Source = [][]float64{{0, 0}, {1, 0}, {0, 1}}
		ip.Transfer.Values = [][]float64{{1}, {2}}
		_, err := RunTransfer(ip)
		assert.Error(t, err)
		// Rows without components
		ip.Transfer.Values = [][]float64{{}, {}, {}}
		_, err = RunTransfer(ip)
		assert.True(t, errors.Is(err, rbf.ErrDimensionMismatch))
		ip.Transfer.Values = nil
		ip.RBF.Function = "multiquadric"
		_, err = RunTransfer(ip)
		assert.Error(t, err)
	}
	printMetrics("rbf_")
}

func TestCoupledRun(t *testing.T) {
	{ // Tube wall under a travelling pressure wave
		ip := InputParameters.NewFSIParameters()
		ip.TubeSolid.N = 12
		ip.TubeSolid.T = 0.05
		ip.SDC.Nodes, ip.SDC.Sweeps = 3, 2
		cr, err := NewCoupledRun(ip)
		require.NoError(t, err)
		assert.True(t, cr.Transfer.Initialized())
		assert.Equal(t, 37, cr.Transfer.Source().Len())
		assert.Equal(t, 12, cr.Transfer.Target().Len())
		require.NoError(t, cr.SDC.Run())
		assert.Equal(t, 5, cr.SDC.Steps)
		// The wall carries the interpolated fluid pressure of the last stage
		ts := cr.Wall.(tubeWall)
		for i, z := range ts.Nodes() {
			exact := math.Sin(2 * math.Pi * (ip.Fluid.Frequency*cr.SDC.Time - z/ip.Fluid.WaveLength))
			assert.InDelta(t, exact, ts.Pressure()[i], 1.e-2)
		}
		require.NoError(t, cr.Print())
	}
	{ // Conducting wall
		ip := InputParameters.NewFSIParameters()
		ip.Solver = "Diffusion1D"
		ip.Diffusion.N = 10
		ip.Diffusion.Dt, ip.Diffusion.EndTime = 0.01, 0.05
		ip.Fluid.Mean = 1
		cr, err := NewCoupledRun(ip)
		require.NoError(t, err)
		require.NoError(t, cr.SDC.Run())
		var (
			q = make([]float64, 10)
			f = make([]float64, 10)
		)
		require.NoError(t, cr.Solver.GetSolution(q, f))
		// A net heat input warms the wall
		for i := range q {
			assert.Greater(t, q[i], 0.)
		}
	}
	{ // Unknown kernel
		ip := InputParameters.NewFSIParameters()
		ip.RBF.Function = "spline"
		_, err := NewCoupledRun(ip)
		assert.Error(t, err)
	}
}
