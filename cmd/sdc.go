/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"math"
	"time"

	"github.com/spf13/cobra"

	"github.com/cubayang/FOAM-FSI/InputParameters"
	"github.com/cubayang/FOAM-FSI/model_problems/Diffusion1D"
	"github.com/cubayang/FOAM-FSI/model_problems/TubeSolid"
	"github.com/cubayang/FOAM-FSI/rbf"
	"github.com/cubayang/FOAM-FSI/sdc"
)

// SDCCmd represents the sdc command
var SDCCmd = &cobra.Command{
	Use:   "sdc",
	Short: "Advance a wall solver loaded by a fluid on a non-matching cloud",
	Long: `
Runs the wall solver of the case with spectral deferred correction. Before every
implicit stage the fluid load is sampled on the fluid cloud and interpolated
onto the wall nodes,

foamfsi sdc -I case.yaml`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		var (
			icFile string
			ip     *InputParameters.FSIParameters
			run    *CoupledRun
		)
		if icFile, err = cmd.Flags().GetString("inputConditionsFile"); err != nil {
			return
		}
		if ip, err = processInput(icFile); err != nil {
			return
		}
		ip.Print()
		if run, err = NewCoupledRun(ip); err != nil {
			return
		}
		start := time.Now()
		if err = run.SDC.Run(); err != nil {
			return
		}
		fmt.Printf("%d time steps to t = %8.5f in %v\n", run.SDC.Steps, run.SDC.Time, time.Since(start))
		return run.Print()
	},
}

func init() {
	rootCmd.AddCommand(SDCCmd)
	SDCCmd.Flags().StringP("inputConditionsFile", "I", "", "YAML file for input parameters like:\n\t- SDC nodes and sweeps\n\t- wall solver parameters")
}

// wall is the part of a wall solver the coupling needs.
type wall interface {
	sdc.Physics
	Nodes() []float64
	load(values []float64) error
}

type tubeWall struct{ *TubeSolid.TubeSolid }

func (w tubeWall) load(p []float64) error { return w.SetPressure(p) }

type conductingWall struct{ *Diffusion1D.Diffusion }

func (w conductingWall) load(s []float64) error { return w.SetSource(s) }

type CoupledRun struct {
	Wall     wall
	Solver   *sdc.StageSolver
	SDC      *sdc.SDC
	Transfer *rbf.Interpolation
	fluidZ   []float64
	fluidP   []float64
	load     InputParameters.FluidLoad
}

// NewCoupledRun builds the wall solver, the fluid cloud spanning the wall
// and the fluid to wall interpolation, and hooks the transfer into the
// SDC stages.
func NewCoupledRun(ip *InputParameters.FSIParameters) (cr *CoupledRun, err error) {
	var (
		length float64
	)
	cr = &CoupledRun{load: ip.Fluid}
	switch ip.Solver {
	case "TubeSolid":
		var ts *TubeSolid.TubeSolid
		if ts, err = TubeSolid.NewTubeSolid(ip.TubeSolid); err != nil {
			return nil, err
		}
		ts.Verbose = ip.Verbose
		cr.Wall, length = tubeWall{ts}, ts.L
	case "Diffusion1D":
		var d *Diffusion1D.Diffusion
		if d, err = Diffusion1D.NewDiffusion(ip.Diffusion); err != nil {
			return nil, err
		}
		d.Verbose = ip.Verbose
		cr.Wall, length = conductingWall{d}, d.L
	default:
		return nil, fmt.Errorf("unknown solver %q", ip.Solver)
	}
	var (
		nf       = ip.Fluid.Points
		fluid    *rbf.PointSet
		wallPts  *rbf.PointSet
		function rbf.Function
	)
	cr.fluidZ = make([]float64, nf)
	cr.fluidP = make([]float64, nf)
	for i := range cr.fluidZ {
		if nf > 1 {
			cr.fluidZ[i] = length * float64(i) / float64(nf-1)
		} else {
			cr.fluidZ[i] = 0.5 * length
		}
	}
	if fluid, err = rbf.NewPointSet(1, cr.fluidZ, ip.RBF.ParallelDegree); err != nil {
		return nil, err
	}
	if wallPts, err = rbf.NewPointSet(1, cr.Wall.Nodes(), ip.RBF.ParallelDegree); err != nil {
		return nil, err
	}
	if function, err = rbf.NewFunction(ip.RBF.Function, ip.RBF.Radius); err != nil {
		return nil, err
	}
	cr.Transfer = rbf.NewInterpolation(rbf.Options{Polynomial: ip.RBF.Polynomial, DuplicateTol: ip.RBF.DuplicateTol})
	if err = cr.Transfer.Compute(function, fluid, wallPts); err != nil {
		return nil, err
	}
	cr.Solver = sdc.NewStageSolver(cr.Wall)
	if cr.SDC, err = sdc.NewSDC(cr.Solver, ip.SDC.Nodes, ip.SDC.Sweeps, ip.SDC.Tolerance); err != nil {
		return nil, err
	}
	cr.SDC.MaxRetries = ip.SDC.MaxRetries
	cr.SDC.Verbose = ip.Verbose
	cr.SDC.Coupling = cr.Couple
	return
}

// FluidLoad samples the prescribed fluid load at time t on the fluid cloud.
func (cr *CoupledRun) FluidLoad(t float64) []float64 {
	fl := cr.load
	for i, z := range cr.fluidZ {
		phase := fl.Frequency * t
		if fl.WaveLength != 0 {
			phase -= z / fl.WaveLength
		}
		cr.fluidP[i] = fl.Mean + fl.Amplitude*math.Sin(2*math.Pi*phase)
	}
	return cr.fluidP
}

// Couple moves the fluid load at stage time t onto the wall nodes.
func (cr *CoupledRun) Couple(t float64) (err error) {
	var values []float64
	if values, err = cr.Transfer.InterpolateVec(cr.FluidLoad(t)); err != nil {
		return
	}
	return cr.Wall.load(values)
}

func (cr *CoupledRun) Print() (err error) {
	var (
		dof  = cr.Wall.DOF()
		q, f = make([]float64, dof), make([]float64, dof)
		z    = cr.Wall.Nodes()
		n    = len(z)
	)
	if err = cr.Solver.GetSolution(q, f); err != nil {
		return
	}
	// The coupled variable is the last block of the state
	for i := 0; i < n; i++ {
		fmt.Printf("z = %8.5f\t%12.8f\n", z[i], q[dof-n+i])
	}
	return
}
