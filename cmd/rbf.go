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
	"math/rand"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/cubayang/FOAM-FSI/InputParameters"
	"github.com/cubayang/FOAM-FSI/rbf"
)

// RBFCmd represents the rbf command
var RBFCmd = &cobra.Command{
	Use:   "rbf",
	Short: "Transfer a field between two point clouds",
	Long: `
Builds the source and target clouds of the case, factorizes the RBF system once
and maps the field onto the target points,

foamfsi rbf -I case.yaml`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		var (
			icFile string
			ip     *InputParameters.FSIParameters
		)
		if icFile, err = cmd.Flags().GetString("inputConditionsFile"); err != nil {
			return
		}
		if ip, err = processInput(icFile); err != nil {
			return
		}
		ip.Print()
		tr, err := RunTransfer(ip)
		if err != nil {
			return
		}
		tr.Print()
		return
	},
}

func init() {
	rootCmd.AddCommand(RBFCmd)
	RBFCmd.Flags().StringP("inputConditionsFile", "I", "", "YAML file for input parameters like:\n\t- RBF function and radius\n\t- source and target clouds")
}

type Transfer struct {
	Source, Target *rbf.PointSet
	Values, Result *mat.Dense
}

// RunTransfer builds the clouds of the case and interpolates its field.
// Missing clouds are random points in the unit box, a missing field is
// sum_d sin(pi x_d).
func RunTransfer(ip *InputParameters.FSIParameters) (tr *Transfer, err error) {
	var (
		tc  = ip.Transfer
		pd  = ip.RBF.ParallelDegree
		rnd = rand.New(rand.NewSource(tc.Seed))
		fn  rbf.Function
	)
	tr = &Transfer{}
	if fn, err = rbf.NewFunction(ip.RBF.Function, ip.RBF.Radius); err != nil {
		return nil, err
	}
	cloud := func(points [][]float64, n int) (*rbf.PointSet, error) {
		if len(points) != 0 {
			return rbf.NewPointSetFromPoints(points, pd)
		}
		coords := make([]float64, n*tc.Dim)
		for i := range coords {
			coords[i] = rnd.Float64()
		}
		return rbf.NewPointSet(tc.Dim, coords, pd)
	}
	if tr.Source, err = cloud(tc.Source, tc.NSource); err != nil {
		return nil, err
	}
	if tr.Target, err = cloud(tc.Target, tc.NTarget); err != nil {
		return nil, err
	}
	n := tr.Source.Len()
	if len(tc.Values) != 0 {
		if len(tc.Values) != n {
			return nil, fmt.Errorf("%w: %d field rows for %d source points", rbf.ErrDimensionMismatch, len(tc.Values), n)
		}
		nc := len(tc.Values[0])
		if nc == 0 {
			return nil, fmt.Errorf("%w: field rows have no components", rbf.ErrDimensionMismatch)
		}
		tr.Values = mat.NewDense(n, nc, nil)
		for i, row := range tc.Values {
			if len(row) != nc {
				return nil, fmt.Errorf("%w: field row %d has %d components, expected %d", rbf.ErrDimensionMismatch, i, len(row), nc)
			}
			tr.Values.SetRow(i, row)
		}
	} else {
		tr.Values = mat.NewDense(n, 1, nil)
		for i := 0; i < n; i++ {
			var sum float64
			for d := 0; d < tr.Source.Dim(); d++ {
				sum += math.Sin(math.Pi * tr.Source.At(i, d))
			}
			tr.Values.Set(i, 0, sum)
		}
	}
	c := rbf.NewInterpolation(rbf.Options{Polynomial: ip.RBF.Polynomial, DuplicateTol: ip.RBF.DuplicateTol})
	if err = c.Compute(fn, tr.Source, tr.Target); err != nil {
		return nil, err
	}
	if tr.Result, err = c.Interpolate(tr.Values); err != nil {
		return nil, err
	}
	return
}

func (tr *Transfer) Print() {
	fmt.Printf("%d source points -> %d target points\n", tr.Source.Len(), tr.Target.Len())
	for i := 0; i < tr.Target.Len(); i++ {
		fmt.Printf("%v\t= %v\n", tr.Target.Point(i), mat.Row(nil, i, tr.Result))
	}
}
