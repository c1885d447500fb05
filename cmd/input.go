package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/cubayang/FOAM-FSI/InputParameters"
)

const exampleFile = `
########################################
Title: "Tube wall"
Solver: TubeSolid # Can be Diffusion1D
SDC:
  Nodes: 3
  Sweeps: 4
  Tolerance: 1.e-10
RBF:
  Function: tps # gaussian, imq, wendlandC0..C6, volume
  Radius: 0.
  Polynomial: true
Fluid:
  Points: 37
  Amplitude: 1.
  Frequency: 5.
TubeSolid:
  N: 20
  T: 0.2
########################################
`

func processInput(icFile string) (ip *InputParameters.FSIParameters, err error) {
	if len(icFile) == 0 {
		fmt.Printf("Example File:%s\n", exampleFile)
		return nil, fmt.Errorf("must supply an input parameters file (-I, --inputConditionsFile) in YAML format")
	}
	var data []byte
	if data, err = os.ReadFile(icFile); err != nil {
		return
	}
	ip = InputParameters.NewFSIParameters()
	if err = ip.Parse(data); err != nil {
		return nil, fmt.Errorf("%s: %w", icFile, err)
	}
	applyConfig(ip)
	return
}

// applyConfig lets the global config file, the environment and the
// persistent flags override the case file.
func applyConfig(ip *InputParameters.FSIParameters) {
	if viper.GetBool("verbose") {
		ip.Verbose = true
	}
	if pd := viper.GetInt("parallelDegree"); pd != 0 {
		ip.RBF.ParallelDegree = pd
	}
}
