package InputParameters

import (
	"fmt"

	"github.com/ghodss/yaml"

	"github.com/cubayang/FOAM-FSI/model_problems/Diffusion1D"
	"github.com/cubayang/FOAM-FSI/model_problems/TubeSolid"
)

type SDCParameters struct {
	Nodes      int     `json:"Nodes"`
	Sweeps     int     `json:"Sweeps"`
	Tolerance  float64 `json:"Tolerance"`
	MaxRetries int     `json:"MaxRetries"`
}

type RBFParameters struct {
	Function       string  `json:"Function"` // tps, gaussian, imq, wendlandC0..C6, volume
	Radius         float64 `json:"Radius"`
	Polynomial     bool    `json:"Polynomial"`
	DuplicateTol   float64 `json:"DuplicateTol"`
	ParallelDegree int     `json:"ParallelDegree"` // 0 is one worker per CPU
}

// Point clouds and field for a standalone transfer. Empty clouds are
// generated from NSource/NTarget random points seeded with Seed.
type TransferCase struct {
	Dim     int         `json:"Dim"`
	Source  [][]float64 `json:"Source"`
	Target  [][]float64 `json:"Target"`
	Values  [][]float64 `json:"Values"` // one row per source point
	NSource int         `json:"NSource"`
	NTarget int         `json:"NTarget"`
	Seed    int64       `json:"Seed"`
}

// The fluid side of the coupled run is a prescribed travelling pressure
// wave sampled on its own axial point cloud:
//
//	p(z,t) = Mean + Amplitude sin(2 pi (Frequency t - z/WaveLength))
type FluidLoad struct {
	Points     int     `json:"Points"`
	Mean       float64 `json:"Mean"`
	Amplitude  float64 `json:"Amplitude"`
	Frequency  float64 `json:"Frequency"`
	WaveLength float64 `json:"WaveLength"`
}

// Parameters obtained from the YAML input file
type FSIParameters struct {
	Title     string                 `json:"Title"`
	Solver    string                 `json:"Solver"` // TubeSolid or Diffusion1D
	Verbose   bool                   `json:"Verbose"`
	SDC       SDCParameters          `json:"SDC"`
	RBF       RBFParameters          `json:"RBF"`
	Transfer  TransferCase           `json:"Transfer"`
	Fluid     FluidLoad              `json:"Fluid"`
	TubeSolid TubeSolid.Parameters   `json:"TubeSolid"`
	Diffusion Diffusion1D.Parameters `json:"Diffusion"`
}

func NewFSIParameters() (ip *FSIParameters) {
	ip = &FSIParameters{
		Title:  "FSI case",
		Solver: "TubeSolid",
		SDC: SDCParameters{
			Nodes:      3,
			Sweeps:     4,
			Tolerance:  1.e-10,
			MaxRetries: 4,
		},
		RBF: RBFParameters{
			Function:     "tps",
			Polynomial:   true,
			DuplicateTol: 1.e-10,
		},
		Transfer: TransferCase{
			Dim:     2,
			NSource: 100,
			NTarget: 20,
			Seed:    1,
		},
		Fluid: FluidLoad{
			Points:     37,
			Mean:       0,
			Amplitude:  1,
			Frequency:  5,
			WaveLength: 1,
		},
		TubeSolid: TubeSolid.DefaultParameters(),
		Diffusion: Diffusion1D.DefaultParameters(),
	}
	return
}

// Parse overlays the YAML document on the receiver, so fields absent from
// the file keep their current values.
func (ip *FSIParameters) Parse(data []byte) (err error) {
	if err = yaml.Unmarshal(data, ip); err != nil {
		return
	}
	return ip.Validate()
}

func (ip *FSIParameters) Validate() error {
	switch ip.Solver {
	case "TubeSolid", "Diffusion1D":
	default:
		return fmt.Errorf("unknown solver %q, expected TubeSolid or Diffusion1D", ip.Solver)
	}
	if ip.SDC.Nodes < 2 {
		return fmt.Errorf("SDC needs at least 2 nodes, have %d", ip.SDC.Nodes)
	}
	if ip.Fluid.Points < 1 {
		return fmt.Errorf("fluid load needs at least one point, have %d", ip.Fluid.Points)
	}
	if ip.Transfer.Dim < 1 {
		return fmt.Errorf("transfer dimension must be positive, have %d", ip.Transfer.Dim)
	}
	return nil
}

func (ip *FSIParameters) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", ip.Title)
	fmt.Printf("[%s]\t\t= Solver\n", ip.Solver)
	fmt.Printf("[%d]\t\t\t= SDC Nodes\n", ip.SDC.Nodes)
	fmt.Printf("[%d]\t\t\t= SDC Sweeps\n", ip.SDC.Sweeps)
	fmt.Printf("%8.2e\t\t= SDC Tolerance\n", ip.SDC.Tolerance)
	fmt.Printf("[%s]\t\t\t= RBF Function\n", ip.RBF.Function)
	fmt.Printf("%8.5f\t\t= RBF Radius\n", ip.RBF.Radius)
	fmt.Printf("[%v]\t\t\t= RBF Polynomial\n", ip.RBF.Polynomial)
	switch ip.Solver {
	case "TubeSolid":
		fmt.Printf("TubeSolid = %+v\n", ip.TubeSolid)
	case "Diffusion1D":
		fmt.Printf("Diffusion = %+v\n", ip.Diffusion)
	}
}

func (ip *FSIParameters) Marshal() ([]byte, error) {
	return yaml.Marshal(ip)
}
