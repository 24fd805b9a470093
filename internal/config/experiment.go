package config

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	netadapter "outbreaksim/adapters/network"
	"outbreaksim/domain/sim"
	"outbreaksim/internal/detection"
	"outbreaksim/internal/errors"
)

// Experiment is one experiment file: a network, a grid of simulation
// parameters, the seeds, and the detection sweep to run over every grid point.
type Experiment struct {
	Name    string          `yaml:"name" validate:"required"`
	Network netadapter.Spec `yaml:"network"`
	Grid    Grid            `yaml:"parameters"`
	Seeds   sim.Seeds       `yaml:"seeds"`
	Batches int             `yaml:"batches" validate:"gte=1"`

	Detection DetectionConfig `yaml:"detection"`
	Output    OutputConfig    `yaml:"output"`
}

// Grid lists candidate values per parameter; the experiment runs their
// cartesian product.
type Grid struct {
	TimeHorizon                  []int     `yaml:"time_horizon" validate:"min=1,dive,gt=0"`
	Repetitions                  []int     `yaml:"repetitions" validate:"min=1,dive,gt=0"`
	FalseNegativeProbability     []float64 `yaml:"false_negative_probability" validate:"min=1,dive,gt=0,lt=1"`
	TransmissionProbability      []float64 `yaml:"transmission_probability" validate:"min=1,dive,gt=0,lt=1"`
	Latency                      []int     `yaml:"latency" validate:"min=1,dive,gte=0"`
	ExternalInfectionProbability []float64 `yaml:"external_infection_probability" validate:"min=1,dive,gt=0,lt=1"`
}

// DetectionConfig is the k sweep.
type DetectionConfig struct {
	TestsPerDay     []int   `yaml:"tests_per_day" validate:"min=1,dive,gt=0"`
	Alpha           float64 `yaml:"alpha" validate:"gt=0,lt=1"`
	Order           string  `yaml:"order" validate:"required"`
	ReliabilitySeed int64   `yaml:"reliability_seed"`
	OrderSeed       int64   `yaml:"order_seed"`
}

// OutputConfig names the result files, relative to the run output directory
// unless absolute. Empty paths disable that sink.
type OutputConfig struct {
	CSV         string `yaml:"csv"`
	Append      bool   `yaml:"append"`
	XLSX        string `yaml:"xlsx"`
	NetworkFile string `yaml:"network_file"`
	ForwardStar bool   `yaml:"forward_star"`
	Manifest    string `yaml:"manifest"`
}

// LoadExperiment reads and validates an experiment file.
func LoadExperiment(path string) (*Experiment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open experiment %s", path)
	}
	defer f.Close()
	return ParseExperiment(f)
}

// ParseExperiment decodes YAML, applies defaults and validates. Unknown keys
// are rejected.
func ParseExperiment(r io.Reader) (*Experiment, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read experiment")
	}
	exp := &Experiment{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(exp); err != nil {
		return nil, errors.WithCode(errors.CodeConfigInvalid, fmt.Errorf("decode experiment: %w", err))
	}
	exp.applyDefaults()
	if err := exp.Validate(); err != nil {
		return nil, err
	}
	return exp, nil
}

func (e *Experiment) applyDefaults() {
	if e.Batches == 0 {
		e.Batches = 1
	}
	if e.Detection.Alpha == 0 {
		e.Detection.Alpha = 0.05
	}
	if e.Detection.Order == "" {
		e.Detection.Order = string(detection.Circular)
	}
}

// Validate checks struct constraints and the testing order name.
func (e *Experiment) Validate() error {
	if err := validate.Struct(e); err != nil {
		return errors.ConfigInvalid(err.Error())
	}
	if _, err := detection.ParseOrder(e.Detection.Order); err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, err)
	}
	return nil
}

// TestingOrder returns the parsed order. Validate has already accepted it.
func (e *Experiment) TestingOrder() detection.Order {
	o, _ := detection.ParseOrder(e.Detection.Order)
	return o
}

// Parameters expands the grid for the named network. The order is fixed:
// the last grid field varies fastest.
func (e *Experiment) Parameters(networkName string) []sim.Parameters {
	g := e.Grid
	var out []sim.Parameters
	for _, T := range g.TimeHorizon {
		for _, reps := range g.Repetitions {
			for _, fnr := range g.FalseNegativeProbability {
				for _, tp := range g.TransmissionProbability {
					for _, lat := range g.Latency {
						for _, ext := range g.ExternalInfectionProbability {
							out = append(out, sim.Parameters{
								NetworkName:                  networkName,
								TimeHorizon:                  T,
								Repetitions:                  reps,
								FalseNegativeProbability:     fnr,
								TransmissionProbability:      tp,
								Latency:                      lat,
								ExternalInfectionProbability: ext,
							})
						}
					}
				}
			}
		}
	}
	return out
}
