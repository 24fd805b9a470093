// Package sim holds the value types shared by the epidemic simulator and the
// detection analyzer: parameter sets, seeds, sample paths and outputs.
package sim

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"outbreaksim/domain/core"
)

var validate = validator.New()

// Parameters is one experiment configuration. It is a comparable value type
// and keys every result map; never mutate a Parameters after using it as a key.
type Parameters struct {
	NetworkName                  string  `json:"network_name" yaml:"network_name" validate:"required"`
	TimeHorizon                  int     `json:"time_horizon" yaml:"time_horizon" validate:"gt=0"`
	Repetitions                  int     `json:"repetitions" yaml:"repetitions" validate:"gt=0"`
	FalseNegativeProbability     float64 `json:"false_negative_probability" yaml:"false_negative_probability" validate:"gt=0,lt=1"`
	TransmissionProbability      float64 `json:"transmission_probability" yaml:"transmission_probability" validate:"gt=0,lt=1"`
	Latency                      int     `json:"latency" yaml:"latency" validate:"gte=0"`
	ExternalInfectionProbability float64 `json:"external_infection_probability" yaml:"external_infection_probability" validate:"gt=0,lt=1"`
}

// Validate checks ranges: T and R positive, latency non-negative, all
// probabilities strictly inside (0,1).
func (p Parameters) Validate() error {
	if err := validate.Struct(p); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return fmt.Errorf("%w: %v", core.ErrInvalidParameter, err)
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s (got %v)", fe.Field(), fe.Tag(), fe.Param(), fe.Value()))
		}
		return fmt.Errorf("%w: %s", core.ErrInvalidParameter, strings.Join(msgs, "; "))
	}
	return nil
}

// Hash is the stable value hash used for seed derivation. Value-equal
// parameter sets always hash equally.
func (p Parameters) Hash() core.SeedHash {
	return core.ComputeSeedHash(
		p.NetworkName,
		p.TimeHorizon,
		p.Repetitions,
		p.FalseNegativeProbability,
		p.TransmissionProbability,
		p.Latency,
		p.ExternalInfectionProbability,
	)
}

func (p Parameters) String() string {
	return fmt.Sprintf("network=%s T=%d reps=%d fnr=%v transmission=%v latency=%d external=%v",
		p.NetworkName, p.TimeHorizon, p.Repetitions, p.FalseNegativeProbability,
		p.TransmissionProbability, p.Latency, p.ExternalInfectionProbability)
}

// Seeds are the four base seeds of a simulation. The stream for each purpose
// is seeded with base + params.Hash().
type Seeds [4]int64

const (
	SeedInitialSelection = iota // which vertices are infectious at day 0
	SeedExternal                // source-driven infections on days 1..T
	SeedTransmission            // vertex-to-vertex exposures
	SeedInitialCount            // how many vertices are infectious at day 0
)

// Offset returns a copy with i added to every base seed; batch i of a batched
// experiment uses Offset(i).
func (s Seeds) Offset(i int) Seeds {
	out := s
	for j := range out {
		out[j] += int64(i)
	}
	return out
}
