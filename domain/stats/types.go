package stats

import (
	"fmt"
	"time"

	"outbreaksim/domain/core"
	"outbreaksim/domain/sim"
)

// Method names the estimator behind an Output.
type Method string

const (
	// MethodBinomialNormal is the single-batch estimator.
	MethodBinomialNormal Method = "normal approximation for binomial proportion"
	// MethodNormalPopulation is the batched-means estimator.
	MethodNormalPopulation Method = "normal population test"
)

// Key identifies one detection estimate: a parameter set tested with k
// tests per day.
type Key struct {
	Params      sim.Parameters
	TestsPerDay int
}

func (k Key) String() string {
	return fmt.Sprintf("%s k=%d", k.Params, k.TestsPerDay)
}

// Output is an immutable detection-probability estimate.
// INVARIANTS:
// - 0 <= Mean <= 1
// - CIWidth is the full interval width, 2*z*StdErr
// - BatchSize is 1 for the single-batch estimator
type Output struct {
	Mean        float64 `json:"mean"`
	StdErr      float64 `json:"std_err"`
	Alpha       float64 `json:"alpha"`
	Method      Method  `json:"method"`
	CIWidth     float64 `json:"ci_width"`
	SampleSize  int     `json:"sample_size"`
	BatchSize   int     `json:"batch_size"`
	BatchStdDev float64 `json:"batch_std_dev"` // spread of per-batch means, 0 for one batch
}

// HalfWidth returns z*StdErr.
func (o Output) HalfWidth() float64 {
	return 0.5 * o.CIWidth
}

// Lower returns the lower confidence bound.
func (o Output) Lower() float64 {
	return o.Mean - o.HalfWidth()
}

// Upper returns the upper confidence bound.
func (o Output) Upper() float64 {
	return o.Mean + o.HalfWidth()
}

func (o Output) String() string {
	return fmt.Sprintf("%.6f ± %.6f (%s, n=%d, batches=%d, alpha=%v)",
		o.Mean, o.HalfWidth(), o.Method, o.SampleSize, o.BatchSize, o.Alpha)
}

// Record is one exported result row.
type Record struct {
	RunID                        core.RunID `json:"run_id" db:"run_id"`
	NetworkName                  string     `json:"network_name" db:"network_name"`
	Repetitions                  int        `json:"repetitions" db:"repetitions"`
	TimeHorizon                  int        `json:"time_horizon" db:"time_horizon"`
	Latency                      int        `json:"latency" db:"latency"`
	ExternalInfectionProbability float64    `json:"external_infection_probability" db:"external_infection_probability"`
	TransmissionProbability      float64    `json:"transmission_probability" db:"transmission_probability"`
	FalseNegativeProbability     float64    `json:"false_negative_probability" db:"false_negative_probability"`
	TestsPerDay                  int        `json:"tests_per_day" db:"tests_per_day"`
	RandomOrder                  bool       `json:"random_order" db:"random_order"`
	Probability                  float64    `json:"probability" db:"probability"`
	CIWidth                      float64    `json:"ci_width" db:"ci_width"`
	LowerCI                      float64    `json:"lower_ci" db:"lower_ci"`
	UpperCI                      float64    `json:"upper_ci" db:"upper_ci"`
	Method                       string     `json:"method" db:"method"`
	BatchSize                    int        `json:"batch_size" db:"batch_size"`
	Alpha                        float64    `json:"alpha" db:"alpha"`
	CreatedAt                    time.Time  `json:"created_at" db:"created_at"`
}

// NewRecord flattens a keyed estimate into an exported row.
func NewRecord(runID core.RunID, key Key, out Output, randomOrder bool, at time.Time) Record {
	p := key.Params
	return Record{
		RunID:                        runID,
		NetworkName:                  p.NetworkName,
		Repetitions:                  p.Repetitions,
		TimeHorizon:                  p.TimeHorizon,
		Latency:                      p.Latency,
		ExternalInfectionProbability: p.ExternalInfectionProbability,
		TransmissionProbability:      p.TransmissionProbability,
		FalseNegativeProbability:     p.FalseNegativeProbability,
		TestsPerDay:                  key.TestsPerDay,
		RandomOrder:                  randomOrder,
		Probability:                  out.Mean,
		CIWidth:                      out.CIWidth,
		LowerCI:                      out.Lower(),
		UpperCI:                      out.Upper(),
		Method:                       string(out.Method),
		BatchSize:                    out.BatchSize,
		Alpha:                        out.Alpha,
		CreatedAt:                    at.UTC(),
	}
}
