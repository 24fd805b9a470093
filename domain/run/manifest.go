// Package run describes a finished experiment run well enough to replay it.
package run

import (
	"outbreaksim/domain/core"
	"outbreaksim/domain/sim"
)

// Manifest represents the complete specification of a run. Replaying the
// same manifest reproduces every exported record except CreatedAt and RunID.
type Manifest struct {
	RunID           core.RunID       `json:"run_id"`
	Experiment      string           `json:"experiment"`
	Network         NetworkSummary   `json:"network"`
	Seeds           sim.Seeds        `json:"seeds"`
	Batches         int              `json:"batches"`
	TestsPerDay     []int            `json:"tests_per_day"`
	Order           string           `json:"order"`
	Alpha           float64          `json:"alpha"`
	ReliabilitySeed int64            `json:"reliability_seed"`
	OrderSeed       int64            `json:"order_seed"`
	Parameters      []sim.Parameters `json:"parameters"`
	CodeVersion     string           `json:"code_version"`
	Fingerprint     Fingerprint      `json:"fingerprint"`
	CreatedAt       core.Timestamp   `json:"created_at"`
}

// NetworkSummary identifies the contact network without storing it.
type NetworkSummary struct {
	Name  string `json:"name"`
	Order int    `json:"order"`
	Size  int    `json:"size"`
}

// Detection groups the analysis settings of a run.
type Detection struct {
	TestsPerDay     []int
	Order           string
	Alpha           float64
	ReliabilitySeed int64
	OrderSeed       int64
}

// NewManifest creates a run manifest and computes its fingerprint.
func NewManifest(
	runID core.RunID,
	experiment string,
	network NetworkSummary,
	params []sim.Parameters,
	seeds sim.Seeds,
	batches int,
	detection Detection,
	codeVersion string,
	createdAt core.Timestamp,
) *Manifest {
	m := &Manifest{
		RunID:           runID,
		Experiment:      experiment,
		Network:         network,
		Seeds:           seeds,
		Batches:         batches,
		TestsPerDay:     append([]int(nil), detection.TestsPerDay...),
		Order:           detection.Order,
		Alpha:           detection.Alpha,
		ReliabilitySeed: detection.ReliabilitySeed,
		OrderSeed:       detection.OrderSeed,
		Parameters:      append([]sim.Parameters(nil), params...),
		CodeVersion:     codeVersion,
		CreatedAt:       createdAt,
	}
	m.Fingerprint = NewFingerprint(m)
	return m
}

// Validate checks if the manifest is complete
func (m *Manifest) Validate() error {
	if m.RunID == "" {
		return core.NewValidationError("run_manifest", "run_id cannot be empty")
	}
	if m.Experiment == "" {
		return core.NewValidationError("run_manifest", "experiment cannot be empty")
	}
	if m.Network.Name == "" {
		return core.NewValidationError("run_manifest", "network name cannot be empty")
	}
	if m.Batches < 1 {
		return core.NewValidationError("run_manifest", "batches must be positive")
	}
	if len(m.TestsPerDay) == 0 {
		return core.NewValidationError("run_manifest", "tests_per_day cannot be empty")
	}
	if len(m.Parameters) == 0 {
		return core.NewValidationError("run_manifest", "parameters cannot be empty")
	}
	if m.CodeVersion == "" {
		return core.NewValidationError("run_manifest", "code_version cannot be empty")
	}
	if m.Fingerprint.Hash.IsEmpty() {
		return core.NewValidationError("run_manifest", "fingerprint cannot be empty")
	}
	return nil
}

// Replays reports whether other describes the same computation.
func (m *Manifest) Replays(other *Manifest) bool {
	return m.Fingerprint.Hash == other.Fingerprint.Hash
}
