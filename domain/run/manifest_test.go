package run

import (
	"testing"
	"time"

	"outbreaksim/domain/core"
	"outbreaksim/domain/sim"
)

func testParams() []sim.Parameters {
	return []sim.Parameters{{
		NetworkName:                  "completegraph_staff20",
		TimeHorizon:                  3,
		Repetitions:                  5,
		FalseNegativeProbability:     0.25,
		TransmissionProbability:      0.1,
		Latency:                      2,
		ExternalInfectionProbability: 0.1,
	}}
}

func testManifest(runID core.RunID, mutate func(*Detection, *sim.Seeds)) *Manifest {
	det := Detection{TestsPerDay: []int{1, 2}, Order: "circular", Alpha: 0.05, ReliabilitySeed: 2345, OrderSeed: 4567}
	seeds := sim.Seeds{2507, 2507, 2101, 1308}
	if mutate != nil {
		mutate(&det, &seeds)
	}
	return NewManifest(runID, "staff20",
		NetworkSummary{Name: "completegraph_staff20", Order: 20, Size: 190},
		testParams(), seeds, 1, det, "1.0.0",
		core.NewTimestamp(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
}

func TestFingerprint_Deterministic(t *testing.T) {
	// Same inputs under different run IDs replay each other
	m1 := testManifest("run-a", nil)
	m2 := testManifest("run-b", nil)

	if m1.Fingerprint.Hash != m2.Fingerprint.Hash {
		t.Errorf("Fingerprints not identical: %s vs %s", m1.Fingerprint.Hash, m2.Fingerprint.Hash)
	}
	if !m1.Replays(m2) {
		t.Errorf("Manifests with equal inputs should replay each other")
	}
	if len(m1.Fingerprint.ParameterHashes) != 1 || m1.Fingerprint.ParameterHashes[0] != testParams()[0].Hash() {
		t.Errorf("Parameter hashes not recorded: %v", m1.Fingerprint.ParameterHashes)
	}
}

func TestFingerprint_Unique(t *testing.T) {
	base := testManifest("run", nil)

	testCases := []struct {
		name   string
		mutate func(*Detection, *sim.Seeds)
	}{
		{"different k", func(d *Detection, _ *sim.Seeds) { d.TestsPerDay = []int{1, 3} }},
		{"different order", func(d *Detection, _ *sim.Seeds) { d.Order = "random" }},
		{"different alpha", func(d *Detection, _ *sim.Seeds) { d.Alpha = 0.1 }},
		{"different reliability seed", func(d *Detection, _ *sim.Seeds) { d.ReliabilitySeed++ }},
		{"different simulation seed", func(_ *Detection, s *sim.Seeds) { s[sim.SeedTransmission]++ }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if testManifest("run", tc.mutate).Fingerprint.Hash == base.Fingerprint.Hash {
				t.Errorf("Fingerprint should be different for %s", tc.name)
			}
		})
	}
}

func TestManifest_Complete(t *testing.T) {
	m := testManifest("run-1", nil)

	if m.RunID != "run-1" {
		t.Errorf("RunID not set correctly")
	}
	if m.Network.Size != 190 {
		t.Errorf("Network summary not set correctly")
	}
	if m.Fingerprint.Hash.IsEmpty() {
		t.Errorf("Fingerprint not computed")
	}
	if err := m.Validate(); err != nil {
		t.Errorf("Manifest validation failed: %v", err)
	}
}

func TestManifest_ValidateRejectsIncomplete(t *testing.T) {
	m := testManifest("", nil)
	if err := m.Validate(); !core.IsValidationError(err) {
		t.Errorf("expected validation error for empty run id, got %v", err)
	}

	m = testManifest("run", func(d *Detection, _ *sim.Seeds) { d.TestsPerDay = nil })
	if err := m.Validate(); !core.IsValidationError(err) {
		t.Errorf("expected validation error for empty k sweep, got %v", err)
	}
}

func TestNewManifest_CopiesSlices(t *testing.T) {
	ks := []int{1, 2}
	m := NewManifest("run", "staff20", NetworkSummary{Name: "n"}, testParams(), sim.Seeds{}, 1,
		Detection{TestsPerDay: ks}, "dev", core.Now())
	ks[0] = 99
	if m.TestsPerDay[0] != 1 {
		t.Errorf("manifest must not alias the caller's slice")
	}
}
