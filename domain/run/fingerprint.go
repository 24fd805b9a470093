package run

import (
	"fmt"
	"strings"

	"outbreaksim/domain/core"
)

// Fingerprint ensures deterministic replay: two runs with equal fingerprints
// export identical probabilities and confidence intervals.
type Fingerprint struct {
	ParameterHashes []core.SeedHash `json:"parameter_hashes"`
	Hash            core.Hash       `json:"hash"`
}

// NewFingerprint hashes every input that influences the exported numbers.
// RunID and CreatedAt are not part of it.
func NewFingerprint(m *Manifest) Fingerprint {
	hashes := make([]core.SeedHash, len(m.Parameters))
	params := make([]string, len(m.Parameters))
	for i, p := range m.Parameters {
		hashes[i] = p.Hash()
		params[i] = p.String()
	}

	data := fmt.Sprintf("experiment:%s|network:%s/%d/%d|seeds:%v|batches:%d|k:%v|order:%s|alpha:%v|reliability:%d|testing:%d|code:%s|params:%s",
		m.Experiment, m.Network.Name, m.Network.Order, m.Network.Size,
		m.Seeds, m.Batches, m.TestsPerDay, m.Order, m.Alpha,
		m.ReliabilitySeed, m.OrderSeed, m.CodeVersion, strings.Join(params, ";"))

	return Fingerprint{ParameterHashes: hashes, Hash: core.NewHash([]byte(data))}
}
