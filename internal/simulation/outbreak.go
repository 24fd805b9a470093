package simulation

import (
	"math/rand"

	"outbreaksim/domain/network"
)

type vertexState uint8

const (
	susceptible vertexState = iota
	latent
	infectious
)

// contactNetwork is the network with the source attached, re-indexed so the
// hot loop works on dense slices. Labels are sorted and the source has the
// smallest label, so index order equals label order and the source is index 0.
type contactNetwork struct {
	labels    []int
	index     map[int]int
	neighbors [][]int // dense indices, ascending
}

func newContactNetwork(g network.View) *contactNetwork {
	labels := g.Vertices()
	cn := &contactNetwork{
		labels:    labels,
		index:     make(map[int]int, len(labels)),
		neighbors: make([][]int, len(labels)),
	}
	for i, v := range labels {
		cn.index[v] = i
	}
	for i, v := range labels {
		ns := g.Neighbors(v)
		idx := make([]int, len(ns))
		for j, n := range ns {
			idx[j] = cn.index[n]
		}
		cn.neighbors[i] = idx
	}
	return cn
}

// realLabels returns every label except the source, ascending.
func (cn *contactNetwork) realLabels() []int {
	return append([]int(nil), cn.labels[1:]...)
}

// outbreak is the state of one repetition. It is allocated fresh for every
// repetition and never reused.
type outbreak struct {
	net        *contactNetwork
	state      []vertexState
	elapsed    []int // days since exposure, meaningful for latent vertices
	infectious []int // in order of becoming infectious
	latent     []int // in order of exposure
}

func newOutbreak(net *contactNetwork) *outbreak {
	n := len(net.labels)
	return &outbreak{
		net:        net,
		state:      make([]vertexState, n),
		elapsed:    make([]int, n),
		infectious: make([]int, 0, n),
	}
}

// seed marks the source and the initially infected labels as infectious.
func (o *outbreak) seed(initial []int) {
	o.makeInfectious(0)
	for _, v := range initial {
		o.makeInfectious(o.net.index[v])
	}
}

func (o *outbreak) makeInfectious(i int) {
	if o.state[i] == infectious {
		return
	}
	o.state[i] = infectious
	o.infectious = append(o.infectious, i)
}

// externalInfections gives every non-infectious neighbor of the source one
// Bernoulli(p) chance to become infectious immediately. Latent vertices may
// be hit too; they skip the rest of their latency.
func (o *outbreak) externalInfections(rng *rand.Rand, p float64) {
	hit := false
	for _, i := range o.net.neighbors[0] {
		if o.state[i] == infectious {
			continue
		}
		if rng.Float64() <= p {
			o.makeInfectious(i)
			hit = true
		}
	}
	if hit {
		o.compactLatent()
	}
}

// activateLatent turns latent vertices that have waited out the latency
// into infectious ones. Exposure on day t therefore shows on day t+latency
// (t+1 when latency is 0).
func (o *outbreak) activateLatent(latency int) {
	changed := false
	for _, i := range o.latent {
		if o.elapsed[i] >= latency {
			o.makeInfectious(i)
			changed = true
		}
	}
	if changed {
		o.compactLatent()
	}
}

// transmit lets every infectious vertex except the source expose each
// susceptible neighbor with probability p. Exposed vertices become latent;
// the infectious list does not grow during the sweep.
func (o *outbreak) transmit(rng *rand.Rand, p float64) {
	spreaders := o.infectious
	for _, u := range spreaders {
		if u == 0 {
			continue
		}
		for _, v := range o.net.neighbors[u] {
			if o.state[v] != susceptible {
				continue
			}
			if rng.Float64() <= p {
				o.state[v] = latent
				o.elapsed[v] = 0
				o.latent = append(o.latent, v)
			}
		}
	}
}

// tick advances every latent vertex's clock by one day.
func (o *outbreak) tick() {
	for _, i := range o.latent {
		o.elapsed[i]++
	}
}

// snapshot returns the infectious labels in ascending order.
func (o *outbreak) snapshot() []int {
	out := make([]int, 0, len(o.infectious))
	for i, s := range o.state {
		if s == infectious {
			out = append(out, o.net.labels[i])
		}
	}
	return out
}

func (o *outbreak) compactLatent() {
	kept := o.latent[:0]
	for _, i := range o.latent {
		if o.state[i] == latent {
			kept = append(kept, i)
		}
	}
	o.latent = kept
}
