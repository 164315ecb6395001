package dataset

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/MeKo-Tech/freqaug/internal/tensor"
)

// Noise is a Source of i.i.d. U(0, 1) images. It stands in for a natural
// image folder in benchmarks and smoke tests. Noise is safe for concurrent
// use.
type Noise struct {
	mu   sync.Mutex
	dist distuv.Uniform
}

// NewNoise returns a noise source drawing from rng. A nil rng is replaced by
// a randomly seeded one.
func NewNoise(rng *rand.Rand) *Noise {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Noise{dist: distuv.Uniform{Min: 0, Max: 1, Src: rng}}
}

// Batch returns an (n, 3, h, w) batch of uniform noise.
func (s *Noise) Batch(n, h, w int) (*tensor.Batch, error) {
	if n <= 0 || h <= 0 || w <= 0 {
		return nil, fmt.Errorf("dataset: invalid batch size %dx%dx%d", n, h, w)
	}
	out := tensor.Zeros(n, 3, h, w)
	s.mu.Lock()
	for i := range out.Data {
		out.Data[i] = float32(s.dist.Rand())
	}
	s.mu.Unlock()
	return out, nil
}
