package engine

import (
	"math/rand"
)

// randSource wraps math/rand.Rand. It is not safe for concurrent use, so each
// worker owns one and reseeds it per tile.
type randSource struct {
	r *rand.Rand
}

func newRandSource(seed int64) *randSource {
	return &randSource{r: rand.New(rand.NewSource(seed))}
}

func (rs *randSource) reseed(seed int64) {
	rs.r.Seed(seed)
}

func (rs *randSource) Float64() float64 {
	return rs.r.Float64()
}

// tileSeed mixes the render seed with a tile index (splitmix64 finalizer) so
// that neighbouring tiles and neighbouring seeds get unrelated streams.
func tileSeed(seed int64, tile int) int64 {
	z := uint64(seed) + uint64(tile+1)*0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return int64(z ^ (z >> 31))
}
