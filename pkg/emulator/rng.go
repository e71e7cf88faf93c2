package emulator

import "math/rand"

// RNG is a random number generator
type RNG interface {
	Rand() float64
}

var _ RNG = &UniformRNG{}
var _ RNG = &NormalRNG{}

// UniformRNG generates uniform random numbers in [lo, hi)
type UniformRNG struct {
	lo float64
	hi float64
	r  *rand.Rand
}

func (u *UniformRNG) Rand() float64 {
	return u.lo + u.r.Float64()*(u.hi-u.lo)
}

func NewUniformRNG(lo float64, hi float64, r *rand.Rand) *UniformRNG {
	return &UniformRNG{lo: lo, hi: hi, r: r}
}

// NormalRNG generates normally distributed random numbers.  Useful as an
// emulator model when a test needs readings with a known distribution.
type NormalRNG struct {
	mean  float64
	stdev float64
	r     *rand.Rand
}

func (n *NormalRNG) Rand() float64 {
	return n.r.NormFloat64()*n.stdev + n.mean
}

func NewNormalRNG(mean float64, stdev float64, r *rand.Rand) *NormalRNG {
	return &NormalRNG{mean: mean, stdev: stdev, r: r}
}
