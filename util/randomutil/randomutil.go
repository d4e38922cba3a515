package randomutil

import (
	"math/rand"
)

type RandomGenerator interface {
	// GenerateFloat32 returns a pseudo-random number in [0.0,1.0).
	GenerateFloat32() float32
}

type RandomNumberGenerator struct{}

func (RandomNumberGenerator) GenerateFloat32() float32 {
	return rand.Float32()
}
