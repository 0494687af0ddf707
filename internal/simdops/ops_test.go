package simdops

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const opsTolerance = 1e-12

func TestScale(t *testing.T) {
	a := []float64{1, -2, 3, -4}
	dst := make([]float64, len(a))
	Scale(dst, a, 0.5)
	assert.InDeltaSlice(t, []float64{0.5, -1, 1.5, -2}, dst, opsTolerance)
}

func TestScaleInPlace(t *testing.T) {
	a := []float64{2, 4, 6}
	Scale(a, a, 0.25)
	assert.InDeltaSlice(t, []float64{0.5, 1, 1.5}, a, opsTolerance)
}

func TestEnergy(t *testing.T) {
	assert.InDelta(t, 30, Energy([]float64{1, 2, 3, 4}), opsTolerance)
	assert.Zero(t, Energy(nil))
}
