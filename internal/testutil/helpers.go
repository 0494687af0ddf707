// Package testutil provides reusable helpers for benchmark and synth tests.
package testutil

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// FakeClock is a manually advanced monotonic clock. Wire its Now and Sleep
// into the audio sink to make the callback loop fully deterministic: Sleep
// advances the clock instead of blocking, and render stubs call Advance to
// simulate compute cost.
type FakeClock struct {
	t time.Time
}

// NewFakeClock starts a clock at an arbitrary fixed origin.
func NewFakeClock() *FakeClock {
	return &FakeClock{t: time.Unix(0, 0)}
}

// Now returns the current simulated time.
func (c *FakeClock) Now() time.Time {
	return c.t
}

// Sleep advances the simulated time by d without blocking.
func (c *FakeClock) Sleep(d time.Duration) {
	if d > 0 {
		c.t = c.t.Add(d)
	}
}

// Advance moves the simulated time forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.t = c.t.Add(d)
}

// AssertNoNaNOrInf verifies that no elements in the slice are NaN or Inf.
func AssertNoNaNOrInf(t *testing.T, s []float64) bool {
	t.Helper()
	for i, v := range s {
		if math.IsNaN(v) {
			return assert.Fail(t, "found NaN", "s[%d] is NaN", i)
		}
		if math.IsInf(v, 0) {
			return assert.Fail(t, "found Inf", "s[%d] is Inf", i)
		}
	}
	return true
}

// AssertAllInRange verifies that all elements are within [minVal, maxVal].
func AssertAllInRange(t *testing.T, s []float64, minVal, maxVal float64) bool {
	t.Helper()
	for i, v := range s {
		if v < minVal || v > maxVal {
			return assert.Fail(t, "value out of range",
				"s[%d]=%f is outside range [%f, %f]", i, v, minVal, maxVal)
		}
	}
	return true
}
