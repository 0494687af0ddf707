// Package timing turns a stream of per-burst render durations into
// decision-grade statistics.
//
// The Analyzer keeps only fixed-size running aggregates (count, sum,
// sum-of-squares, min, max) plus a bounded histogram, so feeding it one
// sample per audio burst for the length of a benchmark run costs O(1)
// time and O(1) memory per sample.
package timing

import (
	"errors"
	"math"
	"time"
)

// ErrNoSamples indicates a statistic was queried before any sample was
// recorded. The harness protocol guarantees at least one sample before any
// query, so hitting this is an internal invariant failure, not a user error.
var ErrNoSamples = errors.New("timing: no samples recorded")

// Histogram parameters for percentile estimation.
const (
	// BucketWidth is the histogram resolution. Percentiles are reported as
	// the upper bound of the selected bucket, so they are accurate to one
	// bucket width.
	BucketWidth = 10 * time.Microsecond

	// maxTracked is the largest duration the histogram resolves. Samples
	// beyond it land in a single overflow bucket; Percentile reports the
	// observed maximum for ranks that fall there.
	maxTracked = 100 * time.Millisecond

	numBuckets = int(maxTracked/BucketWidth) + 1 // last bucket is overflow
)

// Analyzer accumulates render-duration samples and answers statistical
// queries over the samples fed since the last Reset.
//
// It is not safe for concurrent use; the benchmark loop is single threaded
// and samples are strictly ordered by burst index.
type Analyzer struct {
	count int
	sum   float64 // seconds
	sumSq float64 // seconds squared
	min   time.Duration
	max   time.Duration
	hist  []uint32
}

// NewAnalyzer returns an Analyzer with an empty measurement window.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		hist: make([]uint32, numBuckets),
	}
}

// Reset clears all accumulated state, starting a new measurement window.
// Resetting an already-empty Analyzer is a no-op.
func (a *Analyzer) Reset() {
	a.count = 0
	a.sum = 0
	a.sumSq = 0
	a.min = 0
	a.max = 0
	for i := range a.hist {
		a.hist[i] = 0
	}
}

// AddSample records one render duration. Negative durations are clamped to
// zero; the virtual clock is monotonic so they should not occur.
func (a *Analyzer) AddSample(d time.Duration) {
	if d < 0 {
		d = 0
	}

	if a.count == 0 || d < a.min {
		a.min = d
	}
	if d > a.max {
		a.max = d
	}

	s := d.Seconds()
	a.sum += s
	a.sumSq += s * s
	a.count++

	bucket := int(d / BucketWidth)
	if bucket >= numBuckets {
		bucket = numBuckets - 1
	}
	a.hist[bucket]++
}

// Count returns the number of samples in the current window.
func (a *Analyzer) Count() int {
	return a.count
}

// Average returns the mean render duration of the current window.
func (a *Analyzer) Average() (time.Duration, error) {
	if a.count == 0 {
		return 0, ErrNoSamples
	}
	return secondsToDuration(a.sum / float64(a.count)), nil
}

// Min returns the smallest sample in the current window.
func (a *Analyzer) Min() (time.Duration, error) {
	if a.count == 0 {
		return 0, ErrNoSamples
	}
	return a.min, nil
}

// Max returns the largest sample in the current window.
func (a *Analyzer) Max() (time.Duration, error) {
	if a.count == 0 {
		return 0, ErrNoSamples
	}
	return a.max, nil
}

// Variance returns the population variance of the window in seconds squared,
// computed from the running sum and sum-of-squares aggregates.
func (a *Analyzer) Variance() (float64, error) {
	if a.count == 0 {
		return 0, ErrNoSamples
	}

	n := float64(a.count)
	mean := a.sum / n
	v := a.sumSq/n - mean*mean
	// Guard against tiny negative results from float cancellation.
	if v < 0 {
		v = 0
	}
	return v, nil
}

// StdDev returns the population standard deviation of the window.
func (a *Analyzer) StdDev() (time.Duration, error) {
	v, err := a.Variance()
	if err != nil {
		return 0, err
	}
	return secondsToDuration(math.Sqrt(v)), nil
}

// Percentile returns the p-th percentile (0 < p <= 100) of the window using
// the nearest-rank method on the bounded histogram: the result is the upper
// bound of the bucket containing the sample of rank ceil(p/100 * count).
// For a given sample stream the result is fully deterministic, reproducible
// across runs, and accurate to one BucketWidth. Ranks that fall in the
// overflow bucket report the observed maximum.
func (a *Analyzer) Percentile(p float64) (time.Duration, error) {
	if a.count == 0 {
		return 0, ErrNoSamples
	}
	if p <= 0 || p > 100 {
		return 0, errors.New("timing: percentile must be in (0, 100]")
	}

	rank := int(math.Ceil(p / 100 * float64(a.count)))
	if rank < 1 {
		rank = 1
	}

	cumulative := 0
	for i, n := range a.hist {
		cumulative += int(n)
		if cumulative >= rank {
			if i == numBuckets-1 {
				return a.max, nil
			}
			return time.Duration(i+1) * BucketWidth, nil
		}
	}

	// Unreachable: cumulative counts always reach a.count.
	return a.max, nil
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}
