package audiosink

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/synthmark/internal/testutil"
)

const (
	testSampleRate = 48000
	testFrames256  = 256
	testFrames64   = 64
)

func newTestSink(clock *testutil.FakeClock) *Sink {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := New(logger)
	s.SetClock(clock.Now, clock.Sleep)
	return s
}

func TestSink_PeriodExact(t *testing.T) {
	tests := []struct {
		name   string
		rate   int
		frames int
		want   time.Duration
	}{
		{"256_at_48k", 48000, 256, time.Duration(256) * time.Second / 48000},
		{"64_at_48k", 48000, 64, time.Duration(64) * time.Second / 48000},
		{"441_at_44k1", 44100, 441, 10 * time.Millisecond},
		{"48_at_48k", 48000, 48, time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSink(testutil.NewFakeClock())
			require.NoError(t, s.Open(tt.rate, tt.frames))
			assert.Equal(t, tt.want, s.Period())
		})
	}
}

func TestSink_OpenValidation(t *testing.T) {
	s := newTestSink(testutil.NewFakeClock())

	err := s.Open(0, testFrames256)
	assert.ErrorIs(t, err, ErrInvalidFormat)

	err = s.Open(testSampleRate, 3)
	assert.ErrorIs(t, err, ErrInvalidFormat)

	err = s.Open(testSampleRate, MinFramesPerBurst)
	assert.NoError(t, err)
}

func TestSink_RunLoopRequiresOpen(t *testing.T) {
	s := newTestSink(testutil.NewFakeClock())
	err := s.RunLoop(1, func(Burst) error { return nil }, nil)
	assert.ErrorIs(t, err, ErrNotOpen)
}

// TestSink_BurstCount verifies the deterministic burst count
// ceil(duration/period) for several formats.
func TestSink_BurstCount(t *testing.T) {
	tests := []struct {
		name    string
		rate    int
		frames  int
		seconds int
		want    int
	}{
		{"even_division", 48000, 64, 1, 750},
		{"uneven_division", 48000, 256, 1, 188}, // ceil(187.5)
		{"ten_seconds", 48000, 64, 10, 7500},
		{"odd_burst", 44100, 100, 1, 441},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := testutil.NewFakeClock()
			s := newTestSink(clock)
			require.NoError(t, s.Open(tt.rate, tt.frames))
			assert.Equal(t, tt.want, s.BurstCount(tt.seconds))

			count := 0
			err := s.RunLoop(tt.seconds, func(b Burst) error {
				assert.Equal(t, count, b.Index)
				count++
				return nil
			}, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, count)
		})
	}
}

// TestSink_UnderrunEveryBurst drives a render that always takes 1.5x the
// period; every burst must be flagged as an underrun.
func TestSink_UnderrunEveryBurst(t *testing.T) {
	clock := testutil.NewFakeClock()
	s := newTestSink(clock)
	require.NoError(t, s.Open(testSampleRate, testFrames64))

	cost := s.Period() * 3 / 2
	reports := 0
	err := s.RunLoop(1, func(Burst) error {
		clock.Advance(cost)
		return nil
	}, func(rep Report) error {
		assert.True(t, rep.Underrun, "burst %d not flagged", rep.Burst.Index)
		assert.Equal(t, cost, rep.RenderDuration)
		reports++
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, s.BurstCount(1), reports)
	assert.Equal(t, s.BurstCount(1), s.UnderrunCount())
}

// TestSink_NoUnderrunAtHalfLoad drives a render that takes 0.5x the period;
// no burst may be flagged.
func TestSink_NoUnderrunAtHalfLoad(t *testing.T) {
	clock := testutil.NewFakeClock()
	s := newTestSink(clock)
	require.NoError(t, s.Open(testSampleRate, testFrames64))

	cost := s.Period() / 2
	err := s.RunLoop(1, func(Burst) error {
		clock.Advance(cost)
		return nil
	}, func(rep Report) error {
		assert.False(t, rep.Underrun, "burst %d flagged", rep.Burst.Index)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, s.UnderrunCount())
}

// TestSink_AbsoluteDeadlines verifies deadlines never drift: they stay at
// start + n*period even when every render overruns its period.
func TestSink_AbsoluteDeadlines(t *testing.T) {
	clock := testutil.NewFakeClock()
	s := newTestSink(clock)
	require.NoError(t, s.Open(testSampleRate, testFrames64))

	start := clock.Now()
	cost := s.Period() * 6 / 5
	err := s.RunLoop(1, func(Burst) error {
		clock.Advance(cost)
		return nil
	}, func(rep Report) error {
		want := start.Add(time.Duration(rep.Burst.Index) * s.Period())
		assert.Equal(t, want, rep.Deadline,
			"deadline drifted at burst %d", rep.Burst.Index)
		return nil
	})
	require.NoError(t, err)
}

// TestSink_RealTimeExtendsUnderOverrun: with every render overrunning, the
// wall clock at loop exit must exceed the requested simulated duration
// because the burst count target stays fixed.
func TestSink_RealTimeExtendsUnderOverrun(t *testing.T) {
	clock := testutil.NewFakeClock()
	s := newTestSink(clock)
	require.NoError(t, s.Open(testSampleRate, testFrames64))

	start := clock.Now()
	cost := s.Period() * 2
	err := s.RunLoop(1, func(Burst) error {
		clock.Advance(cost)
		return nil
	}, nil)
	require.NoError(t, err)

	elapsed := clock.Now().Sub(start)
	assert.Greater(t, elapsed, time.Second)
	// All bursts ran back to back at double cost.
	assert.Equal(t, time.Duration(s.BurstCount(1))*cost, elapsed)
}

func TestSink_TimingSamplesOrdered(t *testing.T) {
	clock := testutil.NewFakeClock()
	s := newTestSink(clock)
	require.NoError(t, s.Open(testSampleRate, testFrames64))

	// The analyzer must reflect exactly the samples fed so far at the
	// moment the control step reads it.
	err := s.RunLoop(1, func(Burst) error {
		clock.Advance(time.Millisecond)
		return nil
	}, func(rep Report) error {
		assert.Equal(t, rep.Burst.Index+1, s.Analyzer().Count())
		return nil
	})
	require.NoError(t, err)
}

func TestSink_RenderErrorAborts(t *testing.T) {
	clock := testutil.NewFakeClock()
	s := newTestSink(clock)
	require.NoError(t, s.Open(testSampleRate, testFrames64))

	boom := errors.New("buffer allocation failed")
	err := s.RunLoop(1, func(b Burst) error {
		if b.Index == 3 {
			return boom
		}
		return nil
	}, nil)
	assert.ErrorIs(t, err, boom)
}

func TestSink_OpenWhileRunning(t *testing.T) {
	clock := testutil.NewFakeClock()
	s := newTestSink(clock)
	require.NoError(t, s.Open(testSampleRate, testFrames64))

	var openErr error
	err := s.RunLoop(1, func(b Burst) error {
		if b.Index == 0 {
			openErr = s.Open(testSampleRate, testFrames256)
		}
		return nil
	}, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, openErr, ErrRunning)
}

func TestBurst_StartTime(t *testing.T) {
	b := Burst{Index: 750, FrameCount: 64, SampleRate: 48000}
	assert.Equal(t, time.Second, b.StartTime())
}
