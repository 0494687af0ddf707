package synthmark

import (
	"time"

	"github.com/tphakala/synthmark/internal/audiosink"
)

// Version of the benchmark definition. Results are only comparable between
// builds with the same major version.
const (
	MajorVersion = 1
	MinorVersion = 0
)

// Benchmark limits and defaults.
const (
	// MaxVoices bounds the adjustable load parameter of every harness.
	MaxVoices = 512

	// CPUUnspecified disables CPU pinning of the callback loop.
	CPUUnspecified = audiosink.CPUUnspecified

	// MinFramesPerBurst is the smallest burst the virtual hardware reads.
	MinFramesPerBurst = audiosink.MinFramesPerBurst

	DefaultSampleRate     = 48000
	DefaultFramesPerBurst = 64
	DefaultNumVoices      = 8
	DefaultSeconds        = 10

	// DefaultTargetLoad is the CPU load fraction VoiceMark converges on.
	DefaultTargetLoad = 0.5
)

// Control-algorithm tuning. These are the documented, test-covered choices
// for the convergence and cadence parameters.
const (
	// voiceControlWindow is how much simulated time VoiceMark measures
	// before each voice-count adjustment.
	voiceControlWindow = time.Second

	// loadTolerance is the half-width of the acceptance band around the
	// target load; within it the voice count is left alone.
	loadTolerance = 0.02

	// latencyPhaseDuration is how long LatencyMark holds each load phase
	// before toggling between the low and high voice counts.
	latencyPhaseDuration = 2 * time.Second

	// maxEchoedUnderruns caps the per-event lines in the LatencyMark
	// report; remaining events are only counted.
	maxEchoedUnderruns = 8
)
