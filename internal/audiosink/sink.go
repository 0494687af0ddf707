// Package audiosink emulates a fixed-period real-time audio callback source
// entirely in software.
//
// The sink wakes on absolute deadlines derived from a monotonic start
// timestamp (start + n*period), invokes a render callback once per burst,
// measures the wall-clock render duration, and counts deadline misses
// (underruns). Scheduling against absolute deadlines rather than sleeping
// for one period after each render is essential: a relative sleep would let
// render overruns silently stretch the effective period and hide the very
// jitter and underrun symptoms the benchmark exists to expose.
package audiosink

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/tphakala/synthmark/internal/timing"
)

// CPUUnspecified disables CPU pinning.
const CPUUnspecified = -1

// Wait strategy: sleep coarsely until close to the deadline, then spin.
// Host sleep granularity is typically far coarser than the sub-millisecond
// timing error a latency benchmark can tolerate, so the final stretch
// before each deadline is burned in a busy loop on the monotonic clock.
const defaultSpinWindow = 200 * time.Microsecond

// MinFramesPerBurst is the smallest burst the virtual hardware reads.
const MinFramesPerBurst = 4

var (
	// ErrNotOpen indicates RunLoop was called before Open.
	ErrNotOpen = errors.New("audiosink: not open")

	// ErrRunning indicates Open or RunLoop was called while the loop is active.
	ErrRunning = errors.New("audiosink: loop already running")

	// ErrInvalidFormat indicates an unusable sample rate or burst size.
	ErrInvalidFormat = errors.New("audiosink: invalid format")
)

// Burst describes one simulated hardware callback cycle. It is ephemeral:
// valid only for the duration of the callback invocation it is passed to.
type Burst struct {
	Index      int
	FrameCount int
	SampleRate int
}

// StartTime returns the burst's position on the simulated timeline,
// relative to the start of the run.
func (b Burst) StartTime() time.Duration {
	return time.Duration(b.Index) * periodOf(b.FrameCount, b.SampleRate)
}

// Report carries the measured outcome of one completed burst to the
// harness control step.
type Report struct {
	Burst          Burst
	Deadline       time.Time // scheduled callback time (monotonic)
	Completed      time.Time // when the render returned
	RenderDuration time.Duration
	Underrun       bool // render duration exceeded the burst period
}

// RenderFunc produces the audio for one burst. The sink times it with the
// wall clock; it must not block on anything other than computation.
type RenderFunc func(b Burst) error

// ControlFunc runs after each burst's timing sample has been recorded.
type ControlFunc func(rep Report) error

// Sink is the virtual real-time audio device. It owns the burst period,
// the optional CPU-affinity binding, deadline bookkeeping, and underrun
// counting for one benchmark run.
//
// A Sink is exclusively owned by one harness; only one should be active
// per process since CPU affinity is a process-global resource.
type Sink struct {
	logger *slog.Logger

	requestedCPU int
	sampleRate   int
	frames       int
	period       time.Duration
	opened       bool
	running      bool

	analyzer  *timing.Analyzer
	underruns int
	notes     []string // fidelity degradations, reported not fatal

	// Clock hooks, replaceable for deterministic tests.
	now        func() time.Time
	sleep      func(d time.Duration)
	spinWindow time.Duration
}

// New returns a closed Sink. A nil logger falls back to slog.Default.
func New(logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{
		logger:       logger,
		requestedCPU: CPUUnspecified,
		analyzer:     timing.NewAnalyzer(),
		now:          time.Now,
		sleep:        time.Sleep,
		spinWindow:   defaultSpinWindow,
	}
}

// SetRequestedCPU requests that the callback loop run pinned to the given
// processing unit. CPUUnspecified removes the request. A denied binding is
// logged and reported, never fatal: benchmarking continues on whatever core
// the host grants.
func (s *Sink) SetRequestedCPU(core int) {
	s.requestedCPU = core
}

// SetClock replaces the monotonic clock and sleep primitives. Tests use it
// to drive the loop against a simulated clock; the replacement sleep must
// advance the replacement clock. The fine-spin phase is disabled because an
// injected sleep lands exactly on the deadline.
func (s *Sink) SetClock(now func() time.Time, sleep func(time.Duration)) {
	s.now = now
	s.sleep = sleep
	s.spinWindow = 0
}

// Open establishes the burst period framesPerBurst/sampleRate. It must be
// called before RunLoop and is illegal while the loop is running.
func (s *Sink) Open(sampleRate, framesPerBurst int) error {
	if s.running {
		return ErrRunning
	}
	if sampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrInvalidFormat, sampleRate)
	}
	if framesPerBurst < MinFramesPerBurst {
		return fmt.Errorf("%w: frames per burst %d (minimum %d)",
			ErrInvalidFormat, framesPerBurst, MinFramesPerBurst)
	}

	s.sampleRate = sampleRate
	s.frames = framesPerBurst
	s.period = periodOf(framesPerBurst, sampleRate)
	s.underruns = 0
	s.notes = s.notes[:0]
	s.analyzer.Reset()
	s.opened = true
	return nil
}

// Period returns the burst period established by Open.
func (s *Sink) Period() time.Duration {
	return s.period
}

// UnderrunCount returns the number of bursts whose render duration exceeded
// the period since Open.
func (s *Sink) UnderrunCount() int {
	return s.underruns
}

// Analyzer returns the sink's timing analyzer. Harness control steps read
// it between bursts and may reset its window.
func (s *Sink) Analyzer() *timing.Analyzer {
	return s.analyzer
}

// FidelityNotes lists non-fatal measurement degradations (denied affinity,
// denied scheduler class) observed during the last run.
func (s *Sink) FidelityNotes() []string {
	return s.notes
}

// BurstCount returns the number of bursts RunLoop executes for the given
// duration: ceil(seconds / period), computed in exact frame arithmetic so
// the loop is deterministic in burst count regardless of overruns.
func (s *Sink) BurstCount(durationSeconds int) int {
	totalFrames := durationSeconds * s.sampleRate
	return (totalFrames + s.frames - 1) / s.frames
}

// RunLoop drives the simulated callback loop for durationSeconds of
// simulated time. For each burst it blocks until the absolute deadline
// start + index*period, invokes render, records a timing sample, flags an
// underrun if the render overran the period, then invokes control with the
// burst report. It is synchronous: it returns only after the full burst
// count has executed or a callback returned an error.
//
// Under sustained overruns the real elapsed time exceeds the requested
// duration; the burst count target stays fixed so a slower-than-realtime
// workload is measured in full rather than truncated.
func (s *Sink) RunLoop(durationSeconds int, render RenderFunc, control ControlFunc) error {
	if !s.opened {
		return ErrNotOpen
	}
	if s.running {
		return ErrRunning
	}
	if durationSeconds < 1 {
		return fmt.Errorf("%w: duration %d s", ErrInvalidFormat, durationSeconds)
	}

	s.running = true
	defer func() { s.running = false }()

	// Pin the loop to one OS thread so affinity and scheduler-class
	// requests apply to the thread actually running the callbacks.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	s.applyThreadRequests()

	numBursts := s.BurstCount(durationSeconds)
	start := s.now()

	for i := range numBursts {
		deadline := start.Add(time.Duration(i) * s.period)
		s.waitUntil(deadline)

		b := Burst{Index: i, FrameCount: s.frames, SampleRate: s.sampleRate}

		renderStart := s.now()
		if err := render(b); err != nil {
			return fmt.Errorf("audiosink: burst %d render: %w", i, err)
		}
		completed := s.now()

		dur := completed.Sub(renderStart)
		s.analyzer.AddSample(dur)

		underrun := dur > s.period
		if underrun {
			s.underruns++
		}

		if control != nil {
			rep := Report{
				Burst:          b,
				Deadline:       deadline,
				Completed:      completed,
				RenderDuration: dur,
				Underrun:       underrun,
			}
			if err := control(rep); err != nil {
				return fmt.Errorf("audiosink: burst %d control: %w", i, err)
			}
		}
	}

	return nil
}

// waitUntil blocks until the monotonic clock reaches deadline: a coarse
// sleep up to spinWindow short of the deadline, then a busy spin for the
// remainder. A deadline already in the past returns immediately, which is
// how the loop absorbs overruns without accumulating drift.
func (s *Sink) waitUntil(deadline time.Time) {
	remaining := deadline.Sub(s.now())
	if remaining > s.spinWindow {
		s.sleep(remaining - s.spinWindow)
	}
	for s.now().Before(deadline) {
		// Spin on the monotonic clock for the final stretch.
	}
}

// applyThreadRequests asks the host for CPU pinning and an elevated
// scheduling class. Denials degrade fidelity but never abort the run.
func (s *Sink) applyThreadRequests() {
	if s.requestedCPU != CPUUnspecified {
		if err := setAffinity(s.requestedCPU); err != nil {
			note := fmt.Sprintf("cpu affinity %d denied: %v", s.requestedCPU, err)
			s.notes = append(s.notes, note)
			s.logger.Warn("cpu affinity denied",
				slog.Int("cpu", s.requestedCPU),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := requestRealtime(); err != nil {
		note := fmt.Sprintf("realtime scheduling denied: %v", err)
		s.notes = append(s.notes, note)
		s.logger.Info("realtime scheduling denied",
			slog.String("error", err.Error()),
		)
	}
}

func periodOf(framesPerBurst, sampleRate int) time.Duration {
	return time.Duration(framesPerBurst) * time.Second / time.Duration(sampleRate)
}
