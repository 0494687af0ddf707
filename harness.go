package synthmark

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tphakala/synthmark/internal/audiosink"
	"github.com/tphakala/synthmark/internal/synth"
)

var (
	// ErrInvalidConfig indicates invalid benchmark parameters. It is always
	// resolved before a harness enters the Running state.
	ErrInvalidConfig = errors.New("synthmark: invalid configuration")

	// ErrInvalidState indicates an operation illegal in the harness's
	// current state, e.g. a setter called during or after a run.
	ErrInvalidState = errors.New("synthmark: invalid state")
)

// RenderSource is the synthesis workload the benchmark drives. The core
// treats it as a black box with one load-bearing property: the duration
// consumed by RenderBurst is non-decreasing in the active voice count for a
// fixed frame count and sample rate.
type RenderSource interface {
	// Open prepares the source for the given sample rate.
	Open(sampleRate int) error

	// SetVoiceCount sets the active voice count, the benchmark's
	// adjustable load parameter.
	SetVoiceCount(n int) error

	// NoteOn idempotently triggers a new sustained event.
	NoteOn()

	// RenderBurst produces one burst of audio. It is timed wall-clock by
	// the virtual audio sink.
	RenderBurst(frameCount int)
}

var _ RenderSource = (*synth.Synthesizer)(nil)

// State is the harness lifecycle. Completed and Failed are terminal.
type State int

const (
	StateIdle State = iota
	StateConfiguring
	StateRunning
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateConfiguring:
		return "Configuring"
	case StateRunning:
		return "Running"
	case StateCompleted:
		return "Completed"
	case StateFailed:
		return "Failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// TestHarness is the contract shared by the four benchmark variants.
// Setters are legal only before RunTest; RunTest blocks for the full
// benchmark duration and fills the Result passed to the constructor.
type TestHarness interface {
	Name() string
	State() State
	SetNumVoices(n int) error
	SetNoteOnDelay(seconds int) error
	SetCPUAffinity(core int) error
	RunTest(sampleRate, framesPerBurst, durationSeconds int) error
}

// controlHooks is the per-variant part of a harness: begin runs after the
// sink is open, onBurst is the control step invoked once per burst with the
// latest timing report, finish writes the metrics into the Result.
type controlHooks interface {
	begin(period time.Duration) error
	onBurst(rep audiosink.Report) error
	finish(result *Result) error
}

// baseHarness implements the lifecycle and the shared per-burst protocol:
// trigger NoteOn once the simulated time passes the configured delay,
// render the burst under the sink's timing, then hand the report to the
// variant's control step. The sink has already fed the timing analyzer by
// the time the control step runs.
type baseHarness struct {
	name   string
	sink   *audiosink.Sink
	source RenderSource
	result *Result
	logger *slog.Logger
	hooks  controlHooks

	state          State
	numVoices      int
	noteOnDelay    time.Duration
	framesPerBurst int
	period         time.Duration
	noteTriggered  bool
}

// newBaseHarness wires the shared pieces. A nil source selects the built-in
// synthesizer; a nil logger selects slog.Default.
func newBaseHarness(name string, source RenderSource, result *Result, logger *slog.Logger) baseHarness {
	if logger == nil {
		logger = slog.Default()
	}
	if source == nil {
		source = synth.NewSynthesizer(MaxVoices)
	}
	return baseHarness{
		name:      name,
		sink:      audiosink.New(logger),
		source:    source,
		result:    result,
		logger:    logger,
		numVoices: DefaultNumVoices,
	}
}

// Name returns the harness's stable identifier.
func (h *baseHarness) Name() string {
	return h.name
}

// State returns the current lifecycle state.
func (h *baseHarness) State() State {
	return h.state
}

func (h *baseHarness) configurable() bool {
	return h.state == StateIdle || h.state == StateConfiguring
}

func (h *baseHarness) configure() error {
	if !h.configurable() {
		return fmt.Errorf("%w: cannot configure in state %s", ErrInvalidState, h.state)
	}
	h.state = StateConfiguring
	return nil
}

// SetNumVoices sets the initial (or, for observational harnesses, fixed)
// voice count. Legal only before RunTest.
func (h *baseHarness) SetNumVoices(n int) error {
	if err := h.configure(); err != nil {
		return err
	}
	if n < 0 || n > MaxVoices {
		return fmt.Errorf("%w: numVoices %d outside [0, %d]", ErrInvalidConfig, n, MaxVoices)
	}
	h.numVoices = n
	return nil
}

// SetNoteOnDelay delays the first NoteOn by the given number of seconds of
// simulated time.
func (h *baseHarness) SetNoteOnDelay(seconds int) error {
	if err := h.configure(); err != nil {
		return err
	}
	if seconds < 0 {
		return fmt.Errorf("%w: noteOnDelay %d", ErrInvalidConfig, seconds)
	}
	h.noteOnDelay = time.Duration(seconds) * time.Second
	return nil
}

// SetCPUAffinity requests that the callback loop run pinned to the given
// core; CPUUnspecified removes the request. Whether the binding is granted
// is host-validated at run time and absorbed into the Result when denied.
func (h *baseHarness) SetCPUAffinity(core int) error {
	if err := h.configure(); err != nil {
		return err
	}
	h.sink.SetRequestedCPU(core)
	return nil
}

// RunTest runs the full benchmark synchronously: it opens the sink and the
// render source, drives the callback loop for durationSeconds of simulated
// time, and fills the Result. It returns only after the full burst count
// has executed or a host-level failure aborted the run.
func (h *baseHarness) RunTest(sampleRate, framesPerBurst, durationSeconds int) error {
	if !h.configurable() {
		return fmt.Errorf("%w: RunTest in state %s", ErrInvalidState, h.state)
	}
	if sampleRate <= 0 {
		return fmt.Errorf("%w: sampleRate %d", ErrInvalidConfig, sampleRate)
	}
	if framesPerBurst < MinFramesPerBurst {
		return fmt.Errorf("%w: framesPerBurst %d (minimum %d)",
			ErrInvalidConfig, framesPerBurst, MinFramesPerBurst)
	}
	if durationSeconds < 1 {
		return fmt.Errorf("%w: durationSeconds %d", ErrInvalidConfig, durationSeconds)
	}
	if h.noteOnDelay > time.Duration(durationSeconds)*time.Second {
		return fmt.Errorf("%w: noteOnDelay exceeds run duration", ErrInvalidConfig)
	}

	h.state = StateRunning
	h.framesPerBurst = framesPerBurst
	h.noteTriggered = false

	if err := h.sink.Open(sampleRate, framesPerBurst); err != nil {
		return h.fail(err)
	}
	h.period = h.sink.Period()

	if err := h.source.Open(sampleRate); err != nil {
		return h.fail(err)
	}
	if err := h.source.SetVoiceCount(h.numVoices); err != nil {
		return h.fail(err)
	}
	if err := h.hooks.begin(h.period); err != nil {
		return h.fail(err)
	}

	h.logger.Info("benchmark running",
		slog.String("harness", h.name),
		slog.Int("sample_rate", sampleRate),
		slog.Int("frames_per_burst", framesPerBurst),
		slog.Int("duration_s", durationSeconds),
	)

	render := func(b audiosink.Burst) error {
		if !h.noteTriggered && b.StartTime() >= h.noteOnDelay {
			h.source.NoteOn()
			h.noteTriggered = true
		}
		h.source.RenderBurst(b.FrameCount)
		return nil
	}

	if err := h.sink.RunLoop(durationSeconds, render, h.hooks.onBurst); err != nil {
		return h.fail(err)
	}

	for _, note := range h.sink.FidelityNotes() {
		h.result.AppendMessage("NOTE: %s", note)
	}
	if err := h.hooks.finish(h.result); err != nil {
		return h.fail(err)
	}

	h.state = StateCompleted
	return nil
}

// fail moves the harness to the terminal Failed state and records the
// failure in the Result.
func (h *baseHarness) fail(err error) error {
	h.state = StateFailed
	h.result.SetResultCode(ResultCodeFailure)
	h.result.AppendMessage("ERROR: %v", err)
	h.logger.Error("benchmark failed",
		slog.String("harness", h.name),
		slog.String("error", err.Error()),
	)
	return err
}

// UnderrunCount returns the number of deadline misses observed so far.
func (h *baseHarness) UnderrunCount() int {
	return h.sink.UnderrunCount()
}
