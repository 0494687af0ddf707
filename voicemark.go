package synthmark

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/tphakala/synthmark/internal/audiosink"
)

// VoiceMarkHarness searches for the largest voice count sustainable at a
// target CPU load fraction. Once per control window it compares the
// measured load (average render duration over the window, divided by the
// burst period) against the target, then steps the voice count towards the
// target: coarse steps proportional to the error far from the target,
// single-voice steps near it. The adjustment loop is bounded by the run
// duration, so a saturated system (target exceeded even at zero voices)
// reports a degenerate measurement instead of looping forever.
type VoiceMarkHarness struct {
	baseHarness

	targetLoad float64
	tolerance  float64

	current        int
	windowEnd      time.Duration
	measuredLoad   float64
	measuredVoices int
	loadMeasured   bool
	saturated      bool
	windows        int
	adjustments    int
}

var _ TestHarness = (*VoiceMarkHarness)(nil)

// NewVoiceMarkHarness creates a VoiceMark run writing into result. A nil
// source selects the built-in synthesizer; a nil logger selects
// slog.Default.
func NewVoiceMarkHarness(source RenderSource, result *Result, logger *slog.Logger) *VoiceMarkHarness {
	h := &VoiceMarkHarness{
		baseHarness: newBaseHarness("VoiceMark", source, result, logger),
		targetLoad:  DefaultTargetLoad,
		tolerance:   loadTolerance,
	}
	h.hooks = h
	return h
}

// SetTargetLoad sets the CPU load fraction to converge on. Valid range is
// (0, 1].
func (h *VoiceMarkHarness) SetTargetLoad(load float64) error {
	if err := h.configure(); err != nil {
		return err
	}
	if load <= 0 || load > 1 {
		return fmt.Errorf("%w: target load %v outside (0, 1]", ErrInvalidConfig, load)
	}
	h.targetLoad = load
	return nil
}

// TargetLoad returns the configured target CPU load fraction.
func (h *VoiceMarkHarness) TargetLoad() float64 {
	return h.targetLoad
}

// FinalVoiceCount returns the voice count the search settled on.
func (h *VoiceMarkHarness) FinalVoiceCount() int {
	return h.current
}

// MeasuredLoad returns the load measured in the last completed control
// window.
func (h *VoiceMarkHarness) MeasuredLoad() float64 {
	return h.measuredLoad
}

// MeasuredVoices returns the voice count that ran during the window
// MeasuredLoad was taken from. When the run ends mid-window this lags the
// final count by one adjustment.
func (h *VoiceMarkHarness) MeasuredVoices() int {
	return h.measuredVoices
}

// Saturated reports whether the target load was exceeded with zero voices.
func (h *VoiceMarkHarness) Saturated() bool {
	return h.saturated
}

func (h *VoiceMarkHarness) begin(period time.Duration) error {
	h.current = h.numVoices
	h.windowEnd = voiceControlWindow
	h.loadMeasured = false
	h.measuredVoices = 0
	h.saturated = false
	h.windows = 0
	h.adjustments = 0
	return nil
}

func (h *VoiceMarkHarness) onBurst(rep audiosink.Report) error {
	// Close the control window once the simulated time has covered it.
	end := rep.Burst.StartTime() + h.period
	if end < h.windowEnd {
		return nil
	}

	az := h.sink.Analyzer()
	avg, err := az.Average()
	if err != nil {
		return err
	}
	load := avg.Seconds() / h.period.Seconds()
	h.measuredLoad = load
	h.measuredVoices = h.current
	h.loadMeasured = true
	h.windows++

	if err := h.adjust(load); err != nil {
		return err
	}

	az.Reset()
	for h.windowEnd <= end {
		h.windowEnd += voiceControlWindow
	}
	return nil
}

// adjust steps the voice count towards the target load. The step size is
// proportional to the relative load error scaled by the current count, so
// it is coarse when far off and settles to single-voice steps near the
// target band.
func (h *VoiceMarkHarness) adjust(load float64) error {
	diff := h.targetLoad - load
	if math.Abs(diff) <= h.tolerance {
		return nil
	}

	h.adjustments++
	step := voiceStep(diff, h.targetLoad, h.current)

	next := h.current
	if diff > 0 {
		next += step
		if next > MaxVoices {
			next = MaxVoices
		}
	} else {
		next -= step
		if next < 0 {
			next = 0
		}
		if next == 0 && h.current == 0 {
			// Fixed overhead alone exceeds the target; nothing left
			// to shed. Report the overshoot as a valid measurement.
			h.saturated = true
			return nil
		}
	}

	if next == h.current {
		return nil
	}
	h.current = next
	return h.source.SetVoiceCount(next)
}

func (h *VoiceMarkHarness) finish(result *Result) error {
	result.AppendMessage("VoiceMark = %d voices at target load %.2f",
		h.current, h.targetLoad)
	if h.loadMeasured {
		result.AppendMessage("measured load = %.3f at %d voices",
			h.measuredLoad, h.measuredVoices)
	}
	result.AppendMessage("underruns = %d", h.sink.UnderrunCount())
	result.AppendMessage("control windows = %d, adjustments = %d",
		h.windows, h.adjustments)
	if h.saturated {
		result.AppendMessage(
			"WARNING: load exceeds target with zero voices, system saturated")
	}
	result.SetResultCode(ResultCodeOK)
	return nil
}

func voiceStep(diff, target float64, current int) int {
	ref := current
	if ref < 1 {
		ref = 1
	}
	step := int(math.Round(math.Abs(diff) / target * float64(ref)))
	if step < 1 {
		step = 1
	}
	return step
}
