package synthmark

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/tphakala/synthmark/internal/audiosink"
)

// UnderrunEvent is one deadline miss with the diagnostics LatencyMark
// retains: which burst missed and whether it happened during a low- or
// high-load phase.
type UnderrunEvent struct {
	BurstIndex     int
	HighLoad       bool
	RenderDuration time.Duration
}

// LatencyMarkHarness measures glitch behavior at a fixed burst size: the
// headline metric is the underrun count at the configured framesPerBurst.
// The harness does not search burst sizes itself; repeated invocations at
// different burst sizes perform the external search for the smallest
// glitch-free callback period.
//
// When a high voice count is configured, the load toggles between numVoices
// and numVoicesHigh every latencyPhaseDuration of simulated time to stress
// transient load changes; each underrun event records which phase it hit.
type LatencyMarkHarness struct {
	baseHarness

	numVoicesHigh int
	toggling      bool
	highPhase     bool
	nextToggle    time.Duration

	events        []UnderrunEvent
	lowUnderruns  int
	highUnderruns int
}

var _ TestHarness = (*LatencyMarkHarness)(nil)

// NewLatencyMarkHarness creates a LatencyMark run writing into result.
func NewLatencyMarkHarness(source RenderSource, result *Result, logger *slog.Logger) *LatencyMarkHarness {
	h := &LatencyMarkHarness{
		baseHarness: newBaseHarness("LatencyMark", source, result, logger),
	}
	h.hooks = h
	return h
}

// SetNumVoicesHigh enables load toggling with the given high-phase voice
// count; zero disables toggling. The low count may be zero when toggling,
// in which case the low phase renders silence. Legality against the low
// voice count is checked when the run starts, since the counts may be set
// in any order.
func (h *LatencyMarkHarness) SetNumVoicesHigh(n int) error {
	if err := h.configure(); err != nil {
		return err
	}
	if n < 0 || n > MaxVoices {
		return fmt.Errorf("%w: numVoicesHigh %d outside [0, %d]",
			ErrInvalidConfig, n, MaxVoices)
	}
	h.numVoicesHigh = n
	return nil
}

// UnderrunEvents returns the phase-tagged miss timeline of the run.
func (h *LatencyMarkHarness) UnderrunEvents() []UnderrunEvent {
	return h.events
}

func (h *LatencyMarkHarness) begin(period time.Duration) error {
	if h.numVoicesHigh != 0 && h.numVoicesHigh < h.numVoices {
		return fmt.Errorf(
			"%w: toggling requires numVoicesHigh >= numVoices (have %d, %d)",
			ErrInvalidConfig, h.numVoicesHigh, h.numVoices)
	}
	h.toggling = h.numVoicesHigh != 0
	h.highPhase = false
	h.nextToggle = latencyPhaseDuration
	h.events = nil
	h.lowUnderruns = 0
	h.highUnderruns = 0
	return nil
}

func (h *LatencyMarkHarness) onBurst(rep audiosink.Report) error {
	if rep.Underrun {
		h.events = append(h.events, UnderrunEvent{
			BurstIndex:     rep.Burst.Index,
			HighLoad:       h.highPhase,
			RenderDuration: rep.RenderDuration,
		})
		if h.highPhase {
			h.highUnderruns++
		} else {
			h.lowUnderruns++
		}
	}

	if !h.toggling {
		return nil
	}
	if rep.Burst.StartTime()+h.period < h.nextToggle {
		return nil
	}

	h.highPhase = !h.highPhase
	voices := h.numVoices
	if h.highPhase {
		voices = h.numVoicesHigh
	}
	for h.nextToggle <= rep.Burst.StartTime()+h.period {
		h.nextToggle += latencyPhaseDuration
	}
	return h.source.SetVoiceCount(voices)
}

func (h *LatencyMarkHarness) finish(result *Result) error {
	total := h.sink.UnderrunCount()
	result.AppendMessage("LatencyMark underruns = %d at %d frames per burst (%.2f ms)",
		total, h.framesPerBurst, float64(h.period)/float64(time.Millisecond))
	if h.toggling {
		result.AppendMessage("low phase (%d voices) underruns = %d",
			h.numVoices, h.lowUnderruns)
		result.AppendMessage("high phase (%d voices) underruns = %d",
			h.numVoicesHigh, h.highUnderruns)
	}

	for i, ev := range h.events {
		if i >= maxEchoedUnderruns {
			result.AppendMessage("... %d more underruns not shown",
				len(h.events)-maxEchoedUnderruns)
			break
		}
		phase := "low"
		if ev.HighLoad {
			phase = "high"
		}
		result.AppendMessage("underrun at burst %d (%s load), render took %v",
			ev.BurstIndex, phase, ev.RenderDuration)
	}

	result.SetResultCode(ResultCodeOK)
	return nil
}
