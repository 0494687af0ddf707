package synthmark

import (
	"log/slog"
	"time"

	"github.com/tphakala/synthmark/internal/audiosink"
)

// JitterMarkHarness characterizes the variability of per-burst render
// duration at a fixed voice count. It is purely observational: every sample
// feeds one analyzer window for the whole run and no control step runs.
type JitterMarkHarness struct {
	baseHarness
}

var _ TestHarness = (*JitterMarkHarness)(nil)

// NewJitterMarkHarness creates a JitterMark run writing into result.
func NewJitterMarkHarness(source RenderSource, result *Result, logger *slog.Logger) *JitterMarkHarness {
	h := &JitterMarkHarness{
		baseHarness: newBaseHarness("JitterMark", source, result, logger),
	}
	h.hooks = h
	return h
}

func (h *JitterMarkHarness) begin(period time.Duration) error {
	return nil
}

func (h *JitterMarkHarness) onBurst(rep audiosink.Report) error {
	return nil
}

func (h *JitterMarkHarness) finish(result *Result) error {
	az := h.sink.Analyzer()

	avg, err := az.Average()
	if err != nil {
		return err
	}
	minDur, err := az.Min()
	if err != nil {
		return err
	}
	maxDur, err := az.Max()
	if err != nil {
		return err
	}
	p90, err := az.Percentile(90)
	if err != nil {
		return err
	}
	p99, err := az.Percentile(99)
	if err != nil {
		return err
	}
	stdDev, err := az.StdDev()
	if err != nil {
		return err
	}
	variance, err := az.Variance()
	if err != nil {
		return err
	}

	result.AppendMessage("JitterMark render duration over %d bursts at %d voices",
		az.Count(), h.numVoices)
	result.AppendMessage("average = %s", formatDuration(avg))
	result.AppendMessage("min     = %s", formatDuration(minDur))
	result.AppendMessage("max     = %s", formatDuration(maxDur))
	result.AppendMessage("p90     = %s", formatDuration(p90))
	result.AppendMessage("p99     = %s", formatDuration(p99))
	result.AppendMessage("stddev  = %s", formatDuration(stdDev))
	result.AppendMessage("variance = %.3g s^2", variance)
	result.AppendMessage("underruns = %d", h.sink.UnderrunCount())
	result.SetResultCode(ResultCodeOK)
	return nil
}

// formatDuration prints durations in milliseconds with microsecond
// precision, the natural scale of burst periods.
func formatDuration(d time.Duration) string {
	return d.Round(time.Microsecond).String()
}
