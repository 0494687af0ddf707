package synthmark

import (
	"log/slog"
	"time"

	"github.com/tphakala/synthmark/internal/audiosink"
)

// UtilizationMarkHarness measures the fraction of each callback period
// consumed by rendering at a fixed voice count. The observation loop is the
// same as JitterMark's, but the reported metric is a ratio: average render
// duration over the period, plus the peak ratio to surface worst-case
// spikes the average hides.
type UtilizationMarkHarness struct {
	baseHarness

	avgUtilization  float64
	peakUtilization float64
}

var _ TestHarness = (*UtilizationMarkHarness)(nil)

// NewUtilizationMarkHarness creates a UtilizationMark run writing into
// result.
func NewUtilizationMarkHarness(source RenderSource, result *Result, logger *slog.Logger) *UtilizationMarkHarness {
	h := &UtilizationMarkHarness{
		baseHarness: newBaseHarness("UtilizationMark", source, result, logger),
	}
	h.hooks = h
	return h
}

// AverageUtilization returns the mean render-duration/period ratio of the
// completed run.
func (h *UtilizationMarkHarness) AverageUtilization() float64 {
	return h.avgUtilization
}

// PeakUtilization returns the worst single-burst ratio of the completed
// run. A value above 1.0 means at least one burst underran.
func (h *UtilizationMarkHarness) PeakUtilization() float64 {
	return h.peakUtilization
}

func (h *UtilizationMarkHarness) begin(period time.Duration) error {
	h.avgUtilization = 0
	h.peakUtilization = 0
	return nil
}

func (h *UtilizationMarkHarness) onBurst(rep audiosink.Report) error {
	return nil
}

func (h *UtilizationMarkHarness) finish(result *Result) error {
	az := h.sink.Analyzer()

	avg, err := az.Average()
	if err != nil {
		return err
	}
	maxDur, err := az.Max()
	if err != nil {
		return err
	}

	h.avgUtilization = avg.Seconds() / h.period.Seconds()
	h.peakUtilization = maxDur.Seconds() / h.period.Seconds()

	result.AppendMessage("UtilizationMark over %d bursts at %d voices",
		az.Count(), h.numVoices)
	result.AppendMessage("utilization      = %.3f", h.avgUtilization)
	result.AppendMessage("peak utilization = %.3f", h.peakUtilization)
	result.AppendMessage("period = %s, average render = %s",
		formatDuration(h.period), formatDuration(avg))
	result.AppendMessage("underruns = %d", h.sink.UnderrunCount())
	result.SetResultCode(ResultCodeOK)
	return nil
}
