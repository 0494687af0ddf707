package synthmark

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/synthmark/internal/testutil"
)

const (
	// With costPerVoice = 50us at 64 frames / 48 kHz (period 1.333ms),
	// target load 0.5 is met between 12 and 14 voices.
	voiceTestCost = 50 * time.Microsecond
)

func runVoiceMark(t *testing.T, source *stubSource, target float64, seconds int) *VoiceMarkHarness {
	t.Helper()
	result := NewResult()
	h := NewVoiceMarkHarness(source, result, testLogger())
	useFakeClock(&h.baseHarness, source.clock)
	require.NoError(t, h.SetTargetLoad(target))
	require.NoError(t, h.SetNumVoices(8))
	require.NoError(t, h.RunTest(testSampleRate, testFrames64, seconds))
	assert.Equal(t, ResultCodeOK, result.ResultCode())
	return h
}

func TestVoiceMark_TargetLoadValidation(t *testing.T) {
	h := NewVoiceMarkHarness(nil, NewResult(), testLogger())
	assert.ErrorIs(t, h.SetTargetLoad(0), ErrInvalidConfig)
	assert.ErrorIs(t, h.SetTargetLoad(-0.5), ErrInvalidConfig)
	assert.ErrorIs(t, h.SetTargetLoad(1.01), ErrInvalidConfig)
	assert.NoError(t, h.SetTargetLoad(1))
	assert.NoError(t, h.SetTargetLoad(0.5))
	assert.InDelta(t, 0.5, h.TargetLoad(), 1e-12)
}

// TestVoiceMark_Converges verifies the search settles on a voice count whose
// measured load is within the tolerance band, well before the run ends, and
// without relying on unbounded iteration.
func TestVoiceMark_Converges(t *testing.T) {
	clock := testutil.NewFakeClock()
	source := &stubSource{clock: clock, costPerVoice: voiceTestCost}

	h := runVoiceMark(t, source, 0.5, 6)

	period := 64 * time.Second / testSampleRate
	load := float64(h.FinalVoiceCount()) * voiceTestCost.Seconds() / period.Seconds()
	assert.InDelta(t, 0.5, load, loadTolerance,
		"final voice count %d gives load %.4f", h.FinalVoiceCount(), load)
	assert.InDelta(t, load, h.MeasuredLoad(), 1e-9)
	assert.False(t, h.Saturated())
	assert.Equal(t, StateCompleted, h.State())
}

// TestVoiceMark_Deterministic: repeated runs with the same cost model must
// select the same final voice count.
func TestVoiceMark_Deterministic(t *testing.T) {
	run := func() int {
		clock := testutil.NewFakeClock()
		source := &stubSource{clock: clock, costPerVoice: voiceTestCost}
		return runVoiceMark(t, source, 0.5, 6).FinalVoiceCount()
	}

	first := run()
	second := run()
	assert.Equal(t, first, second)
}

// TestVoiceMark_Saturation: when fixed overhead alone exceeds the target,
// the search bottoms out at zero voices and reports the overshoot as a
// valid degenerate measurement instead of failing or looping.
func TestVoiceMark_Saturation(t *testing.T) {
	clock := testutil.NewFakeClock()
	period := 64 * time.Second / testSampleRate
	source := &stubSource{clock: clock, fixedCost: period} // load 1.0 at any count

	result := NewResult()
	h := NewVoiceMarkHarness(source, result, testLogger())
	useFakeClock(&h.baseHarness, clock)
	require.NoError(t, h.SetNumVoices(8))
	require.NoError(t, h.RunTest(testSampleRate, testFrames64, 4))

	assert.True(t, h.Saturated())
	assert.Equal(t, 0, h.FinalVoiceCount())
	assert.Equal(t, ResultCodeOK, result.ResultCode())
	assert.Contains(t, result.ResultMessage(), "saturated")
}

// When the run ends right after an adjustment, the reported load is labeled
// with the count the window actually ran, not the just-adjusted final count.
func TestVoiceMark_MeasuredVoicesLagFinal(t *testing.T) {
	clock := testutil.NewFakeClock()
	source := &stubSource{clock: clock, costPerVoice: voiceTestCost}
	result := NewResult()
	h := NewVoiceMarkHarness(source, result, testLogger())
	useFakeClock(&h.baseHarness, clock)
	require.NoError(t, h.SetNumVoices(8))
	require.NoError(t, h.RunTest(testSampleRate, testFrames64, 2))

	// 8 -> 11 after the first window, 11 -> 13 after the second; the load
	// on record was measured while 11 voices ran.
	assert.Equal(t, 13, h.FinalVoiceCount())
	assert.Equal(t, 11, h.MeasuredVoices())
	period := 64 * time.Second / testSampleRate
	want := 11 * voiceTestCost.Seconds() / period.Seconds()
	assert.InDelta(t, want, h.MeasuredLoad(), 1e-9)
	assert.Contains(t, result.ResultMessage(), "at 11 voices")
}

func TestVoiceMark_StepsCoarseFarFine(t *testing.T) {
	// Far from the target the step scales with the error; near it the
	// step bottoms out at a single voice.
	assert.Greater(t, voiceStep(0.4, 0.5, 20), 1)
	assert.Equal(t, 1, voiceStep(0.03, 0.5, 20))
	assert.Equal(t, 1, voiceStep(0.4, 0.5, 0))
}

func TestVoiceMark_ReportMentionsLoad(t *testing.T) {
	clock := testutil.NewFakeClock()
	source := &stubSource{clock: clock, costPerVoice: voiceTestCost}
	result := NewResult()
	h := NewVoiceMarkHarness(source, result, testLogger())
	useFakeClock(&h.baseHarness, clock)
	require.NoError(t, h.RunTest(testSampleRate, testFrames64, 3))

	msg := result.ResultMessage()
	assert.Contains(t, msg, "VoiceMark")
	assert.Contains(t, msg, "measured load")
	assert.Contains(t, msg, "underruns")
}
