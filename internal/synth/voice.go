package synth

import "math"

// Oscillator and envelope tuning.
const (
	// detuneRatio separates the two sawtooth oscillators of a voice for a
	// thicker tone. The aliasing of a naive saw is acceptable here: the
	// workload exists to burn representative CPU, not to master records.
	detuneRatio = 1.003

	attackSeconds = 0.005
	decaySeconds  = 0.2
	sustainLevel  = 0.7

	// cutoffRatio places the low-pass corner relative to the oscillator
	// frequency, keeping the per-frame filter work pitch-independent.
	cutoffRatio = 4.0

	// oscMix averages the two oscillators into one sample.
	oscMix = 0.5

	midiA4       = 69
	freqA4       = 440.0
	notesPerOct  = 12.0
	twoPi        = 2 * math.Pi
	envDecayFrac = 0.001 // decay is done when within 0.1% of sustain
)

// sawOscillator is a naive phase accumulator producing a [-1, 1) ramp.
type sawOscillator struct {
	phase float64
	inc   float64
}

func (o *sawOscillator) setFrequency(freq, sampleRate float64) {
	o.inc = freq / sampleRate
}

func (o *sawOscillator) next() float64 {
	o.phase += o.inc
	if o.phase >= 1 {
		o.phase -= 1
	}
	return 2*o.phase - 1
}

// onePole is a one-pole low-pass filter: y += a * (x - y).
type onePole struct {
	a float64
	y float64
}

func (f *onePole) setCutoff(freq, sampleRate float64) {
	if freq > sampleRate/2 {
		freq = sampleRate / 2
	}
	f.a = 1 - math.Exp(-twoPi*freq/sampleRate)
}

func (f *onePole) process(x float64) float64 {
	f.y += f.a * (x - f.y)
	return f.y
}

type envStage int

const (
	envIdle envStage = iota
	envAttack
	envDecay
	envSustain
)

// adsrEnvelope implements attack-decay-sustain; release never fires because
// events sustain for the whole run.
type adsrEnvelope struct {
	stage     envStage
	level     float64
	attackInc float64
	decayMul  float64
}

func (e *adsrEnvelope) setSampleRate(sampleRate float64) {
	e.attackInc = 1 / (attackSeconds * sampleRate)
	// Per-frame multiplier that walks the level from 1.0 down to
	// sustainLevel over decaySeconds.
	e.decayMul = math.Exp(math.Log(sustainLevel) / (decaySeconds * sampleRate))
}

// trigger starts a new event. Idempotent while the event sustains.
func (e *adsrEnvelope) trigger() {
	if e.stage == envIdle {
		e.stage = envAttack
	}
}

func (e *adsrEnvelope) active() bool {
	return e.stage != envIdle
}

func (e *adsrEnvelope) next() float64 {
	switch e.stage {
	case envAttack:
		e.level += e.attackInc
		if e.level >= 1 {
			e.level = 1
			e.stage = envDecay
		}
	case envDecay:
		e.level *= e.decayMul
		if e.level <= sustainLevel*(1+envDecayFrac) {
			e.level = sustainLevel
			e.stage = envSustain
		}
	case envSustain, envIdle:
	}
	return e.level
}

// voice is one synthesis unit: two detuned saws into a low-pass filter,
// shaped by a sustained envelope.
type voice struct {
	osc1, osc2 sawOscillator
	filter     onePole
	env        adsrEnvelope
}

func (v *voice) setup(midiNote int, sampleRate float64) {
	freq := midiToFreq(midiNote)
	v.osc1.setFrequency(freq, sampleRate)
	v.osc2.setFrequency(freq*detuneRatio, sampleRate)
	v.filter.setCutoff(freq*cutoffRatio, sampleRate)
	v.env.setSampleRate(sampleRate)
}

func (v *voice) noteOn() {
	v.env.trigger()
}

func (v *voice) sounding() bool {
	return v.env.active()
}

// renderAdd accumulates one burst of this voice into out.
func (v *voice) renderAdd(out []float64) {
	for i := range out {
		x := oscMix * (v.osc1.next() + v.osc2.next())
		out[i] += v.filter.process(x) * v.env.next()
	}
}

func midiToFreq(note int) float64 {
	return freqA4 * math.Pow(2, float64(note-midiA4)/notesPerOct)
}
