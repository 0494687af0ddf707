// Package synth implements the benchmark's render workload: a bank of
// subtractive synthesis voices whose per-burst CPU cost is monotonically
// non-decreasing in the active voice count.
package synth

import (
	"errors"
	"fmt"
	"math"

	"github.com/tphakala/synthmark/internal/simdops"
)

// ErrInvalidVoices indicates a voice count outside [0, max].
var ErrInvalidVoices = errors.New("synth: invalid voice count")

// ErrInvalidRate indicates a non-positive sample rate.
var ErrInvalidRate = errors.New("synth: invalid sample rate")

// Voice pitch spread: a minor pentatonic pattern repeated over three
// octaves so large voice counts form a broad, chord-like cluster.
var pentatonic = [...]int{0, 3, 5, 7, 10}

const (
	baseMidiNote = 45 // A2
	pitchOctaves = 3
)

// Synthesizer is the default RenderSource. NoteOn idempotently begins one
// sustained event; rendering before the event produces silence at near-zero
// cost, rendering after it costs one fixed amount per active voice.
type Synthesizer struct {
	maxVoices  int
	sampleRate int
	voices     []voice
	active     int
	gate       bool
	buf        []float64
	lastFrames int
}

// NewSynthesizer allocates a bank of maxVoices voices.
func NewSynthesizer(maxVoices int) *Synthesizer {
	if maxVoices < 1 {
		maxVoices = 1
	}
	return &Synthesizer{
		maxVoices: maxVoices,
		voices:    make([]voice, maxVoices),
	}
}

// Open prepares every voice for the given sample rate. It also preallocates
// nothing else; the render buffer grows on first use and is then reused, so
// steady-state rendering does not allocate.
func (s *Synthesizer) Open(sampleRate int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidRate, sampleRate)
	}
	s.sampleRate = sampleRate
	for i := range s.voices {
		s.voices[i].setup(pitchFor(i), float64(sampleRate))
	}
	return nil
}

// SetVoiceCount sets the number of active voices. When the sustained event
// is already on, newly activated voices start sounding immediately.
func (s *Synthesizer) SetVoiceCount(n int) error {
	if n < 0 || n > s.maxVoices {
		return fmt.Errorf("%w: %d (max %d)", ErrInvalidVoices, n, s.maxVoices)
	}
	s.active = n
	if s.gate {
		for i := range s.active {
			s.voices[i].noteOn()
		}
	}
	return nil
}

// VoiceCount returns the active voice count.
func (s *Synthesizer) VoiceCount() int {
	return s.active
}

// MaxVoices returns the size of the voice bank.
func (s *Synthesizer) MaxVoices() int {
	return s.maxVoices
}

// NoteOn begins the sustained event. Repeated calls while the event is
// sounding are no-ops.
func (s *Synthesizer) NoteOn() {
	if s.gate {
		return
	}
	s.gate = true
	for i := range s.active {
		s.voices[i].noteOn()
	}
}

// NoteIsOn reports whether the sustained event has been triggered.
func (s *Synthesizer) NoteIsOn() bool {
	return s.gate
}

// RenderBurst produces frameCount frames of mono audio into the internal
// buffer. Before NoteOn the output is silence; afterwards every active
// voice renders and the mix is normalized so the output stays in [-1, 1].
func (s *Synthesizer) RenderBurst(frameCount int) {
	if frameCount > len(s.buf) {
		s.buf = make([]float64, frameCount)
	}
	s.lastFrames = frameCount
	out := s.buf[:frameCount]
	for i := range out {
		out[i] = 0
	}

	if !s.gate || s.active == 0 {
		return
	}

	for i := range s.active {
		s.voices[i].renderAdd(out)
	}
	simdops.Scale(out, out, 1/float64(s.active))
}

// Output returns the most recently rendered burst. The slice is reused by
// the next RenderBurst call.
func (s *Synthesizer) Output() []float64 {
	return s.buf[:s.lastFrames]
}

// OutputRMS returns the root-mean-square level of the last rendered burst.
func (s *Synthesizer) OutputRMS() float64 {
	out := s.Output()
	if len(out) == 0 {
		return 0
	}
	return math.Sqrt(simdops.Energy(out) / float64(len(out)))
}

func pitchFor(i int) int {
	octave := (i / len(pentatonic)) % pitchOctaves
	return baseMidiNote + pentatonic[i%len(pentatonic)] + octave*int(notesPerOct)
}
