// Command synthrender captures the built-in synthesizer's output to a WAV
// file. It runs the same render path the benchmarks measure, so the file is
// an audible check that the workload is real audio and not a busy loop.
//
// Usage:
//
//	synthrender -n 8 -s 2 out.wav
//	synthrender -n 64 -r 44100 heavy.wav
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/tphakala/synthmark"
	"github.com/tphakala/synthmark/internal/synth"
)

const (
	// Output PCM format
	bitsPerSample = 16
	monoChannels  = 1
	maxInt16      = 32767.0

	// WAV audio format tag for PCM
	wavFormatPCM = 1

	// CLI defaults
	defaultSeconds = 2
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	numVoices := flag.Int("n", synthmark.DefaultNumVoices, "voices to render")
	sampleRate := flag.Int("r", synthmark.DefaultSampleRate, "sample rate in Hz")
	seconds := flag.Int("s", defaultSeconds, "seconds of audio to render")
	framesPerBurst := flag.Int("b", synthmark.DefaultFramesPerBurst, "frames rendered per call")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] output.wav\n\nOptions:\n", os.Args[0])
		flag.PrintDefaults()
		return fmt.Errorf("missing output file")
	}
	if *numVoices < 1 || *numVoices > synthmark.MaxVoices {
		return fmt.Errorf("invalid num voices = %d", *numVoices)
	}
	if *seconds < 1 {
		return fmt.Errorf("invalid duration in seconds = %d", *seconds)
	}
	if *framesPerBurst < synthmark.MinFramesPerBurst {
		return fmt.Errorf("burst size too small = %d", *framesPerBurst)
	}
	outPath := flag.Arg(0)

	s := synth.NewSynthesizer(synthmark.MaxVoices)
	if err := s.Open(*sampleRate); err != nil {
		return err
	}
	if err := s.SetVoiceCount(*numVoices); err != nil {
		return err
	}
	s.NoteOn()

	totalFrames := *seconds * *sampleRate
	pcm := make([]int, 0, totalFrames)
	var peak, rmsSum float64

	for rendered := 0; rendered < totalFrames; {
		frames := *framesPerBurst
		if remaining := totalFrames - rendered; remaining < frames {
			frames = remaining
		}
		s.RenderBurst(frames)

		rms := s.OutputRMS()
		rmsSum += rms * rms * float64(frames)
		for _, sample := range s.Output() {
			if a := math.Abs(sample); a > peak {
				peak = a
			}
			pcm = append(pcm, int(sample*maxInt16))
		}
		rendered += frames
	}

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, *sampleRate, bitsPerSample, monoChannels, wavFormatPCM)
	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: monoChannels,
			SampleRate:  *sampleRate,
		},
		Data:           pcm,
		SourceBitDepth: bitsPerSample,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("write samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalize wav: %w", err)
	}

	fmt.Printf("Wrote %s\n", outPath)
	fmt.Printf("  voices     = %d\n", *numVoices)
	fmt.Printf("  sampleRate = %d\n", *sampleRate)
	fmt.Printf("  frames     = %d\n", totalFrames)
	fmt.Printf("  peak       = %.4f\n", peak)
	fmt.Printf("  rms        = %.4f\n", math.Sqrt(rmsSum/float64(totalFrames)))
	return nil
}
