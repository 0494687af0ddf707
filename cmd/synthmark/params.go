package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"

	"github.com/tphakala/synthmark"
)

// params holds the parsed command-line surface. Validation enforces the
// contract the harnesses expect, so every configuration error is resolved
// before a harness is constructed.
type params struct {
	testCode       string
	numVoices      int
	numVoicesHigh  int
	noteOnDelay    int
	percentCPU     int
	sampleRate     int
	seconds        int
	framesPerBurst int
	cpuAffinity    int
}

func parseParams(args []string, out io.Writer) (*params, error) {
	fs := flag.NewFlagSet("synthmark", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = func() {} // the caller prints the usage text

	p := &params{}
	fs.StringVar(&p.testCode, "t", defaultTestCode,
		"test code: v=voice, l=latency, j=jitter, u=utilization")
	fs.IntVar(&p.numVoices, "n", defaultNumVoices, "voices to render")
	fs.IntVar(&p.numVoicesHigh, "N", 0, "high voice count for load toggling (LatencyMark only)")
	fs.IntVar(&p.noteOnDelay, "d", defaultNoteOnDelay, "seconds to delay the first NoteOn")
	fs.IntVar(&p.percentCPU, "p", defaultPercentCPU, "target CPU load percent (VoiceMark)")
	fs.IntVar(&p.sampleRate, "r", synthmark.DefaultSampleRate, "sample rate in Hz")
	fs.IntVar(&p.seconds, "s", synthmark.DefaultSeconds, "seconds to run the test")
	fs.IntVar(&p.framesPerBurst, "b", synthmark.DefaultFramesPerBurst,
		"frames read by the virtual hardware at one time")
	fs.IntVar(&p.cpuAffinity, "c", synthmark.CPUUnspecified, "index of CPU to run on")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unrecognized argument: %s", fs.Arg(0))
	}
	return p, nil
}

func (p *params) validate() error {
	switch p.testCode {
	case "v", "l", "j", "u":
	default:
		return fmt.Errorf("unrecognized test code %q", p.testCode)
	}
	if p.percentCPU < 1 || p.percentCPU > 100 {
		return fmt.Errorf("invalid percent CPU = %d", p.percentCPU)
	}
	if p.numVoices < 0 || p.numVoices > synthmark.MaxVoices {
		return fmt.Errorf("invalid num voices = %d", p.numVoices)
	}
	if p.numVoices < 1 && p.numVoicesHigh <= 0 {
		return fmt.Errorf("invalid num voices = %d", p.numVoices)
	}
	if p.numVoicesHigh != 0 && p.numVoicesHigh < p.numVoices {
		return fmt.Errorf("invalid num voices high = %d", p.numVoicesHigh)
	}
	if p.numVoicesHigh != 0 && p.testCode != "l" {
		return fmt.Errorf("num voices high only supported for LatencyMark")
	}
	if p.sampleRate <= 0 {
		return fmt.Errorf("invalid sample rate = %d", p.sampleRate)
	}
	if p.seconds < 1 {
		return fmt.Errorf("invalid duration in seconds = %d", p.seconds)
	}
	if p.noteOnDelay < 0 || p.noteOnDelay > p.seconds {
		return fmt.Errorf("invalid delay for note on = %d", p.noteOnDelay)
	}
	if p.framesPerBurst < synthmark.MinFramesPerBurst {
		return fmt.Errorf("burst size too small = %d", p.framesPerBurst)
	}
	return nil
}

// buildHarness constructs the selected harness and applies the shared and
// variant-specific configuration.
func (p *params) buildHarness(result *synthmark.Result, logger *slog.Logger) (synthmark.TestHarness, error) {
	var harness synthmark.TestHarness

	switch p.testCode {
	case "v":
		vh := synthmark.NewVoiceMarkHarness(nil, result, logger)
		if err := vh.SetTargetLoad(float64(p.percentCPU) / 100); err != nil {
			return nil, err
		}
		harness = vh
	case "l":
		lh := synthmark.NewLatencyMarkHarness(nil, result, logger)
		if err := lh.SetNumVoicesHigh(p.numVoicesHigh); err != nil {
			return nil, err
		}
		harness = lh
	case "j":
		harness = synthmark.NewJitterMarkHarness(nil, result, logger)
	case "u":
		harness = synthmark.NewUtilizationMarkHarness(nil, result, logger)
	default:
		return nil, fmt.Errorf("unrecognized test code %q", p.testCode)
	}

	if err := harness.SetNumVoices(p.numVoices); err != nil {
		return nil, err
	}
	if err := harness.SetNoteOnDelay(p.noteOnDelay); err != nil {
		return nil, err
	}
	if err := harness.SetCPUAffinity(p.cpuAffinity); err != nil {
		return nil, err
	}
	return harness, nil
}
