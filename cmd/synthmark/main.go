package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/tphakala/synthmark"
)

func usage(out io.Writer) {
	fmt.Fprintf(out, "synthmark V%d.%d\n", synthmark.MajorVersion, synthmark.MinorVersion)
	fmt.Fprintln(out, "synthmark [-t test] [-n numVoices] [-N numVoicesHigh] [-d noteOnDelay]")
	fmt.Fprintln(out, "          [-p percentCPU] [-r sampleRate] [-s seconds] [-b burstSize] [-c cpuAffinity]")
	fmt.Fprintln(out, "    -t test, v=voice, l=latency, j=jitter, u=utilization, default is v")
	fmt.Fprintf(out, "    -n numVoices to render, default is %d\n", defaultNumVoices)
	fmt.Fprintln(out, "    -N numVoicesHigh for toggling high load, LatencyMark only")
	fmt.Fprintf(out, "    -d noteOnDelay seconds to delay the first NoteOn, default is %d\n", defaultNoteOnDelay)
	fmt.Fprintf(out, "    -p percentCPU target load, default is %d\n", defaultPercentCPU)
	fmt.Fprintf(out, "    -r sampleRate should be typical, 44100, 48000, etc. default is %d\n",
		synthmark.DefaultSampleRate)
	fmt.Fprintf(out, "    -s seconds to run the test, default is %d\n", synthmark.DefaultSeconds)
	fmt.Fprintf(out, "    -b burstSize frames read by virtual hardware at one time, default is %d\n",
		synthmark.DefaultFramesPerBurst)
	fmt.Fprintln(out, "    -c cpuAffinity index of CPU to run on, default is none")
}

// run executes the full benchmark driver and returns the process exit code.
// Splitting it from main keeps the driver testable with a captured writer.
func run(args []string, out io.Writer) int {
	for _, arg := range args {
		if arg == "-h" || arg == "-?" || arg == "--help" {
			usage(out)
			return 0
		}
	}

	p, err := parseParams(args, out)
	if err == nil {
		err = p.validate()
	}
	if err != nil {
		fmt.Fprintf(out, "ERROR: %v\n", err)
		usage(out)
		return 1
	}

	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	result := synthmark.NewResult()
	harness, err := p.buildHarness(result, logger)
	if err != nil {
		fmt.Fprintf(out, "ERROR: %v\n", err)
		return 1
	}

	fmt.Fprintf(out, "--- SynthMark V%d.%d ---\n", synthmark.MajorVersion, synthmark.MinorVersion)
	fmt.Fprintf(out, "  test            = %s\n", harness.Name())
	fmt.Fprintf(out, "  numVoices       = %d\n", p.numVoices)
	if p.numVoicesHigh > 0 {
		fmt.Fprintf(out, "  numVoicesHigh   = %d\n", p.numVoicesHigh)
	}
	fmt.Fprintf(out, "  noteOnDelay     = %d\n", p.noteOnDelay)
	fmt.Fprintf(out, "  percentCPU      = %d\n", p.percentCPU)
	fmt.Fprintf(out, "  sampleRate      = %d\n", p.sampleRate)
	fmt.Fprintf(out, "  framesPerBurst  = %d\n", p.framesPerBurst)
	fmt.Fprintf(out, "  msecPerBurst    = %.3f\n",
		float64(p.framesPerBurst)*msecPerSecond/float64(p.sampleRate))
	fmt.Fprintf(out, "  cpuAffinity     = %d\n", p.cpuAffinity)
	fmt.Fprintf(out, "--- wait at least %d seconds for benchmark to complete ---\n", p.seconds)

	runErr := harness.RunTest(p.sampleRate, p.framesPerBurst, p.seconds)

	fmt.Fprintln(out, "RESULTS BEGIN")
	fmt.Fprint(out, result.ResultMessage())
	fmt.Fprintln(out, "RESULTS END")

	if runErr != nil {
		fmt.Fprintf(out, "ERROR: %v\n", runErr)
		if result.ResultCode() == synthmark.ResultCodeOK {
			return synthmark.ResultCodeFailure
		}
		return result.ResultCode()
	}

	fmt.Fprintln(out, "Benchmark complete.")
	return result.ResultCode()
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}
