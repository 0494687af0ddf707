// Package synthmark benchmarks a real-time audio synthesis workload under
// simulated hardware callback timing.
//
// A virtual audio sink emulates the timing discipline of a real audio
// driver entirely in software: fixed-period callbacks scheduled against
// absolute deadlines, wall-clock render measurement, and underrun (deadline
// miss) detection. Four harnesses run distinct control algorithms on top of
// that loop:
//
//   - [VoiceMarkHarness]: the largest voice count sustainable at a target
//     CPU load fraction.
//   - [LatencyMarkHarness]: underrun behavior at a fixed burst size,
//     optionally toggling between a low and a high voice count to stress
//     transient load changes.
//   - [JitterMarkHarness]: variability of per-burst render duration.
//   - [UtilizationMarkHarness]: fraction of the callback period spent
//     rendering, average and peak.
//
// # Quick Start
//
//	result := synthmark.NewResult()
//	harness := synthmark.NewJitterMarkHarness(nil, result, nil)
//	if err := harness.SetNumVoices(8); err != nil {
//	    log.Fatal(err)
//	}
//	if err := harness.RunTest(48000, 64, 10); err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Print(result.ResultMessage())
//
// A nil render source selects the built-in synthesizer, a bank of
// subtractive synthesis voices whose cost is non-decreasing in the active
// voice count. Any type satisfying [RenderSource] can be measured instead.
//
// # Measurement semantics
//
// RunTest blocks for the whole benchmark. The run length is counted in
// simulated bursts (ceil(duration/period)), not wall time, so a workload
// slower than real time is measured in full rather than truncated: real
// elapsed time grows, the burst count does not.
//
// The callback loop may request a pinned CPU and an elevated scheduling
// class from the host. Denial of either degrades measurement fidelity and
// is reported in the Result message; it never aborts a run. Only one
// harness should run per process, since CPU affinity is a process-global
// resource.
package synthmark
