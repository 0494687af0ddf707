package main

import "github.com/tphakala/synthmark"

// Default command-line flag values
const (
	defaultTestCode    = "v" // VoiceMark
	defaultNumVoices   = synthmark.DefaultNumVoices
	defaultNoteOnDelay = 0
	defaultPercentCPU  = 50 // matches DefaultTargetLoad
)

// Output conversion
const (
	msecPerSecond = 1000.0
)
