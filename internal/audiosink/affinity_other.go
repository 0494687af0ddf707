//go:build !linux

package audiosink

import "errors"

var errAffinityUnsupported = errors.New("cpu affinity not supported on this platform")

func setAffinity(cpu int) error {
	return errAffinityUnsupported
}

func requestRealtime() error {
	return errors.New("realtime scheduling not supported on this platform")
}
