//go:build linux

package audiosink

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// rtPriority is the SCHED_FIFO priority requested for the callback thread.
// Mid-range: high enough to preempt normal tasks, low enough to stay clear
// of kernel threads.
const rtPriority = 50

// setAffinity pins the calling thread to a single CPU. The caller must hold
// runtime.LockOSThread so the binding sticks to the loop's thread.
func setAffinity(cpu int) error {
	if cpu < 0 {
		return fmt.Errorf("invalid cpu index %d", cpu)
	}

	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)

	// Thread id 0 means the calling thread.
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return fmt.Errorf("sched_setaffinity(cpu=%d): %w", cpu, err)
	}
	return nil
}

// requestRealtime asks for SCHED_FIFO on the calling thread. Typically
// denied without CAP_SYS_NICE; the caller treats denial as a fidelity note.
func requestRealtime() error {
	attr := unix.SchedAttr{
		Size:     unix.SizeofSchedAttr,
		Policy:   unix.SCHED_FIFO,
		Priority: rtPriority,
	}
	if err := unix.SchedSetAttr(0, &attr, 0); err != nil {
		return fmt.Errorf("sched_setattr(SCHED_FIFO): %w", err)
	}
	return nil
}
