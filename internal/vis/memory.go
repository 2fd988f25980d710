package vis

import "golang.org/x/sys/unix"

// totalMemoryBytes reports the machine's physical memory. Selections larger
// than this can never be resident, so allocation refuses them up front
// instead of letting the runtime thrash or die.
func totalMemoryBytes() uint64 {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		// If the probe fails, don't block any allocation.
		return ^uint64(0)
	}
	return uint64(info.Totalram) * uint64(info.Unit)
}
