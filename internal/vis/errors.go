package vis

import "fmt"

// NoCommonTimestepsError means the provided data files have no overlapping
// visibilities.
type NoCommonTimestepsError struct {
	// A description of the observation's data layout.
	HDUInfo string
}

func (e NoCommonTimestepsError) Error() string {
	return fmt.Sprintf("no common timesteps found. observation hdu info: %s", e.HDUInfo)
}

// NoProvidedTimestepsError means the observation contains no timesteps at
// all.
type NoProvidedTimestepsError struct {
	HDUInfo string
}

func (e NoProvidedTimestepsError) Error() string {
	return fmt.Sprintf("no timesteps were provided. observation hdu info: %s", e.HDUInfo)
}

// InsufficientMemoryError means a selection was too large to allocate.
type InsufficientMemoryError struct {
	// How many GiB the whole selection needs.
	NeedGiB uint64
}

func (e InsufficientMemoryError) Error() string {
	return fmt.Sprintf("insufficient memory available; need %d GiB of memory. "+
		"please select a smaller subset of the observation", e.NeedGiB)
}

// BadArrayShapeError means an array argument does not match the shape the
// selection or context expects.
type BadArrayShapeError struct {
	Argument string
	Function string
	Expected string
	Received string
}

func (e BadArrayShapeError) Error() string {
	return fmt.Sprintf("bad array shape supplied to argument %s of function %s. expected %s, received %s",
		e.Argument, e.Function, e.Expected, e.Received)
}
