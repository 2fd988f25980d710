package uvfits

import "fmt"

// BadRowNumError means more rows were written than the file was created
// for.
type BadRowNumError struct {
	RowNum  int
	NumRows int
}

func (e BadRowNumError) Error() string {
	return fmt.Sprintf("tried to write to row number %d, but only %d rows are expected", e.RowNum, e.NumRows)
}

// NotEnoughRowsWrittenError means the antenna table was requested before
// every visibility row was written.
type NotEnoughRowsWrittenError struct {
	Current int
	Total   int
}

func (e NotEnoughRowsWrittenError) Error() string {
	return fmt.Sprintf("tried to finalise a file with %d of %d rows written", e.Current, e.Total)
}
