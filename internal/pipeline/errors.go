package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoFiles is returned by Intake when no file passed the type and size checks.
var ErrNoFiles = errors.New("no supported files")

// StageError reports an operation invoked outside the stage it belongs to.
type StageError struct {
	Op       string
	Stage    Stage
	Expected Stage
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: session is in %s, expected %s", e.Op, e.Stage, e.Expected)
}

// IndexError reports an out-of-range file or entry index.
type IndexError struct {
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("index %d out of range [0,%d)", e.Index, e.Len)
}

// NotReadyError is returned by downloads when a targeted entry has not completed.
type NotReadyError struct {
	Files []string
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("not ready for download: %s", strings.Join(e.Files, ", "))
}

// DuplicateNameError is returned by Rename when another listed file already has the name.
// Formats are selected per display name, so names must stay unique.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("a file named %q is already listed", e.Name)
}
