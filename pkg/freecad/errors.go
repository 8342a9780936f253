package freecad

import (
	"errors"
	"fmt"
)

// ErrKernelNotFound is returned when no usable FreeCAD installation could
// be located. Callers match it with errors.Is to print setup guidance.
var ErrKernelNotFound = errors.New("FreeCAD installation not found")

// KernelError describes a conversion failure reported by the kernel script
// itself, such as a STEP file that could not be imported.
type KernelError struct {
	Message string
	Output  string
}

func (e *KernelError) Error() string {
	return fmt.Sprintf("kernel reported: %s", e.Message)
}
