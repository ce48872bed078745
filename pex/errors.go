package pex

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnsatisfiedDefinition matches every *UnsatisfiedDefinitionError with errors.Is.
	ErrUnsatisfiedDefinition = errors.New("presentation definition is not satisfied")

	ErrNilDefinition = errors.New("presentation definition is required")
)

// UnsatisfiedDefinitionError is returned when one or more input descriptors are
// not satisfied by any candidate credential.
type UnsatisfiedDefinitionError struct {
	DefinitionID string
	// DescriptorIDs lists the unsatisfied descriptors in definition order.
	DescriptorIDs []string
}

func (e *UnsatisfiedDefinitionError) Error() string {
	return fmt.Sprintf("presentation definition %q is not satisfied: no credential matches input descriptors [%s]",
		e.DefinitionID, strings.Join(e.DescriptorIDs, ", "))
}

func (e *UnsatisfiedDefinitionError) Is(target error) bool {
	return target == ErrUnsatisfiedDefinition
}

// IsUnsatisfied returns the descriptor ids carried by err when it is an
// *UnsatisfiedDefinitionError.
func IsUnsatisfied(err error) ([]string, bool) {
	var unsatisfied *UnsatisfiedDefinitionError
	if !errors.As(err, &unsatisfied) {
		return nil, false
	}
	return unsatisfied.DescriptorIDs, true
}
