package scripting

import "fmt"

// Shape is the context shape a script is bound to.
type Shape int

const (
	// ShapeBare carries no input and no output.
	ShapeBare Shape = iota
	// ShapeInput carries a non-nil input. Used by enter and leave scripts.
	ShapeInput
	// ShapeInputOutput carries an input and a default-constructed output.
	// Used by transition scripts.
	ShapeInputOutput
)

func (s Shape) String() string {
	switch s {
	case ShapeBare:
		return "bare"
	case ShapeInput:
		return "input"
	case ShapeInputOutput:
		return "input+output"
	default:
		return fmt.Sprintf("shape(%d)", int(s))
	}
}

// Script is an immutable compiled unit bound to one shape.
type Script struct {
	name     string
	shape    Shape
	bytecode []byte
}

// Name returns the script name.
func (s *Script) Name() string {
	return s.name
}

// Shape returns the context shape the script was created for.
func (s *Script) Shape() Shape {
	return s.shape
}
