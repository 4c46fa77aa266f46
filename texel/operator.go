package texel

import (
	"errors"
	"fmt"
)

// SocketSpec describes one texture input or output of an operator.
// Optional inputs may be left unbound; the operator receives nil for them
// and must branch to its documented default instead of sampling.
type SocketSpec struct {
	Name     string
	Type     ImageType
	Optional bool
}

// Operator is the unit of dispatch of the pipeline. Each dispatch is a
// pure function of its bound inputs and parameters: operators hold no
// state across dispatches and never write a texture they also read.
//
// Inputs arrive in the order declared by Inputs. Required inputs are
// guaranteed non-nil by the caller; optional inputs are nil when unbound.
type Operator interface {
	// Name returns the operator identifier, matching the parameter
	// table key used by host UIs (e.g. "blur", "voronoi").
	Name() string
	Inputs() []SocketSpec
	Output() SocketSpec
	Dispatch(ctx *Context, in []*Texture, out *Texture) error
}

// ValidateBindings checks the dispatch contract before execution:
// correct input count, required inputs bound, and no in-place aliasing
// between any input and the output.
func ValidateBindings(op Operator, in []*Texture, out *Texture) error {
	specs := op.Inputs()
	if len(in) != len(specs) {
		return fmt.Errorf("texel: operator %q expects %d inputs, got %d", op.Name(), len(specs), len(in))
	}
	if out == nil {
		return fmt.Errorf("texel: operator %q dispatched with nil output", op.Name())
	}
	for i, spec := range specs {
		if in[i] == nil {
			if spec.Optional {
				continue
			}
			return fmt.Errorf("texel: operator %q required input %q unbound", op.Name(), spec.Name)
		}
		if in[i] == out {
			return fmt.Errorf("texel: operator %q input %q aliases output", op.Name(), spec.Name)
		}
	}
	return nil
}

// Dispatch validates bindings and runs the operator.
func Dispatch(ctx *Context, op Operator, in []*Texture, out *Texture) error {
	if ctx == nil {
		return errors.New("texel: nil context")
	}
	if err := ValidateBindings(op, in, out); err != nil {
		return err
	}
	return op.Dispatch(ctx, in, out)
}
