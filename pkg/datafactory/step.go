package datafactory

import (
	"context"
	"maps"
	"slices"
	"strings"

	sserr "github.com/scalde/scalde-go/pkg/errors"
)

// Step transforms a frame. Process receives a copy it may modify.
type Step interface {
	Process(ctx context.Context, f *Frame) (*Frame, error)

	// DTypes are the column types the step's output should have. The
	// pipeline applies them to the final frame.
	DTypes() map[string]DType

	Name() string
}

// StepFunc adapts a plain function into an untyped Step named "StepFunc".
// Use [NewStep] to give it a name and dtypes.
type StepFunc func(ctx context.Context, f *Frame) (*Frame, error)

func (fn StepFunc) Process(ctx context.Context, f *Frame) (*Frame, error) { return fn(ctx, f) }
func (StepFunc) DTypes() map[string]DType                                 { return nil }
func (StepFunc) Name() string                                             { return "StepFunc" }

// NewStep returns a named Step around fn.
func NewStep(name string, dtypes map[string]DType, fn StepFunc) Step {
	return &namedStep{name: name, dtypes: dtypes, fn: fn}
}

type namedStep struct {
	name   string
	dtypes map[string]DType
	fn     StepFunc
}

func (s *namedStep) Process(ctx context.Context, f *Frame) (*Frame, error) { return s.fn(ctx, f) }
func (s *namedStep) DTypes() map[string]DType                              { return maps.Clone(s.dtypes) }
func (s *namedStep) Name() string                                          { return s.name }

// ParallelSteps runs every step on its own copy of the input and stacks
// the results. The results must share the same column order. The stacked
// frame is cast to the last step's dtypes. At least one step is required.
func ParallelSteps(steps ...Step) (Step, error) {
	if len(steps) == 0 {
		return nil, sserr.New(sserr.CodePipelineDefinition,
			"datafactory: at least one step must be provided to parallel execution")
	}
	return &parallel{steps: slices.Clone(steps)}, nil
}

type parallel struct {
	steps []Step
}

func (p *parallel) Process(ctx context.Context, f *Frame) (*Frame, error) {
	results := make([]*Frame, 0, len(p.steps))
	for _, s := range p.steps {
		out, err := runStep(ctx, s, f.Copy())
		if err != nil {
			return nil, err
		}
		results = append(results, out)
	}

	first := results[0].Columns
	for _, r := range results[1:] {
		if !slices.Equal(r.Columns, first) {
			return nil, sserr.New(sserr.CodePipelineProcess,
				"datafactory: processed columns are different between steps").
				WithDetail("step", p.Name())
		}
	}

	stacked, err := Concat(results...)
	if err != nil {
		return nil, err
	}
	stacked.DTypes = nil
	return stacked.AsType(p.DTypes())
}

func (p *parallel) DTypes() map[string]DType {
	return p.steps[len(p.steps)-1].DTypes()
}

func (p *parallel) Name() string {
	names := make([]string, len(p.steps))
	for i, s := range p.steps {
		names[i] = s.Name()
	}
	return strings.Join(names, "_")
}

// runStep calls s and turns plain errors into PIPE_002 errors naming the
// step. A nil frame with no error is a process error too.
func runStep(ctx context.Context, s Step, f *Frame) (*Frame, error) {
	out, err := s.Process(ctx, f)
	if err != nil {
		if _, ok := sserr.AsError(err); ok {
			return nil, err
		}
		return nil, sserr.Wrapf(err, sserr.CodePipelineProcess, "datafactory: step %s failed", s.Name()).
			WithDetail("step", s.Name())
	}
	if out == nil {
		return nil, sserr.Newf(sserr.CodePipelineProcess, "datafactory: step %s returned no frame", s.Name()).
			WithDetail("step", s.Name())
	}
	return out, nil
}
