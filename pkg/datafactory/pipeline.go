package datafactory

import (
	"context"
	"maps"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	sserr "github.com/scalde/scalde-go/pkg/errors"
)

// tracerName is the OpenTelemetry instrumentation scope name for this package.
const tracerName = "github.com/scalde/scalde-go/pkg/datafactory"

// DefaultPipelineName is used when Pipeline.Name is empty.
const DefaultPipelineName = "Unnamed pipeline"

// Pipeline loads a frame, applies Steps in order, casts the columns to the
// steps' dtypes, runs Validations and exports the result.
type Pipeline struct {
	Name        string
	Steps       []Step
	Loader      Loader
	Exporter    Exporter
	Validations []Validation

	// Reporter defaults to a [SlogReporter] on slog.Default().
	Reporter Reporter
}

// Run executes the pipeline once. The report is returned even when the
// run fails; its Status and Error describe the failure.
func (p *Pipeline) Run(ctx context.Context) (*RunReport, error) {
	name := p.Name
	if name == "" {
		name = DefaultPipelineName
	}
	reporter := p.Reporter
	if reporter == nil {
		reporter = NewSlogReporter(nil)
	}
	tracer := otel.Tracer(tracerName)
	now := time.Now

	report := newRunReport(name)
	ctx, span := tracer.Start(ctx, "datafactory.Run", trace.WithAttributes(
		attribute.String("datafactory.pipeline", name),
		attribute.String("datafactory.run_id", report.ID),
		attribute.Int("datafactory.steps", len(p.Steps)),
	))

	report.start(now())
	reporter.PipelineStarted(report)

	r := &run{pipeline: p, report: report, reporter: reporter, tracer: tracer, now: now}
	err := r.execute(ctx)

	report.finish(now(), err)
	finishSpan(span, err)
	reporter.PipelineFinished(report)
	return report, err
}

type run struct {
	pipeline *Pipeline
	report   *RunReport
	reporter Reporter
	tracer   trace.Tracer
	now      func() time.Time
}

func (r *run) execute(ctx context.Context) error {
	p := r.pipeline
	if p.Loader == nil || p.Exporter == nil {
		return sserr.New(sserr.CodePipelineDefinition, "datafactory: pipeline needs a loader and an exporter")
	}

	data, err := p.Loader.Load(ctx)
	if err != nil {
		return ioError(err, "datafactory: load failed")
	}
	if data == nil {
		return sserr.New(sserr.CodePipelineIO, "datafactory: loader returned no frame")
	}
	rows, cols := data.Shape()
	r.reporter.Loaded(rows, cols)

	for _, step := range p.Steps {
		if data, err = r.runStep(ctx, step, data); err != nil {
			return err
		}
	}

	if data, err = data.AsType(p.outputDTypes(data)); err != nil {
		return err
	}

	if err := r.validate(data); err != nil {
		return err
	}

	if err := p.Exporter.Export(ctx, data); err != nil {
		return ioError(err, "datafactory: export failed")
	}
	r.report.Rows, r.report.Columns = data.Shape()
	r.reporter.Exported(data.Len())
	return nil
}

func (r *run) runStep(ctx context.Context, step Step, data *Frame) (*Frame, error) {
	ctx, span := r.tracer.Start(ctx, "datafactory.Step",
		trace.WithAttributes(attribute.String("datafactory.step", step.Name())))
	start := r.now()

	out, err := runStep(ctx, step, data.Copy())
	finishSpan(span, err)
	if err != nil {
		return nil, err
	}

	rows, cols := out.Shape()
	sr := StepReport{Name: step.Name(), Rows: rows, Columns: cols, Duration: r.now().Sub(start)}
	r.report.Steps = append(r.report.Steps, sr)
	r.reporter.StepDone(sr)
	return out, nil
}

func (r *run) validate(data *Frame) error {
	validations := r.pipeline.Validations
	if len(validations) == 0 {
		r.reporter.ValidationsSkipped()
		return nil
	}

	r.reporter.ValidationsStarted(len(validations))
	for _, v := range validations {
		if !v.IsValid(data) {
			return sserr.Newf(sserr.CodeDataValidation, "datafactory: validation %s failed", v.Name()).
				WithDetail("validation", v.Name())
		}
		r.reporter.ValidationPassed(v.Name())
	}
	return nil
}

// outputDTypes merges every step's dtypes, later steps winning, and keeps
// only the columns data actually has.
func (p *Pipeline) outputDTypes(data *Frame) map[string]DType {
	merged := map[string]DType{}
	for _, s := range p.Steps {
		maps.Copy(merged, s.DTypes())
	}
	maps.DeleteFunc(merged, func(col string, _ DType) bool { return data.Index(col) < 0 })
	return merged
}

// ioError keeps structured errors from loaders and exporters and wraps
// anything else as PIPE_003.
func ioError(err error, message string) error {
	if _, ok := sserr.AsError(err); ok {
		return err
	}
	return sserr.Wrap(err, sserr.CodePipelineIO, message)
}

func finishSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
