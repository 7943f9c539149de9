package datafactory_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/scalde/scalde-go/internal/testutil"
	"github.com/scalde/scalde-go/pkg/datafactory"
	sserr "github.com/scalde/scalde-go/pkg/errors"
	"github.com/scalde/scalde-go/pkg/frametest"
)

// quietReporter discards progress output.
func quietReporter() datafactory.Reporter {
	return datafactory.NewSlogReporter(slog.New(slog.DiscardHandler))
}

func addCity(city string) datafactory.Step {
	return datafactory.NewStep("add_city", nil,
		func(_ context.Context, f *datafactory.Frame) (*datafactory.Frame, error) {
			f.Columns = append(f.Columns, "city")
			for i := range f.Rows {
				f.Rows[i] = append(f.Rows[i], city)
			}
			return f, nil
		})
}

func adults() datafactory.Step {
	return datafactory.NewStep("adults", map[string]datafactory.DType{"age": datafactory.Int64, "gone": datafactory.String},
		func(_ context.Context, f *datafactory.Frame) (*datafactory.Frame, error) {
			typed, err := f.AsType(map[string]datafactory.DType{"age": datafactory.Int64})
			if err != nil {
				return nil, err
			}
			i := typed.Index("age")
			out := &datafactory.Frame{Columns: typed.Columns}
			for _, row := range typed.Rows {
				if row[i].(int64) >= 18 {
					out.Rows = append(out.Rows, row)
				}
			}
			return out, nil
		})
}

func useTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return exporter
}

// ===========================================================================
// Run
// ===========================================================================

func TestPipeline_Run(t *testing.T) {
	exporter := okExporter()
	p := &datafactory.Pipeline{
		Name:        "adults by city",
		Loader:      loaderOf(people()),
		Steps:       []datafactory.Step{addCity("Paris"), adults()},
		Validations: []datafactory.Validation{datafactory.NotEmpty(), datafactory.NoNulls("name")},
		Exporter:    exporter,
		Reporter:    quietReporter(),
	}

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	expected := frametest.ADataFrame().
		WithColumns("name", "age", "region", "city").
		WithRow("lolo", 40, "south", "Paris").
		WithRow("momo", 33, "north", "Paris").
		WithDTypes(map[string]datafactory.DType{"age": datafactory.Int64}).
		Build()
	frametest.AssertCalledOnceWithFrame(t, &exporter.Mock, "Export",
		mock.Anything, frametest.Expect(expected, frametest.CheckDTypes()))

	assert.Equal(t, datafactory.RunCompleted, report.Status)
	assert.Equal(t, "adults by city", report.Pipeline)
	assert.NotEmpty(t, report.ID)
	require.NotNil(t, report.EndTime)
	assert.Empty(t, report.Error)
	assert.Equal(t, 2, report.Rows)
	assert.Equal(t, 4, report.Columns)
	require.Len(t, report.Steps, 2)
	assert.Equal(t, "add_city", report.Steps[0].Name)
	assert.Equal(t, 3, report.Steps[0].Rows)
	assert.Equal(t, 2, report.Steps[1].Rows)
}

func TestPipeline_RunDefaultName(t *testing.T) {
	p := &datafactory.Pipeline{Loader: loaderOf(people()), Exporter: okExporter(), Reporter: quietReporter()}

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, datafactory.DefaultPipelineName, report.Pipeline)
}

func TestPipeline_StepsDoNotMutateInput(t *testing.T) {
	in := people()
	p := &datafactory.Pipeline{
		Loader:   loaderOf(in),
		Steps:    []datafactory.Step{addCity("Lyon")},
		Exporter: okExporter(),
		Reporter: quietReporter(),
	}

	_, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "age", "region"}, in.Columns)
}

func TestPipeline_RunErrors(t *testing.T) {
	loadErr := &mockLoader{}
	loadErr.On("Load", mock.Anything).Return(nil, errors.New("disk gone"))

	nilFrame := &mockLoader{}
	nilFrame.On("Load", mock.Anything).Return(nil, nil)

	exportErr := &mockExporter{}
	exportErr.On("Export", mock.Anything, mock.Anything).Return(errors.New("bucket gone"))

	broken := datafactory.NewStep("broken", nil,
		func(context.Context, *datafactory.Frame) (*datafactory.Frame, error) { return nil, errors.New("boom") })

	tests := []struct {
		name     string
		pipeline datafactory.Pipeline
		code     sserr.Code
		message  string
	}{
		{
			name:     "no loader",
			pipeline: datafactory.Pipeline{Exporter: okExporter()},
			code:     sserr.CodePipelineDefinition,
			message:  "needs a loader and an exporter",
		},
		{
			name:     "no exporter",
			pipeline: datafactory.Pipeline{Loader: loaderOf(people())},
			code:     sserr.CodePipelineDefinition,
		},
		{
			name:     "load failure",
			pipeline: datafactory.Pipeline{Loader: loadErr, Exporter: okExporter()},
			code:     sserr.CodePipelineIO,
			message:  "load failed",
		},
		{
			name:     "nil frame",
			pipeline: datafactory.Pipeline{Loader: nilFrame, Exporter: okExporter()},
			code:     sserr.CodePipelineIO,
		},
		{
			name:     "step failure",
			pipeline: datafactory.Pipeline{Loader: loaderOf(people()), Steps: []datafactory.Step{broken}, Exporter: okExporter()},
			code:     sserr.CodePipelineProcess,
			message:  "step broken failed",
		},
		{
			name: "validation failure",
			pipeline: datafactory.Pipeline{
				Loader:      loaderOf(people()),
				Validations: []datafactory.Validation{datafactory.NotEmpty(), datafactory.UniqueBy("region")},
				Exporter:    okExporter(),
			},
			code:    sserr.CodeDataValidation,
			message: "validation UniqueBy failed",
		},
		{
			name:     "export failure",
			pipeline: datafactory.Pipeline{Loader: loaderOf(people()), Exporter: exportErr},
			code:     sserr.CodePipelineIO,
			message:  "export failed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.pipeline
			p.Reporter = quietReporter()

			report, err := p.Run(context.Background())
			testutil.RequireErrorCode(t, err, tt.code)
			if tt.message != "" {
				assert.Contains(t, err.Error(), tt.message)
			}
			require.NotNil(t, report)
			assert.Equal(t, datafactory.RunFailed, report.Status)
			assert.Equal(t, err.Error(), report.Error)
			assert.True(t, report.Status.IsTerminal())
		})
	}
}

func TestPipeline_ValidationStopsExport(t *testing.T) {
	exporter := okExporter()
	p := &datafactory.Pipeline{
		Loader:      loaderOf(people()),
		Validations: []datafactory.Validation{datafactory.NoNulls("missing")},
		Exporter:    exporter,
		Reporter:    quietReporter(),
	}

	_, err := p.Run(context.Background())
	require.True(t, sserr.IsDataValidation(err))
	exporter.AssertNotCalled(t, "Export", mock.Anything, mock.Anything)
}

func TestPipeline_Spans(t *testing.T) {
	spans := useTracer(t)
	p := &datafactory.Pipeline{
		Name:     "traced",
		Loader:   loaderOf(people()),
		Steps:    []datafactory.Step{addCity("Nice")},
		Exporter: okExporter(),
		Reporter: quietReporter(),
	}

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	got := spans.GetSpans()
	require.Len(t, got, 2)
	assert.Equal(t, "datafactory.Step", got[0].Name)
	assert.Equal(t, "datafactory.Run", got[1].Name)
	assert.Equal(t, codes.Ok, got[1].Status.Code)
	assert.Equal(t, got[1].SpanContext.SpanID(), got[0].Parent.SpanID())

	attrs := map[string]string{}
	for _, kv := range got[1].Attributes {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "traced", attrs["datafactory.pipeline"])
	assert.Equal(t, report.ID, attrs["datafactory.run_id"])
	assert.Equal(t, "1", attrs["datafactory.steps"])
}

func TestPipeline_FailedSpan(t *testing.T) {
	spans := useTracer(t)
	p := &datafactory.Pipeline{Exporter: okExporter(), Reporter: quietReporter()}

	_, err := p.Run(context.Background())
	require.Error(t, err)

	got := spans.GetSpans()
	require.Len(t, got, 1)
	assert.Equal(t, codes.Error, got[0].Status.Code)
	assert.Len(t, got[0].Events, 1)
}

// ===========================================================================
// CSV end to end
// ===========================================================================

func TestPipeline_CSVFiles(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.csv")
	out := filepath.Join(dir, "out", "adults.csv")
	require.NoError(t, os.WriteFile(in, []byte("name,age,region\ntoto,12,north\nlolo,40,\n"), 0o600))

	p := &datafactory.Pipeline{
		Name:     "csv",
		Loader:   &datafactory.CSVLoader{Path: in},
		Steps:    []datafactory.Step{adults()},
		Exporter: &datafactory.CSVExporter{Path: out},
		Reporter: quietReporter(),
	}
	_, err := p.Run(context.Background())
	require.NoError(t, err)

	written, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "name,age,region\nlolo,40,\n", string(written))
}

// ===========================================================================
// Reporters
// ===========================================================================

func TestConsoleReporter(t *testing.T) {
	var buf bytes.Buffer
	console := datafactory.NewConsoleReporter(&buf)
	console.NoColor = true

	p := &datafactory.Pipeline{
		Name:        "console",
		Loader:      loaderOf(people()),
		Steps:       []datafactory.Step{addCity("Paris")},
		Validations: []datafactory.Validation{datafactory.NotEmpty()},
		Exporter:    okExporter(),
		Reporter:    console,
	}
	_, err := p.Run(context.Background())
	require.NoError(t, err)

	lines := buf.String()
	assert.Contains(t, lines, "Running pipeline: console\n")
	assert.Contains(t, lines, "Loaded data shape: 3 rows, 3 columns\n")
	assert.Contains(t, lines, "Step add_city done with data shape: 3 rows, 4 columns\n")
	assert.Contains(t, lines, "Validating data with 1 validation(s)...\n")
	assert.Contains(t, lines, "Validation NotEmpty passed\n")
	assert.Contains(t, lines, "Exported 3 rows\n")
	assert.Contains(t, lines, "Pipeline console completed in ")
}

func TestConsoleReporter_Failure(t *testing.T) {
	var buf bytes.Buffer
	console := datafactory.NewConsoleReporter(&buf)
	console.NoColor = true

	p := &datafactory.Pipeline{Name: "bad", Loader: loaderOf(people()), Reporter: console}
	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, buf.String(), "Pipeline bad failed: "+err.Error())
}

func TestSlogReporter(t *testing.T) {
	var buf bytes.Buffer
	p := &datafactory.Pipeline{
		Name:     "logged",
		Loader:   loaderOf(people()),
		Exporter: okExporter(),
		Reporter: datafactory.NewSlogReporter(slog.New(slog.NewTextHandler(&buf, nil))),
	}
	_, err := p.Run(context.Background())
	require.NoError(t, err)

	logs := buf.String()
	assert.Contains(t, logs, `msg="running pipeline" pipeline=logged`)
	assert.Contains(t, logs, `msg="no validation to apply, skipping"`)
	assert.Contains(t, logs, `msg="pipeline completed"`)
	assert.NotContains(t, logs, "level=ERROR")
}
