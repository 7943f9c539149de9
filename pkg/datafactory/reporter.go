package datafactory

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/gookit/color"
)

// Reporter follows a pipeline run.
type Reporter interface {
	PipelineStarted(r *RunReport)
	Loaded(rows, columns int)
	StepDone(s StepReport)
	ValidationsSkipped()
	ValidationsStarted(count int)
	ValidationPassed(name string)
	Exported(rows int)
	PipelineFinished(r *RunReport)
}

// SlogReporter logs run progress. It is the default reporter.
type SlogReporter struct {
	logger *slog.Logger
}

// NewSlogReporter returns a reporter writing to logger, or to
// slog.Default() when logger is nil.
func NewSlogReporter(logger *slog.Logger) *SlogReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogReporter{logger: logger}
}

func (s *SlogReporter) PipelineStarted(r *RunReport) {
	s.logger.Info("running pipeline", "pipeline", r.Pipeline, "run_id", r.ID)
}

func (s *SlogReporter) Loaded(rows, columns int) {
	s.logger.Info("data loaded", "rows", rows, "columns", columns)
}

func (s *SlogReporter) StepDone(step StepReport) {
	s.logger.Info("step done",
		"step", step.Name,
		"rows", step.Rows,
		"columns", step.Columns,
		"duration", step.Duration,
	)
}

func (s *SlogReporter) ValidationsSkipped() {
	s.logger.Info("no validation to apply, skipping")
}

func (s *SlogReporter) ValidationsStarted(count int) {
	s.logger.Info("validating data", "validations", count)
}

func (s *SlogReporter) ValidationPassed(name string) {
	s.logger.Info("validation passed", "validation", name)
}

func (s *SlogReporter) Exported(rows int) {
	s.logger.Info("data exported", "rows", rows)
}

func (s *SlogReporter) PipelineFinished(r *RunReport) {
	if r.Status == RunFailed {
		s.logger.Error("pipeline failed",
			"pipeline", r.Pipeline, "run_id", r.ID, "duration", r.Duration(), "error", r.Error)
		return
	}
	s.logger.Info("pipeline completed",
		"pipeline", r.Pipeline, "run_id", r.ID, "duration", r.Duration(), "rows", r.Rows)
}

var (
	styleTitle  = color.New(color.FgGreen, color.OpBold)
	styleBold   = color.New(color.OpBold)
	styleOK     = color.New(color.FgGreen)
	styleFailed = color.New(color.FgRed, color.OpBold)
)

// ConsoleReporter prints human friendly progress lines.
type ConsoleReporter struct {
	w io.Writer

	// NoColor disables ANSI styling.
	NoColor bool
}

// NewConsoleReporter writes to w, or to stdout when w is nil.
func NewConsoleReporter(w io.Writer) *ConsoleReporter {
	if w == nil {
		w = os.Stdout
	}
	return &ConsoleReporter{w: w}
}

func (c *ConsoleReporter) paint(style color.Style, s string) string {
	if c.NoColor {
		return s
	}
	return style.Sprint(s)
}

func (c *ConsoleReporter) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.w, format+"\n", args...)
}

func (c *ConsoleReporter) PipelineStarted(r *RunReport) {
	c.printf("Running pipeline: %s", c.paint(styleTitle, r.Pipeline))
}

func (c *ConsoleReporter) Loaded(rows, columns int) {
	c.printf("Loaded data shape: %d rows, %d columns", rows, columns)
}

func (c *ConsoleReporter) StepDone(s StepReport) {
	c.printf("Step %s done with data shape: %d rows, %d columns",
		c.paint(styleBold, s.Name), s.Rows, s.Columns)
}

func (c *ConsoleReporter) ValidationsSkipped() {
	c.printf("No validation to apply, skipping...")
}

func (c *ConsoleReporter) ValidationsStarted(count int) {
	c.printf("Validating data with %d validation(s)...", count)
}

func (c *ConsoleReporter) ValidationPassed(name string) {
	c.printf("Validation %s %s", c.paint(styleBold, name), c.paint(styleOK, "passed"))
}

func (c *ConsoleReporter) Exported(rows int) {
	c.printf("Exported %d rows", rows)
}

func (c *ConsoleReporter) PipelineFinished(r *RunReport) {
	if r.Status == RunFailed {
		c.printf("Pipeline %s %s: %s", r.Pipeline, c.paint(styleFailed, "failed"), r.Error)
		return
	}
	c.printf("Pipeline %s %s in %s", r.Pipeline, c.paint(styleOK, "completed"), r.Duration().Round(time.Millisecond))
}
