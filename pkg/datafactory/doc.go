// Package datafactory runs small tabular ETL pipelines: load a [Frame],
// push it through a list of [Step]s, cast the declared column types,
// validate, and export.
//
//	byRegion, err := datafactory.ParallelSteps(euUsers, usUsers)
//	if err != nil {
//	    return err
//	}
//	p := &datafactory.Pipeline{
//	    Name:     "daily users",
//	    Loader:   &datafactory.CSVLoader{Path: "in/users.csv"},
//	    Steps:    []datafactory.Step{dropInactive, byRegion},
//	    Exporter: &datafactory.CSVExporter{Path: "out/users.csv"},
//	}
//	report, err := p.Run(ctx)
//
// Failures are *errors.Error values with a pipeline code:
//   - PIPE_001: the pipeline or a step is wrongly defined
//   - PIPE_002: a step or a type conversion failed
//   - PIPE_003: loading or exporting failed
//   - DATA_001: a validation rejected the output
//
// Each run is traced as a "datafactory.Run" span with one child span per
// step.
package datafactory
