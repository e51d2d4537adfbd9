package cmd

import (
	"github.com/spf13/cobra"

	opts "github.com/ci-and-cd/topinfra-maven-sub001"
	"github.com/ci-and-cd/topinfra-maven-sub001/internal/output"
	"github.com/ci-and-cd/topinfra-maven-sub001/pkg/activity"
)

var explainFlags []string

func NewResolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve the CI options of the project",
		Long: `Resolve every cataloged option from system properties (CI_OPT_* environment
variables), user properties, calculated values and defaults, and print the
result with secrets masked.`,
		Args: cobra.NoArgs,
		RunE: runResolve,
	}
	cmd.Flags().StringArrayVar(&explainFlags, "explain", nil, "print the lookup trace of a property instead, repeatable")
	return cmd
}

func runResolve(cmd *cobra.Command, _ []string) error {
	collector := &activity.Collector{}
	s, result, err := prepare(cmd.Context(), nil, collector)
	reportProblems(collector)
	if err != nil {
		return err
	}
	if len(explainFlags) == 0 {
		return output.DumpProperties(cmd.OutOrStdout(), result.Properties, outputFormat)
	}
	traces := make([]opts.Trace, 0, len(explainFlags))
	for _, property := range explainFlags {
		trace, err := s.Explain(property)
		if err != nil {
			return &ExitError{Code: ExitConfigError, Err: err}
		}
		traces = append(traces, trace)
	}
	format := outputFormat
	if format == output.FormatProperties {
		format = output.FormatYAML
	}
	return output.Write(cmd.OutOrStdout(), traces, format)
}
