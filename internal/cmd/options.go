package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ci-and-cd/topinfra-maven-sub001/internal/output"
	"github.com/ci-and-cd/topinfra-maven-sub001/pkg/cioption"
)

func NewOptionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "options",
		Short: "Describe the option catalog",
		Args:  cobra.NoArgs,
		RunE:  runOptions,
	}
}

func runOptions(cmd *cobra.Command, _ []string) error {
	descriptors := cioption.NewRegistry().Describe()
	if outputFormat != output.FormatProperties {
		return output.Write(cmd.OutOrStdout(), descriptors, outputFormat)
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ORIGIN\tPROPERTY\tENVIRONMENT\tDEFAULT")
	for _, d := range descriptors {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.Origin, d.PropertyName, d.EnvironmentVariableName, d.DefaultValue)
	}
	return w.Flush()
}
