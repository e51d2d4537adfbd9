package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ci-and-cd/topinfra-maven-sub001/pkg/activity"
	"github.com/ci-and-cd/topinfra-maven-sub001/pkg/cioption"
)

func NewCheckVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-version",
		Short: "Check the project version against the branch naming rules",
		Long: `Check the version of the project at --dir against the rules of the current
ref: develop needs N-SNAPSHOT, feature/<name> needs N-<name>-SNAPSHOT, release
and hotfix branches need N with an optional -SNAPSHOT.`,
		Args: cobra.NoArgs,
		RunE: runCheckVersion,
	}
}

func runCheckVersion(cmd *cobra.Command, _ []string) error {
	collector := &activity.Collector{}
	overrides := map[string]string{cioption.CheckProjectVersion.PropertyName(): "true"}
	_, result, err := prepare(cmd.Context(), overrides, collector)
	if err == nil && result.VersionErr != nil {
		err = result.VersionErr
	}
	if errors.Is(err, cioption.ErrVersionMismatch) {
		return &ExitError{Code: ExitVersionMismatch, Err: err}
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "version ok on %s\n", result.Facts.RefName)
	return nil
}
