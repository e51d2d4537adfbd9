package cmd

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ci-and-cd/topinfra-maven-sub001/internal/output"
	"github.com/ci-and-cd/topinfra-maven-sub001/pkg/activity"
	"github.com/ci-and-cd/topinfra-maven-sub001/pkg/session"
)

func NewActivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "activate [module-dir...]",
		Short: "List the profiles the custom activators enable",
		Long: `Resolve the options, then evaluate the expression, dockerfile and packaging
activators for every module of the reactor rooted at --dir, or for the given
module directories.`,
		RunE: runActivate,
	}
}

func runActivate(cmd *cobra.Command, args []string) error {
	collector := &activity.Collector{}
	s, _, err := prepare(cmd.Context(), nil, collector)
	if err != nil {
		reportProblems(collector)
		return err
	}

	dirs := args
	if len(dirs) == 0 {
		dirs, err = session.DiscoverReactor(s.ProjectDir())
		if err != nil {
			return &ExitError{Code: ExitGeneralError, Err: err}
		}
	}
	active, activationErr := s.ActivateReactor(cmd.Context(), dirs)
	reportProblems(collector)

	report := make(map[string][]string, len(active))
	for dir, profiles := range active {
		if rel, err := filepath.Rel(s.ProjectDir(), dir); err == nil {
			dir = filepath.ToSlash(rel)
		}
		if profiles == nil {
			profiles = []string{}
		}
		report[dir] = profiles
	}
	if err := output.Write(cmd.OutOrStdout(), report, outputFormat); err != nil {
		return err
	}
	if activationErr != nil {
		return &ExitError{Code: ExitActivationError, Err: activationErr}
	}
	return nil
}
