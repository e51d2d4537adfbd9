// Package cmd provides CLI command implementations.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ci-and-cd/topinfra-maven-sub001/internal/config"
	"github.com/ci-and-cd/topinfra-maven-sub001/internal/output"
	"github.com/ci-and-cd/topinfra-maven-sub001/pkg/activity"
	"github.com/ci-and-cd/topinfra-maven-sub001/pkg/model"
	"github.com/ci-and-cd/topinfra-maven-sub001/pkg/session"
	"github.com/ci-and-cd/topinfra-maven-sub001/pkg/state"
)

var (
	// Global flags
	settingsFlag  string
	dirFlag       string
	outputFlag    string
	stateFileFlag string
	defineFlags   []string
	verboseFlag   bool
	strictFlag    bool
	offlineFlag   bool

	// Resolved during PersistentPreRunE
	settings       *config.Settings
	userProperties map[string]string
	outputFormat   output.Format
)

// NewRootCmd creates the root command of the ciopt CLI.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ciopt",
		Short: "CI option resolution and profile activation",
		Long: `ciopt resolves the CI options of a Maven style build from the environment,
the git checkout and user properties, and reports which descriptor profiles
the custom activators enable.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initializeGlobals(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&settingsFlag, "settings", "s", "", "settings file (yaml, json or toml)")
	flags.StringVarP(&dirFlag, "dir", "d", ".", "project directory")
	flags.StringVarP(&outputFlag, "output", "o", "", "output format: properties, yaml, json (env: CIOPT_OUTPUT)")
	flags.StringVar(&stateFileFlag, "state-file", "", "file keeping hints between sessions (env: CIOPT_STATE_FILE)")
	flags.StringArrayVarP(&defineFlags, "define", "D", nil, "user property key=value, repeatable")
	flags.BoolVarP(&verboseFlag, "verbose", "v", false, "enable debug logging (env: CIOPT_VERBOSE)")
	flags.BoolVar(&strictFlag, "strict", false, "fail when the project version breaks the branch rules (env: CIOPT_STRICT)")
	flags.BoolVar(&offlineFlag, "offline", false, "never download parent descriptors")

	rootCmd.AddCommand(NewResolveCmd())
	rootCmd.AddCommand(NewActivateCmd())
	rootCmd.AddCommand(NewCheckVersionCmd())
	rootCmd.AddCommand(NewOptionsCmd())
	return rootCmd
}

// initializeGlobals loads settings, sets up logging and collects -D
// properties. Command line values win over settings and environment.
func initializeGlobals(cmd *cobra.Command) error {
	loaded, err := config.NewLoader().Load(settingsFlag)
	if err != nil {
		return &ExitError{Code: ExitConfigError, Err: err}
	}
	settings = loaded

	output.SetupLoggingTo(cmd.ErrOrStderr(), verboseFlag || settings.Verbose)

	userProperties = make(map[string]string, len(settings.Properties)+len(defineFlags))
	for key, value := range settings.Properties {
		userProperties[key] = value
	}
	for _, define := range defineFlags {
		key, value, err := config.ParseProperty(define)
		if err != nil {
			return &ExitError{Code: ExitConfigError, Err: err}
		}
		userProperties[key] = value
	}

	format := outputFlag
	if format == "" {
		format = settings.Output
	}
	outputFormat, err = output.ParseFormat(format)
	if err != nil {
		return &ExitError{Code: ExitConfigError, Err: err}
	}
	output.Debug("settings loaded", "settings", settingsFlag, "properties", len(userProperties))
	return nil
}

// newSession builds a session from the resolved globals. Problems reported
// during the session are recorded by collector.
func newSession(overrides map[string]string, collector *activity.Collector) (*session.Session, error) {
	properties := make(map[string]string, len(userProperties)+len(overrides))
	for key, value := range userProperties {
		properties[key] = value
	}
	for key, value := range overrides {
		properties[key] = value
	}

	cfg := session.Config{
		Environ:        os.Environ(),
		UserProperties: properties,
		ProjectDir:     dirFlag,
		HintDomain:     settings.HintDomain,
		Strict:         strictFlag || settings.Strict,
		Hooks:          activity.Hooks{collector},
	}
	stateFile := stateFileFlag
	if stateFile == "" {
		stateFile = settings.StateFile
	}
	if stateFile != "" {
		cfg.StateStore = state.NewFileStore(stateFile)
	}
	if !offlineFlag {
		cfg.Repositories = model.NewRepositoryResolver(model.DefaultLocalRepository(),
			model.WithResolverLogger(output.Logger))
	}
	return session.New(cfg, session.WithLogger(output.Logger))
}

// prepare creates and prepares a session.
func prepare(ctx context.Context, overrides map[string]string, collector *activity.Collector) (*session.Session, *session.Result, error) {
	s, err := newSession(overrides, collector)
	if err != nil {
		return nil, nil, &ExitError{Code: ExitConfigError, Err: err}
	}
	result, err := s.Prepare(ctx)
	if err != nil {
		return s, result, err
	}
	output.Debug("session prepared", "session", s.ID(), "ref", result.Facts.RefName, "hints", len(result.Hints))
	return s, result, nil
}

func reportProblems(collector *activity.Collector) {
	for _, problem := range collector.Problems() {
		output.Warn(fmt.Sprintf("%s: %s", problem.Verb, problem.Message), "object", problem.ObjectID)
	}
}
