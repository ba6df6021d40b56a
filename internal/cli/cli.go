// Package cli provides the command line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/flakemap/internal/config"
	"github.com/temirov/flakemap/internal/flake"
	"github.com/temirov/flakemap/internal/output"
	"github.com/temirov/flakemap/internal/services/clipboard"
	"github.com/temirov/flakemap/internal/session"
	"github.com/temirov/flakemap/internal/tui"
	"github.com/temirov/flakemap/internal/types"
	"github.com/temirov/flakemap/internal/utils"
	"github.com/temirov/flakemap/internal/watch"
)

const (
	configFlagName    = "config"
	viewFlagName      = "view"
	watchFlagName     = "watch"
	gitignoreFlagName = "gitignore"
	clipboardFlagName = "clipboard"
	printFlagName     = "print"
	formatFlagName    = "format"
	logFileFlagName   = "log-file"
	versionFlagName   = "version"

	versionTemplate      = "flakemap version: %s\n"
	rootUse              = "flakemap [path]"
	rootShortDescription = "browse the .nix files of a flake"
	rootLongDescription  = `flakemap finds the nearest flake.nix at or above the given path (the
working directory by default, at most five directories up) and shows every
.nix file below it that is not inside a hidden directory.
The interactive view supports a tree and a flat list; press r to refresh and
? for all keys. Use --print to write the tree to standard output instead.`
	rootUsageExample = `  # Browse the flake containing the current directory
  flakemap

  # Start from a system configuration, refreshing on file changes
  flakemap --watch ~/nixos-config

  # Print the index as JSON
  flakemap --print --format json /etc/nixos`

	configFlagDescription    = "configuration file (overrides " + utils.LocalConfigFileName + ")"
	viewFlagDescription      = "initial view: tree or list"
	watchFlagDescription     = "refresh when .nix files change"
	gitignoreFlagDescription = "exclude files matched by the root .gitignore"
	clipboardFlagDescription = "allow the copy key to use the system clipboard"
	printFlagDescription     = "print the index and exit instead of starting the interactive view"
	formatFlagDescription    = "output format for --print: raw or json"
	logFileFlagDescription   = "write diagnostic logs to this file"
	versionFlagDescription   = "display application version"

	invalidFormatMessage      = "invalid format value '%s'"
	homeExpansionErrorFormat  = "expand path %s: %w"
	loadConfigurationFailure  = "load configuration: %w"
	createLoggerFailureFormat = "create log file logger: %w"
	interactiveFailureFormat  = "interactive view: %w"
	unexpectedModelFormat     = "unexpected final model %T"
)

// errStartFailed marks a run that ended before a flake could be shown.
var errStartFailed = errors.New("start failed")

// isSupportedFormat reports whether the provided format is recognized.
func isSupportedFormat(format string) bool {
	switch format {
	case types.FormatRaw, types.FormatJSON:
		return true
	default:
		return false
	}
}

// Execute runs the flakemap application.
func Execute() error {
	rootCommand := createRootCommand()
	rootCommand.SetArgs(normalizeBooleanFlagArguments(rootCommand, os.Args[1:]))
	return rootCommand.Execute()
}

// commandOptions stores the raw flag values; only flags the user set
// override configuration.
type commandOptions struct {
	configurationPath string
	view              string
	watch             bool
	useGitignore      bool
	clipboard         bool
	printIndex        bool
	format            string
	logFile           string
	showVersion       bool
}

// createRootCommand builds the root Cobra command.
func createRootCommand() *cobra.Command {
	var options commandOptions

	rootCommand := &cobra.Command{
		Use:           rootUse,
		Short:         rootShortDescription,
		Long:          rootLongDescription,
		Example:       rootUsageExample,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			if options.showVersion {
				fmt.Fprintf(command.OutOrStdout(), versionTemplate, utils.GetApplicationVersion())
				return nil
			}
			if !isSupportedFormat(options.format) {
				return fmt.Errorf(invalidFormatMessage, options.format)
			}
			startDirectory, resolveError := resolveStartDirectory(arguments)
			if resolveError != nil {
				return resolveError
			}
			settings, settingsError := resolveSettings(command, options)
			if settingsError != nil {
				return settingsError
			}
			logger, loggerError := utils.NewFileLogger(settings.LogFile)
			if loggerError != nil {
				return fmt.Errorf(createLoggerFailureFormat, loggerError)
			}
			defer logger.Sync()

			if options.printIndex {
				return runPrint(command.OutOrStdout(), startDirectory, settings, options.format, logger)
			}
			return runInteractive(command.Context(), startDirectory, settings, logger)
		},
	}

	flagSet := rootCommand.Flags()
	flagSet.StringVar(&options.configurationPath, configFlagName, utils.EmptyString, configFlagDescription)
	flagSet.StringVar(&options.view, viewFlagName, types.ViewTree, viewFlagDescription)
	registerBooleanFlag(flagSet, &options.watch, watchFlagName, false, watchFlagDescription)
	registerBooleanFlag(flagSet, &options.useGitignore, gitignoreFlagName, false, gitignoreFlagDescription)
	registerBooleanFlag(flagSet, &options.clipboard, clipboardFlagName, true, clipboardFlagDescription)
	registerBooleanFlag(flagSet, &options.printIndex, printFlagName, false, printFlagDescription)
	flagSet.StringVar(&options.format, formatFlagName, types.FormatRaw, formatFlagDescription)
	flagSet.StringVar(&options.logFile, logFileFlagName, utils.EmptyString, logFileFlagDescription)
	flagSet.BoolVar(&options.showVersion, versionFlagName, false, versionFlagDescription)
	rootCommand.InitDefaultHelpCmd()
	rootCommand.InitDefaultCompletionCmd()
	return rootCommand
}

// resolveStartDirectory returns the optional positional path with a leading ~
// expanded; empty means the working directory.
func resolveStartDirectory(arguments []string) (string, error) {
	if len(arguments) == 0 {
		return utils.EmptyString, nil
	}
	expanded, expandError := utils.ExpandHomeDirectory(arguments[0])
	if expandError != nil {
		return utils.EmptyString, fmt.Errorf(homeExpansionErrorFormat, arguments[0], expandError)
	}
	return expanded, nil
}

// resolveSettings loads configuration files and overlays the flags the user set.
func resolveSettings(command *cobra.Command, options commandOptions) (config.ApplicationConfiguration, error) {
	loaded, loadError := config.LoadApplicationConfiguration(config.LoadOptions{
		ExplicitFilePath: options.configurationPath,
	})
	if loadError != nil {
		return config.ApplicationConfiguration{}, fmt.Errorf(loadConfigurationFailure, loadError)
	}

	var flagOverrides config.ApplicationConfiguration
	flagSet := command.Flags()
	if flagSet.Changed(viewFlagName) {
		flagOverrides.View = options.view
	}
	if flagSet.Changed(watchFlagName) {
		flagOverrides.Watch = &options.watch
	}
	if flagSet.Changed(gitignoreFlagName) {
		flagOverrides.UseGitignore = &options.useGitignore
	}
	if flagSet.Changed(clipboardFlagName) {
		flagOverrides.Clipboard = &options.clipboard
	}
	if flagSet.Changed(logFileFlagName) {
		flagOverrides.LogFile = options.logFile
	}
	merged := loaded.Merge(flagOverrides)
	if validationError := merged.Validate(); validationError != nil {
		return config.ApplicationConfiguration{}, validationError
	}
	return merged, nil
}

func newSession(startDirectory string, settings config.ApplicationConfiguration, copier clipboard.Copier, logger *zap.Logger) *session.Session {
	fileSystem := afero.NewOsFs()
	indexer := flake.NewIndexer(fileSystem, logger)
	indexer.UseGitignore = settings.GitignoreEnabled()
	return session.New(session.Options{
		StartDirectory: startDirectory,
		Locator:        flake.NewLocator(fileSystem, logger),
		Indexer:        indexer,
		Copier:         copier,
		Logger:         logger,
	})
}

// runPrint writes the index without the interactive view.
func runPrint(writer io.Writer, startDirectory string, settings config.ApplicationConfiguration, format string, logger *zap.Logger) error {
	printSession := newSession(startDirectory, settings, clipboard.Disabled{}, logger)
	startResult := printSession.Start()
	if startResult.Quit || printSession.Tree() == nil {
		return startFailure(startResult.Notifications)
	}

	root, _ := printSession.Root()
	if settings.ViewOrDefault() == types.ViewList {
		if format == types.FormatJSON {
			rendered, renderError := output.RenderListJSON(printSession.Files())
			if renderError != nil {
				return renderError
			}
			fmt.Fprintln(writer, rendered)
			return nil
		}
		output.WriteListRaw(writer, printSession.Files())
		return nil
	}

	outputTree := output.ConvertTree(root, printSession.Tree())
	if format == types.FormatJSON {
		rendered, renderError := output.RenderJSON(outputTree)
		if renderError != nil {
			return renderError
		}
		fmt.Fprintln(writer, rendered)
		return nil
	}
	output.WriteTreeRaw(writer, outputTree, true)
	return nil
}

// runInteractive runs the terminal view, and the watcher when enabled, until
// the user quits.
func runInteractive(ctx context.Context, startDirectory string, settings config.ApplicationConfiguration, logger *zap.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var copier clipboard.Copier = clipboard.Disabled{}
	if settings.ClipboardEnabled() {
		copier = clipboard.NewService()
	}
	interactiveSession := newSession(startDirectory, settings, copier, logger)

	programContext, cancelProgram := context.WithCancel(ctx)
	defer cancelProgram()
	group, groupContext := errgroup.WithContext(programContext)

	modelOptions := tui.Options{View: settings.ViewOrDefault()}
	if settings.WatchEnabled() {
		modelOptions.Watch = func(root flake.Root) (<-chan struct{}, error) {
			watcher, watchError := watch.New(root, logger, watch.DefaultDebounce)
			if watchError != nil {
				logger.Warn("watch unavailable", zap.Error(watchError))
				return nil, watchError
			}
			changes := make(chan struct{}, 1)
			group.Go(func() error {
				defer close(changes)
				defer watcher.Close()
				return watcher.Run(groupContext, func() {
					select {
					case changes <- struct{}{}:
					default:
					}
				})
			})
			return changes, nil
		}
	}

	program := tea.NewProgram(
		tui.New(interactiveSession, modelOptions),
		tea.WithAltScreen(),
		tea.WithContext(groupContext),
	)
	var finalModel tea.Model
	group.Go(func() error {
		defer cancelProgram()
		model, runError := program.Run()
		finalModel = model
		if runError != nil {
			return fmt.Errorf(interactiveFailureFormat, runError)
		}
		return nil
	})
	if waitError := group.Wait(); waitError != nil {
		return waitError
	}

	typedModel, isModel := finalModel.(tui.Model)
	if !isModel {
		return fmt.Errorf(unexpectedModelFormat, finalModel)
	}
	if failure := typedModel.StartFailure(); failure != nil {
		return startFailure([]session.Notification{*failure})
	}
	return nil
}

// startFailure turns the notification that ended a run into an error.
func startFailure(notifications []session.Notification) error {
	for index := len(notifications) - 1; index >= 0; index-- {
		if notifications[index].Severity == session.SeverityError {
			return fmt.Errorf("%w: %s", errStartFailed, notifications[index].Message)
		}
	}
	return errStartFailed
}
