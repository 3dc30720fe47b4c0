package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/tartampluch/go-birthday-bot/internal/bot"
	"github.com/tartampluch/go-birthday-bot/internal/config"
	"github.com/tartampluch/go-birthday-bot/internal/engine"
)

// options carries persistent flag values and the open log file.
type options struct {
	debug      bool
	configFile string
	envFile    string

	logCloser io.Closer
}

func (o *options) loadSettings() (config.Settings, error) {
	return config.LoadSettings(config.LoadOptions{
		EnvFile:    o.envFile,
		ConfigFile: o.configFile,
	})
}

func newRootCommand(opts *options) *cobra.Command {
	root := &cobra.Command{
		Use:           config.CommandName,
		Short:         config.CmdDescRoot,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			// Printing commands keep stdout for their output.
			console := io.Writer(os.Stderr)
			if cmd.Name() == config.CmdRun {
				console = os.Stdout
			}
			opts.logCloser = setupLogging(opts.debug, console)
		},
	}

	flags := root.PersistentFlags()
	flags.BoolVar(&opts.debug, config.FlagDebug, false, config.FlagDescDebug)
	flags.StringVar(&opts.configFile, config.FlagConfig, "", config.FlagDescConfig)
	flags.StringVar(&opts.envFile, config.FlagEnvFile, config.DefaultEnvFile, config.FlagDescEnvFile)

	root.AddCommand(
		newRunCommand(opts),
		newPrintCommand(opts, config.CmdToday, config.CmdDescToday, (*bot.Bot).TodayReply),
		newPrintCommand(opts, config.CmdList, config.CmdDescList, (*bot.Bot).ListReply),
		newVersionCommand(),
	)
	return root
}

func newRunCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   config.CmdRun,
		Short: config.CmdDescRun,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logStartupInfo()

			settings, err := opts.loadSettings()
			if err != nil {
				return err
			}
			return runBot(cmd.Context(), settings)
		},
	}
}

// newPrintCommand builds a one-shot command printing a bot reply without connecting.
func newPrintCommand(opts *options, use, short string, reply func(*bot.Bot) string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := opts.loadSettings()
			if err != nil {
				return err
			}
			b := bot.New(engine.NewStore(settings.SourcePath), settings.Location, bot.NewTranslator(settings.Language))
			_, err = fmt.Fprintln(cmd.OutOrStdout(), reply(b))
			return err
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   config.CmdVersion,
		Short: config.CmdDescVersion,
		Args:  cobra.NoArgs,
		// Skip the logging setup of the root command.
		PersistentPreRun: func(*cobra.Command, []string) {},
		Run: func(cmd *cobra.Command, _ []string) {
			printVersion(cmd.OutOrStdout())
		},
	}
}
