package cmd

import (
	"os"

	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"pocket-poker/bot"
	"pocket-poker/config"
	"pocket-poker/logging"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	cfg      config.Config
	logger   zerolog.Logger
	logLevel string
}

// NewRootCmd builds the command tree. It is called once in main.
func NewRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "pocket-poker",
		Short:         "No-Limit Texas Hold'em against friends and bots",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.cfg = config.Load()
			if cmd.Flags().Changed("log-level") {
				a.cfg.LogLevel = a.logLevel
			}
			a.logger = logging.New(a.cfg.LogLevel, a.cfg.LogPretty)
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newServeCmd(a),
		newHostCmd(a),
		newJoinCmd(a),
		newSoloCmd(a),
	)
	return rootCmd
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

// tableLogger keeps the terminal quiet while a table is drawn, unless the
// user asked for a level explicitly.
func (a *app) tableLogger(cmd *cobra.Command) zerolog.Logger {
	if cmd.Flags().Changed("log-level") {
		return a.logger
	}
	return a.logger.Level(zerolog.WarnLevel)
}

// runnerOptions configures the bot runner from the environment. A Gemini key
// enables the language-model policy for seats marked useAI.
func (a *app) runnerOptions(logger zerolog.Logger) []bot.RunnerOption {
	opts := []bot.RunnerOption{
		bot.WithThinkingDelay(a.cfg.BotDelay),
		bot.WithDecisionTimeout(a.cfg.DecisionLimit),
		bot.WithRunnerLogger(logger),
	}
	if a.cfg.GeminiAPIKey != "" {
		opts = append(opts, bot.WithLLMPolicy(bot.NewLLMPolicy(a.cfg.GeminiAPIKey,
			bot.WithModel(a.cfg.GeminiModel),
			bot.WithLLMLogger(logger),
		)))
	}
	return opts
}
