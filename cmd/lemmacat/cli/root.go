package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app carries settings shared by all subcommands of one root command.
type app struct {
	v       *viper.Viper
	cfgFile string
}

func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:   "lemmacat",
		Short: "Keyword-lemma text classifier",
		Long: `lemmacat assigns each document to the category whose keyword phrases occur
most often in its lemmatized text. Categories and keywords come from a YAML
taxonomy; the first category listed wins ties.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.initConfig(); err != nil {
				return err
			}
			a.setupLogging(cmd.ErrOrStderr())
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is ./.lemmacat.yaml or $HOME/.lemmacat.yaml)")
	flags.String("taxonomy", "", "taxonomy YAML file")
	flags.String("lexicon", "", "exception lexicon YAML file")
	flags.String("language", "english", "stemmer language")
	flags.Int("workers", 4, "documents classified concurrently")
	flags.String("format", "table", "output format: table or jsonl")
	flags.String("store", "none", "result store: none, memory, sqlite or bolt")
	flags.String("store-path", "", "database file for the sqlite and bolt stores")
	flags.Bool("debug", false, "enable debug logging")
	flags.Bool("log-json", false, "log as JSON instead of console text")

	for key, flag := range map[string]string{
		"taxonomy":     "taxonomy",
		"lexicon":      "lexicon",
		"language":     "language",
		"workers":      "workers",
		"format":       "format",
		"store.driver": "store",
		"store.path":   "store-path",
		"debug":        "debug",
		"log_json":     "log-json",
	} {
		_ = a.v.BindPFlag(key, flags.Lookup(flag))
	}

	a.v.SetDefault("language", "english")
	a.v.SetDefault("workers", 4)
	a.v.SetDefault("format", "table")
	a.v.SetDefault("store.driver", "none")

	rootCmd.AddCommand(NewClassifyCommand(a))
	rootCmd.AddCommand(NewNormalizeCommand(a))
	rootCmd.AddCommand(NewIndexCommand(a))
	rootCmd.AddCommand(NewWatchCommand(a))
	rootCmd.AddCommand(NewRunsCommand(a))

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		log.Error().Err(err).Msg("lemmacat failed")
		os.Exit(1)
	}
}

// initConfig reads in config file and ENV variables if set.
func (a *app) initConfig() error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		a.v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			a.v.AddConfigPath(home)
		}
		a.v.SetConfigType("yaml")
		a.v.SetConfigName(".lemmacat")
	}

	a.v.SetEnvPrefix("LEMMACAT")
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if a.cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

func (a *app) setupLogging(w io.Writer) {
	level := zerolog.InfoLevel
	if a.v.GetBool("debug") {
		level = zerolog.DebugLevel
	}

	// Batch workers share this logger.
	w = zerolog.SyncWriter(w)
	var out io.Writer = zerolog.ConsoleWriter{Out: w}
	if a.v.GetBool("log_json") {
		out = w
	}
	log.Logger = zerolog.New(out).Level(level).With().Timestamp().Logger()

	if used := a.v.ConfigFileUsed(); used != "" {
		log.Debug().Str("file", used).Msg("using config file")
	}
}

// logger returns the process logger for library components.
func (a *app) logger() *zerolog.Logger {
	l := log.Logger
	return &l
}
