package main

import (
	"fmt"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/nihei9/gramc/config"
	"github.com/nihei9/gramc/internal/logutil"
)

var rootFlags = struct {
	config   *string
	logLevel *string
}{}

// appConfig is the config the running command uses. It is loaded before any command runs.
var appConfig = config.NewConfig()

var appFs = afero.NewOsFs()

var rootCmd = &cobra.Command{
	Use:   "gramc",
	Short: "Compile a grammar into LALR(1) parsing tables",
	Long: `gramc provides the following features:
- Compiles a grammar into a portable parsing table and a lexical specification.
- Describes the automaton the table was built from.
- Tokenizes and parses a text stream according to a compiled grammar.
  These features are primarily aimed at debugging the grammar.`,
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: setUp,
}

func init() {
	rootFlags.config = rootCmd.PersistentFlags().String("config", "", "config file path")
	rootFlags.logLevel = rootCmd.PersistentFlags().String("log-level", "", "log level (overrides the config)")
}

func setUp(cmd *cobra.Command, args []string) error {
	if *rootFlags.config != "" {
		err := appConfig.Load(appFs, *rootFlags.config)
		if err != nil {
			return fmt.Errorf("Cannot load the config file %s: %w", *rootFlags.config, err)
		}
	}
	if *rootFlags.logLevel != "" {
		appConfig.Log.Level = *rootFlags.logLevel
	}
	return logutil.InitLogger(&appConfig.Log)
}

func Execute() error {
	defer logutil.Sync()

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return err
	}
	return nil
}
