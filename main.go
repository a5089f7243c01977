// mapengine runs tile maps driven by tengo scripts.
//
// Usage:
//
//	mapengine run [game.tengo]        - Run a game script (the bundled demo by default)
//	mapengine dump <file.rmp>         - Print the contents of a map file
//	mapengine build <level.yaml> <out.rmp> - Build a map file from a level source
//
// Global flags:
//
//	--config <path>     - Engine config YAML (default: ~/.mapengine/config.yaml)
//	--log-level <level> - debug, info, warn or error
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	flagConfig   string
	flagLogLevel string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "mapengine",
	Short: "Map engine - run scripted tile maps",
	Long: `Map engine loads .rmp tile maps, moves persons around them and runs
tengo scripts on map, person and key events.

Examples:
  mapengine run
  mapengine run game.tengo --watch
  mapengine run --headless --frames 600
  mapengine dump maps/town.rmp
  mapengine build levels/town.yaml maps/town.rmp`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to engine config YAML")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level override (debug, info, warn, error)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(buildCmd)
}

// newLogger builds the process logger. An explicit --log-level wins over the
// configured level.
func newLogger(configured string) (*log.Logger, error) {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "mapengine",
	})
	name := configured
	if flagLogLevel != "" {
		name = flagLogLevel
	}
	if name == "" {
		return logger, nil
	}
	lvl, err := log.ParseLevel(name)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	logger.SetLevel(lvl)
	return logger, nil
}
