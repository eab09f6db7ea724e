// golfbot is a headless 321 Golf client. It hosts or joins a room on a relay
// server and plays with a simple built-in controller.
//
// Usage:
//
//	golfbot play --relay ws://localhost:8080/api/v1/ws --identity GOLF-7QX2
//	golfbot identity --server http://localhost:8080
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	flagLogLevel string
	flagSeed     int64
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "golfbot",
	Short: "Headless 321 Golf client",
	Long: `golfbot connects to a golf relay and plays a room without rendering.

Examples:
  golfbot identity --server http://localhost:8080
  golfbot play --identity GOLF-7QX2 --token <token>
  golfbot play --room AB12 --duration 2m`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Int64Var(&flagSeed, "seed", 0, "RNG seed (0 = random based on time)")

	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(identityCmd)
}

func newLogger() *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "golfbot",
	})
	if lvl, err := log.ParseLevel(flagLogLevel); err == nil {
		logger.SetLevel(lvl)
	} else {
		logger.Warn("unknown log level, using info", "level", flagLogLevel)
	}
	return logger
}
