// Command lifecyclectl runs maintenance tasks against the lifecycle store and prints
// the reference tables the API serves.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/garyjia/coselection/internal/config"
	"github.com/garyjia/coselection/pkg/utils"
)

var (
	configPath string
	envFile    string
	verbose    bool
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:           "lifecyclectl",
	Short:         "Operate the co-selection lifecycle service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "configs/config.yaml", "path to the yaml config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional .env file loaded before the environment")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print JSON instead of a table")

	rootCmd.AddCommand(sweepCmd, reasonsCmd, permissionsCmd, tokenCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig reads the service configuration the same way the server does
func loadConfig() (*config.Config, error) {
	return config.LoadWithEnvFile(configPath, envFile)
}

func newLogger() (*zap.Logger, error) {
	return utils.NewCLILogger(verbose)
}
