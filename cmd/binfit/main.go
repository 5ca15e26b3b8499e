package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/astrokit/binfit/internal/logging"
	"github.com/astrokit/binfit/pkg/utils"
)

const (
	// Application constants
	appName = "binfit"
	version = "v1.0.0"
)

var (
	// Configuration and logger shared by all commands, set up by the
	// persistent pre-run hook.
	cfg    *utils.Config
	logger *slog.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Orbital solutions for spectroscopic and astrometric binaries",
	Long: `binfit fits the orbital elements of a binary star to radial velocity
data of one or both components and/or relative astrometric positions,
and derives the component masses and semi-major axis from the fit.

Inputs are named by a plain-text pointer file listing the guess file and
the optional RV1/RV2/astrometry data files. The fit runs a damped least
squares minimization, optionally preceded by basin hopping for multimodal
problems or followed by MCMC sampling for posterior error estimates.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = utils.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}
		logger = logging.New(logging.Config{
			Level:  cfg.Log.Level,
			Format: cfg.Log.Format,
		})
		return nil
	},
}

// initCmd writes the default configuration and creates the directories.
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the binfit configuration",
	Long: `Initialize the binfit configuration. This writes the default
configuration file and creates the output directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := utils.SaveConfig(cfg); err != nil {
			return err
		}
		path, err := utils.GetConfigPath()
		if err != nil {
			return err
		}
		fmt.Printf("Configuration saved to: %s\n", path)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("%s %s\n", appName, version)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(fitCmd)
	rootCmd.AddCommand(curvesCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
