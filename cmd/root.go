// =============================================================================
// Estoque Analítico - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. Every subcommand
// (process, convert, inspect, serve, version) is attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (estoque)
//   ├── processCmd (estoque process)   batch conversion of the input directory
//   ├── convertCmd (estoque convert)   one export to one workbook
//   ├── inspectCmd (estoque inspect)   summary of a generated workbook
//   ├── serveCmd   (estoque serve)     HTTP upload shell
//   └── versionCmd (estoque version)
//
// CONFIGURATION:
//   Before any subcommand runs, the root command loads config.yaml (or the
//   file given with --config), applies ESTOQUE_* environment overrides and
//   builds the slog logger.
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/AlefeBarboza/RELATORIO-AX00007/internal/config"
	"github.com/AlefeBarboza/RELATORIO-AX00007/internal/logging"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// verbose forces debug logging.
var verbose bool

// appConfig and logger are set by the root command before a subcommand runs.
var (
	appConfig *config.MainConfig
	logger    *slog.Logger
	closeLog  = func() error { return nil }
)

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

var rootCmd = &cobra.Command{
	Use:   "estoque",
	Short: "Estoque Analítico - Turn inventory position exports into Excel workbooks",
	Long: `Estoque Analítico reads the "Posição de Estoque" text export of the
municipal stock system and writes one Excel workbook with a sheet per
warehouse (Almoxarifado). Every sheet lists the items of that warehouse with
quantities, values, the unit value and an adjustment formula against the
physical survey column.

Example Usage:
  estoque process                       # Convert every export in the input directory
  estoque convert --file posicao.txt    # Convert a single export
  estoque convert --file posicao.txt --preview
  estoque inspect saida.xlsx            # Summarize a generated workbook
  estoque serve                         # Start the HTTP upload shell`,

	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// version needs no configuration.
		if cmd.Name() == "version" {
			return nil
		}
		return initConfig()
	},

	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeLog()
	},

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. It is called by main.main().
func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		config.DefaultConfigFile,
		"Path to the main configuration file",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)
}

// initConfig loads the configuration and builds the logger.
func initConfig() error {
	cfg, err := config.LoadMainConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load main config: %w", err)
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	log, closer, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}

	appConfig = cfg
	logger = log
	closeLog = closer
	slog.SetDefault(log)

	logger.Debug("configuration loaded", "config", cfgFile, "input_dir", cfg.InputDir, "output_dir", cfg.OutputDir)
	return nil
}
