package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/stagegate/internal/cli"
	"github.com/aretw0/stagegate/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "stagegate",
	Short: "Stagegate enforces conversation stages and mandatory actions for travel agents",
	Long: `Stagegate tracks where a travel-booking conversation is, decides which action
the agent must take next and keeps replies from re-asking what is already known.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML configuration file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: text or json")
	rootCmd.PersistentFlags().String("store", "", "Session store: memory, file or redis")
	rootCmd.PersistentFlags().Bool("debug", false, "Log lifecycle events at debug level")
}

// loadConfig reads the configuration and applies the persistent flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.Log.Level = v
	}
	if v, _ := cmd.Flags().GetString("log-format"); v != "" {
		cfg.Log.Format = v
	}
	if v, _ := cmd.Flags().GetString("store"); v != "" {
		cfg.Store.Backend = v
	}
	return cfg, cfg.Validate()
}

// app is what a command needs: the configuration, a logger and a runtime.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	rt     *cli.Runtime
}

// setup loads the configuration and builds the runtime for a command.
func setup(cmd *cobra.Command, quiet bool) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	debug, _ := cmd.Flags().GetBool("debug")
	logger, err := cli.NewLogger(cfg, debug, quiet)
	if err != nil {
		return nil, err
	}
	rt, err := cli.NewRuntime(cfg, logger, debug)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, logger: logger, rt: rt}, nil
}
