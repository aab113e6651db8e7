package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/ribosome/engine"
	"github.com/wippyai/ribosome/host"
	"github.com/wippyai/ribosome/runtime"
	"github.com/wippyai/ribosome/state"
)

var (
	configPath string
	logLevel   string
	storeKind  string
	storeDir   string

	logger *zap.Logger
	config runtime.Config
)

var rootCmd = &cobra.Command{
	Use:           "ribosome",
	Short:         "Run WebAssembly guests against a state store",
	Long:          "ribosome loads a core WebAssembly module, runs one of its exports with the env host functions\nand applies every commit to a local state store before the guest continues.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := newLogger(logLevel)
		if err != nil {
			return err
		}
		logger = l
		engine.SetLogger(logger.Named("engine"))
		host.SetLogger(logger.Named("host"))
		runtime.SetLogger(logger.Named("runtime"))

		config = runtime.DefaultConfig()
		if configPath != "" {
			if config, err = runtime.LoadConfig(configPath); err != nil {
				return err
			}
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "TOML configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Set log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&storeKind, "store", string(state.BackendMemDB), "State store backend (memdb, goleveldb)")
	rootCmd.PersistentFlags().StringVar(&storeDir, "store-dir", "", "Directory for persistent store backends")
	rootCmd.AddCommand(callCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(interactiveCmd)
	rootCmd.AddCommand(versionCmd)
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.DisableStacktrace = lvl > zapcore.DebugLevel
	return cfg.Build()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
