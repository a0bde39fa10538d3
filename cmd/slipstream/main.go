package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bigbag/slipstream/internal/config"
	"github.com/bigbag/slipstream/internal/logger"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	configFlag   string
	logLevelFlag string
	logFileFlag  string

	cfg config.Config
	log = logger.Nop()
)

func main() {
	err := newRootCmd().Execute()
	_ = log.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "slipstream",
		Short: "Encode and decode SLIP framed byte streams",
		Long: `slipstream frames binary messages with SLIP (RFC 1055) and decodes
SLIP byte streams back into messages.

It works on files and standard input/output, and can talk to devices
over a serial port.`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "TOML config file")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFileFlag, "log-file", "", "Write logs to a rotated file instead of stderr")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version info",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "slipstream %s\n", version)
			fmt.Fprintf(out, "  commit: %s\n", commit)
			fmt.Fprintf(out, "  built:  %s\n", date)
		},
	}

	rootCmd.AddCommand(
		newEncodeCmd(),
		newDecodeCmd(),
		newSendCmd(),
		newMonitorCmd(),
		newListCmd(),
		versionCmd,
	)
	return rootCmd
}

// setup loads the configuration and builds the logger before any command runs.
func setup(cmd *cobra.Command, args []string) error {
	cfg = config.Default()
	if configFlag != "" {
		loaded, err := config.Load(configFlag)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	if logLevelFlag != "" {
		cfg.Log.Level = logLevelFlag
	}
	if logFileFlag != "" {
		cfg.Log.File = logFileFlag
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	l, err := logger.New(logger.Options{
		Level:      cfg.Log.Level,
		Filename:   cfg.Log.File,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
	})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	log = l
	return nil
}

// intOverride returns the flag value if it was set on the command line,
// otherwise the configured value.
func intOverride(cmd *cobra.Command, name string, configured int) int {
	if !cmd.Flags().Changed(name) {
		return configured
	}
	v, err := cmd.Flags().GetInt(name)
	if err != nil {
		return configured
	}
	return v
}
