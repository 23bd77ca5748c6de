package main

import (
	"fmt"
	"os"
	"runtime"

	"leptosls/internal/config"
	"leptosls/internal/server"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

// Version will be set during the build process using ldflags
var Version = "(dev) v0.0.0"

var (
	configPath string
	logFile    string
	verbosity  int
	tcpAddress string
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:           "leptosls",
	Short:         "Language server for Leptos view! macros",
	Long:          "leptosls keeps open Rust buffers in sync with the editor and formats the view! macros in them.",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of the program",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "leptosls version %s\n", Version)
	},
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&configPath, "config", "", "path to a JSON configuration file")
	flags.StringVar(&logFile, "logfile", "", "write logs to this file instead of stderr")
	flags.CountVarP(&verbosity, "verbose", "v", "increase log verbosity (repeatable)")
	flags.StringVar(&tcpAddress, "tcp", "", "listen on this address instead of stdio")
	flags.BoolVar(&debug, "debug", false, "log protocol messages")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "leptosls: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	// Give it some cores
	runtime.GOMAXPROCS(4)

	var path *string
	if logFile != "" {
		path = &logFile
	}
	// Stdout carries the protocol, so logs go to stderr or the log file.
	commonlog.Configure(1+verbosity, path)
	log := commonlog.GetLogger("leptosls")

	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.LoadFile(configPath); err != nil {
			return err
		}
	}

	ls, err := server.New(cfg, server.WithVersion(Version))
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	defer ls.Close()

	log.Infof("starting leptosls %s", Version)
	if tcpAddress != "" {
		return ls.RunTCP(tcpAddress, debug)
	}
	return ls.RunStdio(debug)
}
