// Command cctv-allin generates monitoring configuration from the CCTV device
// inventory and relays Alertmanager notifications to chat robots.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Andylive5518/cctv-allin/internal/config"
	"github.com/Andylive5518/cctv-allin/internal/version"
)

const usageText = `Usage: cctv-allin <command> [flags]

Commands:
  export-kuma   write an Uptime Kuma import file from the device inventory
  discover      write Prometheus file_sd target files (blackbox and snmp)
  serve         run the Alertmanager webhook receiver
  probe         check every planned target once from this host
  version       print build information

Run "cctv-allin <command> -h" for command flags.
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run dispatches to a subcommand and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usageText)
		return 2
	}
	switch args[0] {
	case "export-kuma":
		return runExportKuma(args[1:], stdout, stderr)
	case "discover":
		return runDiscover(args[1:], stdout, stderr)
	case "serve":
		return runServe(args[1:], stderr)
	case "probe":
		return runProbe(args[1:], stdout, stderr)
	case "version", "-version", "--version":
		fmt.Fprintln(stdout, version.Info())
		return 0
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usageText)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usageText)
		return 2
	}
}

// env bundles what every subcommand needs after startup.
type env struct {
	v      *viper.Viper
	cfg    *config.Config
	logger *zap.Logger
}

// bootstrap loads configuration and builds the logger. Errors are written
// to stderr; callers exit 1 when it returns nil.
func bootstrap(configPath, command string, stderr io.Writer) *env {
	v, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "failed to load configuration: %v\n", err)
		return nil
	}
	cfg, err := config.Decode(v)
	if err != nil {
		fmt.Fprintf(stderr, "invalid configuration: %v\n", err)
		return nil
	}
	logger, err := config.NewLogger(v, "cctv-allin-"+command)
	if err != nil {
		fmt.Fprintf(stderr, "failed to initialize logger: %v\n", err)
		return nil
	}
	if f := v.ConfigFileUsed(); f != "" {
		logger.Debug("configuration loaded", zap.String("source", f))
	}
	return &env{v: v, cfg: cfg, logger: logger}
}

// newFlagSet returns a flag set that reports errors instead of exiting.
func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}
