package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"github.com/Andylive5518/cctv-allin/internal/probe"
	"github.com/Andylive5518/cctv-allin/internal/targets"
	"github.com/Andylive5518/cctv-allin/pkg/models"
)

// runProbe checks every planned target once and prints a report.
func runProbe(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("probe", stderr)
	configPath := fs.String("config", "", "path to configuration file")
	input := fs.String("input", "", "device inventory YAML (overrides inventory.path)")
	device := fs.String("device", "", "only probe devices whose name or IP matches")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	e := bootstrap(*configPath, "probe", stderr)
	if e == nil {
		return 1
	}
	defer func() { _ = e.logger.Sync() }()

	devices, ok := loadDevices(e, *input)
	if !ok {
		return 1
	}
	if *device != "" {
		devices = filterDevices(devices, *device)
		if len(devices) == 0 {
			e.logger.Error("no device matches filter", zap.String("device", *device))
			return 1
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checks := targets.PlanAll(devices, e.logger.Named("targets"))
	runner := probe.NewRunner(probe.Options{
		Timeout:   e.cfg.Probe.Timeout,
		PingCount: e.cfg.Probe.PingCount,
	}, e.logger.Named("probe"))
	results := runner.Run(ctx, checks)

	writeReport(stdout, results)

	failed := probe.Failed(results)
	e.logger.Info("probe complete", zap.Int("checks", len(results)), zap.Int("failed", failed))
	if failed > 0 {
		return 1
	}
	return 0
}

func filterDevices(devices []models.Device, match string) []models.Device {
	var out []models.Device
	for i := range devices {
		if strings.EqualFold(devices[i].Name, match) || devices[i].IP == match {
			out = append(out, devices[i])
		}
	}
	return out
}

func writeReport(w io.Writer, results []probe.Result) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DEVICE\tCHECK\tTARGET\tSTATUS\tLATENCY\tERROR")
	for i := range results {
		r := &results[i]
		state := "UP"
		if !r.Success {
			state = "DOWN"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Check.Device.DisplayName(),
			r.Check.Role,
			r.Check.Address(),
			state,
			r.Latency.Round(time.Millisecond),
			r.Error,
		)
	}
	_ = tw.Flush()
}
