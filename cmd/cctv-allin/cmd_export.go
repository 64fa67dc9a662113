package main

import (
	"io"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/Andylive5518/cctv-allin/internal/targets"
)

// runExportKuma converts the inventory into an Uptime Kuma import file.
func runExportKuma(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("export-kuma", stderr)
	configPath := fs.String("config", "", "path to configuration file")
	input := fs.String("input", "", "device inventory YAML (overrides inventory.path)")
	output := fs.String("output", "", "output file (default <export.output_dir>/<export.file_name>)")
	dryRun := fs.Bool("dry-run", false, "print the document to stdout instead of writing it")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	e := bootstrap(*configPath, "export-kuma", stderr)
	if e == nil {
		return 1
	}
	defer func() { _ = e.logger.Sync() }()

	devices, ok := loadDevices(e, *input)
	if !ok {
		return 1
	}

	export := targets.BuildKumaExport(devices, e.logger.Named("targets"))
	if err := export.Validate(); err != nil {
		e.logger.Error("generated Uptime Kuma document is invalid", zap.Error(err))
		return 1
	}

	if *dryRun {
		data, err := targets.MarshalKumaExport(export)
		if err != nil {
			e.logger.Error("failed to encode Uptime Kuma document", zap.Error(err))
			return 1
		}
		_, _ = stdout.Write(data)
		return 0
	}

	path := *output
	if path == "" {
		path = filepath.Join(e.cfg.Export.OutputDir, e.cfg.Export.FileName)
	}
	if err := targets.WriteKumaExport(path, export); err != nil {
		e.logger.Error("failed to write Uptime Kuma import file", zap.String("path", path), zap.Error(err))
		return 1
	}

	e.logger.Info("Uptime Kuma import file written",
		zap.String("path", path),
		zap.Int("devices", len(devices)),
		zap.Int("monitors", len(export.Monitors)),
	)
	return 0
}
