package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/Andylive5518/cctv-allin/internal/discovery"
	"github.com/Andylive5518/cctv-allin/internal/store"
	"github.com/Andylive5518/cctv-allin/internal/targets"
	"github.com/Andylive5518/cctv-allin/pkg/models"
)

// runDiscover writes the blackbox and snmp file_sd target files.
func runDiscover(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("discover", stderr)
	configPath := fs.String("config", "", "path to configuration file")
	input := fs.String("input", "", "device inventory YAML (overrides inventory.path)")
	outputDir := fs.String("output-dir", "", "target file directory (overrides discovery.output_dir)")
	refresh := fs.Bool("refresh", false, "regenerate targets and overwrite cached entries")
	noCache := fs.Bool("no-cache", false, "do not use the Redis cache")
	dryRun := fs.Bool("dry-run", false, "print target counts without writing files")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	e := bootstrap(*configPath, "discover", stderr)
	if e == nil {
		return 1
	}
	defer func() { _ = e.logger.Sync() }()

	devices, ok := loadDevices(e, *input)
	if !ok {
		return 1
	}

	ctx := context.Background()
	var kv store.KV
	if e.cfg.Discovery.CacheEnabled && e.cfg.Redis.Enabled && !*noCache {
		rs, err := store.New(ctx, store.Options{
			Addr:     e.cfg.Redis.Addr,
			Password: e.cfg.Redis.Password,
			DB:       e.cfg.Discovery.CacheDB,
			Timeout:  e.cfg.Redis.Timeout,
		})
		if err != nil {
			e.logger.Warn("redis unavailable, generating without cache", zap.Error(err))
		} else {
			defer rs.Close()
			kv = rs
		}
	}

	cache := discovery.NewCache(kv, e.cfg.Discovery.CacheTTL, e.logger.Named("discovery"), discovery.WithRefresh(*refresh))
	tlog := e.logger.Named("targets")
	blackbox := cache.Targets(ctx, discovery.CategoryBlackbox, func() []targets.StaticConfig {
		return targets.BuildBlackboxTargets(devices, tlog)
	})
	snmp := cache.Targets(ctx, discovery.CategorySNMP, func() []targets.StaticConfig {
		return targets.BuildSNMPTargets(devices, tlog)
	})

	if *dryRun {
		fmt.Fprintf(stdout, "blackbox targets: %d\nsnmp targets: %d\n", len(blackbox), len(snmp))
		return 0
	}

	dir := e.cfg.Discovery.OutputDir
	if *outputDir != "" {
		dir = *outputDir
	}
	files := []struct {
		name string
		list []targets.StaticConfig
	}{
		{e.cfg.Discovery.BlackboxFile, blackbox},
		{e.cfg.Discovery.SNMPFile, snmp},
	}
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := targets.WriteSDFile(path, f.list); err != nil {
			e.logger.Error("failed to write target file", zap.String("path", path), zap.Error(err))
			return 1
		}
		e.logger.Info("target file written", zap.String("path", path), zap.Int("targets", len(f.list)))
	}

	logTypeCounts(e.logger, devices)
	return 0
}

func logTypeCounts(logger *zap.Logger, devices []models.Device) {
	counts := make(map[models.DeviceType]int)
	for i := range devices {
		counts[devices[i].Kind()]++
	}
	logger.Info("discovery complete",
		zap.Int("cameras", counts[models.DeviceTypeCamera]),
		zap.Int("nvrs", counts[models.DeviceTypeNVR]),
		zap.Int("switches", counts[models.DeviceTypeSwitch]),
		zap.Int("other", counts[models.DeviceTypeGeneric]),
	)
}
