package main

import (
	"go.uber.org/zap"

	"github.com/Andylive5518/cctv-allin/internal/inventory"
	"github.com/Andylive5518/cctv-allin/pkg/models"
)

// loadDevices reads the inventory, preferring the --input flag over the
// configured path. It returns false when there is nothing to work on.
func loadDevices(e *env, input string) ([]models.Device, bool) {
	path := e.cfg.Inventory.Path
	if input != "" {
		path = input
	}
	devices, err := inventory.Load(path, e.logger.Named("inventory"))
	if err != nil {
		e.logger.Error("failed to load device inventory", zap.String("path", path), zap.Error(err))
		return nil, false
	}
	if len(devices) == 0 {
		e.logger.Error("device inventory is empty", zap.String("path", path))
		return nil, false
	}
	e.logger.Info("device inventory loaded", zap.String("path", path), zap.Int("devices", len(devices)))
	return devices, true
}
