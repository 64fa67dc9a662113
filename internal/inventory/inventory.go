// Package inventory loads the device inventory YAML file.
package inventory

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Andylive5518/cctv-allin/pkg/models"
)

// ErrNotFound is returned when the inventory file does not exist.
var ErrNotFound = errors.New("inventory file not found")

// Load reads and parses the inventory file at path.
func Load(path string, logger *zap.Logger) ([]models.Device, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("read inventory %s: %w", path, err)
	}

	devices, err := Parse(data, logger)
	if err != nil {
		return nil, fmt.Errorf("parse inventory %s: %w", path, err)
	}
	return devices, nil
}

// Parse decodes a YAML list of device records. Records repeating an IP
// already seen are dropped with a warning; the first occurrence wins.
// Records without an IP are kept so that target generation can report them.
func Parse(data []byte, logger *zap.Logger) ([]models.Device, error) {
	var raw []models.Device
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode device list: %w", err)
	}

	seen := make(map[string]bool, len(raw))
	devices := make([]models.Device, 0, len(raw))
	for i := range raw {
		d := raw[i]
		d.IP = strings.TrimSpace(d.IP)
		d.Name = strings.TrimSpace(d.Name)
		if d.Type == "" {
			d.Type = models.DeviceTypeGeneric
		}
		if d.CheckType == "" {
			d.CheckType = models.CheckICMP
		}
		d.CheckType = models.CheckType(strings.ToLower(string(d.CheckType)))

		if d.IP != "" {
			if seen[d.IP] {
				logger.Warn("duplicate device IP in inventory, keeping first record",
					zap.String("ip", d.IP),
					zap.String("name", d.Name),
					zap.Int("index", i),
				)
				continue
			}
			seen[d.IP] = true
		}
		devices = append(devices, d)
	}
	return devices, nil
}
