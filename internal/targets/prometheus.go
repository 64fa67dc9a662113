package targets

import (
	"go.uber.org/zap"

	"github.com/Andylive5518/cctv-allin/pkg/models"
)

// StaticConfig is one entry of a Prometheus file_sd_configs target file.
type StaticConfig struct {
	Targets []string          `yaml:"targets" json:"targets"`
	Labels  map[string]string `yaml:"labels" json:"labels"`
}

// Label names attached to generated targets.
const (
	LabelDeviceName    = "device_name"
	LabelDeviceType    = "device_type"
	LabelCheckModule   = "check_module"
	LabelSNMPModule    = "snmp_module"
	LabelSNMPCommunity = "snmp_community"
)

// BuildBlackboxTargets renders every non-SNMP check as a blackbox exporter
// target, followed per device by its snapshot check when one is requested.
// The check_module label selects the blackbox module to probe with.
func BuildBlackboxTargets(devices []models.Device, logger *zap.Logger) []StaticConfig {
	out := make([]StaticConfig, 0, len(devices))
	for i := range devices {
		checks := planOrSkip(devices, i, logger)
		for j := range checks {
			if checks[j].Kind == KindSNMP {
				continue
			}
			out = append(out, blackboxTarget(checks[j]))
		}
		if c, ok := SnapshotCheck(devices[i], checks); ok {
			out = append(out, blackboxTarget(c))
		}
	}
	return out
}

func blackboxTarget(c Check) StaticConfig {
	return StaticConfig{
		Targets: []string{c.Address()},
		Labels: map[string]string{
			LabelDeviceName:  c.Device.DisplayName(),
			LabelDeviceType:  string(c.Device.Kind()),
			LabelCheckModule: c.Module,
		},
	}
}

// BuildSNMPTargets renders SNMP checks as snmp exporter targets.
func BuildSNMPTargets(devices []models.Device, logger *zap.Logger) []StaticConfig {
	checks := PlanAll(devices, logger)
	out := make([]StaticConfig, 0)
	for i := range checks {
		c := checks[i]
		if c.Kind != KindSNMP {
			continue
		}
		community := c.Device.SNMPCommunity
		if community == "" {
			community = models.DefaultSNMPCommunity
		}
		out = append(out, StaticConfig{
			Targets: []string{c.Address()},
			Labels: map[string]string{
				LabelDeviceName:    c.Device.DisplayName(),
				LabelSNMPModule:    c.Module,
				LabelSNMPCommunity: community,
			},
		})
	}
	return out
}
