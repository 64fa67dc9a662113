// Package targets turns inventory devices into monitoring targets for
// Uptime Kuma and Prometheus file-based service discovery.
//
// Plan holds the fan-out policy shared by both consumers; the renderers in
// kuma.go and prometheus.go only translate Checks into their own formats.
package targets

import (
	"errors"
	"fmt"
	"net"
	"strconv"

	"go.uber.org/zap"

	"github.com/Andylive5518/cctv-allin/pkg/models"
)

// ErrMissingIP is returned by Plan for devices without an IP address.
var ErrMissingIP = errors.New("device has no ip")

// Kind is the transport a check uses.
type Kind string

const (
	KindPing Kind = "ping"
	KindHTTP Kind = "http"
	KindPort Kind = "port"
	KindSNMP Kind = "snmp"
)

// Role says why a check exists for a device.
type Role string

const (
	RolePing    Role = "ping"
	RoleWeb     Role = "web"
	RoleRTSP    Role = "rtsp"
	RoleAPI     Role = "api"
	RoleNVRPort Role = "nvr_port"
	RoleSNMP    Role = "snmp"
	// RoleSnapshot is the module-driven snapshot check; blackbox only.
	RoleSnapshot Role = "snapshot"
)

// Blackbox exporter module names referenced by generated targets.
const (
	ModuleICMPPing        = "icmp_ping"
	ModuleHTTP2xx         = "http_2xx"
	ModuleTCPConnect      = "tcp_connect"
	ModuleCameraHTTPCheck = "camera_http_check"
)

// RTSPPort is the fixed port checked on every camera.
const RTSPPort = 554

// NVRPorts are the well-known NVR service ports (web, SDK, alt web, Dahua).
var NVRPorts = []int{80, 8000, 8080, 37777}

// Check is one reachability check derived from a device.
type Check struct {
	Device models.Device
	Kind   Kind
	Role   Role
	Host   string
	Port   int
	URL    string
	Module string
}

// Address returns host:port for port and SNMP checks, the URL for HTTP
// checks and the bare host for ping checks.
func (c Check) Address() string {
	switch c.Kind {
	case KindHTTP:
		return c.URL
	case KindPort, KindSNMP:
		return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	default:
		return c.Host
	}
}

// Plan derives the checks for a single device. It is pure: the same device
// always yields the same checks in the same order.
func Plan(d models.Device) ([]Check, error) {
	if d.IP == "" {
		return nil, ErrMissingIP
	}

	checks := []Check{{
		Device: d,
		Kind:   KindPing,
		Role:   RolePing,
		Host:   d.IP,
		Module: ModuleICMPPing,
	}}

	webPort := d.HTTPPort
	if webPort == 0 {
		webPort = models.DefaultHTTPPort
	}

	if scheme := webScheme(d); scheme != "" {
		port, path := webEndpoint(d, scheme)
		webPort = port
		checks = append(checks, Check{
			Device: d,
			Kind:   KindHTTP,
			Role:   RoleWeb,
			Host:   d.IP,
			Port:   port,
			URL:    buildURL(scheme, d.IP, port, path),
			Module: ModuleHTTP2xx,
		})
	}

	switch d.Kind() {
	case models.DeviceTypeCamera:
		checks = append(checks, Check{
			Device: d,
			Kind:   KindPort,
			Role:   RoleRTSP,
			Host:   d.IP,
			Port:   RTSPPort,
			Module: ModuleTCPConnect,
		})

		camPort := d.CameraHTTPPort
		if camPort == 0 {
			camPort = models.DefaultCameraHTTPPort
		}
		if camPort != webPort {
			path := d.CameraHTTPPath
			if path == "" {
				path = models.DefaultPath
			}
			checks = append(checks, Check{
				Device: d,
				Kind:   KindHTTP,
				Role:   RoleAPI,
				Host:   d.IP,
				Port:   camPort,
				URL:    buildURL("http", d.IP, camPort, path),
				Module: ModuleCameraHTTPCheck,
			})
		}

	case models.DeviceTypeNVR:
		for _, port := range NVRPorts {
			checks = append(checks, Check{
				Device: d,
				Kind:   KindPort,
				Role:   RoleNVRPort,
				Host:   d.IP,
				Port:   port,
				Module: ModuleTCPConnect,
			})
		}
	}

	if d.Kind() == models.DeviceTypeSwitch || d.EnableSNMP {
		port := d.SNMPPort
		if port == 0 {
			port = models.DefaultSNMPPort
		}
		checks = append(checks, Check{
			Device: d,
			Kind:   KindSNMP,
			Role:   RoleSNMP,
			Host:   d.IP,
			Port:   port,
			Module: snmpModule(d),
		})
	}

	return checks, nil
}

// PlanAll plans every device in order. Devices without an IP are skipped
// with a warning; the rest of the batch is still planned.
func PlanAll(devices []models.Device, logger *zap.Logger) []Check {
	var all []Check
	for i := range devices {
		all = append(all, planOrSkip(devices, i, logger)...)
	}
	return all
}

func planOrSkip(devices []models.Device, i int, logger *zap.Logger) []Check {
	checks, err := Plan(devices[i])
	if err != nil {
		logger.Warn("skipping device",
			zap.String("name", devices[i].Name),
			zap.Int("index", i),
			zap.Error(err),
		)
		return nil
	}
	return checks
}

// SnapshotCheck returns the camera snapshot HTTP check requested by the
// camera_http_check module. Any device type may ask for it. ok is false
// when the module is absent, the device has no IP, or planned already
// contains an API check for the device.
func SnapshotCheck(d models.Device, planned []Check) (c Check, ok bool) {
	if d.IP == "" || !d.HasModule(models.ModuleCameraHTTPCheck) {
		return Check{}, false
	}
	for i := range planned {
		if planned[i].Role == RoleAPI {
			return Check{}, false
		}
	}
	port := d.CameraHTTPPort
	if port == 0 {
		port = d.HTTPPort
	}
	if port == 0 {
		port = models.DefaultHTTPPort
	}
	path := d.CameraHTTPPath
	if path == "" {
		path = models.DefaultSnapshotPath
	}
	return Check{
		Device: d,
		Kind:   KindHTTP,
		Role:   RoleSnapshot,
		Host:   d.IP,
		Port:   port,
		URL:    buildURL("http", d.IP, port, path),
		Module: ModuleCameraHTTPCheck,
	}, true
}

// webScheme returns "http", "https" or "" when no web check is wanted.
// An explicit check_type wins over the module list.
func webScheme(d models.Device) string {
	switch d.CheckType {
	case models.CheckHTTPS:
		return "https"
	case models.CheckHTTP:
		return "http"
	}
	if d.HasModule(models.ModuleHTTPS) {
		return "https"
	}
	if d.HasModule(models.ModuleHTTP) || d.HasModule(models.ModuleHTTP2xx) {
		return "http"
	}
	return ""
}

func webEndpoint(d models.Device, scheme string) (port int, path string) {
	if scheme == "https" {
		port, path = d.HTTPSPort, d.HTTPSPath
		if port == 0 {
			port = d.HTTPPort
		}
		if port == 0 {
			port = models.DefaultHTTPSPort
		}
	} else {
		port, path = d.HTTPPort, d.HTTPPath
		if port == 0 {
			port = models.DefaultHTTPPort
		}
	}
	if path == "" {
		path = d.HTTPPath
	}
	if path == "" {
		path = models.DefaultPath
	}
	return port, path
}

func buildURL(scheme, host string, port int, path string) string {
	if path == "" || path[0] != '/' {
		path = "/" + path
	}
	return fmt.Sprintf("%s://%s%s", scheme, net.JoinHostPort(host, strconv.Itoa(port)), path)
}

func snmpModule(d models.Device) string {
	if d.SNMPModule != "" {
		return d.SNMPModule
	}
	return models.DefaultSNMPModule
}
