package targets

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Andylive5518/cctv-allin/pkg/models"
)

// KumaImportVersion is the Uptime Kuma backup format version we emit.
const KumaImportVersion = "1.21.0"

// KumaExport is the top-level Uptime Kuma import document.
type KumaExport struct {
	Version       string        `json:"version"`
	Monitors      []KumaMonitor `json:"monitors"`
	Notifications []any         `json:"notifications"`
	Tags          []string      `json:"tags"`
}

// KumaMonitor is a single monitor entry. Ping and port monitors carry a
// hostname; HTTP monitors carry a url. Port is only set on port monitors.
type KumaMonitor struct {
	Name          string   `json:"name"`
	Type          string   `json:"type"`
	Hostname      string   `json:"hostname,omitempty"`
	URL           string   `json:"url,omitempty"`
	Port          int      `json:"port,omitempty"`
	Interval      int      `json:"interval"`
	RetryInterval int      `json:"retryInterval"`
	MaxRetries    int      `json:"maxRetries"`
	Timeout       int      `json:"timeout"`
	Active        bool     `json:"active"`
	Tags          []string `json:"tags"`
	Description   string   `json:"description"`
}

// kumaSchedule is the interval/retry/timeout triple for one check role.
type kumaSchedule struct {
	interval   int
	maxRetries int
	timeout    int
}

var kumaSchedules = map[Role]kumaSchedule{
	RolePing:    {interval: 60, maxRetries: 3, timeout: 10},
	RoleWeb:     {interval: 120, maxRetries: 3, timeout: 15},
	RoleRTSP:    {interval: 180, maxRetries: 2, timeout: 10},
	RoleAPI:     {interval: 300, maxRetries: 2, timeout: 20},
	RoleNVRPort: {interval: 240, maxRetries: 2, timeout: 15},
	RoleSNMP:    {interval: 120, maxRetries: 3, timeout: 10},
}

// BuildKumaExport converts the inventory into an Uptime Kuma import document.
// Notification channels are left empty; they are configured in the UI.
func BuildKumaExport(devices []models.Device, logger *zap.Logger) KumaExport {
	checks := PlanAll(devices, logger)
	monitors := make([]KumaMonitor, 0, len(checks))
	for i := range checks {
		monitors = append(monitors, KumaMonitorFor(checks[i]))
	}
	return KumaExport{
		Version:       KumaImportVersion,
		Monitors:      monitors,
		Notifications: []any{},
		Tags:          []string{},
	}
}

// KumaMonitorFor renders one check as an Uptime Kuma monitor.
func KumaMonitorFor(c Check) KumaMonitor {
	sched := kumaSchedules[c.Role]
	name := c.Device.DisplayName()
	kind := string(c.Device.Kind())

	m := KumaMonitor{
		Interval:      sched.interval,
		RetryInterval: sched.interval,
		MaxRetries:    sched.maxRetries,
		Timeout:       sched.timeout,
		Active:        true,
	}

	switch c.Role {
	case RolePing:
		m.Name = name + " - Ping"
		m.Type = "ping"
		m.Hostname = c.Host
		m.Tags = []string{kind, "ping"}
		m.Description = fmt.Sprintf("%s network reachability", kind)
	case RoleWeb:
		m.Name = name + " - Web"
		m.Type = "http"
		m.URL = c.URL
		m.Tags = []string{kind, "web"}
		m.Description = fmt.Sprintf("%s web management interface", kind)
	case RoleRTSP:
		m.Name = name + " - RTSP"
		m.Type = "port"
		m.Hostname = c.Host
		m.Port = c.Port
		m.Tags = []string{"camera", "rtsp"}
		m.Description = "camera RTSP stream port"
	case RoleAPI:
		m.Name = name + " - Camera API"
		m.Type = "http"
		m.URL = c.URL
		m.Tags = []string{"camera", "api"}
		m.Description = "camera API endpoint"
	case RoleNVRPort:
		m.Name = fmt.Sprintf("%s - Port %d", name, c.Port)
		m.Type = "port"
		m.Hostname = c.Host
		m.Port = c.Port
		m.Tags = []string{"nvr", fmt.Sprintf("port-%d", c.Port)}
		m.Description = fmt.Sprintf("NVR port %d", c.Port)
	case RoleSNMP:
		m.Name = name + " - SNMP"
		m.Type = "port"
		m.Hostname = c.Host
		m.Port = c.Port
		m.Tags = []string{kind, "snmp"}
		m.Description = fmt.Sprintf("%s SNMP service", kind)
	}
	return m
}

// Validate checks the document against the fields Uptime Kuma requires on
// import. It returns every problem found, not just the first.
func (e *KumaExport) Validate() error {
	var errs []error
	if e.Version == "" {
		errs = append(errs, errors.New("version is empty"))
	}
	if e.Monitors == nil {
		errs = append(errs, errors.New("monitors is null"))
	}
	if e.Notifications == nil {
		errs = append(errs, errors.New("notifications is null"))
	}
	if e.Tags == nil {
		errs = append(errs, errors.New("tags is null"))
	}
	for i := range e.Monitors {
		if err := e.Monitors[i].validate(); err != nil {
			errs = append(errs, fmt.Errorf("monitor %d (%s): %w", i, e.Monitors[i].Name, err))
		}
	}
	return errors.Join(errs...)
}

func (m *KumaMonitor) validate() error {
	var errs []error
	if m.Name == "" {
		errs = append(errs, errors.New("name is empty"))
	}
	switch m.Type {
	case "ping":
		if m.Hostname == "" {
			errs = append(errs, errors.New("ping monitor needs hostname"))
		}
	case "port":
		if m.Hostname == "" || m.Port <= 0 || m.Port > 65535 {
			errs = append(errs, errors.New("port monitor needs hostname and a valid port"))
		}
	case "http":
		if m.URL == "" {
			errs = append(errs, errors.New("http monitor needs url"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown type %q", m.Type))
	}
	if m.Interval <= 0 || m.RetryInterval <= 0 || m.Timeout <= 0 {
		errs = append(errs, errors.New("interval, retryInterval and timeout must be positive"))
	}
	if m.Tags == nil {
		errs = append(errs, errors.New("tags is null"))
	}
	return errors.Join(errs...)
}
