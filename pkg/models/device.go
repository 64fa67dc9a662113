package models

import "strings"

// DeviceType categorizes an inventory device.
type DeviceType string

const (
	DeviceTypeCamera  DeviceType = "camera"
	DeviceTypeNVR     DeviceType = "nvr"
	DeviceTypeSwitch  DeviceType = "switch"
	DeviceTypeGeneric DeviceType = "generic"
)

// ParseDeviceType normalizes an inventory "type" value. Unknown values map
// to DeviceTypeGeneric.
func ParseDeviceType(s string) DeviceType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "camera", "ip_camera", "ipc":
		return DeviceTypeCamera
	case "nvr":
		return DeviceTypeNVR
	case "switch":
		return DeviceTypeSwitch
	default:
		return DeviceTypeGeneric
	}
}

// UnmarshalText lets YAML and JSON decoders normalize the type in place.
func (t *DeviceType) UnmarshalText(b []byte) error {
	*t = ParseDeviceType(string(b))
	return nil
}

// CheckType is the primary reachability check requested for a device.
type CheckType string

const (
	CheckICMP  CheckType = "icmp"
	CheckHTTP  CheckType = "http"
	CheckHTTPS CheckType = "https"
)

// Well-known check module names used in the inventory "modules" list.
const (
	ModuleICMP            = "icmp"
	ModuleHTTP            = "http"
	ModuleHTTP2xx         = "http_2xx"
	ModuleHTTPS           = "https"
	ModuleCameraHTTPCheck = "camera_http_check"
)

// Default ports and paths applied when the inventory leaves them unset.
const (
	DefaultHTTPPort       = 80
	DefaultHTTPSPort      = 443
	DefaultCameraHTTPPort = 80
	DefaultSNMPPort       = 161
	DefaultPath           = "/"
	DefaultSNMPCommunity  = "public"
	DefaultSNMPModule     = "default"
	DefaultSnapshotPath   = "/stw-cgi/video.cgi?msubmenu=snapshot&action=view&chn=0"
)

// Device is a single physical device from the inventory file. The IP is
// the identity; records are read once per run and never written back.
type Device struct {
	Name      string     `yaml:"name" json:"name"`
	IP        string     `yaml:"ip" json:"ip"`
	Type      DeviceType `yaml:"type" json:"type"`
	CheckType CheckType  `yaml:"check_type" json:"check_type"`
	Modules   []string   `yaml:"modules" json:"modules,omitempty"`

	HTTPPort  int    `yaml:"http_port" json:"http_port,omitempty"`
	HTTPPath  string `yaml:"http_path" json:"http_path,omitempty"`
	HTTPSPort int    `yaml:"https_port" json:"https_port,omitempty"`
	HTTPSPath string `yaml:"https_path" json:"https_path,omitempty"`

	CameraHTTPPort int    `yaml:"camera_http_port" json:"camera_http_port,omitempty"`
	CameraHTTPPath string `yaml:"camera_http_path" json:"camera_http_path,omitempty"`

	EnableSNMP    bool   `yaml:"enable_snmp" json:"enable_snmp,omitempty"`
	SNMPCommunity string `yaml:"snmp_community" json:"snmp_community,omitempty"`
	SNMPModule    string `yaml:"snmp_module" json:"snmp_module,omitempty"`
	SNMPPort      int    `yaml:"snmp_port" json:"snmp_port,omitempty"`
}

// DisplayName returns the configured name, falling back to the IP.
func (d *Device) DisplayName() string {
	if d.Name != "" {
		return d.Name
	}
	return d.IP
}

// Kind returns the normalized type; empty means generic.
func (d *Device) Kind() DeviceType {
	if d.Type == "" {
		return DeviceTypeGeneric
	}
	return d.Type
}

// HasModule reports whether name appears in the device's module list.
func (d *Device) HasModule(name string) bool {
	for _, m := range d.Modules {
		if strings.EqualFold(m, name) {
			return true
		}
	}
	return false
}
