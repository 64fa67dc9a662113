// Package testutil provides fixtures shared by package tests.
package testutil

import (
	"github.com/Andylive5518/cctv-allin/pkg/models"
)

// NewDevice returns a generic ICMP-checked Device with sensible defaults.
// Override individual fields with options.
func NewDevice(opts ...func(*models.Device)) models.Device {
	d := models.Device{
		Name:      "test-device",
		IP:        "192.168.1.100",
		Type:      models.DeviceTypeGeneric,
		CheckType: models.CheckICMP,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// WithName sets the device display name.
func WithName(name string) func(*models.Device) {
	return func(d *models.Device) { d.Name = name }
}

// WithIP sets the device IP address.
func WithIP(ip string) func(*models.Device) {
	return func(d *models.Device) { d.IP = ip }
}

// WithType sets the device type.
func WithType(t models.DeviceType) func(*models.Device) {
	return func(d *models.Device) { d.Type = t }
}

// WithCheckType sets the primary check type.
func WithCheckType(ct models.CheckType) func(*models.Device) {
	return func(d *models.Device) { d.CheckType = ct }
}

// WithModules sets the enabled module list.
func WithModules(mods ...string) func(*models.Device) {
	return func(d *models.Device) { d.Modules = mods }
}

// WithHTTP sets the HTTP web-check port and path.
func WithHTTP(port int, path string) func(*models.Device) {
	return func(d *models.Device) {
		d.HTTPPort = port
		d.HTTPPath = path
	}
}

// WithCameraHTTPPort sets the camera API port.
func WithCameraHTTPPort(port int) func(*models.Device) {
	return func(d *models.Device) { d.CameraHTTPPort = port }
}

// WithSNMP enables SNMP with the given community and module.
func WithSNMP(community, module string) func(*models.Device) {
	return func(d *models.Device) {
		d.EnableSNMP = true
		d.SNMPCommunity = community
		d.SNMPModule = module
	}
}
