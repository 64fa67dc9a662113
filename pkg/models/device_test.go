package models

import "testing"

func TestParseDeviceType(t *testing.T) {
	tests := []struct {
		in   string
		want DeviceType
	}{
		{"camera", DeviceTypeCamera},
		{"ip_camera", DeviceTypeCamera},
		{" IP_Camera ", DeviceTypeCamera},
		{"nvr", DeviceTypeNVR},
		{"NVR", DeviceTypeNVR},
		{"switch", DeviceTypeSwitch},
		{"router", DeviceTypeGeneric},
		{"", DeviceTypeGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseDeviceType(tt.in); got != tt.want {
				t.Errorf("ParseDeviceType(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDevice_DisplayName(t *testing.T) {
	d := Device{IP: "10.0.0.5"}
	if got := d.DisplayName(); got != "10.0.0.5" {
		t.Errorf("DisplayName() = %q, want IP fallback", got)
	}
	d.Name = "gate-cam"
	if got := d.DisplayName(); got != "gate-cam" {
		t.Errorf("DisplayName() = %q, want %q", got, "gate-cam")
	}
}

func TestDeviceKind_DefaultsToGeneric(t *testing.T) {
	var d Device
	if got := d.Kind(); got != DeviceTypeGeneric {
		t.Errorf("Kind() = %q, want %q", got, DeviceTypeGeneric)
	}
}

func TestDevice_HasModule(t *testing.T) {
	d := Device{Modules: []string{"icmp", "HTTP_2xx"}}
	if !d.HasModule(ModuleHTTP2xx) {
		t.Error("expected http_2xx module to match case-insensitively")
	}
	if d.HasModule(ModuleCameraHTTPCheck) {
		t.Error("unexpected camera_http_check module")
	}
}
