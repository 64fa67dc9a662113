package targets

import (
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/Andylive5518/cctv-allin/internal/testutil"
	"github.com/Andylive5518/cctv-allin/pkg/models"
)

func roles(checks []Check) []Role {
	out := make([]Role, len(checks))
	for i := range checks {
		out[i] = checks[i].Role
	}
	return out
}

func equalRoles(a, b []Role) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestPlan(t *testing.T) {
	tests := []struct {
		name   string
		device models.Device
		want   []Role
	}{
		{
			name:   "generic icmp",
			device: testutil.NewDevice(),
			want:   []Role{RolePing},
		},
		{
			name:   "generic http check type",
			device: testutil.NewDevice(testutil.WithCheckType(models.CheckHTTP)),
			want:   []Role{RolePing, RoleWeb},
		},
		{
			name:   "generic http_2xx module",
			device: testutil.NewDevice(testutil.WithModules("icmp", "http_2xx")),
			want:   []Role{RolePing, RoleWeb},
		},
		{
			name:   "camera equal ports",
			device: testutil.NewDevice(testutil.WithType(models.DeviceTypeCamera)),
			want:   []Role{RolePing, RoleRTSP},
		},
		{
			name: "camera equal ports with web check",
			device: testutil.NewDevice(
				testutil.WithType(models.DeviceTypeCamera),
				testutil.WithCheckType(models.CheckHTTP),
				testutil.WithCameraHTTPPort(80),
			),
			want: []Role{RolePing, RoleWeb, RoleRTSP},
		},
		{
			name: "camera differing api port",
			device: testutil.NewDevice(
				testutil.WithType(models.DeviceTypeCamera),
				testutil.WithCameraHTTPPort(8080),
			),
			want: []Role{RolePing, RoleRTSP, RoleAPI},
		},
		{
			name: "camera equal ports with snapshot module",
			device: testutil.NewDevice(
				testutil.WithType(models.DeviceTypeCamera),
				testutil.WithModules("camera_http_check"),
			),
			want: []Role{RolePing, RoleRTSP},
		},
		{
			name:   "nvr",
			device: testutil.NewDevice(testutil.WithType(models.DeviceTypeNVR)),
			want:   []Role{RolePing, RoleNVRPort, RoleNVRPort, RoleNVRPort, RoleNVRPort},
		},
		{
			name:   "switch",
			device: testutil.NewDevice(testutil.WithType(models.DeviceTypeSwitch)),
			want:   []Role{RolePing, RoleSNMP},
		},
		{
			name:   "generic with snmp enabled",
			device: testutil.NewDevice(testutil.WithSNMP("public", "if_mib")),
			want:   []Role{RolePing, RoleSNMP},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checks, err := Plan(tt.device)
			if err != nil {
				t.Fatalf("Plan: %v", err)
			}
			if got := roles(checks); !equalRoles(got, tt.want) {
				t.Errorf("roles = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPlan_MissingIP(t *testing.T) {
	for _, typ := range []models.DeviceType{
		models.DeviceTypeGeneric, models.DeviceTypeCamera, models.DeviceTypeNVR, models.DeviceTypeSwitch,
	} {
		d := testutil.NewDevice(testutil.WithIP(""), testutil.WithType(typ), testutil.WithCheckType(models.CheckHTTPS))
		checks, err := Plan(d)
		if !errors.Is(err, ErrMissingIP) {
			t.Errorf("%s: err = %v, want ErrMissingIP", typ, err)
		}
		if len(checks) != 0 {
			t.Errorf("%s: got %d checks, want 0", typ, len(checks))
		}
	}
}

func TestPlan_NVRPorts(t *testing.T) {
	checks, err := Plan(testutil.NewDevice(testutil.WithType(models.DeviceTypeNVR), testutil.WithIP("10.0.0.9")))
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	var ports []int
	pings := 0
	for _, c := range checks {
		switch c.Kind {
		case KindPort:
			ports = append(ports, c.Port)
		case KindPing:
			pings++
		}
	}
	if pings != 1 {
		t.Errorf("ping checks = %d, want 1", pings)
	}
	want := []int{80, 8000, 8080, 37777}
	if len(ports) != len(want) {
		t.Fatalf("port checks = %v, want %v", ports, want)
	}
	for i := range want {
		if ports[i] != want[i] {
			t.Errorf("port[%d] = %d, want %d", i, ports[i], want[i])
		}
	}
}

func TestPlan_WebEndpoint(t *testing.T) {
	tests := []struct {
		name    string
		device  models.Device
		wantURL string
	}{
		{
			name:    "http defaults",
			device:  testutil.NewDevice(testutil.WithCheckType(models.CheckHTTP)),
			wantURL: "http://192.168.1.100:80/",
		},
		{
			name:    "http custom",
			device:  testutil.NewDevice(testutil.WithCheckType(models.CheckHTTP), testutil.WithHTTP(8081, "/login")),
			wantURL: "http://192.168.1.100:8081/login",
		},
		{
			name:    "https defaults",
			device:  testutil.NewDevice(testutil.WithCheckType(models.CheckHTTPS)),
			wantURL: "https://192.168.1.100:443/",
		},
		{
			name:    "https via module with icmp check type",
			device:  testutil.NewDevice(testutil.WithModules("https")),
			wantURL: "https://192.168.1.100:443/",
		},
		{
			name: "https explicit port",
			device: func() models.Device {
				d := testutil.NewDevice(testutil.WithCheckType(models.CheckHTTPS))
				d.HTTPSPort = 8443
				d.HTTPSPath = "doc/index.html"
				return d
			}(),
			wantURL: "https://192.168.1.100:8443/doc/index.html",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checks, err := Plan(tt.device)
			if err != nil {
				t.Fatalf("Plan: %v", err)
			}
			if len(checks) != 2 || checks[1].Role != RoleWeb {
				t.Fatalf("roles = %v, want [ping web]", roles(checks))
			}
			if checks[1].URL != tt.wantURL {
				t.Errorf("URL = %q, want %q", checks[1].URL, tt.wantURL)
			}
		})
	}
}

func TestPlan_CameraHTTPSWebPortDiffersFromAPI(t *testing.T) {
	d := testutil.NewDevice(testutil.WithType(models.DeviceTypeCamera), testutil.WithCheckType(models.CheckHTTPS))
	checks, err := Plan(d)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	want := []Role{RolePing, RoleWeb, RoleRTSP, RoleAPI}
	if got := roles(checks); !equalRoles(got, want) {
		t.Fatalf("roles = %v, want %v", got, want)
	}
	if checks[3].URL != "http://192.168.1.100:80/" {
		t.Errorf("api URL = %q", checks[3].URL)
	}
}

func TestPlan_Deterministic(t *testing.T) {
	d := testutil.NewDevice(testutil.WithType(models.DeviceTypeCamera), testutil.WithCameraHTTPPort(8000))
	a, _ := Plan(d)
	b, _ := Plan(d)
	if len(a) != len(b) {
		t.Fatalf("plans differ in length: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Address() != b[i].Address() || a[i].Role != b[i].Role {
			t.Errorf("check %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestPlanAll_SkipsMissingIP(t *testing.T) {
	devices := []models.Device{
		testutil.NewDevice(testutil.WithIP("10.0.0.1")),
		testutil.NewDevice(testutil.WithIP(""), testutil.WithType(models.DeviceTypeNVR)),
		testutil.NewDevice(testutil.WithIP("10.0.0.2"), testutil.WithType(models.DeviceTypeSwitch)),
	}
	checks := PlanAll(devices, zap.NewNop())
	if len(checks) != 3 {
		t.Fatalf("len(checks) = %d, want 3 (1 + 0 + 2)", len(checks))
	}
	for _, c := range checks {
		if c.Host == "" {
			t.Errorf("check with empty host: %+v", c)
		}
	}
}

func TestCheck_Address(t *testing.T) {
	tests := []struct {
		check Check
		want  string
	}{
		{Check{Kind: KindPing, Host: "10.0.0.1"}, "10.0.0.1"},
		{Check{Kind: KindPort, Host: "10.0.0.1", Port: 554}, "10.0.0.1:554"},
		{Check{Kind: KindSNMP, Host: "fe80::1", Port: 161}, "[fe80::1]:161"},
		{Check{Kind: KindHTTP, Host: "10.0.0.1", URL: "http://10.0.0.1:80/"}, "http://10.0.0.1:80/"},
	}
	for _, tt := range tests {
		if got := tt.check.Address(); got != tt.want {
			t.Errorf("Address() = %q, want %q", got, tt.want)
		}
	}
}
