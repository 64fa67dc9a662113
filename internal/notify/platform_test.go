package notify

import (
	"errors"
	"testing"
)

func TestResolveRoute(t *testing.T) {
	tests := []struct {
		name       string
		in         string
		wantPlat   Platform
		wantPrefix string
	}{
		{name: "dingtalk", in: "dingtalk", wantPlat: PlatformDingTalk},
		{name: "wechat mixed case", in: "WeChat", wantPlat: PlatformWeChat},
		{name: "feishu", in: "feishu", wantPlat: PlatformFeishu},
		{name: "default alias", in: "default", wantPlat: PlatformDingTalk, wantPrefix: ZabbixTitlePrefix},
		{name: "zabbix alias", in: "zabbix", wantPlat: PlatformDingTalk, wantPrefix: ZabbixTitlePrefix},
		{name: "alertmanager uses fallback", in: "alertmanager", wantPlat: PlatformFeishu},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ResolveRoute(tc.in, PlatformFeishu)
			if err != nil {
				t.Fatalf("ResolveRoute(%q): %v", tc.in, err)
			}
			if got.Platform != tc.wantPlat {
				t.Errorf("Platform = %q, want %q", got.Platform, tc.wantPlat)
			}
			if got.TitlePrefix != tc.wantPrefix {
				t.Errorf("TitlePrefix = %q, want %q", got.TitlePrefix, tc.wantPrefix)
			}
		})
	}
}

func TestResolveRoute_Unknown(t *testing.T) {
	for _, in := range []string{"slack", "", "teams"} {
		_, err := ResolveRoute(in, PlatformDingTalk)
		if !errors.Is(err, ErrUnsupportedPlatform) {
			t.Errorf("ResolveRoute(%q) error = %v, want ErrUnsupportedPlatform", in, err)
		}
	}
}

func TestParsePlatform_RejectsAliases(t *testing.T) {
	if _, err := ParsePlatform("zabbix"); !errors.Is(err, ErrUnsupportedPlatform) {
		t.Errorf("ParsePlatform(zabbix) error = %v, want ErrUnsupportedPlatform", err)
	}
}
