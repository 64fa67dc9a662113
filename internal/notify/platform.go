package notify

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedPlatform is returned for a platform name with no route.
var ErrUnsupportedPlatform = errors.New("unsupported platform")

// Platform identifies a chat robot backend.
type Platform string

const (
	PlatformDingTalk Platform = "dingtalk"
	PlatformWeChat   Platform = "wechat"
	PlatformFeishu   Platform = "feishu"
)

// ParsePlatform accepts only the three concrete backends.
func ParsePlatform(name string) (Platform, error) {
	switch p := Platform(strings.ToLower(strings.TrimSpace(name))); p {
	case PlatformDingTalk, PlatformWeChat, PlatformFeishu:
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedPlatform, name)
}

// ZabbixTitlePrefix is prepended to the title for the default/zabbix route.
const ZabbixTitlePrefix = "Zabbix alert: "

// Route is a resolved webhook path segment.
type Route struct {
	Platform    Platform
	TitlePrefix string
}

// ResolveRoute maps the {platform} path segment to a backend. "default" and
// "zabbix" go to DingTalk with a Zabbix title prefix; "alertmanager" goes
// to fallback.
func ResolveRoute(name string, fallback Platform) (Route, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "default", "zabbix":
		return Route{Platform: PlatformDingTalk, TitlePrefix: ZabbixTitlePrefix}, nil
	case "alertmanager":
		return Route{Platform: fallback}, nil
	}
	p, err := ParsePlatform(name)
	if err != nil {
		return Route{}, err
	}
	return Route{Platform: p}, nil
}
