package notify

import (
	"strings"
	"testing"
)

func firingAlert(name, instance string) Alert {
	return Alert{
		Status: StatusFiring,
		Labels: map[string]string{
			"alertname": name,
			"instance":  instance,
			"severity":  "critical",
		},
		Annotations: map[string]string{
			"summary":     "device unreachable",
			"description": "no ICMP reply for 2m",
		},
		StartsAt: "2024-05-01T08:00:00.123Z",
	}
}

func TestFormat_DingTalk(t *testing.T) {
	msg := &Message{Status: StatusFiring}
	got := Format(msg, []Alert{firingAlert("DeviceDown", "10.0.0.1")}, PlatformDingTalk)

	want := "#### [FIRING] DeviceDown - 10.0.0.1\n\n" +
		"- **Severity**: CRITICAL\n" +
		"- **Summary**: device unreachable\n" +
		"- **Description**: no ICMP reply for 2m\n" +
		"- **Started**: 2024-05-01 08:00:00\n"
	if got != want {
		t.Errorf("Format() =\n%s\nwant\n%s", got, want)
	}
}

func TestFormat_WeChatUsesQuoteDialect(t *testing.T) {
	msg := &Message{Status: StatusFiring}
	got := Format(msg, []Alert{firingAlert("DeviceDown", "10.0.0.1")}, PlatformWeChat)

	if !strings.HasPrefix(got, "**[FIRING] DeviceDown - 10.0.0.1**\n") {
		t.Errorf("unexpected title line in %q", got)
	}
	if !strings.Contains(got, `>Severity: <font color="warning">CRITICAL</font>`) {
		t.Errorf("missing colored severity in %q", got)
	}
}

func TestFormat_Feishu(t *testing.T) {
	msg := &Message{Status: StatusFiring}
	got := Format(msg, []Alert{firingAlert("DeviceDown", "10.0.0.1")}, PlatformFeishu)

	if !strings.HasPrefix(got, "**[FIRING] DeviceDown - 10.0.0.1**\n- **Severity**: CRITICAL\n") {
		t.Errorf("unexpected feishu body %q", got)
	}
}

func TestFormat_JoinsAlerts(t *testing.T) {
	msg := &Message{Status: StatusFiring}
	alerts := []Alert{firingAlert("A", "1.1.1.1"), firingAlert("B", "2.2.2.2")}

	got := Format(msg, alerts, PlatformDingTalk)
	if n := strings.Count(got, "\n\n---\n\n"); n != 1 {
		t.Errorf("separator count = %d, want 1", n)
	}
}

func TestFormat_Fallbacks(t *testing.T) {
	msg := &Message{
		Status:            StatusFiring,
		CommonAnnotations: map[string]string{"summary": "group summary"},
	}
	alert := Alert{Status: "firing"}

	got := Format(msg, []Alert{alert}, PlatformDingTalk)
	for _, want := range []string{
		"[FIRING] N/A - N/A",
		"**Severity**: N/A",
		"**Summary**: group summary",
		"**Description**: no description",
		"**Started**: N/A",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Format() missing %q in %q", want, got)
		}
	}
}

func TestFormat_ResolvedWithoutAlerts(t *testing.T) {
	msg := &Message{
		Status:       StatusResolved,
		CommonLabels: map[string]string{"alertname": "DeviceDown", "instance": "10.0.0.1"},
	}

	got := Format(msg, nil, PlatformDingTalk)
	want := "#### [RESOLVED] DeviceDown Resolved\n\nAlert **DeviceDown** resolved.\nInstance: 10.0.0.1"
	if got != want {
		t.Errorf("Format() = %q, want %q", got, want)
	}

	got = Format(msg, nil, PlatformWeChat)
	want = "Alert **DeviceDown** resolved.\nInstance: 10.0.0.1"
	if got != want {
		t.Errorf("Format(wechat) = %q, want %q", got, want)
	}
}

func TestFormat_FiringWithoutAlertsIsEmpty(t *testing.T) {
	if got := Format(&Message{Status: StatusFiring}, nil, PlatformDingTalk); got != "" {
		t.Errorf("Format() = %q, want empty", got)
	}
}

func TestGrafanaLink(t *testing.T) {
	a := firingAlert("DeviceDown", "10.0.0.1")

	if got := GrafanaLink(&a, ""); got != "" {
		t.Errorf("GrafanaLink(no external url) = %q, want empty", got)
	}

	got := GrafanaLink(&a, "http://alertmanager:9093/alerts")
	if !strings.HasPrefix(got, "http://alertmanager:9093/explore?orgId=1&left=") {
		t.Errorf("GrafanaLink() = %q, want explore link", got)
	}
	if !strings.Contains(got, "DeviceDown%7Balertname%3D%27DeviceDown%27%2C%20instance%3D%2710.0.0.1%27%7D") {
		t.Errorf("GrafanaLink() = %q, missing escaped expression", got)
	}

	a.Annotations["grafana_link"] = "http://grafana/d/abc"
	if got := GrafanaLink(&a, "http://alertmanager:9093/alerts"); got != "http://grafana/d/abc" {
		t.Errorf("GrafanaLink(annotation) = %q, want annotation value", got)
	}

	unnamed := Alert{}
	if got := GrafanaLink(&unnamed, "http://am/alerts"); got != "http://am/alerts" {
		t.Errorf("GrafanaLink(unnamed) = %q, want external url", got)
	}
}

func TestAlertKey(t *testing.T) {
	a := firingAlert("DeviceDown", "10.0.0.1")
	if got, want := a.Key(), "10.0.0.1_DeviceDown"; got != want {
		t.Errorf("Key() = %q, want %q", got, want)
	}
	if got, want := GateKey(a.Key()), "alert:10.0.0.1_DeviceDown"; got != want {
		t.Errorf("GateKey() = %q, want %q", got, want)
	}
}

func TestAlertKey_MissingLabels(t *testing.T) {
	a := Alert{}
	if got, want := a.Key(), "unknown_unknown"; got != want {
		t.Errorf("Key() = %q, want %q", got, want)
	}
}

func TestAlertStartedAt(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"utc with fraction", "2024-05-01T08:00:00.123Z", "2024-05-01 08:00:00"},
		{"keeps sender offset", "2024-05-01T10:00:00.123+08:00", "2024-05-01 10:00:00"},
		{"no fraction", "2024-05-01T10:00:00+08:00", "2024-05-01 10:00:00"},
		{"empty", "", "N/A"},
		{"go zero time", "0001-01-01T00:00:00Z", "N/A"},
		{"not rfc3339", "2024-05-01T10:00:00.5 CST", "2024-05-01 10:00:00"},
		{"free text", "yesterday", "yesterday"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Alert{StartsAt: tt.in}
			if got := a.StartedAt(); got != tt.want {
				t.Errorf("StartedAt() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormat_OffsetStartTime(t *testing.T) {
	a := firingAlert("DeviceDown", "10.0.0.1")
	a.StartsAt = "2024-05-01T10:00:00.123+08:00"
	got := Format(&Message{Status: StatusFiring}, []Alert{a}, PlatformFeishu)
	if !strings.Contains(got, "- **Started**: 2024-05-01 10:00:00\n") {
		t.Errorf("start time not in sender's wall clock: %q", got)
	}
}
