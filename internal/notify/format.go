package notify

import (
	"fmt"
	"net/url"
	"strings"
)

const startTimeLayout = "2006-01-02 15:04:05"

const alertSeparator = "\n\n---\n\n"

// Format renders alerts as one markdown message in the dialect of p.
// A resolved message with no alerts yields a one-line recovery notice.
func Format(msg *Message, alerts []Alert, p Platform) string {
	parts := make([]string, 0, len(alerts))
	commonSummary := labelOr(msg.CommonAnnotations, "summary", unknownLabel)
	for i := range alerts {
		parts = append(parts, formatAlert(&alerts[i], msg.ExternalURL, commonSummary, p))
	}
	if len(parts) > 0 {
		return strings.Join(parts, alertSeparator)
	}
	if strings.EqualFold(msg.Status, StatusResolved) {
		return formatRecovery(msg, p)
	}
	return ""
}

func formatAlert(a *Alert, externalURL, commonSummary string, p Platform) string {
	title := fmt.Sprintf("[%s] %s - %s", strings.ToUpper(a.NormalizedStatus()), a.Name(), a.Instance())
	severity := strings.ToUpper(labelOr(a.Labels, "severity", unknownLabel))
	summary := labelOr(a.Annotations, "summary", commonSummary)
	description := labelOr(a.Annotations, "description", "no description")
	started := a.StartedAt()
	link := GrafanaLink(a, externalURL)

	var b strings.Builder
	switch p {
	case PlatformWeChat:
		fmt.Fprintf(&b, "**%s**\n", title)
		fmt.Fprintf(&b, ">Severity: <font color=\"warning\">%s</font>\n", severity)
		fmt.Fprintf(&b, ">Summary: %s\n", summary)
		fmt.Fprintf(&b, ">Description: %s\n", description)
		fmt.Fprintf(&b, ">Started: %s\n", started)
		if link != "" {
			fmt.Fprintf(&b, ">[Open in Grafana](%s)\n", link)
		}
	default:
		if p == PlatformDingTalk {
			fmt.Fprintf(&b, "#### %s\n\n", title)
		} else {
			fmt.Fprintf(&b, "**%s**\n", title)
		}
		fmt.Fprintf(&b, "- **Severity**: %s\n", severity)
		fmt.Fprintf(&b, "- **Summary**: %s\n", summary)
		fmt.Fprintf(&b, "- **Description**: %s\n", description)
		fmt.Fprintf(&b, "- **Started**: %s\n", started)
		if link != "" {
			fmt.Fprintf(&b, "- **[Open in Grafana](%s)**\n", link)
		}
	}
	return b.String()
}

func formatRecovery(msg *Message, p Platform) string {
	name := labelOr(msg.CommonLabels, "alertname", unknownLabel)
	instance := labelOr(msg.CommonLabels, "instance", unknownLabel)
	body := fmt.Sprintf("Alert **%s** resolved.\nInstance: %s", name, instance)
	if p == PlatformDingTalk {
		title := fmt.Sprintf("[RESOLVED] %s Resolved", labelOr(msg.CommonLabels, "alertname", "Alert"))
		body = "#### " + title + "\n\n" + body
	}
	return body
}

// GrafanaLink prefers the grafana_link annotation. Otherwise it derives an
// Explore link from the Alertmanager external URL, or returns the external
// URL unchanged when the alert lacks a name or instance.
func GrafanaLink(a *Alert, externalURL string) string {
	if link, ok := a.Annotations["grafana_link"]; ok {
		return link
	}
	if externalURL == "" || a.Name() == unknownLabel || a.Instance() == unknownLabel {
		return externalURL
	}
	expr := fmt.Sprintf("%s{alertname='%s', instance='%s'}", a.Name(), a.Name(), a.Instance())
	base := strings.Replace(externalURL, "/alerts", "/explore", 1)
	return base + "?orgId=1&left=%5B%22now-1h%22,%22now%22,%22Prometheus%22,%7B%22expr%22:%22" +
		strings.ReplaceAll(url.QueryEscape(expr), "+", "%20") + "%22%7D%5D"
}
