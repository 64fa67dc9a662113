// Package notify receives Alertmanager webhook payloads, deduplicates
// repeated firing alerts and forwards them to chat robot webhooks.
package notify

import (
	"strings"
	"time"
)

// Alert statuses sent by Alertmanager.
const (
	StatusFiring   = "firing"
	StatusResolved = "resolved"
)

// Message is the Alertmanager webhook receiver payload (version 4).
type Message struct {
	Version           string            `json:"version"`
	GroupKey          string            `json:"groupKey"`
	TruncatedAlerts   int               `json:"truncatedAlerts"`
	Status            string            `json:"status"`
	Receiver          string            `json:"receiver"`
	GroupLabels       map[string]string `json:"groupLabels"`
	CommonLabels      map[string]string `json:"commonLabels"`
	CommonAnnotations map[string]string `json:"commonAnnotations"`
	ExternalURL       string            `json:"externalURL"`
	Alerts            []Alert           `json:"alerts"`
}

// Alert is a single alert in a Message.
type Alert struct {
	Status       string            `json:"status"`
	Labels       map[string]string `json:"labels"`
	Annotations  map[string]string `json:"annotations"`
	StartsAt     string            `json:"startsAt"`
	EndsAt       string            `json:"endsAt"`
	GeneratorURL string            `json:"generatorURL"`
	Fingerprint  string            `json:"fingerprint"`
}

const unknownLabel = "N/A"

// Name returns the alertname label, or N/A.
func (a *Alert) Name() string {
	return labelOr(a.Labels, "alertname", unknownLabel)
}

// Instance returns the instance label, or N/A.
func (a *Alert) Instance() string {
	return labelOr(a.Labels, "instance", unknownLabel)
}

// NormalizedStatus lowercases the status; an empty status counts as firing.
func (a *Alert) NormalizedStatus() string {
	s := strings.ToLower(strings.TrimSpace(a.Status))
	if s == "" {
		return StatusFiring
	}
	return s
}

// Key identifies an alert for deduplication: instance and alertname joined
// by an underscore, with "unknown" for a missing label.
func (a *Alert) Key() string {
	return labelOr(a.Labels, "instance", "unknown") + "_" + labelOr(a.Labels, "alertname", "unknown")
}

// StartedAt renders StartsAt as wall-clock time in the sender's own UTC
// offset, or N/A when it is empty or the zero time.
func (a *Alert) StartedAt() string {
	return displayTime(a.StartsAt)
}

// displayTime drops fractional seconds and the offset and replaces the
// RFC 3339 "T" with a space. Unparseable values are trimmed the same way.
func displayTime(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return unknownLabel
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		if t.IsZero() {
			return unknownLabel
		}
		return t.Format(startTimeLayout)
	}
	raw, _, _ = strings.Cut(raw, ".")
	return strings.Replace(raw, "T", " ", 1)
}

func labelOr(m map[string]string, key, fallback string) string {
	if v, ok := m[key]; ok && v != "" {
		return v
	}
	return fallback
}
