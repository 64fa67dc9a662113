package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ErrDispatchFailed is returned when the robot call fails or is rejected.
var ErrDispatchFailed = errors.New("dispatch failed")

// DefaultTitle is the message title when none is configured.
const DefaultTitle = "Prometheus Alert"

// Result summarizes one Dispatch call.
type Result struct {
	Platform   Platform `json:"platform"`
	Received   int      `json:"received"`
	Forwarded  int      `json:"forwarded"`
	Suppressed int      `json:"suppressed"`
	Dropped    int      `json:"dropped"`
	Sent       bool     `json:"sent"`
	Message    string   `json:"message"`
}

// DispatcherConfig holds the dispatcher's static settings.
type DispatcherConfig struct {
	DefaultPlatform Platform
	Title           string
	Timeout         time.Duration
}

// Dispatcher gates, formats and forwards Alertmanager messages.
type Dispatcher struct {
	cfg       DispatcherConfig
	notifiers map[Platform]Notifier
	gate      Gate
	status    *StatusCache
	logger    *zap.Logger
}

// NewDispatcher creates a dispatcher. Only platforms with a registered
// notifier can be dispatched to. status may be nil.
func NewDispatcher(cfg DispatcherConfig, gate Gate, status *StatusCache, logger *zap.Logger, notifiers ...Notifier) *Dispatcher {
	if cfg.DefaultPlatform == "" {
		cfg.DefaultPlatform = PlatformDingTalk
	}
	if cfg.Title == "" {
		cfg.Title = DefaultTitle
	}
	if cfg.Timeout <= 0 || cfg.Timeout > DefaultTimeout {
		cfg.Timeout = DefaultTimeout
	}
	m := make(map[Platform]Notifier, len(notifiers))
	for _, n := range notifiers {
		m[n.Platform()] = n
	}
	return &Dispatcher{cfg: cfg, notifiers: m, gate: gate, status: status, logger: logger}
}

// Configured reports whether a notifier is registered for p.
func (d *Dispatcher) Configured(p Platform) bool {
	_, ok := d.notifiers[p]
	return ok
}

// Dispatch routes msg to the platform named by the webhook path. Firing
// alerts already forwarded within the TTL are suppressed. When the robot
// call fails the gate keys opened by this call are released so that a
// retry from Alertmanager is not suppressed.
func (d *Dispatcher) Dispatch(ctx context.Context, platform string, msg *Message) (Result, error) {
	route, err := ResolveRoute(platform, d.cfg.DefaultPlatform)
	if err != nil {
		return Result{}, err
	}
	res := Result{Platform: route.Platform, Received: len(msg.Alerts)}
	label := string(route.Platform)

	notifier, ok := d.notifiers[route.Platform]
	if !ok {
		return res, fmt.Errorf("%s: %w", route.Platform, ErrNotConfigured)
	}

	admitted, opened := d.admit(ctx, label, msg.Alerts, &res)
	if len(msg.Alerts) > 0 && len(admitted) == 0 {
		res.Message = "no alerts to send"
		return res, nil
	}

	body := Format(msg, admitted, route.Platform)
	if body == "" {
		res.Message = "no alerts to send"
		return res, nil
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	start := time.Now()
	err = notifier.Send(sendCtx, route.TitlePrefix+d.cfg.Title, body)
	cancel()
	dispatchDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())

	if err != nil {
		d.release(ctx, opened)
		alertsTotal.WithLabelValues(label, outcomeFailed).Add(float64(len(admitted)))
		d.logger.Error("notification delivery failed",
			zap.String("platform", label),
			zap.Int("alerts", len(admitted)),
			zap.Error(err),
		)
		return res, fmt.Errorf("%w: %w", ErrDispatchFailed, err)
	}

	res.Sent = true
	res.Forwarded = len(admitted)
	res.Message = "sent"
	alertsTotal.WithLabelValues(label, outcomeForwarded).Add(float64(len(admitted)))
	d.recordStatus(ctx, admitted)

	d.logger.Info("notification delivered",
		zap.String("platform", label),
		zap.Int("forwarded", res.Forwarded),
		zap.Int("suppressed", res.Suppressed),
	)
	return res, nil
}

// heldKey is a gate key this call moved to Suppressed, with the token
// that proves it.
type heldKey struct {
	key   string
	token string
}

// admit runs every alert through the gate. It returns the alerts to format
// and the keys whose firing transition this call performed.
func (d *Dispatcher) admit(ctx context.Context, label string, alerts []Alert, res *Result) (admitted []Alert, opened []heldKey) {
	for i := range alerts {
		a := &alerts[i]
		status := a.NormalizedStatus()
		key := a.Key()

		adm, err := d.gate.Admit(ctx, key, status)
		if err != nil {
			d.logger.Warn("dedup gate unavailable, forwarding",
				zap.String("key", key),
				zap.Error(err),
			)
		}

		switch adm.Decision {
		case Forward:
			admitted = append(admitted, *a)
			if adm.Token != "" {
				opened = append(opened, heldKey{key: key, token: adm.Token})
			}
		case Suppress:
			res.Suppressed++
			alertsTotal.WithLabelValues(label, outcomeSuppressed).Inc()
			d.logger.Debug("alert suppressed", zap.String("key", key))
		case Drop:
			res.Dropped++
			alertsTotal.WithLabelValues(label, outcomeDropped).Inc()
			d.logger.Debug("alert dropped", zap.String("key", key), zap.String("status", status))
		}
	}
	return admitted, opened
}

func (d *Dispatcher) release(ctx context.Context, keys []heldKey) {
	for _, k := range keys {
		if err := d.gate.Release(ctx, k.key, k.token); err != nil {
			d.logger.Warn("failed to release dedup key", zap.String("key", k.key), zap.Error(err))
		}
	}
}

// Suppression reports the dedup state of an alert key
// (<instance>_<alertname>).
func (d *Dispatcher) Suppression(ctx context.Context, key string) (GateStatus, error) {
	return d.gate.State(ctx, key)
}

func (d *Dispatcher) recordStatus(ctx context.Context, alerts []Alert) {
	if d.status == nil {
		return
	}
	for i := range alerts {
		instance := alerts[i].Instance()
		if instance == unknownLabel {
			continue
		}
		if err := d.status.Record(ctx, instance, alerts[i].NormalizedStatus()); err != nil {
			d.logger.Debug("failed to cache device status", zap.String("instance", instance), zap.Error(err))
		}
	}
}
