package probe

import (
	"context"
	"fmt"
	"runtime"
	"time"

	probing "github.com/prometheus-community/pro-bing"

	"github.com/Andylive5518/cctv-allin/internal/targets"
)

// Compile-time interface guard.
var _ Checker = (*ICMPChecker)(nil)

// ICMPChecker pings a host. Unprivileged (UDP) mode is used everywhere
// except Windows, which requires raw sockets.
type ICMPChecker struct {
	count   int
	timeout time.Duration
}

// NewICMPChecker creates a checker that sends count echo requests.
func NewICMPChecker(count int, timeout time.Duration) *ICMPChecker {
	return &ICMPChecker{count: count, timeout: timeout}
}

// Check succeeds when at least one reply arrives.
func (c *ICMPChecker) Check(ctx context.Context, check targets.Check) (*Result, error) {
	pinger, err := probing.NewPinger(check.Host)
	if err != nil {
		r := failed(check, 0, err)
		return &r, fmt.Errorf("create pinger for %s: %w", check.Host, err)
	}
	pinger.Count = c.count
	pinger.Timeout = c.timeout
	pinger.SetPrivileged(runtime.GOOS == "windows")

	if err := pinger.RunWithContext(ctx); err != nil {
		r := failed(check, 0, err)
		return &r, fmt.Errorf("ping %s: %w", check.Host, err)
	}

	stats := pinger.Statistics()
	if stats.PacketsRecv == 0 {
		r := failed(check, 0, fmt.Errorf("no reply (%d sent)", stats.PacketsSent))
		return &r, fmt.Errorf("ping %s: no reply", check.Host)
	}
	return &Result{
		Success:   true,
		Latency:   stats.AvgRtt,
		CheckedAt: time.Now().UTC(),
	}, nil
}
