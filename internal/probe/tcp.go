package probe

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/Andylive5518/cctv-allin/internal/targets"
)

// Compile-time interface guard.
var _ Checker = (*TCPChecker)(nil)

// TCPChecker tests TCP connectivity to host:port targets.
type TCPChecker struct {
	timeout time.Duration
}

// NewTCPChecker creates a new TCP checker with the given connection timeout.
func NewTCPChecker(timeout time.Duration) *TCPChecker {
	return &TCPChecker{timeout: timeout}
}

// Check connects to the check's address and measures connection time.
func (c *TCPChecker) Check(ctx context.Context, check targets.Check) (*Result, error) {
	target := check.Address()
	if _, _, err := net.SplitHostPort(target); err != nil {
		r := failed(check, 0, err)
		return &r, fmt.Errorf("invalid target %q: %w", target, err)
	}

	start := time.Now()
	dialer := net.Dialer{Timeout: c.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", target)
	elapsed := time.Since(start)
	if err != nil {
		r := failed(check, elapsed, err)
		return &r, fmt.Errorf("tcp connect %s: %w", target, err)
	}
	conn.Close()

	return &Result{Success: true, Latency: elapsed, CheckedAt: time.Now().UTC()}, nil
}
