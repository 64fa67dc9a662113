// Package probe runs planned checks once from the local host. It is a
// troubleshooting aid for verifying what Uptime Kuma and blackbox exporter
// will see before the generated files are deployed.
package probe

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Andylive5518/cctv-allin/internal/targets"
)

// DefaultTimeout bounds a single check when the runner is given none.
const DefaultTimeout = 5 * time.Second

// Result is the outcome of one check.
type Result struct {
	Check     targets.Check
	Success   bool
	Latency   time.Duration
	Error     string
	CheckedAt time.Time
}

// Checker executes checks of one kind.
type Checker interface {
	Check(ctx context.Context, c targets.Check) (*Result, error)
}

// Runner dispatches each check to the checker registered for its kind.
type Runner struct {
	checkers map[targets.Kind]Checker
	timeout  time.Duration
	logger   *zap.Logger
}

// Options configures the default checkers.
type Options struct {
	Timeout   time.Duration
	PingCount int
}

// NewRunner creates a runner with ICMP, TCP, HTTP and SNMP checkers.
func NewRunner(opts Options, logger *zap.Logger) *Runner {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.PingCount <= 0 {
		opts.PingCount = 3
	}
	r := &Runner{
		checkers: make(map[targets.Kind]Checker),
		timeout:  opts.Timeout,
		logger:   logger,
	}
	r.Register(targets.KindPing, NewICMPChecker(opts.PingCount, opts.Timeout))
	r.Register(targets.KindPort, NewTCPChecker(opts.Timeout))
	r.Register(targets.KindHTTP, NewHTTPChecker(opts.Timeout))
	r.Register(targets.KindSNMP, NewSNMPChecker(opts.Timeout))
	return r
}

// Register replaces the checker for kind.
func (r *Runner) Register(kind targets.Kind, c Checker) {
	r.checkers[kind] = c
}

// Run executes checks sequentially and returns one result per check, in
// order. Cancelling ctx marks the remaining checks as failed.
func (r *Runner) Run(ctx context.Context, checks []targets.Check) []Result {
	results := make([]Result, 0, len(checks))
	for i := range checks {
		results = append(results, r.runOne(ctx, checks[i]))
	}
	return results
}

func (r *Runner) runOne(ctx context.Context, c targets.Check) Result {
	if err := ctx.Err(); err != nil {
		return failed(c, 0, err)
	}
	checker, ok := r.checkers[c.Kind]
	if !ok {
		return failed(c, 0, fmt.Errorf("no checker for kind %q", c.Kind))
	}

	checkCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res, err := checker.Check(checkCtx, c)
	if res == nil {
		res = &Result{Check: c, CheckedAt: time.Now().UTC()}
	}
	res.Check = c
	if err != nil {
		res.Success = false
		if res.Error == "" {
			res.Error = err.Error()
		}
	}
	r.logger.Debug("probe finished",
		zap.String("device", c.Device.DisplayName()),
		zap.String("kind", string(c.Kind)),
		zap.String("target", c.Address()),
		zap.Bool("success", res.Success),
		zap.Duration("latency", res.Latency),
	)
	return *res
}

// Failed counts unsuccessful results.
func Failed(results []Result) int {
	n := 0
	for i := range results {
		if !results[i].Success {
			n++
		}
	}
	return n
}

func failed(c targets.Check, latency time.Duration, err error) Result {
	return Result{
		Check:     c,
		Success:   false,
		Latency:   latency,
		Error:     err.Error(),
		CheckedAt: time.Now().UTC(),
	}
}
