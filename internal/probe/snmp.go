package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/gosnmp/gosnmp"

	"github.com/Andylive5518/cctv-allin/internal/targets"
	"github.com/Andylive5518/cctv-allin/pkg/models"
)

// OIDSysUpTime is SNMPv2-MIB::sysUpTime.0.
const OIDSysUpTime = "1.3.6.1.2.1.1.3.0"

// Compile-time interface guard.
var _ Checker = (*SNMPChecker)(nil)

// SNMPChecker performs an SNMPv2c GET of sysUpTime using the device's
// community string.
type SNMPChecker struct {
	timeout time.Duration
	retries int
}

// NewSNMPChecker creates an SNMP checker.
func NewSNMPChecker(timeout time.Duration) *SNMPChecker {
	return &SNMPChecker{timeout: timeout, retries: 1}
}

func (c *SNMPChecker) Check(ctx context.Context, check targets.Check) (*Result, error) {
	community := check.Device.SNMPCommunity
	if community == "" {
		community = models.DefaultSNMPCommunity
	}
	port := check.Port
	if port == 0 {
		port = models.DefaultSNMPPort
	}

	g := &gosnmp.GoSNMP{
		Target:    check.Host,
		Port:      uint16(port), //nolint:gosec // G115: port validated by inventory range
		Community: community,
		Version:   gosnmp.Version2c,
		Timeout:   c.timeout,
		Retries:   c.retries,
		Context:   ctx,
	}
	if err := g.Connect(); err != nil {
		r := failed(check, 0, err)
		return &r, fmt.Errorf("connect to %s: %w", check.Address(), err)
	}
	defer func() { _ = g.Conn.Close() }()

	start := time.Now()
	result, err := g.Get([]string{OIDSysUpTime})
	elapsed := time.Since(start)
	if err != nil {
		r := failed(check, elapsed, err)
		return &r, fmt.Errorf("SNMP GET sysUpTime %s: %w", check.Address(), err)
	}
	if len(result.Variables) == 0 {
		r := failed(check, elapsed, fmt.Errorf("empty response"))
		return &r, fmt.Errorf("SNMP GET sysUpTime %s: empty response", check.Address())
	}
	switch result.Variables[0].Type {
	case gosnmp.NoSuchObject, gosnmp.NoSuchInstance, gosnmp.EndOfMibView:
		r := failed(check, elapsed, fmt.Errorf("sysUpTime not available"))
		return &r, fmt.Errorf("SNMP GET sysUpTime %s: not available", check.Address())
	}
	return &Result{Success: true, Latency: elapsed, CheckedAt: time.Now().UTC()}, nil
}
