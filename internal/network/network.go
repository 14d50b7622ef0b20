package network

import (
	"net"
	"time"

	"github.com/NamanBalaji/segfetch/internal/logger"
)

const (
	DefaultProbeAddress = "1.1.1.1:53"
	DefaultProbeTimeout = 2 * time.Second
)

// Probe considers the network available when a TCP connection to address
// can be opened within timeout.
type Probe struct {
	address string
	timeout time.Duration
}

func NewProbe(address string, timeout time.Duration) *Probe {
	if address == "" {
		address = DefaultProbeAddress
	}

	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}

	return &Probe{address: address, timeout: timeout}
}

func (p *Probe) IsNetworkAvailable() bool {
	conn, err := net.DialTimeout("tcp", p.address, p.timeout)
	if err != nil {
		logger.Debugf("Network probe to %s failed: %v", p.address, err)
		return false
	}

	if err := conn.Close(); err != nil {
		logger.Warnf("Failed to close network probe connection: %v", err)
	}

	return true
}

// Static always reports the same availability.
type Static bool

func (s Static) IsNetworkAvailable() bool {
	return bool(s)
}
