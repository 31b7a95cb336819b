// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"
	"time"
)

// failureKind classifies one backend call failure. Each kind has its own
// recovery behavior: a crashed backend gets a bounded wait-and-reconnect, the
// rest get differentiated backoff.
type failureKind int

const (
	failureUnknown failureKind = iota
	failureCrashed
	failureConnection
	failureTimeout
)

func (k failureKind) String() string {
	switch k {
	case failureCrashed:
		return "crashed"
	case failureConnection:
		return "connection"
	case failureTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Backoff per failure kind. Package-level vars so tests can avoid real
// sleeps.
var (
	crashedWait    = 5 * time.Second
	connectionWait = 1 * time.Second
	timeoutWait    = 10 * time.Second
	unknownWait    = 2 * time.Second
)

// classify maps a backend call error to its failure kind. Connection refused
// means the server process is gone, not merely busy, so it is treated as a
// crash.
func classify(err error) failureKind {
	if err == nil {
		return failureUnknown
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return failureCrashed
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return failureTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return failureTimeout
		}
		return failureConnection
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "connection refused"):
		return failureCrashed
	case strings.Contains(msg, "connection reset"), strings.Contains(msg, "broken pipe"), strings.Contains(msg, "eof"):
		return failureConnection
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline"):
		return failureTimeout
	}
	return failureUnknown
}

func (k failureKind) wait() time.Duration {
	switch k {
	case failureCrashed:
		return crashedWait
	case failureConnection:
		return connectionWait
	case failureTimeout:
		return timeoutWait
	default:
		return unknownWait
	}
}
