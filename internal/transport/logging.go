// SPDX-License-Identifier: MIT
package transport

import (
	"fmt"
	"sync/atomic"

	"spectra/internal/log"
)

var logger = log.For("transport")

// LoggingTransport implements the Transport interface by writing every Nth
// payload to the debug log.
type LoggingTransport struct {
	every uint64
	count atomic.Uint64
}

// NewLoggingTransport creates a LoggingTransport that logs one payload in
// every (at least 1).
func NewLoggingTransport(every int) *LoggingTransport {
	logger.Infof("using logging transport (1 in %d)", max(every, 1))
	return &LoggingTransport{every: uint64(max(every, 1))}
}

// Send logs the payload. Values implementing fmt.Stringer are logged through
// String. It never fails.
func (lt *LoggingTransport) Send(data any) error {
	n := lt.count.Add(1)
	if (n-1)%lt.every != 0 || !log.Enabled(log.LevelDebug) {
		return nil
	}
	if s, ok := data.(fmt.Stringer); ok {
		logger.Debugf("%s", s)
		return nil
	}
	logger.Debugf("%T: %+v", data, data)
	return nil
}

// Count returns the number of payloads seen.
func (lt *LoggingTransport) Count() uint64 { return lt.count.Load() }

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	logger.Debugf("logging transport closed after %d payloads", lt.count.Load())
	return nil
}

// Ensure LoggingTransport satisfies the interface at compile time.
var _ Transport = (*LoggingTransport)(nil)
