// SPDX-License-Identifier: MIT
package stream

import (
	"errors"
	"io"
	"net"
	"syscall"
)

// IsDisconnect reports whether err means the consumer went away, as opposed
// to a sink malfunction.
func IsDisconnect(err error) bool {
	return errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, io.EOF)
}
