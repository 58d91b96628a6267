package transport

import (
	"io"

	"noisestream/internal/transport/udp"
)

// Transport sends encoded PCM to a remote consumer. Send is called from a
// single stream goroutine; Close may be called from another.
type Transport interface {
	Send(data []byte) error
	Close() error
}

// Writer adapts t to an io.Writer. Every Write becomes one Send, so a stream
// driver produces one message per header and per chunk.
func Writer(t Transport) io.Writer {
	return transportWriter{t: t}
}

type transportWriter struct {
	t Transport
}

func (w transportWriter) Write(p []byte) (int, error) {
	if err := w.t.Send(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Ensure the concrete transports satisfy the interface at compile time.
var (
	_ Transport = (*WebSocketTransport)(nil)
	_ Transport = (*udp.Sender)(nil)
)
