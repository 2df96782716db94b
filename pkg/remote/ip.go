package remote

import (
	"context"
	"io"
	"net"
)

// ipTransport dials a TCP connection to a remote engine's address
// ("host:port"), the Go analogue of RemoteModelSeed's "ip:" mode.
type ipTransport struct {
	address string
	dialer  net.Dialer
}

// NewIPTransport constructs a Transport that dials address ("host:port")
// over TCP for each connection attempt.
func NewIPTransport(address string) Transport {
	return &ipTransport{address: address}
}

func (t *ipTransport) Dial(ctx context.Context) (io.ReadWriteCloser, error) {
	return t.dialer.DialContext(ctx, "tcp", t.address)
}
