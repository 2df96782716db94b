package remote

import (
	"context"
	"io"
	"net"
)

// localTransport connects over an in-memory net.Pipe rather than a real
// socket or device, the Go analogue of RemoteModelSeed's "local:" mode
// (used in tests and single-binary deployments where the "remote"
// sub-model actually runs in the same process). peerFn returns the
// other end of the pipe; most callers build both ends together via
// NewLocalTransportPair.
type localTransport struct {
	peerFn func() io.ReadWriteCloser
}

// NewLocalTransportPair returns two transports wired to opposite ends of
// an in-memory pipe: connecting through one delivers bytes to whatever
// dials through the other.
func NewLocalTransportPair() (a, b Transport) {
	ca, cb := net.Pipe()
	return &localTransport{peerFn: func() io.ReadWriteCloser { return ca }},
		&localTransport{peerFn: func() io.ReadWriteCloser { return cb }}
}

func (t *localTransport) Dial(ctx context.Context) (io.ReadWriteCloser, error) {
	return t.peerFn(), nil
}
