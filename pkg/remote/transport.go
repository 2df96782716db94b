// Package remote implements the transport and connection state machine
// for a model's remote sub-trees (RemoteModelSeed in pkg/model): dialing
// out to another Robotick engine over IP or a serial link, performing a
// handshake, and exchanging tick frames of named field values. It is a
// supplemented feature — the spec's core scheduler only resolves local
// connections — grounded on the legacy original's (unfinished, TODO-
// marked) RemoteEngineConnection state machine.
package remote

import (
	"context"
	"io"
)

// Transport dials a fresh byte stream to a remote engine. Implementations
// are intentionally minimal: Connection owns the handshake and framing,
// Transport owns only "how do I get bytes to and from the peer".
type Transport interface {
	Dial(ctx context.Context) (io.ReadWriteCloser, error)
}
