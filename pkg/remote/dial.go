package remote

import (
	"fmt"

	"robotick/pkg/model"
)

// DialTransport builds the Transport a RemoteModelSeed's mode and comms
// channel describe. RemoteModeLocal has no meaningful standalone
// transport (its two ends must be created together by the caller via
// NewLocalTransportPair), so it is rejected here rather than silently
// producing a one-ended pipe.
func DialTransport(mode model.RemoteMode, commsChannel string) (Transport, error) {
	switch mode {
	case model.RemoteModeIP:
		return NewIPTransport(commsChannel), nil
	case model.RemoteModeUART:
		return NewUARTTransport(commsChannel), nil
	case model.RemoteModeLocal:
		return nil, fmt.Errorf("remote: local transport has no standalone dial target; use NewLocalTransportPair")
	default:
		return nil, fmt.Errorf("remote: unsupported mode %v", mode)
	}
}
