package remote

import (
	"context"
	"fmt"
	"io"
	"os"

	"time"

	"github.com/gofrs/flock"
)

// uartLockRetryInterval is how often TryLockContext polls for the
// device lock while waiting for a previous holder to release it.
const uartLockRetryInterval = 20 * time.Millisecond

// uartTransport opens a serial device file for exclusive access, the Go
// analogue of RemoteModelSeed's "uart:" mode. A real serial link needs
// no redialing the way a TCP connection does, but the engine's
// reconnect loop treats every transport uniformly, so Dial simply
// reopens the device each time it is called; the lock a previous Dial
// took is released when that connection is closed.
type uartTransport struct {
	devicePath string
	lock       *flock.Flock
}

// NewUARTTransport constructs a Transport over the serial device at
// devicePath, guarded by an flock advisory lock so two Connections never
// address the same device concurrently — there is no OS-level
// equivalent of TCP's one-socket-per-peer isolation for a serial port.
func NewUARTTransport(devicePath string) Transport {
	return &uartTransport{devicePath: devicePath, lock: flock.New(devicePath + ".lock")}
}

func (t *uartTransport) Dial(ctx context.Context) (io.ReadWriteCloser, error) {
	locked, err := t.lock.TryLockContext(ctx, uartLockRetryInterval)
	if err != nil {
		return nil, fmt.Errorf("remote: uart: lock %s: %w", t.devicePath, err)
	}
	if !locked {
		return nil, fmt.Errorf("remote: uart: device %s is in use by another connection", t.devicePath)
	}

	f, err := os.OpenFile(t.devicePath, os.O_RDWR, 0)
	if err != nil {
		_ = t.lock.Unlock()
		return nil, fmt.Errorf("remote: uart: open %s: %w", t.devicePath, err)
	}
	return &uartConn{File: f, lock: t.lock}, nil
}

// uartConn releases the device lock when closed, so a later Dial call
// (after a transient serial error) can reacquire it.
type uartConn struct {
	*os.File
	lock *flock.Flock
}

func (c *uartConn) Close() error {
	err := c.File.Close()
	_ = c.lock.Unlock()
	return err
}
