package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Mode mirrors which side of the handshake a Connection initiates,
// grounded on RemoteEngineConnection::Mode: a Proactive connection
// dials out and drives the handshake; a Passive one waits to be dialed
// and replies.
type Mode int

const (
	ModeProactive Mode = iota
	ModePassive
)

// State is the connection's lifecycle stage, grounded on
// RemoteEngineConnection::State.
type State int

const (
	StateDisconnected State = iota
	StateConnected
	StateSubscribed
	StateTicking
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateSubscribed:
		return "subscribed"
	case StateTicking:
		return "ticking"
	default:
		return "disconnected"
	}
}

type handshakeFrame struct {
	RemoteName      string   `json:"remote_name"`
	RequestedFields []string `json:"requested_fields"`
	AvailableFields []string `json:"available_fields"`
}

type tickFrame struct {
	Values map[string]string `json:"values"`
}

// Connection is the Go analogue of RemoteEngineConnection: it owns one
// transport-level link to a remote engine, carries it through
// Disconnected -> Connected -> Subscribed -> Ticking, and exchanges
// named field values once ticking. Unlike the original (whose tick()
// body is entirely TODO-stubbed), every stage here actually dials,
// handshakes and exchanges data — grounded on the state machine shape,
// not the unfinished body.
type Connection struct {
	transport Transport
	mode      Mode
	logger    *zap.Logger
	breaker   *gobreaker.CircuitBreaker

	mu    sync.Mutex
	state State
	conn  io.ReadWriteCloser
	enc   *json.Encoder
	dec   *json.Decoder

	remoteName      string
	requestedFields []string
	availableFields []string

	outbound map[string]string
	inbound  map[string]string
}

// NewConnection constructs a disconnected Connection over transport.
// Dial failures are guarded by a circuit breaker so a persistently
// unreachable peer is retried with backoff rather than on every tick.
func NewConnection(transport Transport, mode Mode, logger *zap.Logger) *Connection {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Connection{
		transport: transport,
		mode:      mode,
		logger:    logger,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "remote-dial",
			MaxRequests: 1,
			Interval:    0,
			Timeout:     5 * time.Second,
		}),
		state:    StateDisconnected,
		outbound: make(map[string]string),
		inbound:  make(map[string]string),
	}
}

// SetRemoteName sets the identity this connection advertises during the
// handshake.
func (c *Connection) SetRemoteName(name string) { c.remoteName = name }

// SetRequestedFields sets the remote field paths this side wants to
// receive on every tick.
func (c *Connection) SetRequestedFields(fields []string) { c.requestedFields = fields }

// SetAvailableOutputs sets the local field paths this side offers to
// send on every tick.
func (c *Connection) SetAvailableOutputs(fields []string) { c.availableFields = fields }

// IsConnected reports whether the transport-level link is up (any state
// other than Disconnected).
func (c *Connection) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state != StateDisconnected
}

// IsReadyForTick reports whether the handshake has completed and tick
// frames are being exchanged.
func (c *Connection) IsReadyForTick() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateTicking
}

// State returns the connection's current lifecycle stage.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// StageOutbound sets the value to send for field on the next tick.
func (c *Connection) StageOutbound(field, value string) {
	c.mu.Lock()
	c.outbound[field] = value
	c.mu.Unlock()
}

// Inbound returns the most recently received value for field, if any.
func (c *Connection) Inbound(field string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.inbound[field]
	return v, ok
}

// Tick advances the connection's state machine, the Go analogue of
// RemoteEngineConnection::tick: it opens the socket if not connected,
// then handshakes if connected-but-not-subscribed, then exchanges a tick
// frame if subscribed or already ticking, so a single call on a fresh
// connection runs all three stages.
func (c *Connection) Tick(ctx context.Context) error {
	if !c.IsConnected() {
		if err := c.openSocket(ctx); err != nil {
			return err
		}
	}
	if c.State() == StateConnected {
		if err := c.handleHandshake(); err != nil {
			c.cleanup()
			return err
		}
	}
	if state := c.State(); state == StateSubscribed || state == StateTicking {
		if err := c.handleTickExchange(); err != nil {
			c.cleanup()
			return err
		}
	}
	return nil
}

func (c *Connection) openSocket(ctx context.Context) error {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.transport.Dial(ctx)
	})
	if err != nil {
		return fmt.Errorf("remote: dial: %w", err)
	}

	conn := result.(io.ReadWriteCloser)
	c.mu.Lock()
	c.conn = conn
	c.enc = json.NewEncoder(conn)
	c.dec = json.NewDecoder(conn)
	c.state = StateConnected
	c.mu.Unlock()

	c.logger.Debug("remote: connected", zap.String("remote", c.remoteName))
	return nil
}

func (c *Connection) handleHandshake() error {
	out := handshakeFrame{RemoteName: c.remoteName, RequestedFields: c.requestedFields, AvailableFields: c.availableFields}
	if c.mode == ModeProactive {
		if err := c.enc.Encode(out); err != nil {
			return fmt.Errorf("remote: handshake send: %w", err)
		}
		var in handshakeFrame
		if err := c.dec.Decode(&in); err != nil {
			return fmt.Errorf("remote: handshake receive: %w", err)
		}
		c.availableFields = in.AvailableFields
	} else {
		var in handshakeFrame
		if err := c.dec.Decode(&in); err != nil {
			return fmt.Errorf("remote: handshake receive: %w", err)
		}
		c.requestedFields = in.RequestedFields
		if err := c.enc.Encode(out); err != nil {
			return fmt.Errorf("remote: handshake send: %w", err)
		}
	}

	c.mu.Lock()
	c.state = StateSubscribed
	c.mu.Unlock()
	return nil
}

func (c *Connection) handleTickExchange() error {
	c.mu.Lock()
	out := tickFrame{Values: make(map[string]string, len(c.outbound))}
	for k, v := range c.outbound {
		out.Values[k] = v
	}
	c.mu.Unlock()

	// Encode/decode order must alternate between the two peers: a
	// synchronous transport like net.Pipe has no internal buffering, so
	// two peers both writing before either reads would deadlock.
	var in tickFrame
	if c.mode == ModeProactive {
		if err := c.enc.Encode(out); err != nil {
			return fmt.Errorf("remote: tick send: %w", err)
		}
		if err := c.dec.Decode(&in); err != nil {
			return fmt.Errorf("remote: tick receive: %w", err)
		}
	} else {
		if err := c.dec.Decode(&in); err != nil {
			return fmt.Errorf("remote: tick receive: %w", err)
		}
		if err := c.enc.Encode(out); err != nil {
			return fmt.Errorf("remote: tick send: %w", err)
		}
	}

	c.mu.Lock()
	c.inbound = in.Values
	c.state = StateTicking
	c.mu.Unlock()
	return nil
}

// Close tears down the transport-level link and resets the connection
// to Disconnected, so a later Tick call dials afresh.
func (c *Connection) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn, c.enc, c.dec = nil, nil, nil
	c.state = StateDisconnected
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Close()
}

func (c *Connection) cleanup() {
	_ = c.Close()
}
