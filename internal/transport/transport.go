// Package transport hides whether a client talks to the other players
// through the relay server or through a direct peer connection.
package transport

import (
	"context"
	"errors"
	"sync"

	"github.com/Lyon85/321-Golf/internal/protocol"
)

var (
	ErrIdentityTaken = errors.New("transport: identity taken")
	ErrRoomFull      = errors.New("transport: room full")
	ErrRoomNotFound  = errors.New("transport: room not found")
	ErrJoinTimeout   = errors.New("transport: join timed out")
	ErrClosed        = errors.New("transport: closed")
)

// State is the connection state of a Transport.
type State int

const (
	Connecting State = iota
	Open
	Closed
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case Closed:
		return "closed"
	default:
		return "connecting"
	}
}

// Transport is one client's connection into a room. Sends never block the
// caller's tick. Handlers may run on transport goroutines and must only
// hand the message off.
type Transport interface {
	Send(msg protocol.Message) error
	OnMessage(fn func(protocol.Envelope))
	OnOpen(fn func())
	OnClose(fn func(error))
	State() State
	Close() error
}

// Broker opens transports. Relayed reports whether a relay server resolves
// world mutations on the host's behalf.
type Broker interface {
	Host(ctx context.Context, roomID string) (Transport, error)
	Join(ctx context.Context, roomID string) (Transport, int, error)
	Relayed() bool
}

// endpoint implements the callback half of Transport. Messages that arrive
// before OnMessage is registered are queued, not dropped: the lobby sends
// assign_player and world_state right after the handshake.
type endpoint struct {
	mu       sync.Mutex
	deliverM sync.Mutex
	state    State
	closeErr error
	onMsg    func(protocol.Envelope)
	backlog  []protocol.Envelope
	onOpen   []func()
	onClose  []func(error)
}

func (e *endpoint) OnMessage(fn func(protocol.Envelope)) {
	e.deliverM.Lock()
	defer e.deliverM.Unlock()
	e.mu.Lock()
	e.onMsg = fn
	backlog := e.backlog
	e.backlog = nil
	e.mu.Unlock()
	for _, env := range backlog {
		fn(env)
	}
}

func (e *endpoint) deliver(env protocol.Envelope) {
	e.deliverM.Lock()
	defer e.deliverM.Unlock()
	e.mu.Lock()
	fn := e.onMsg
	if fn == nil {
		e.backlog = append(e.backlog, env)
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()
	fn(env)
}

func (e *endpoint) OnOpen(fn func()) {
	e.mu.Lock()
	if e.state == Open {
		e.mu.Unlock()
		fn()
		return
	}
	e.onOpen = append(e.onOpen, fn)
	e.mu.Unlock()
}

func (e *endpoint) OnClose(fn func(error)) {
	e.mu.Lock()
	if e.state == Closed {
		err := e.closeErr
		e.mu.Unlock()
		fn(err)
		return
	}
	e.onClose = append(e.onClose, fn)
	e.mu.Unlock()
}

func (e *endpoint) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *endpoint) setOpen() {
	e.mu.Lock()
	if e.state != Connecting {
		e.mu.Unlock()
		return
	}
	e.state = Open
	fns := e.onOpen
	e.onOpen = nil
	e.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// setClosed transitions to Closed once and runs the close handlers.
func (e *endpoint) setClosed(err error) bool {
	e.mu.Lock()
	if e.state == Closed {
		e.mu.Unlock()
		return false
	}
	e.state = Closed
	e.closeErr = err
	fns := e.onClose
	e.onClose = nil
	e.mu.Unlock()
	for _, fn := range fns {
		fn(err)
	}
	return true
}
