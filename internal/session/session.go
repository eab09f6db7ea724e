// Package session owns matchmaking: which room this process is in and in
// what role.
package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Lyon85/321-Golf/internal/protocol"
	"github.com/Lyon85/321-Golf/internal/transport"
)

const (
	// maxSuffix bounds the ID-2, ID-3, ... probing after a failed join.
	maxSuffix     = 9
	identityChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// Session is this process's single membership in a room.
type Session struct {
	RoomID    string
	Role      protocol.Role
	Slot      int
	Transport transport.Transport
}

func (s *Session) State() transport.State {
	if s == nil || s.Transport == nil {
		return transport.Closed
	}
	return s.Transport.State()
}

func (s *Session) IsHost() bool { return s.Role == protocol.RoleHost }

// NewIdentity generates a shareable persistent identity such as GOLF-7QX2.
func NewIdentity(prefix string, rng *rand.Rand) string {
	var b strings.Builder
	b.WriteString(strings.ToUpper(prefix))
	b.WriteByte('-')
	for i := 0; i < 4; i++ {
		b.WriteByte(identityChars[rng.Intn(len(identityChars))])
	}
	return b.String()
}

// Manager runs the host-or-join flow for one persistent identity.
type Manager struct {
	broker      transport.Broker
	identity    string
	joinTimeout time.Duration
	logger      *log.Logger
	status      func(string)
}

// NewManager creates a matchmaker. An empty identity lets a relay broker
// issue a short room code instead.
func NewManager(broker transport.Broker, identity string, joinTimeout time.Duration, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{
		broker:      broker,
		identity:    identity,
		joinTimeout: joinTimeout,
		logger:      logger,
		status:      func(string) {},
	}
}

// OnStatus sets the lobby label sink.
func (m *Manager) OnStatus(fn func(string)) {
	if fn == nil {
		fn = func(string) {}
	}
	m.status = fn
}

func (m *Manager) Identity() string { return m.identity }

func (m *Manager) setStatus(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	m.logger.Info(msg)
	m.status(msg)
}

// Start hosts on the persistent identity, or joins it as a guest if it is
// taken. A failed join falls back to hosting under a suffixed identity.
func (m *Manager) Start(ctx context.Context) (*Session, error) {
	m.setStatus("Connecting...")
	sess, err := m.host(ctx, m.identity)
	if err == nil {
		return sess, nil
	}
	if !errors.Is(err, transport.ErrIdentityTaken) {
		m.setStatus("Connection failed: %v", err)
		return nil, err
	}

	m.setStatus("%s is in use, joining...", m.identity)
	sess, err = m.join(ctx, m.identity)
	if err == nil {
		return sess, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	switch {
	case errors.Is(err, transport.ErrRoomFull):
		m.setStatus("Room %s is full, hosting instead", m.identity)
	case errors.Is(err, transport.ErrJoinTimeout):
		m.setStatus("Join timed out, hosting instead")
	default:
		m.setStatus("Join failed (%v), hosting instead", err)
	}
	return m.hostSuffixed(ctx)
}

// Rehost recovers after the transport closed. A guest goes back to hosting
// its own identity; a host has nothing to recover here since departed guests
// are handled by participant_left.
func (m *Manager) Rehost(ctx context.Context, prev *Session) (*Session, error) {
	if prev != nil && prev.Transport != nil {
		prev.Transport.Close()
	}
	m.setStatus("Host disconnected, hosting %s", m.displayID())
	return m.Start(ctx)
}

func (m *Manager) displayID() string {
	if m.identity == "" {
		return "a new room"
	}
	return m.identity
}

func (m *Manager) host(ctx context.Context, id string) (*Session, error) {
	t, err := m.broker.Host(ctx, id)
	if err != nil {
		return nil, err
	}
	roomID := id
	if r, ok := t.(interface{ RoomID() string }); ok && r.RoomID() != "" {
		roomID = r.RoomID()
	}
	m.setStatus("Hosting %s", roomID)
	return &Session{RoomID: roomID, Role: protocol.RoleHost, Slot: 0, Transport: t}, nil
}

func (m *Manager) join(ctx context.Context, id string) (*Session, error) {
	jctx, cancel := context.WithTimeout(ctx, m.joinTimeout)
	defer cancel()

	t, slot, err := m.broker.Join(jctx, id)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = fmt.Errorf("%w: %v", transport.ErrJoinTimeout, err)
		}
		return nil, err
	}
	if err := t.Send(protocol.GuestJoined{}); err != nil {
		t.Close()
		return nil, err
	}
	m.setStatus("Joined %s as player %d", id, slot+1)
	return &Session{RoomID: id, Role: protocol.RoleGuest, Slot: slot, Transport: t}, nil
}

func (m *Manager) hostSuffixed(ctx context.Context) (*Session, error) {
	if m.identity == "" {
		return m.host(ctx, "")
	}
	var lastErr error
	for n := 2; n <= maxSuffix; n++ {
		id := fmt.Sprintf("%s-%d", m.identity, n)
		sess, err := m.host(ctx, id)
		if err == nil {
			return sess, nil
		}
		lastErr = err
		if !errors.Is(err, transport.ErrIdentityTaken) {
			break
		}
	}
	m.setStatus("Could not host: %v", lastErr)
	return nil, lastErr
}
