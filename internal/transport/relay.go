package transport

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/Lyon85/321-Golf/internal/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 64 * 1024
	sendBuffer     = 256
)

// RelayBroker opens rooms on the relay server over a websocket.
type RelayBroker struct {
	URL    string
	Token  string
	Dialer *websocket.Dialer
	Logger *log.Logger
}

func (b *RelayBroker) Relayed() bool { return true }

func (b *RelayBroker) logger() *log.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return log.Default()
}

func (b *RelayBroker) dial(ctx context.Context) (*websocket.Conn, error) {
	u, err := url.Parse(b.URL)
	if err != nil {
		return nil, fmt.Errorf("relay url: %w", err)
	}
	if b.Token != "" {
		q := u.Query()
		q.Set("token", b.Token)
		u.RawQuery = q.Encode()
	}
	d := b.Dialer
	if d == nil {
		d = websocket.DefaultDialer
	}
	conn, _, err := d.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial relay: %w", err)
	}
	return conn, nil
}

// Host opens roomID on the relay. An empty roomID asks the relay to
// generate a short code.
func (b *RelayBroker) Host(ctx context.Context, roomID string) (Transport, error) {
	t, _, err := b.open(ctx, protocol.HostRoom{RoomID: roomID})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (b *RelayBroker) Join(ctx context.Context, roomID string) (Transport, int, error) {
	return b.open(ctx, protocol.JoinRoom{RoomID: roomID})
}

func (b *RelayBroker) open(ctx context.Context, req protocol.Message) (*WSTransport, int, error) {
	conn, err := b.dial(ctx)
	if err != nil {
		return nil, 0, err
	}
	frame, err := protocol.Marshal(req)
	if err != nil {
		conn.Close()
		return nil, 0, err
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		conn.Close()
		return nil, 0, fmt.Errorf("send %s: %w", req.MessageType(), err)
	}

	joined, early, err := handshake(ctx, conn)
	if err != nil {
		conn.Close()
		return nil, 0, err
	}
	t := newWSTransport(conn, joined.RoomID, b.logger())
	t.backlog = early
	t.start()
	b.logger().Info("relay room open", "room", joined.RoomID, "role", joined.Role, "slot", joined.Slot)
	return t, joined.Slot, nil
}

// handshake reads frames until the relay answers the lobby request. Frames
// that arrive in the same burst are returned for the transport's backlog.
func handshake(ctx context.Context, conn *websocket.Conn) (protocol.Joined, []protocol.Envelope, error) {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.SetReadDeadline(time.Now())
		case <-stop:
		}
	}()
	if dl, ok := ctx.Deadline(); ok {
		conn.SetReadDeadline(dl)
	}

	var early []protocol.Envelope
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				if errors.Is(ctx.Err(), context.DeadlineExceeded) {
					return protocol.Joined{}, nil, ErrJoinTimeout
				}
				return protocol.Joined{}, nil, ctx.Err()
			}
			return protocol.Joined{}, nil, fmt.Errorf("relay handshake: %w", err)
		}
		env, err := protocol.Unmarshal(data)
		if err != nil {
			continue
		}
		switch env.Type {
		case protocol.TypeJoined:
			j, err := protocol.DecodeAs[protocol.Joined](env)
			if err != nil {
				return protocol.Joined{}, nil, err
			}
			return j, early, nil
		case protocol.TypeIDTaken:
			return protocol.Joined{}, nil, ErrIdentityTaken
		case protocol.TypeRoomFull:
			return protocol.Joined{}, nil, ErrRoomFull
		case protocol.TypeErrorMsg:
			m, _ := protocol.DecodeAs[protocol.ErrorMsg](env)
			if strings.Contains(strings.ToLower(m.Reason), "not found") {
				return protocol.Joined{}, nil, fmt.Errorf("%w: %s", ErrRoomNotFound, m.Reason)
			}
			return protocol.Joined{}, nil, fmt.Errorf("relay: %s", m.Reason)
		default:
			early = append(early, env)
		}
	}
}

// WSTransport is an open relay connection with the usual read and write
// pumps.
type WSTransport struct {
	endpoint
	conn      *websocket.Conn
	roomID    string
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	logger    *log.Logger
}

func newWSTransport(conn *websocket.Conn, roomID string, logger *log.Logger) *WSTransport {
	return &WSTransport{
		conn:   conn,
		roomID: roomID,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// RoomID is the room the relay placed us in; generated when we asked for
// none.
func (t *WSTransport) RoomID() string { return t.roomID }

func (t *WSTransport) start() {
	t.setOpen()
	go t.writePump()
	go t.readPump()
}

func (t *WSTransport) Send(msg protocol.Message) error {
	data, err := protocol.Marshal(msg)
	if err != nil {
		return err
	}
	select {
	case <-t.done:
		return ErrClosed
	default:
	}
	select {
	case t.send <- data:
		return nil
	default:
		t.logger.Warn("send buffer full, dropping", "type", msg.MessageType())
		return nil
	}
}

func (t *WSTransport) Close() error {
	t.shutdown(nil)
	return nil
}

func (t *WSTransport) shutdown(err error) {
	t.closeOnce.Do(func() {
		close(t.done)
		t.setClosed(err)
	})
}

func (t *WSTransport) readPump() {
	defer func() {
		t.conn.Close()
	}()
	t.conn.SetReadLimit(maxMessageSize)
	t.conn.SetReadDeadline(time.Now().Add(pongWait))
	t.conn.SetPongHandler(func(string) error {
		t.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := t.conn.ReadMessage()
		if err != nil {
			select {
			case <-t.done:
				t.shutdown(nil)
			default:
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					t.logger.Warn("relay read error", "error", err)
				}
				t.shutdown(fmt.Errorf("%w: %v", ErrClosed, err))
			}
			return
		}
		env, err := protocol.Unmarshal(data)
		if err != nil {
			t.logger.Debug("dropping bad frame", "error", err)
			continue
		}
		t.deliver(env)
	}
}

func (t *WSTransport) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		t.conn.Close()
	}()

	for {
		select {
		case data := <-t.send:
			t.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := t.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				t.shutdown(fmt.Errorf("%w: %v", ErrClosed, err))
				return
			}
		case <-ticker.C:
			t.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := t.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				t.shutdown(fmt.Errorf("%w: %v", ErrClosed, err))
				return
			}
		case <-t.done:
			t.conn.SetWriteDeadline(time.Now().Add(writeWait))
			t.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
