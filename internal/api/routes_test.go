package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/Lyon85/321-Golf/internal/admin"
	"github.com/Lyon85/321-Golf/internal/api/handlers"
	"github.com/Lyon85/321-Golf/internal/config"
	"github.com/Lyon85/321-Golf/internal/models"
	"github.com/Lyon85/321-Golf/internal/protocol"
	"github.com/Lyon85/321-Golf/internal/store"
	"github.com/Lyon85/321-Golf/internal/ws"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeHistory struct {
	rooms map[string]*models.RoomHistory
}

func (f *fakeHistory) History(_ context.Context, code string) (*models.RoomHistory, error) {
	if h, ok := f.rooms[code]; ok {
		return h, nil
	}
	return nil, fmt.Errorf("%w: room %s", store.ErrNotFound, code)
}

func (f *fakeHistory) Recent(_ context.Context, limit int) ([]models.Room, error) {
	var out []models.Room
	for _, h := range f.rooms {
		out = append(out, h.Room)
	}
	return out, nil
}

type testServer struct {
	router *gin.Engine
	hub    *ws.Hub
	cfg    *config.Config
	stop   context.CancelFunc
}

func newTestServer(t *testing.T, history handlers.History) *testServer {
	t.Helper()
	hash, err := admin.HashToken("admin-token")
	if err != nil {
		t.Fatal(err)
	}
	cfg := &config.Config{
		Environment:    "development",
		JWTSecret:      "test-secret",
		IdentityPrefix: "GOLF",
		AdminTokenHash: hash,
		RoomMaxGuests:  1,
		RoomItemCount:  5,
		WorldWidth:     1000,
		WorldHeight:    1000,
	}
	hub := ws.NewHub(cfg, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	router := gin.New()
	SetupRoutes(router, Deps{Config: cfg, Tuning: config.DefaultTuning(), Hub: hub, History: history})
	return &testServer{router: router, hub: hub, cfg: cfg, stop: cancel}
}

func (s *testServer) do(t *testing.T, method, path string, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func TestHealthAndConfig(t *testing.T) {
	s := newTestServer(t, nil)

	if w := s.do(t, http.MethodGet, "/api/v1/health", ""); w.Code != http.StatusOK {
		t.Errorf("health = %d", w.Code)
	}

	w := s.do(t, http.MethodGet, "/api/v1/config", "")
	if w.Code != http.StatusOK {
		t.Fatalf("config = %d", w.Code)
	}
	var body struct {
		Tuning    config.Tuning `json:"tuning"`
		MaxGuests int           `json:"max_guests"`
	}
	decodeBody(t, w, &body)
	if body.Tuning.TickRateHz != config.DefaultTuning().TickRateHz {
		t.Errorf("tick rate = %d", body.Tuning.TickRateHz)
	}
	if body.MaxGuests != 1 {
		t.Errorf("max guests = %d", body.MaxGuests)
	}
}

func TestIdentityIssueAndRenew(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodPost, "/api/v1/identity", "")
	if w.Code != http.StatusCreated {
		t.Fatalf("issue = %d %s", w.Code, w.Body.String())
	}
	var issued struct {
		Identity string `json:"identity"`
		Token    string `json:"token"`
	}
	decodeBody(t, w, &issued)
	if !strings.HasPrefix(issued.Identity, "GOLF-") || issued.Token == "" {
		t.Fatalf("issued %+v", issued)
	}

	w = s.do(t, http.MethodPost, "/api/v1/identity", `{"token":"`+issued.Token+`"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("renew = %d %s", w.Code, w.Body.String())
	}
	var renewed struct {
		Identity string `json:"identity"`
	}
	decodeBody(t, w, &renewed)
	if renewed.Identity != issued.Identity {
		t.Errorf("renewed %q, want %q", renewed.Identity, issued.Identity)
	}

	if w := s.do(t, http.MethodPost, "/api/v1/identity", `{"token":"garbage"}`); w.Code != http.StatusUnauthorized {
		t.Errorf("bad token = %d", w.Code)
	}
}

func TestWebSocketRejectsBadToken(t *testing.T) {
	s := newTestServer(t, nil)
	if w := s.do(t, http.MethodGet, "/api/v1/ws?token=nope", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d", w.Code)
	}
}

func TestRoomHistory(t *testing.T) {
	if w := newTestServer(t, nil).do(t, http.MethodGet, "/api/v1/rooms/ABCD/history", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("without store = %d", w.Code)
	}

	hist := &fakeHistory{rooms: map[string]*models.RoomHistory{
		"ABCD": {Room: models.Room{ID: 1, Code: "ABCD"}, Holes: []models.HoleResult{{HoleIndex: 0, PlayerIndex: 1}}},
	}}
	s := newTestServer(t, hist)

	w := s.do(t, http.MethodGet, "/api/v1/rooms/abcd/history", "")
	if w.Code != http.StatusOK {
		t.Fatalf("history = %d", w.Code)
	}
	var got models.RoomHistory
	decodeBody(t, w, &got)
	if got.Room.Code != "ABCD" || len(got.Holes) != 1 {
		t.Errorf("history = %+v", got)
	}

	if w := s.do(t, http.MethodGet, "/api/v1/rooms/ZZZZ/history", ""); w.Code != http.StatusNotFound {
		t.Errorf("unknown = %d", w.Code)
	}
}

func TestAdminRequiresToken(t *testing.T) {
	s := newTestServer(t, nil)
	if w := s.do(t, http.MethodGet, "/api/v1/admin/rooms", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("no token = %d", w.Code)
	}
	w := s.do(t, http.MethodGet, "/api/v1/admin/rooms", "", "Authorization", "Bearer admin-token")
	if w.Code != http.StatusOK {
		t.Fatalf("with token = %d", w.Code)
	}
	var body struct {
		Rooms []ws.RoomInfo `json:"rooms"`
	}
	decodeBody(t, w, &body)
	if len(body.Rooms) != 0 {
		t.Errorf("rooms = %v", body.Rooms)
	}
}

func readEnvelope(t *testing.T, conn *websocket.Conn) protocol.Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	env, err := protocol.Unmarshal(data)
	if err != nil {
		t.Fatalf("unmarshal %q: %v", data, err)
	}
	return env
}

// TestRelayRoundTrip hosts a room over a real websocket, finds it through
// the HTTP API and closes it as admin.
func TestRelayRoundTrip(t *testing.T) {
	s := newTestServer(t, nil)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	frame, err := protocol.Marshal(protocol.HostRoom{RoomID: "TEST"})
	if err != nil {
		t.Fatal(err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		t.Fatalf("write: %v", err)
	}
	if env := readEnvelope(t, conn); env.Type != protocol.TypeJoined {
		t.Fatalf("first frame %s", env.Type)
	}

	w := s.do(t, http.MethodGet, "/api/v1/rooms/test", "")
	if w.Code != http.StatusOK {
		t.Fatalf("room lookup = %d", w.Code)
	}
	var info ws.RoomInfo
	decodeBody(t, w, &info)
	if info.Code != "TEST" || info.Players != 1 || info.ItemsLeft != 5 {
		t.Errorf("info = %+v", info)
	}

	w = s.do(t, http.MethodDelete, "/api/v1/admin/rooms/TEST", "", "Authorization", "Bearer admin-token")
	if w.Code != http.StatusOK {
		t.Fatalf("close = %d", w.Code)
	}
	if _, ok, err := s.hub.Room("TEST"); err != nil || ok {
		t.Error("room still open after admin close")
	}

	// The hub closes the host's connection with the room.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, _, err := conn.ReadMessage()
		if err == nil {
			continue
		}
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			t.Fatalf("connection not closed: %v", err)
		}
		break
	}

	if w := s.do(t, http.MethodGet, "/api/v1/rooms/TEST", ""); w.Code != http.StatusNotFound {
		t.Errorf("closed room lookup = %d", w.Code)
	}
}

func TestStoppedRelayUnavailable(t *testing.T) {
	s := newTestServer(t, nil)
	s.stop()

	// The hub may serve a call or two before it notices the cancel.
	deadline := time.Now().Add(2 * time.Second)
	for {
		w := s.do(t, http.MethodGet, "/api/v1/rooms/ABCD", "")
		if w.Code == http.StatusServiceUnavailable {
			break
		}
		if w.Code != http.StatusNotFound || time.Now().After(deadline) {
			t.Fatalf("room lookup on stopped hub = %d", w.Code)
		}
		time.Sleep(10 * time.Millisecond)
	}

	if w := s.do(t, http.MethodGet, "/api/v1/admin/rooms", "", "Authorization", "Bearer admin-token"); w.Code != http.StatusServiceUnavailable {
		t.Errorf("admin rooms = %d", w.Code)
	}
	if w := s.do(t, http.MethodDelete, "/api/v1/admin/rooms/ABCD", "", "Authorization", "Bearer admin-token"); w.Code != http.StatusServiceUnavailable {
		t.Errorf("admin close = %d", w.Code)
	}
}
