package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

func setupServer(t *testing.T) (*httptest.Server, *Hub) {
	t.Helper()

	db, err := OpenDB(filepath.Join(t.TempDir(), "integration.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.SeedLevels(); err != nil {
		t.Fatalf("seed: %v", err)
	}

	analytics := NewAnalytics(db)
	hub := NewHub(db, analytics)
	go hub.Run()

	mux := http.NewServeMux()
	SetupRoutes(mux, hub, t.TempDir())
	server := httptest.NewServer(mux)

	t.Cleanup(func() {
		server.Close()
		analytics.Stop()
		db.Close()
	})
	return server, hub
}

func dialWs(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendMsg(t *testing.T, conn *websocket.Conn, msgType string, data interface{}) {
	t.Helper()
	if err := conn.WriteJSON(Envelope{T: msgType, Data: data}); err != nil {
		t.Fatalf("send %s: %v", msgType, err)
	}
}

// awaitEnvelope reads frames until a JSON envelope of the wanted type
// arrives, skipping state broadcasts and unrelated messages
func awaitEnvelope(t *testing.T, conn *websocket.Conn, wantType string) json.RawMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		frameType, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %s: %v", wantType, err)
		}
		if frameType != websocket.TextMessage {
			continue
		}
		var env InEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}
		if env.T == MsgError {
			var e ErrorMsg
			json.Unmarshal(env.D, &e)
			t.Fatalf("waiting for %s, got error: %s", wantType, e.Msg)
		}
		if env.T == wantType {
			return env.D
		}
	}
}

// awaitSnapshot reads frames until a binary state broadcast arrives
func awaitSnapshot(t *testing.T, conn *websocket.Conn) Snapshot {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		frameType, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for snapshot: %v", err)
		}
		if frameType != websocket.BinaryMessage {
			continue
		}
		var snap Snapshot
		if err := msgpack.Unmarshal(data, &snap); err != nil {
			t.Fatalf("decode snapshot: %v", err)
		}
		return snap
	}
}

func TestJoinAndReceiveState(t *testing.T) {
	server, _ := setupServer(t)
	conn := dialWs(t, server)

	sendMsg(t, conn, MsgLevels, nil)
	var levels []LevelInfo
	if err := json.Unmarshal(awaitEnvelope(t, conn, MsgLevelList), &levels); err != nil {
		t.Fatalf("decode level list: %v", err)
	}
	if len(levels) != len(BuiltinLevels()) {
		t.Fatalf("library has %d levels, want %d", len(levels), len(BuiltinLevels()))
	}

	sendMsg(t, conn, MsgJoin, JoinMsg{Name: "tester", LevelID: levels[0].ID})
	var welcome WelcomeMsg
	if err := json.Unmarshal(awaitEnvelope(t, conn, MsgWelcome), &welcome); err != nil {
		t.Fatalf("decode welcome: %v", err)
	}
	if welcome.SessionID == "" || welcome.LevelName != levels[0].Name {
		t.Errorf("welcome = %+v", welcome)
	}
	if welcome.Speed != DefaultScrollSpeed {
		t.Errorf("speed = %v, want default", welcome.Speed)
	}

	snap := awaitSnapshot(t, conn)
	if !snap.Player.Alive {
		t.Error("fresh run snapshot reports a dead player")
	}
	if snap.Player.X < PlayerStartX {
		t.Errorf("player x = %v, before the start position", snap.Player.X)
	}

	// A later snapshot shows forward progress
	time.Sleep(100 * time.Millisecond)
	later := awaitSnapshot(t, conn)
	if later.Player.X <= snap.Player.X {
		t.Errorf("no forward progress: %v -> %v", snap.Player.X, later.Player.X)
	}
}

func TestInputEdgeOverWire(t *testing.T) {
	server, _ := setupServer(t)
	conn := dialWs(t, server)

	sendMsg(t, conn, MsgJoin, JoinMsg{Name: "tester", LevelID: 1})
	awaitEnvelope(t, conn, MsgWelcome)

	sendMsg(t, conn, MsgInput, InputMsg{Pressed: true})
	var ev Event
	if err := json.Unmarshal(awaitEnvelope(t, conn, MsgEvent), &ev); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if ev.Type != EvJump {
		t.Errorf("first event = %s, want jump", ev.Type)
	}
	sendMsg(t, conn, MsgInput, InputMsg{Pressed: false})
}

func TestControllerAttach(t *testing.T) {
	server, _ := setupServer(t)
	desktop := dialWs(t, server)

	sendMsg(t, desktop, MsgJoin, JoinMsg{Name: "tester", LevelID: 1})
	var welcome WelcomeMsg
	json.Unmarshal(awaitEnvelope(t, desktop, MsgWelcome), &welcome)

	phone := dialWs(t, server)
	sendMsg(t, phone, MsgControl, ControlMsg{SID: welcome.SessionID})
	var ok CheckedMsg
	if err := json.Unmarshal(awaitEnvelope(t, phone, MsgControlOK), &ok); err != nil {
		t.Fatalf("decode control_ok: %v", err)
	}
	if !ok.Exists || ok.SID != welcome.SessionID {
		t.Errorf("control_ok = %+v", ok)
	}

	// The desktop learns a controller attached
	awaitEnvelope(t, desktop, MsgCtrlOn)

	// Binary input frames from the phone drive the run
	if err := phone.WriteMessage(websocket.BinaryMessage, []byte{binInputOp, 0x01}); err != nil {
		t.Fatalf("binary input: %v", err)
	}
	var ev Event
	json.Unmarshal(awaitEnvelope(t, desktop, MsgEvent), &ev)
	if ev.Type != EvJump {
		t.Errorf("controller press produced %s, want jump", ev.Type)
	}
}

func TestSessionCheck(t *testing.T) {
	server, _ := setupServer(t)
	conn := dialWs(t, server)

	sendMsg(t, conn, MsgCheck, CheckMsg{SID: "no-such-session"})
	var checked CheckedMsg
	json.Unmarshal(awaitEnvelope(t, conn, MsgChecked), &checked)
	if checked.Exists {
		t.Error("nonexistent session reported as live")
	}
}

func TestAuthOverWire(t *testing.T) {
	server, _ := setupServer(t)
	conn := dialWs(t, server)

	sendMsg(t, conn, MsgRegister, RegisterMsg{Username: "alice", Password: "secret"})
	var authOK AuthOKMsg
	if err := json.Unmarshal(awaitEnvelope(t, conn, MsgAuthOK), &authOK); err != nil {
		t.Fatalf("decode auth_ok: %v", err)
	}
	if authOK.Token == "" || authOK.Username != "alice" {
		t.Errorf("auth_ok = %+v", authOK)
	}

	// The token works for a fresh connection
	conn2 := dialWs(t, server)
	sendMsg(t, conn2, MsgAuth, AuthMsg{Token: authOK.Token})
	var resumed AuthOKMsg
	json.Unmarshal(awaitEnvelope(t, conn2, MsgAuthOK), &resumed)
	if resumed.PlayerID != authOK.PlayerID {
		t.Errorf("token resume gave player %d, want %d", resumed.PlayerID, authOK.PlayerID)
	}

	// The profile reflects the account
	sendMsg(t, conn2, MsgProfile, nil)
	var profile ProfileDataMsg
	json.Unmarshal(awaitEnvelope(t, conn2, MsgProfileData), &profile)
	if profile.Username != "alice" {
		t.Errorf("profile = %+v", profile)
	}
}

func TestStoreOverWire(t *testing.T) {
	server, _ := setupServer(t)
	conn := dialWs(t, server)

	sendMsg(t, conn, MsgStore, nil)
	var store StoreDataMsg
	if err := json.Unmarshal(awaitEnvelope(t, conn, MsgStoreData), &store); err != nil {
		t.Fatalf("decode store: %v", err)
	}
	if len(store.Items) != len(StoreCatalog) {
		t.Errorf("catalog has %d items, want %d", len(store.Items), len(StoreCatalog))
	}

	// Buying requires a login
	sendMsg(t, conn, MsgBuy, BuyMsg{ItemID: "icon_ember"})
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		frameType, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for error: %v", err)
		}
		if frameType != websocket.TextMessage {
			continue
		}
		var env InEnvelope
		if json.Unmarshal(data, &env) == nil && env.T == MsgError {
			break
		}
	}
}

func TestQREndpoint(t *testing.T) {
	server, hub := setupServer(t)

	lvl, err := hub.db.GetLevel(1)
	if err != nil || lvl == nil {
		t.Fatalf("get level: %v", err)
	}
	sess := hub.sessions.CreateSession(lvl, 0, hub.db, hub.analytics)
	sess.Sim.SetClient("keepalive", &mockBroadcaster{})

	resp, err := http.Get(server.URL + "/qr?sid=" + sess.ID)
	if err != nil {
		t.Fatalf("qr request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("qr status = %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !bytes.HasPrefix(body, []byte("\x89PNG")) {
		t.Error("qr response is not a PNG")
	}

	// Unknown sessions get a 404
	missing, err := http.Get(server.URL + "/qr?sid=nope")
	if err != nil {
		t.Fatalf("qr request: %v", err)
	}
	missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Errorf("missing session qr status = %d, want 404", missing.StatusCode)
	}
}

func TestConnectionLimitPerIP(t *testing.T) {
	server, hub := setupServer(t)

	for i := 0; i < maxConnsPerIP; i++ {
		dialWs(t, server)
	}
	// All test dials share one loopback IP, so the next is refused
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("dial above the per-IP limit should fail")
	}
	if resp != nil && resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", resp.StatusCode)
	}
	if hub.TotalConns() > maxConnsPerIP {
		t.Errorf("tracked %d connections, want at most %d", hub.TotalConns(), maxConnsPerIP)
	}
}
