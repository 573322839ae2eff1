package main

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 256

	// Input rate limiting: edges per second any one socket may send
	maxMsgsPerSecond = 120
)

// binaryMarker prefixes pre-encoded binary payloads in the send channel so
// the write pump can pick the right websocket frame type
const binaryMarker = 0xFF

// Binary input frame opcode: [0x01, flags] where flags bit0 is held state
const binInputOp = 0x01

// Client is a middleman between the websocket connection and the hub
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	clientID string
	ip       string
	name     string

	sessionID    string
	isController bool

	authPlayerID int64
	authUsername string

	// Rate limiting window
	msgCount  int
	msgWindow time.Time
}

// NewClient creates a client for an upgraded connection
func NewClient(hub *Hub, conn *websocket.Conn, ip string) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		clientID: GenerateID(8),
		ip:       ip,
	}
}

// SendJSON marshals and queues a message. Drops it if the buffer is full
// rather than stalling the frame loop.
func (c *Client) SendJSON(msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// SendBinary queues a pre-encoded binary payload (msgpack snapshot)
func (c *Client) SendBinary(data []byte) {
	marked := make([]byte, len(data)+1)
	marked[0] = binaryMarker
	copy(marked[1:], data)
	select {
	case c.send <- marked:
	default:
	}
}

func (c *Client) sendError(msg string) {
	c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: msg}})
}

// allowMessage applies per-socket rate limiting
func (c *Client) allowMessage() bool {
	now := time.Now()
	if now.Sub(c.msgWindow) >= time.Second {
		c.msgWindow = now
		c.msgCount = 0
	}
	c.msgCount++
	return c.msgCount <= maxMsgsPerSecond
}

// ReadPump reads messages from the websocket and dispatches them
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
		c.hub.TrackDisconnect(c.ip)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("websocket error: %v", err)
			}
			return
		}
		if !c.allowMessage() {
			continue
		}
		if msgType == websocket.BinaryMessage {
			c.handleBinary(data)
			continue
		}
		c.handleMessage(data)
	}
}

// WritePump writes messages from the send channel to the websocket
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if len(data) > 0 && data[0] == binaryMarker {
				if err := c.conn.WriteMessage(websocket.BinaryMessage, data[1:]); err != nil {
					return
				}
			} else {
				if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
					return
				}
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleBinary processes compact input frames from controller clients.
// Layout: [opcode, flags]; flags bit0 is the held state.
func (c *Client) handleBinary(data []byte) {
	if len(data) < 2 || data[0] != binInputOp {
		return
	}
	sess := c.session()
	if sess == nil {
		return
	}
	sess.Sim.HandleInput(data[1]&0x01 != 0)
}

func (c *Client) session() *Session {
	if c.sessionID == "" {
		return nil
	}
	return c.hub.sessions.GetSession(c.sessionID)
}

// handleMessage routes one JSON envelope
func (c *Client) handleMessage(data []byte) {
	var env InEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.sendError("invalid message")
		return
	}

	switch env.T {
	case MsgJoin:
		c.handleJoin(env.D)
	case MsgLeave:
		c.handleLeave()
	case MsgInput:
		c.handleInput(env.D)
	case MsgPause:
		if sess := c.session(); sess != nil {
			sess.Sim.Pause()
		}
	case MsgResume:
		if sess := c.session(); sess != nil {
			sess.Sim.Resume()
		}
	case MsgRestart:
		if sess := c.session(); sess != nil {
			sess.Sim.Restart()
		}
	case MsgLevels:
		c.handleLevels()
	case MsgCheck:
		c.handleCheck(env.D)
	case MsgControl:
		c.handleControl(env.D)
	case MsgRegister:
		c.handleRegister(env.D)
	case MsgLogin:
		c.handleLogin(env.D)
	case MsgAuth:
		c.handleAuth(env.D)
	case MsgProfile:
		c.handleProfile()
	case MsgBoard:
		c.handleBoard(env.D)
	case MsgStore:
		c.handleStore()
	case MsgBuy:
		c.handleBuy(env.D)
	default:
		c.sendError("unknown message type")
	}
}

func (c *Client) handleJoin(data json.RawMessage) {
	var msg JoinMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("invalid join message")
		return
	}
	if c.sessionID != "" {
		c.handleLeave()
	}

	level, err := c.hub.db.GetLevel(msg.LevelID)
	if err != nil || level == nil {
		c.sendError("level not found")
		return
	}

	sess := c.hub.sessions.CreateSession(level, msg.Speed, c.hub.db, c.hub.analytics)
	if sess == nil {
		c.sendError("server full")
		return
	}

	c.name = msg.Name
	if c.name == "" {
		if c.authUsername != "" {
			c.name = c.authUsername
		} else {
			c.name = GenerateGuestName()
		}
	}
	c.sessionID = sess.ID
	c.isController = false
	sess.Sim.SetOwner(c.clientID, c, c.authPlayerID, c.name)

	if c.hub.analytics != nil {
		c.hub.analytics.Track(EvtRunStart, c.authPlayerID, level.Name, "")
	}

	c.SendJSON(Envelope{T: MsgWelcome, Data: WelcomeMsg{
		SessionID:   sess.ID,
		LevelID:     level.ID,
		LevelName:   level.Name,
		Difficulty:  level.Difficulty,
		WinDistance: level.WinDistance,
		Speed:       sess.Sim.Speed(),
	}})
}

func (c *Client) handleLeave() {
	if c.sessionID == "" {
		return
	}
	c.hub.detach(c)
	c.sessionID = ""
	c.isController = false
}

func (c *Client) handleInput(data json.RawMessage) {
	var msg InputMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	if sess := c.session(); sess != nil {
		sess.Sim.HandleInput(msg.Pressed)
	}
}

func (c *Client) handleLevels() {
	infos, err := c.hub.db.ListLevels()
	if err != nil {
		c.sendError("database error")
		return
	}
	c.SendJSON(Envelope{T: MsgLevelList, Data: infos})
}

func (c *Client) handleCheck(data json.RawMessage) {
	var msg CheckMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("invalid check message")
		return
	}
	resp := CheckedMsg{SID: msg.SID}
	if sess := c.hub.sessions.GetSession(msg.SID); sess != nil {
		resp.Exists = true
		resp.Level = sess.Level.Name
	}
	c.SendJSON(Envelope{T: MsgChecked, Data: resp})
}

func (c *Client) handleControl(data json.RawMessage) {
	var msg ControlMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("invalid control message")
		return
	}
	sess := c.hub.sessions.GetSession(msg.SID)
	if sess == nil {
		c.sendError("session not found")
		return
	}
	if c.sessionID != "" {
		c.handleLeave()
	}
	c.sessionID = sess.ID
	c.isController = true
	sess.Sim.SetClient(c.clientID, c)
	c.SendJSON(Envelope{T: MsgControlOK, Data: CheckedMsg{SID: sess.ID, Exists: true, Level: sess.Level.Name}})
	sess.Sim.Broadcast(Envelope{T: MsgCtrlOn})
}

func (c *Client) handleRegister(data json.RawMessage) {
	var msg RegisterMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("invalid register message")
		return
	}
	id, token, err := c.hub.auth.Register(msg.Username, msg.Password)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	c.setAuthed(id, msg.Username, token)
}

func (c *Client) handleLogin(data json.RawMessage) {
	var msg LoginMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("invalid login message")
		return
	}
	id, token, err := c.hub.auth.Login(msg.Username, msg.Password, c.ip)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	c.setAuthed(id, msg.Username, token)
}

func (c *Client) handleAuth(data json.RawMessage) {
	var msg AuthMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("invalid auth message")
		return
	}
	id, username, err := c.hub.auth.ValidateToken(msg.Token)
	if err != nil {
		c.sendError("invalid or expired token")
		return
	}
	c.setAuthed(id, username, msg.Token)
}

func (c *Client) setAuthed(id int64, username, token string) {
	c.authPlayerID = id
	c.authUsername = username
	c.hub.SetOnline(id, c)
	c.SendJSON(Envelope{T: MsgAuthOK, Data: AuthOKMsg{
		Token:    token,
		Username: username,
		PlayerID: id,
	}})
}

func (c *Client) handleProfile() {
	if c.authPlayerID == 0 {
		c.sendError("not logged in")
		return
	}
	player, err := c.hub.db.GetPlayerByID(c.authPlayerID)
	if err != nil || player == nil {
		c.sendError("database error")
		return
	}
	attempts, completions, bestPercent, err := c.hub.db.GetRunTotals(c.authPlayerID)
	if err != nil {
		c.sendError("database error")
		return
	}
	c.SendJSON(Envelope{T: MsgProfileData, Data: ProfileDataMsg{
		Username:    player.Username,
		Credits:     player.Credits,
		Attempts:    attempts,
		Completions: completions,
		BestPercent: bestPercent,
	}})
}

func (c *Client) handleBoard(data json.RawMessage) {
	var msg BoardMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("invalid board message")
		return
	}
	entries, err := c.hub.db.GetLevelBoard(msg.LevelID, 20)
	if err != nil {
		c.sendError("database error")
		return
	}
	c.SendJSON(Envelope{T: MsgBoardData, Data: entries})
}

func (c *Client) handleStore() {
	resp := StoreDataMsg{Items: StoreCatalog}
	if c.authPlayerID != 0 {
		if owned, err := c.hub.db.GetUnlocks(c.authPlayerID); err == nil {
			resp.Owned = owned
		}
		if credits, err := c.hub.db.GetCredits(c.authPlayerID); err == nil {
			resp.Credits = credits
		}
	}
	c.SendJSON(Envelope{T: MsgStoreData, Data: resp})
}

func (c *Client) handleBuy(data json.RawMessage) {
	if c.authPlayerID == 0 {
		c.sendError("not logged in")
		return
	}
	var msg BuyMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("invalid buy message")
		return
	}
	item, err := PurchaseItem(c.hub.db, c.authPlayerID, msg.ItemID)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	if c.hub.analytics != nil {
		c.hub.analytics.Track(EvtPurchase, c.authPlayerID, item.ID, "")
	}
	c.SendJSON(Envelope{T: MsgBought, Data: item})
}
