package main

import "encoding/json"

// Client -> Server message types
const (
	MsgJoin     = "join"    // start a run
	MsgLeave    = "leave"
	MsgInput    = "input"   // press/release edge
	MsgPause    = "pause"
	MsgResume   = "resume"
	MsgRestart  = "restart"
	MsgLevels   = "levels"  // list the level library
	MsgCheck    = "check"   // check if a session exists
	MsgControl  = "control" // phone controller attach
	MsgRegister = "register"
	MsgLogin    = "login"
	MsgAuth     = "auth"
	MsgProfile  = "profile"
	MsgBoard    = "board" // per-level leaderboard
	MsgStore    = "store" // cosmetics catalog + owned items
	MsgBuy      = "buy"
)

// Server -> Client message types
const (
	MsgState       = "state" // msgpack binary snapshot
	MsgWelcome     = "welcome"
	MsgJoined      = "joined"
	MsgEvent       = "event"
	MsgLevelList   = "level_list"
	MsgChecked     = "checked"
	MsgControlOK   = "control_ok"
	MsgCtrlOn      = "ctrl_on"  // notify desktop: controller attached
	MsgCtrlOff     = "ctrl_off" // notify desktop: controller detached
	MsgAuthOK      = "auth_ok"
	MsgProfileData = "profile_data"
	MsgBoardData   = "board_data"
	MsgStoreData   = "store_data"
	MsgBought      = "bought"
	MsgUnlocked    = "unlocked" // achievement unlocked
	MsgError       = "error"
)

// Discrete simulation event types, fire-and-forget for VFX/audio clients
const (
	EvJump     = "jump"
	EvDeath    = "death"
	EvMorph    = "morph"
	EvTeleport = "teleport"
	EvWin      = "win"
)

// Event is one discrete simulation event stamped to the frame it occurred in
type Event struct {
	Type  string  `json:"type"`
	Frame uint64  `json:"frame"`
	Mode  string  `json:"mode,omitempty"`  // morph target
	FromY float64 `json:"fromY,omitempty"` // teleport origin
	ToY   float64 `json:"toY,omitempty"`   // teleport destination
}

// Envelope wraps all outgoing messages with a type field
type Envelope struct {
	T    string      `json:"t"`
	Data interface{} `json:"d,omitempty"`
}

// InEnvelope is used for incoming messages — json.RawMessage avoids double-unmarshal
type InEnvelope struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d,omitempty"`
}

// JoinMsg starts a run on a level
type JoinMsg struct {
	Name    string  `json:"name"`
	LevelID int64   `json:"lvl"`
	Speed   float64 `json:"speed,omitempty"` // 0 means DefaultScrollSpeed
}

// InputMsg carries one input edge
type InputMsg struct {
	Pressed bool `json:"p"`
}

// PlayerState is the snapshot pose of the runner
type PlayerState struct {
	X        float64 `json:"x" msgpack:"x"`
	Y        float64 `json:"y" msgpack:"y"`
	R        float64 `json:"r" msgpack:"r"`
	VY       float64 `json:"vy" msgpack:"vy"`
	Mode     int     `json:"m" msgpack:"m"`
	Grav     float64 `json:"g" msgpack:"g"`
	Alive    bool    `json:"a" msgpack:"a"`
	Grounded bool    `json:"gr" msgpack:"gr"`
}

// Snapshot is the full per-tick state broadcast, polled by render clients
type Snapshot struct {
	Player  PlayerState `json:"p" msgpack:"p"`
	CameraX float64     `json:"cx" msgpack:"cx"`
	Percent float64     `json:"pct" msgpack:"pct"`
	Elapsed float64     `json:"el" msgpack:"el"` // seconds, pauses excluded
	Frame   uint64      `json:"f" msgpack:"f"`
	Status  int         `json:"st" msgpack:"st"`
	Paused  bool        `json:"pa" msgpack:"pa"`
}

// WelcomeMsg is sent when a run starts
type WelcomeMsg struct {
	SessionID   string  `json:"sid"`
	LevelID     int64   `json:"lvl"`
	LevelName   string  `json:"name"`
	Difficulty  string  `json:"diff"`
	WinDistance float64 `json:"win"`
	Speed       float64 `json:"speed"`
}

// LevelInfo describes one library level
type LevelInfo struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Difficulty string `json:"diff"`
	Objects    int    `json:"objects"`
}

// CheckMsg asks whether a session exists
type CheckMsg struct {
	SID string `json:"sid"`
}

// CheckedMsg is the response to a session check
type CheckedMsg struct {
	SID    string `json:"sid"`
	Exists bool   `json:"exists"`
	Level  string `json:"level,omitempty"`
}

// ControlMsg attaches a phone controller to a running session
type ControlMsg struct {
	SID string `json:"sid"`
}

// RegisterMsg creates an account
type RegisterMsg struct {
	Username string `json:"u"`
	Password string `json:"p"`
}

// LoginMsg authenticates with credentials
type LoginMsg struct {
	Username string `json:"u"`
	Password string `json:"p"`
}

// AuthMsg authenticates with a stored token
type AuthMsg struct {
	Token string `json:"tok"`
}

// AuthOKMsg confirms authentication
type AuthOKMsg struct {
	Token    string `json:"tok"`
	Username string `json:"u"`
	PlayerID int64  `json:"pid"`
}

// ProfileDataMsg returns the caller's aggregate record
type ProfileDataMsg struct {
	Username    string  `json:"u"`
	Credits     int     `json:"credits"`
	Attempts    int     `json:"attempts"`
	Completions int     `json:"completions"`
	BestPercent float64 `json:"best"`
}

// BoardMsg requests a per-level leaderboard
type BoardMsg struct {
	LevelID int64 `json:"lvl"`
}

// BoardEntry is one leaderboard row
type BoardEntry struct {
	Rank        int     `json:"rank"`
	Username    string  `json:"u"`
	BestPercent float64 `json:"best"`
	BestTime    float64 `json:"time,omitempty"`
	Completions int     `json:"completions"`
}

// BuyMsg purchases a cosmetic item
type BuyMsg struct {
	ItemID string `json:"item"`
}

// StoreDataMsg returns the catalog and the caller's owned items
type StoreDataMsg struct {
	Items   []StoreItem `json:"items"`
	Owned   []string    `json:"owned"`
	Credits int         `json:"credits"`
}

// ErrorMsg sends an error to the client
type ErrorMsg struct {
	Msg string `json:"msg"`
}
