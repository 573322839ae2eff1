package main

// World geometry (source units). The y axis grows downward: 0 is the
// ceiling, FloorY is the ground surface the player rests on. Player.Y is the
// player's bottom edge (resting on the floor means Y == FloorY); object Y is
// the tile's top edge, so a tile flush with the ground sits at FloorY-TileSize.
const (
	FloorY     = 360.0
	CeilY      = 0.0
	TileSize   = 32.0
	PlayerSize = 32.0

	PlayerStartX = 50.0
	CameraOffset = 150.0 // camera follows at player.X - CameraOffset
)

// Scroll speed is horizontal displacement per tick
const (
	DefaultScrollSpeed = 5.0
	MinScrollSpeed     = 1.0
	MaxScrollSpeed     = 12.0
	SubStepUnit        = 4.0 // steps = ceil(speed / SubStepUnit)
)

const (
	MaxVY          = 15.0
	MinWinDistance = 2000.0
	WinMargin      = 1000.0 // winDistance = max(MinWinDistance, maxObjectX+WinMargin)
)

// Mode is the player's current movement archetype
type Mode int

const (
	ModeCube Mode = iota
	ModeShip
	ModeBall
	ModeUFO
	ModeWave
	ModeRobot
	ModeSpider
	ModeSwing
	ModeJetpack
	modeCount
)

var modeNames = [modeCount]string{
	"cube", "ship", "ball", "ufo", "wave", "robot", "spider", "swing", "jetpack",
}

func (m Mode) String() string {
	if m < 0 || m >= modeCount {
		return "unknown"
	}
	return modeNames[m]
}

// Player is the single dynamic entity of a run. It is treated as a value:
// stepPlayer takes a Player and returns the next one; the Sim owns the only
// live copy.
type Player struct {
	X, Y        float64
	VY          float64
	Rotation    float64 // radians
	Mode        Mode
	GravityDir  float64 // +1 pulls toward FloorY, -1 toward CeilY
	Alive       bool
	Grounded    bool
	Jumping     bool // set by Cube/Robot jumps, drives rotation snapping
	SustainLeft int  // remaining Robot thrust-sustain frames
}

// NewPlayer returns the initial player state for a run
func NewPlayer() Player {
	return Player{
		X:          PlayerStartX,
		Y:          FloorY,
		Mode:       ModeCube,
		GravityDir: 1,
		Alive:      true,
		Grounded:   true,
	}
}

// ToState converts to the protocol snapshot pose
func (p Player) ToState() PlayerState {
	return PlayerState{
		X:        p.X,
		Y:        p.Y,
		R:        p.Rotation,
		VY:       p.VY,
		Mode:     int(p.Mode),
		Grav:     p.GravityDir,
		Alive:    p.Alive,
		Grounded: p.Grounded,
	}
}
