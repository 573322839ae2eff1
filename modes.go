package main

// Per-tick physics constants. Jump-type impulses are negative (upward) and
// get multiplied by the gravity direction where the mode honors it.
const (
	CubeGravity        = 0.9
	CubeJump           = -11.0
	RobotGravity       = 0.9
	RobotJump          = -7.0
	RobotSustain       = -0.55
	RobotSustainFrames = 10
	BallGravity        = 0.7
	UFOGravity         = 0.7
	UFOJump            = -8.0
	ShipGravity        = 0.5
	ShipThrust         = -1.1
	JetpackGravity     = 0.6
	JetpackThrust      = -1.3
	SwingGravity       = 0.8
	SpiderGravity      = 0.9
	SpiderScanStep     = 8.0
)

// ModeDef holds the per-mode physics parameters
type ModeDef struct {
	Gravity     float64
	Thrust      float64 // additive accel while thrust is held (Ship/Jetpack)
	Jump        float64 // impulse on interaction
	UsesGravDir bool    // false: gravity direction is pinned at +1
	FlipsGrav   bool    // interaction flips gravity instead of jumping
	AirManual   bool    // manual (non-auto) interactions act while airborne
}

var ModeDefs = [modeCount]ModeDef{
	ModeCube:    {Gravity: CubeGravity, Jump: CubeJump, UsesGravDir: true},
	ModeShip:    {Gravity: ShipGravity, Thrust: ShipThrust},
	ModeBall:    {Gravity: BallGravity, UsesGravDir: true, FlipsGrav: true},
	ModeUFO:     {Gravity: UFOGravity, Jump: UFOJump, AirManual: true},
	ModeWave:    {},
	ModeRobot:   {Gravity: RobotGravity, Jump: RobotJump, UsesGravDir: true},
	ModeSpider:  {Gravity: SpiderGravity, UsesGravDir: true, FlipsGrav: true},
	ModeSwing:   {Gravity: SwingGravity, UsesGravDir: true, FlipsGrav: true, AirManual: true},
	ModeJetpack: {Gravity: JetpackGravity, Thrust: JetpackThrust},
}

// GetModeDef returns the definition for a mode
func GetModeDef(m Mode) ModeDef {
	if m < 0 || m >= modeCount {
		return ModeDefs[ModeCube]
	}
	return ModeDefs[m]
}

// frameVelocity computes the frame's vertical velocity before sub-stepping.
// Velocity is integrated once per frame; only position is sub-stepped.
func frameVelocity(p Player, held bool, speed float64) float64 {
	def := GetModeDef(p.Mode)
	vy := p.VY

	switch p.Mode {
	case ModeWave:
		// Wave is force-set, not integrated: diagonal movement at scroll speed
		if held {
			vy = -speed
		} else {
			vy = speed
		}
	case ModeShip, ModeJetpack:
		vy += def.Gravity
		if held {
			vy += def.Thrust
		}
	case ModeUFO:
		vy += def.Gravity
	case ModeRobot:
		vy += def.Gravity * p.GravityDir
		if held && p.SustainLeft > 0 && !p.Grounded {
			vy += RobotSustain * p.GravityDir
		}
	default: // Cube, Ball, Spider, Swing
		vy += def.Gravity * p.GravityDir
	}

	return Clamp(vy, -MaxVY, MaxVY)
}

// applyInteraction applies one discrete interaction event to the player.
// isAuto marks interactions synthesized by the hold-to-repeat rule; modes
// with AirManual accept manual presses while airborne but never auto ones.
func applyInteraction(p Player, isAuto bool, idx *ChunkIndex, events []Event) (Player, []Event) {
	def := GetModeDef(p.Mode)

	switch p.Mode {
	case ModeCube:
		if !p.Grounded {
			break
		}
		p.VY = def.Jump * p.GravityDir
		p.Jumping = true
		p.Grounded = false
		events = append(events, Event{Type: EvJump})

	case ModeRobot:
		if !p.Grounded {
			break
		}
		p.VY = def.Jump * p.GravityDir
		p.Jumping = true
		p.Grounded = false
		p.SustainLeft = RobotSustainFrames
		events = append(events, Event{Type: EvJump})

	case ModeUFO:
		if !p.Grounded && isAuto {
			break
		}
		p.VY = def.Jump
		p.Grounded = false
		events = append(events, Event{Type: EvJump})

	case ModeBall:
		if !p.Grounded {
			break
		}
		p.GravityDir = -p.GravityDir
		p.VY = 0
		p.Grounded = false

	case ModeSwing:
		if !p.Grounded && isAuto {
			break
		}
		p.GravityDir = -p.GravityDir
		p.Grounded = false

	case ModeSpider:
		if !p.Grounded {
			break
		}
		p.GravityDir = -p.GravityDir
		p.VY = 0
		fromY := p.Y
		p.Y = spiderScan(p, idx)
		p.Grounded = true
		p.Jumping = false
		events = append(events, Event{Type: EvTeleport, FromY: fromY, ToY: p.Y})

	// Ship, Wave, Jetpack: no discrete interaction, thrust state alone drives physics
	}

	return p, events
}

// spiderScan finds the landing y for a Spider gravity-flip teleport: the
// nearest block surface in the new gravity direction that intercepts the
// player's horizontal extent, or the world bound if none does.
func spiderScan(p Player, idx *ChunkIndex) float64 {
	target := FloorY
	if p.GravityDir < 0 {
		target = CeilY + PlayerSize
	}
	if idx == nil {
		return target
	}

	chunk := idx.ChunkOf(p.X)
	left := p.X
	right := p.X + PlayerSize

	// Walk outward from the player's y in fixed increments so the nearest
	// intercepting surface wins regardless of index order.
	for probe := p.Y; ; probe += SpiderScanStep * p.GravityDir {
		if p.GravityDir > 0 && probe > target {
			break
		}
		if p.GravityDir < 0 && probe < target {
			break
		}
		for _, i := range idx.Query(chunk-1, chunk+2) {
			obj := idx.Object(i)
			if obj.Kind != KindBlock {
				continue
			}
			if obj.X+TileSize <= left || obj.X >= right {
				continue
			}
			if p.GravityDir > 0 {
				surface := obj.Y // bottom edge rests on tile top
				if surface >= p.Y && surface <= probe {
					return surface
				}
			} else {
				surface := obj.Y + TileSize + PlayerSize // top edge hangs on tile bottom
				if surface <= p.Y && surface >= probe {
					return surface
				}
			}
		}
	}
	return target
}

// portalTarget maps a portal kind to the mode it morphs the player into
func portalTarget(kind Mode) Mode {
	if kind < 0 || kind >= modeCount {
		return ModeCube
	}
	return kind
}

// morphPlayer applies a portal morph. Re-entering a portal for the current
// mode is a no-op: no event, no gravity reset.
func morphPlayer(p Player, kind Mode, events []Event) (Player, []Event) {
	target := portalTarget(kind)
	if p.Mode == target {
		return p, events
	}
	p.Mode = target
	p.GravityDir = 1
	p.Jumping = false
	p.SustainLeft = 0
	events = append(events, Event{Type: EvMorph, Mode: target.String()})
	return p, events
}
