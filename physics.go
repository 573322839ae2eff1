package main

import "math"

// Rotation tuning. Spin rates are radians per tick and smoothing factors
// are per-tick pull; both get divided by the sub-step count so the
// per-frame effect stays roughly constant across scroll speeds.
const (
	CubeSpinRate    = 0.20
	BallSpinRate    = 0.16
	RotSnapFactor   = 0.5  // grounded Cube/Robot snap toward the nearest right angle
	RotSmoothFactor = 0.15 // Ship-family smoothing toward the velocity angle
	RotLeadFactor   = 4.0  // Ship-family target angle = atan2(vy, speed*RotLeadFactor)
	WaveAngle       = math.Pi / 4
)

// stepPlayer advances the player one frame: resolve the pending interaction,
// compute the frame velocity once, then move through equal sub-steps with
// collision resolution after each. More sub-steps at higher scroll speed
// bound per-step travel so thin obstacles cannot be tunneled through.
// Remaining sub-steps are abandoned the moment the player dies.
func stepPlayer(p Player, in FrameInput, idx *ChunkIndex, speed float64) (Player, []Event) {
	if !p.Alive {
		return p, nil
	}

	var events []Event
	if in.Interact {
		p, events = applyInteraction(p, in.AutoJump, idx, events)
	}

	p.VY = frameVelocity(p, in.Held, speed)
	if p.SustainLeft > 0 {
		p.SustainLeft--
	}

	steps := int(math.Ceil(speed / SubStepUnit))
	if steps < 1 {
		steps = 1
	}
	stepX := speed / float64(steps)
	stepY := p.VY / float64(steps)

	var buf []int
	for i := 0; i < steps; i++ {
		prevX, prevY := p.X, p.Y
		p.X += stepX
		p.Y += stepY
		p.Grounded = false

		// World bounds: both the floor and the ceiling ground the player
		if p.Y > FloorY {
			p.Y = FloorY
			p.VY = 0
			stepY = 0
			p.Grounded = true
			p.Jumping = false
		} else if p.Y < CeilY+PlayerSize {
			p.Y = CeilY + PlayerSize
			p.VY = 0
			stepY = 0
			p.Grounded = true
			p.Jumping = false
		}

		p, events, buf = resolveStep(p, prevX, prevY, idx, buf, events)
		if !p.Alive {
			break
		}
		if p.Grounded {
			stepY = 0
		}
		p.Rotation = stepRotation(p, speed, steps)
	}

	return p, events
}

// stepRotation applies one sub-step of the per-mode rotation rule
func stepRotation(p Player, speed float64, steps int) float64 {
	inv := 1.0 / float64(steps)

	switch p.Mode {
	case ModeCube, ModeRobot, ModeSpider:
		if p.Grounded {
			target := math.Round(p.Rotation/(math.Pi/2)) * (math.Pi / 2)
			return LerpAngle(p.Rotation, target, RotSnapFactor*inv)
		}
		return p.Rotation + CubeSpinRate*inv*p.GravityDir

	case ModeBall:
		return p.Rotation + BallSpinRate*inv*p.GravityDir

	case ModeWave:
		if p.VY < 0 {
			return -WaveAngle
		}
		return WaveAngle

	default: // Ship, UFO, Swing, Jetpack lean into the velocity vector
		target := math.Atan2(p.VY, speed*RotLeadFactor)
		return LerpAngle(p.Rotation, target, RotSmoothFactor*inv)
	}
}
