package main

// Collision tuning (source units)
const (
	HitboxInset        = 4.0  // player hit box is inset this much per side
	SpikeInset         = 4.0  // spike kill triangle shrinks by this much
	LandTolerance      = 12.0 // previous-position band that classifies block contact as landing
	PortalHitboxHeight = 150.0
	PortalEdgeEpsilon  = 15.0 // leading-edge gate for portal triggering
)

// hitBox is the player's shrunk collision rectangle
type hitBox struct {
	left, right, top, bottom float64
}

func playerHitBox(p Player) hitBox {
	return hitBox{
		left:   p.X + HitboxInset,
		right:  p.X + PlayerSize - HitboxInset,
		top:    p.Y - PlayerSize + HitboxInset,
		bottom: p.Y - HitboxInset,
	}
}

func (h hitBox) overlaps(left, top, right, bottom float64) bool {
	return h.right > left && h.left < right && h.bottom > top && h.top < bottom
}

func (h hitBox) contains(x, y float64) bool {
	return x >= h.left && x <= h.right && y >= h.top && y <= h.bottom
}

// cross2D returns the 2D cross product of vectors (bx-ax,by-ay) and (cx-ax,cy-ay).
func cross2D(ax, ay, bx, by, cx, cy float64) float64 {
	return (bx-ax)*(cy-ay) - (by-ay)*(cx-ax)
}

// pointInTriangle checks if point (px,py) is inside triangle (ax,ay)-(bx,by)-(cx,cy).
func pointInTriangle(px, py, ax, ay, bx, by, cx, cy float64) bool {
	d1 := cross2D(ax, ay, bx, by, px, py)
	d2 := cross2D(bx, by, cx, cy, px, py)
	d3 := cross2D(cx, cy, ax, ay, px, py)
	hasNeg := (d1 < 0) || (d2 < 0) || (d3 < 0)
	hasPos := (d1 > 0) || (d2 > 0) || (d3 > 0)
	return !(hasNeg && hasPos)
}

// spikeHit tests the player's hit box against the spike's inset kill
// triangle (apex up, base on the tile bottom). Corners of the box are
// tested against the triangle and triangle vertices against the box; one
// direction alone misses shallow overlaps where neither shape's corner
// lands inside the other's widest part.
func spikeHit(box hitBox, obj *GameObject) bool {
	ax := obj.X + TileSize/2
	ay := obj.Y + SpikeInset
	bx := obj.X + SpikeInset
	by := obj.Y + TileSize - SpikeInset
	cx := obj.X + TileSize - SpikeInset
	cy := by

	// Degenerate (zero-area) triangle can never kill
	if cross2D(ax, ay, bx, by, cx, cy) == 0 {
		return false
	}

	if box.contains(ax, ay) || box.contains(bx, by) || box.contains(cx, cy) {
		return true
	}

	return pointInTriangle(box.left, box.top, ax, ay, bx, by, cx, cy) ||
		pointInTriangle(box.right, box.top, ax, ay, bx, by, cx, cy) ||
		pointInTriangle(box.left, box.bottom, ax, ay, bx, by, cx, cy) ||
		pointInTriangle(box.right, box.bottom, ax, ay, bx, by, cx, cy)
}

// resolveStep classifies and resolves all candidate collisions for one
// sub-step. prevX/prevY are the player's position before the sub-step moved
// it. Candidates are taken in index-insertion order and the first lethal or
// grounding outcome ends the scan; portal morphs do not stop it. This
// first-match-wins order is a designed tie-break: replay depends on it.
func resolveStep(p Player, prevX, prevY float64, idx *ChunkIndex, buf []int, events []Event) (Player, []Event, []int) {
	box := playerHitBox(p)
	chunk := idx.ChunkOf(p.X)
	buf = idx.QueryBuf(chunk-1, chunk+2, buf[:0])

	for _, i := range buf {
		obj := idx.Object(i)
		switch obj.Kind {
		case KindSpike:
			if spikeHit(box, obj) {
				p.Alive = false
				events = append(events, Event{Type: EvDeath})
				return p, events, buf
			}

		case KindBlock:
			if box.right <= obj.X || box.left >= obj.X+TileSize {
				continue
			}
			if p.Mode == ModeWave {
				// Wave has no landing semantics: any block contact kills
				if box.overlaps(obj.X, obj.Y, obj.X+TileSize, obj.Y+TileSize) {
					p.Alive = false
					events = append(events, Event{Type: EvDeath})
					return p, events, buf
				}
				continue
			}
			// Landing and continued support share one rule: bottom edge at or
			// past the tile top, previous position inside the tolerance band,
			// moving with gravity. The resting hit box never penetrates the
			// tile (it is inset), so rest must not require strict overlap.
			if p.GravityDir > 0 && p.VY >= 0 && p.Y >= obj.Y && prevY <= obj.Y+LandTolerance {
				p.Y = obj.Y
				p.VY = 0
				p.Grounded = true
				p.Jumping = false
				return p, events, buf
			}
			// Inverted gravity: top edge at or past the tile bottom, hanging
			if p.GravityDir < 0 && p.VY <= 0 && p.Y <= obj.Y+TileSize+PlayerSize &&
				prevY-PlayerSize >= obj.Y+TileSize-LandTolerance {
				p.Y = obj.Y + TileSize + PlayerSize
				p.VY = 0
				p.Grounded = true
				p.Jumping = false
				return p, events, buf
			}
			// Lateral or head-on penetration is always lethal
			if box.overlaps(obj.X, obj.Y, obj.X+TileSize, obj.Y+TileSize) {
				p.Alive = false
				events = append(events, Event{Type: EvDeath})
				return p, events, buf
			}

		case KindPortal:
			cy := obj.Y + TileSize/2
			if !box.overlaps(obj.X, cy-PortalHitboxHeight/2, obj.X+TileSize, cy+PortalHitboxHeight/2) {
				continue
			}
			// Leading-edge gate: trigger only as the player's right edge
			// first reaches the portal, never while straddling it
			if prevX+PlayerSize > obj.X+PortalEdgeEpsilon {
				continue
			}
			p, events = morphPlayer(p, obj.Portal, events)
		}
	}

	return p, events, buf
}
