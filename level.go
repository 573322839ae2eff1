package main

import (
	"math"

	"github.com/vmihailenco/msgpack/v5"
)

// ObjectKind is the closed set of geometry classes the resolver knows
type ObjectKind int

const (
	KindBlock ObjectKind = iota
	KindSpike
	KindPortal
)

// GameObject is one immutable static entity of a level. Portal holds the
// target mode when Kind is KindPortal. Z is draw order only, inert to physics.
type GameObject struct {
	ID     int
	Kind   ObjectKind
	Portal Mode
	X, Y   float64
	Z      int
}

// LevelObject is the storage/wire form of a GameObject. Type is a string
// code so level data from newer content degrades to no-op tiles instead of
// being rejected.
type LevelObject struct {
	ID   int     `json:"id" msgpack:"id"`
	Type string  `json:"type" msgpack:"t"`
	X    float64 `json:"x" msgpack:"x"`
	Y    float64 `json:"y" msgpack:"y"`
	Z    int     `json:"z,omitempty" msgpack:"z,omitempty"`
}

// Level is a compiled, session-owned level: validated objects plus the
// completion threshold derived once at load
type Level struct {
	ID          int64
	Name        string
	Difficulty  string
	Objects     []GameObject
	WinDistance float64
}

var objectTypes = map[string]struct {
	kind   ObjectKind
	portal Mode
}{
	"block":          {KindBlock, 0},
	"spike":          {KindSpike, 0},
	"portal_cube":    {KindPortal, ModeCube},
	"portal_ship":    {KindPortal, ModeShip},
	"portal_ball":    {KindPortal, ModeBall},
	"portal_ufo":     {KindPortal, ModeUFO},
	"portal_wave":    {KindPortal, ModeWave},
	"portal_robot":   {KindPortal, ModeRobot},
	"portal_spider":  {KindPortal, ModeSpider},
	"portal_swing":   {KindPortal, ModeSwing},
	"portal_jetpack": {KindPortal, ModeJetpack},
}

// CompileLevel validates and compiles raw level objects. Objects with
// unknown types or degenerate coordinates are dropped, not rejected: a
// malformed object is simply nothing to collide with. An empty object list
// is a legal level.
func CompileLevel(id int64, name, difficulty string, raw []LevelObject) *Level {
	lvl := &Level{
		ID:         id,
		Name:       name,
		Difficulty: difficulty,
	}

	maxX := 0.0
	for _, o := range raw {
		if math.IsNaN(o.X) || math.IsNaN(o.Y) || math.IsInf(o.X, 0) || math.IsInf(o.Y, 0) {
			continue
		}
		def, ok := objectTypes[o.Type]
		if !ok {
			continue
		}
		lvl.Objects = append(lvl.Objects, GameObject{
			ID:     o.ID,
			Kind:   def.kind,
			Portal: def.portal,
			X:      o.X,
			Y:      o.Y,
			Z:      o.Z,
		})
		if o.X > maxX {
			maxX = o.X
		}
	}

	lvl.WinDistance = math.Max(MinWinDistance, maxX+WinMargin)
	return lvl
}

// EncodeLevelObjects packs the raw object list for SQLite storage
func EncodeLevelObjects(objs []LevelObject) ([]byte, error) {
	return msgpack.Marshal(objs)
}

// DecodeLevelObjects unpacks a stored object blob
func DecodeLevelObjects(blob []byte) ([]LevelObject, error) {
	var objs []LevelObject
	if err := msgpack.Unmarshal(blob, &objs); err != nil {
		return nil, err
	}
	return objs, nil
}

// seedLevel is a built-in level shipped with the server
type seedLevel struct {
	Name       string
	Difficulty string
	Objects    []LevelObject
}

// BuiltinLevels returns the levels seeded into an empty database
func BuiltinLevels() []seedLevel {
	return []seedLevel{
		{
			Name:       "First Steps",
			Difficulty: "easy",
			Objects: joinObjects(
				spikeRun(400, 1),
				blockRun(700, FloorY-TileSize, 3),
				spikeRun(1100, 2),
				blockColumn(1500, FloorY-TileSize, 2),
				spikeRun(2000, 1),
			),
		},
		{
			Name:       "Flight School",
			Difficulty: "normal",
			Objects: joinObjects(
				spikeRun(500, 2),
				portalAt(900, "portal_ship"),
				blockRun(1200, 120, 4),
				blockRun(1200, 300, 4),
				portalAt(2000, "portal_cube"),
				spikeRun(2400, 1),
				blockRun(2800, FloorY-TileSize, 2),
			),
		},
		{
			Name:       "Gravity Gauntlet",
			Difficulty: "hard",
			Objects: joinObjects(
				portalAt(400, "portal_ball"),
				blockRun(700, 96, 3),
				blockRun(1100, FloorY-TileSize, 3),
				portalAt(1600, "portal_wave"),
				blockRun(1900, 100, 2),
				blockRun(2100, 260, 2),
				portalAt(2600, "portal_spider"),
				blockRun(2900, FloorY-4*TileSize, 4),
				portalAt(3600, "portal_cube"),
				spikeRun(3900, 2),
			),
		},
	}
}

var seedObjectID int

func nextSeedID() int {
	seedObjectID++
	return seedObjectID
}

func blockRun(x, y float64, n int) []LevelObject {
	objs := make([]LevelObject, 0, n)
	for i := 0; i < n; i++ {
		objs = append(objs, LevelObject{ID: nextSeedID(), Type: "block", X: x + float64(i)*TileSize, Y: y})
	}
	return objs
}

func blockColumn(x, y float64, n int) []LevelObject {
	objs := make([]LevelObject, 0, n)
	for i := 0; i < n; i++ {
		objs = append(objs, LevelObject{ID: nextSeedID(), Type: "block", X: x, Y: y - float64(i)*TileSize})
	}
	return objs
}

func spikeRun(x float64, n int) []LevelObject {
	objs := make([]LevelObject, 0, n)
	for i := 0; i < n; i++ {
		objs = append(objs, LevelObject{ID: nextSeedID(), Type: "spike", X: x + float64(i)*TileSize, Y: FloorY - TileSize})
	}
	return objs
}

func portalAt(x float64, typ string) []LevelObject {
	return []LevelObject{{ID: nextSeedID(), Type: typ, X: x, Y: FloorY - 3*TileSize}}
}

func joinObjects(groups ...[]LevelObject) []LevelObject {
	var all []LevelObject
	for _, g := range groups {
		all = append(all, g...)
	}
	return all
}
