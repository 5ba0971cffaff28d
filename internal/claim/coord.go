package claim

import "fmt"

// Coordinate is a horizontal block position. Claims are infinite in the
// vertical axis, so the core never carries Y except for piston input.
type Coordinate struct {
	X int
	Z int
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%d, %d)", c.X, c.Z)
}

// Location is a coordinate bound to a world. Claims never compare across
// worlds.
type Location struct {
	World string
	X     int
	Z     int
}

func (l Location) Coordinate() Coordinate {
	return Coordinate{X: l.X, Z: l.Z}
}

func (l Location) String() string {
	return fmt.Sprintf("%s(%d, %d)", l.World, l.X, l.Z)
}

// BlockPos is a full 3D block position. Only the piston safety check cares
// about Y; everything else flattens to Location.
type BlockPos struct {
	X int
	Y int
	Z int
}

func (p BlockPos) In(world string) Location {
	return Location{World: world, X: p.X, Z: p.Z}
}

func (p BlockPos) Shift(d Direction) BlockPos {
	return BlockPos{X: p.X + d.X, Y: p.Y + d.Y, Z: p.Z + d.Z}
}

// Direction is a unit axis offset (piston facing).
type Direction struct {
	X int
	Y int
	Z int
}

func (d Direction) Opposite() Direction {
	return Direction{X: -d.X, Y: -d.Y, Z: -d.Z}
}

var (
	DirUp    = Direction{Y: 1}
	DirDown  = Direction{Y: -1}
	DirNorth = Direction{Z: -1}
	DirSouth = Direction{Z: 1}
	DirWest  = Direction{X: -1}
	DirEast  = Direction{X: 1}
)

// chunkCoord converts a block coordinate to its 16-block chunk coordinate.
// Arithmetic shift keeps negative coordinates on the correct side.
func chunkCoord(v int) int {
	return v >> 4
}
