package table

import "fmt"

// Point is a location on the tabletop.
type Point struct {
	X int
	Y int
}

// String ...
func (p Point) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Orientation identifies one face of a component, e.g. "face_up".
type Orientation string

// Default orientations.
const (
	DefaultOrientation Orientation = "default"
	FaceUp             Orientation = "face_up"
	FaceDown           Orientation = "face_down"
)

// SurfaceDesignID identifies a registered SurfaceDesign.
type SurfaceDesignID string

// SurfaceDesign is the visual appearance of one face of a component.
type SurfaceDesign struct {
	ID     SurfaceDesignID
	Width  int
	Height int
}

// LayoutID identifies a registered Layout.
type LayoutID string

// Layout describes how a container arranges its children.
type Layout struct {
	ID      LayoutID
	OffsetX int
	OffsetY int
}

// Arrange returns the location of the child at index, given the location of
// its container.
func (l Layout) Arrange(origin Point, index int) Point {
	return Point{
		X: origin.X + index*l.OffsetX,
		Y: origin.Y + index*l.OffsetY,
	}
}

// StrategyID identifies a registered ComponentStrategy.
type StrategyID string
