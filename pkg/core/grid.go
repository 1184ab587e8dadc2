// pkg/core/grid.go
package core

import "fmt"

// GridShape is the resolution and channel count of a grid.
type GridShape struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	Layers int `json:"layers"`
}

func (s GridShape) String() string {
	return fmt.Sprintf("%dx%dx%d", s.Width, s.Height, s.Layers)
}

// Cells is the number of values a grid of this shape holds.
func (s GridShape) Cells() int {
	return s.Width * s.Height * s.Layers
}

// Grid is a dense row-major numeric field. Height maps use one layer,
// alpha (splat) maps use one layer per paint texture.
type Grid struct {
	Width  int       `json:"width"`
	Height int       `json:"height"`
	Layers int       `json:"layers"`
	Data   []float32 `json:"data"`
}

// NewGrid allocates a zeroed grid. Layers below one are treated as one.
func NewGrid(width, height, layers int) Grid {
	if layers < 1 {
		layers = 1
	}
	return Grid{
		Width:  width,
		Height: height,
		Layers: layers,
		Data:   make([]float32, width*height*layers),
	}
}

// FilledGrid allocates a grid with every cell set to v.
func FilledGrid(width, height, layers int, v float32) Grid {
	g := NewGrid(width, height, layers)
	for i := range g.Data {
		g.Data[i] = v
	}
	return g
}

func (g Grid) Shape() GridShape {
	return GridShape{Width: g.Width, Height: g.Height, Layers: g.Layers}
}

func (g Grid) index(x, y, layer int) int {
	return (y*g.Width+x)*g.Layers + layer
}

// At returns the value at column x, row y and the given layer.
func (g Grid) At(x, y, layer int) float32 {
	return g.Data[g.index(x, y, layer)]
}

// Set writes v at column x, row y and the given layer.
func (g *Grid) Set(x, y, layer int, v float32) {
	g.Data[g.index(x, y, layer)] = v
}

// Clone deep-copies the grid.
func (g Grid) Clone() Grid {
	out := g
	if g.Data != nil {
		out.Data = make([]float32, len(g.Data))
		copy(out.Data, g.Data)
	}
	return out
}

// Validate checks that the data length matches the declared shape.
func (g Grid) Validate() error {
	if g.Width < 0 || g.Height < 0 || g.Layers < 1 {
		return fmt.Errorf("invalid grid shape %s", g.Shape())
	}
	if len(g.Data) != g.Shape().Cells() {
		return fmt.Errorf("grid %s holds %d values, want %d", g.Shape(), len(g.Data), g.Shape().Cells())
	}
	return nil
}

// Equal reports whether both grids have the same shape and identical values.
func (g Grid) Equal(o Grid) bool {
	if g.Shape() != o.Shape() || len(g.Data) != len(o.Data) {
		return false
	}
	for i := range g.Data {
		if g.Data[i] != o.Data[i] {
			return false
		}
	}
	return true
}
