package scene

import (
	"fmt"

	"github.com/runtimeeditor/history/internal/snapshot"
	"github.com/runtimeeditor/history/pkg/core"
)

// The edits below stand in for the host engine's brushes. They mutate the
// live state directly, the way a sculpt or paint tool would between the
// open and close of a gesture.

// Rect is an inclusive-exclusive cell rectangle on a tile grid.
type Rect struct {
	X, Y, W, H int
}

func (r Rect) clip(g core.Grid) Rect {
	x0, y0 := max(r.X, 0), max(r.Y, 0)
	x1, y1 := min(r.X+r.W, g.Width), min(r.Y+r.H, g.Height)
	if x1 < x0 {
		x1 = x0
	}
	if y1 < y0 {
		y1 = y0
	}
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// AdjustHeights adds delta to every height cell inside r, clamped to [0,1].
func (s *Scene) AdjustHeights(h core.EntityHandle, r Rect, delta float32) error {
	return s.editGrid(h, core.GridHeights, r, func(g *core.Grid, x, y int) {
		g.Set(x, y, 0, clamp01(g.At(x, y, 0)+delta))
	})
}

// FlattenHeights sets every height cell inside r to level.
func (s *Scene) FlattenHeights(h core.EntityHandle, r Rect, level float32) error {
	return s.editGrid(h, core.GridHeights, r, func(g *core.Grid, x, y int) {
		g.Set(x, y, 0, clamp01(level))
	})
}

// PaintLayer makes layer the only visible splat layer inside r.
func (s *Scene) PaintLayer(h core.EntityHandle, r Rect, layer int) error {
	return s.editGrid(h, core.GridSplats, r, func(g *core.Grid, x, y int) {
		for l := 0; l < g.Layers; l++ {
			v := float32(0)
			if l == layer {
				v = 1
			}
			g.Set(x, y, l, v)
		}
	})
}

func (s *Scene) editGrid(h core.EntityHandle, kind core.GridKind, r Rect, fn func(g *core.Grid, x, y int)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.tileLocked(h)
	if err != nil {
		return err
	}
	g := t.grid(kind)
	c := r.clip(*g)
	for y := c.Y; y < c.Y+c.H; y++ {
		for x := c.X; x < c.X+c.W; x++ {
			fn(g, x, y)
		}
	}
	return nil
}

// PlantTree appends a tree instance to a tile.
func (s *Scene) PlantTree(h core.EntityHandle, tree core.TreeInstance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.tileLocked(h)
	if err != nil {
		return err
	}
	t.trees = append(t.trees, tree)
	return nil
}

// RemoveTreesNear deletes every tree within radius of center on the XZ plane
// and returns how many were removed.
func (s *Scene) RemoveTreesNear(h core.EntityHandle, center core.Vec3, radius float64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.tileLocked(h)
	if err != nil {
		return 0, err
	}
	kept := t.trees[:0]
	removed := 0
	for _, tree := range t.trees {
		dx, dz := tree.Position.X()-center.X(), tree.Position.Z()-center.Z()
		if dx*dx+dz*dz <= radius*radius {
			removed++
			continue
		}
		kept = append(kept, tree)
	}
	t.trees = kept
	return removed, nil
}

// MoveObject translates a live object by offset.
func (s *Scene) MoveObject(h core.EntityHandle, offset core.Vec3) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.objects[h]
	if !ok {
		return fmt.Errorf("move %s: %w", h, snapshot.ErrEntityNotFound)
	}
	o.transform.Position = o.transform.Position.Add(offset)
	return nil
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
