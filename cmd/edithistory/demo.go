package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/runtimeeditor/history/internal/scene"
	"github.com/runtimeeditor/history/pkg/core"
)

const demoTileSize = 16

// seedWorld fills the scene with two terrain tiles and a few objects.
func (a *app) seedWorld() error {
	for i, h := range []core.EntityHandle{"tile-0-0", "tile-1-0"} {
		err := a.world.AddTile(core.TileSave{
			TileMeta: core.TileMeta{Handle: h, PosX: float64(i * demoTileSize), MapSize: demoTileSize},
			Heights:  core.FilledGrid(demoTileSize, demoTileSize, 1, 0.2),
			Splats:   core.FilledGrid(demoTileSize, demoTileSize, 4, 0),
		})
		if err != nil {
			return err
		}
	}
	for i, name := range []string{"Rock", "Crate", "Barrel"} {
		t := core.IdentityTransform()
		t.Position = core.Vec3{float64(4 + i*3), 0, 4}
		a.world.AddObject(core.EntityHandle(strings.ToLower(name)), name, t)
	}
	return nil
}

// runDemo drives a short editing session through the host bridge, applying
// the brush edits directly to the scene the way an engine would.
func (a *app) runDemo(out io.Writer) error {
	if err := a.seedWorld(); err != nil {
		return err
	}
	brush := scene.Rect{X: 12, Y: 4, W: 8, H: 8}

	steps := []struct {
		line string
		edit func() error
	}{
		{line: ":TX:STROKE: raise"},
		{line: ":TX:TOUCH: tile-0-0", edit: func() error { return a.world.AdjustHeights("tile-0-0", brush, 0.1) }},
		{line: ":TX:TOUCH: tile-0-0", edit: func() error { return a.world.AdjustHeights("tile-0-0", brush, 0.1) }},
		{line: ":TX:TOUCH: tile-1-0", edit: func() error { return a.world.AdjustHeights("tile-1-0", scene.Rect{W: 4, H: 8}, 0.1) }},
		{line: ":TX:CLOSE:"},
		{line: ":TX:STROKE: paint_texture"},
		{line: ":TX:TOUCH: tile-1-0", edit: func() error { return a.world.PaintLayer("tile-1-0", brush, 2) }},
		{line: ":TX:CLOSE:"},
		{line: ":TX:OPEN: transform crate"},
		{line: ":SELECT: crate", edit: func() error { return a.world.MoveObject("crate", core.Vec3{0, 0, 5}) }},
		{line: ":TX:CLOSE:"},
		{line: `:PLACE: tree-marker "Marker" [10,0,10]`},
		{line: ":GROUP: cluster rock barrel"},
		{line: ":HISTORY:STATE:"},
		{line: ":UNDO:"},
		{line: ":UNDO:"},
		{line: ":UNDO:"},
		{line: ":REDO:"},
		{line: ":DELETE: rock"},
		{line: ":UNDO:"},
		{line: ":HISTORY:STATE:"},
	}

	for _, s := range steps {
		res, err := a.dispatcher.Call(s.line)
		if err != nil {
			return fmt.Errorf("%s: %w", s.line, err)
		}
		if res != nil {
			printJSON(out, s.line, res)
		} else {
			fmt.Fprintln(out, s.line)
		}
		if s.edit != nil {
			if err := s.edit(); err != nil {
				return err
			}
		}
	}

	last, ok := a.ctrl.LastTransform("crate")
	if ok {
		fmt.Fprintf(out, "crate last transform: %v\n", last.Position)
	}
	return nil
}

// runScript feeds host bridge lines to the dispatcher. Blank lines and lines
// starting with # are ignored. A failing line is reported and the script goes on.
func (a *app) runScript(in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	failed := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		res, err := a.dispatcher.Call(line)
		if err != nil {
			failed++
			fmt.Fprintf(out, "%s: error: %v\n", line, err)
			continue
		}
		if res != nil {
			printJSON(out, line, res)
		} else {
			fmt.Fprintln(out, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d script lines failed", failed)
	}
	return nil
}
