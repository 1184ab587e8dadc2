package session

import (
	"fmt"
	"strings"

	"github.com/runtimeeditor/history/pkg/core"
)

// BrushMode is the terrain tool active during a stroke.
type BrushMode int

const (
	BrushRaise BrushMode = iota
	BrushLower
	BrushFlatten
	BrushSmooth
	BrushPaintTexture
	BrushPaintObject
	BrushRemoveObject
)

var brushNames = map[BrushMode]string{
	BrushRaise:        "raise",
	BrushLower:        "lower",
	BrushFlatten:      "flatten",
	BrushSmooth:       "smooth",
	BrushPaintTexture: "painttexture",
	BrushPaintObject:  "paintobject",
	BrushRemoveObject: "removeobject",
}

func (b BrushMode) String() string {
	if name, ok := brushNames[b]; ok {
		return name
	}
	return fmt.Sprintf("brush(%d)", int(b))
}

// Kind is the command kind a stroke with this brush records.
func (b BrushMode) Kind() core.Kind {
	switch b {
	case BrushPaintTexture:
		return core.KindSplats
	case BrushPaintObject, BrushRemoveObject:
		return core.KindTrees
	default:
		return core.KindHeights
	}
}

// ParseBrushMode converts a brush name (case-insensitive, "_" and "-" ignored).
func ParseBrushMode(s string) (BrushMode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("_", "", "-", "").Replace(s)
	for b, name := range brushNames {
		if name == s {
			return b, nil
		}
	}
	return 0, fmt.Errorf("unknown brush mode: %q", s)
}
