// pkg/core/kind.go
package core

import (
	"fmt"
	"strings"
)

// Kind identifies what an undoable command captures and how it is replayed.
type Kind int

const (
	KindTransform Kind = iota // move, rotate or scale of one or more objects
	KindPlacement             // object created in the scene
	KindDeletion              // object removed from the scene
	KindGroup                 // objects joined under a synthetic group
	KindUngroup               // group dissolved back into its members
	KindHeights               // terrain height grid edit
	KindSplats                // terrain alpha/splat grid edit
	KindTrees                 // terrain tree instance edit
	KindSelection             // selection change, never recorded
	KindToolChange            // active tool switch, never recorded
)

var kindNames = map[Kind]string{
	KindTransform:  "transform",
	KindPlacement:  "placement",
	KindDeletion:   "deletion",
	KindGroup:      "group",
	KindUngroup:    "ungroup",
	KindHeights:    "heights",
	KindSplats:     "splats",
	KindTrees:      "trees",
	KindSelection:  "selection",
	KindToolChange: "toolchange",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Recorded reports whether commands of this kind are ever pushed to history.
func (k Kind) Recorded() bool {
	return k != KindSelection && k != KindToolChange
}

// ParseKind converts a kind name (case-insensitive) back into a Kind.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown command kind: %q", s)
}

// GridKind selects which grid of a terrain tile is read or written.
type GridKind int

const (
	GridHeights GridKind = iota
	GridSplats
)

func (g GridKind) String() string {
	switch g {
	case GridHeights:
		return "heights"
	case GridSplats:
		return "splats"
	default:
		return fmt.Sprintf("grid(%d)", int(g))
	}
}
