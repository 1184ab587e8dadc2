package snapshot

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/runtimeeditor/history/pkg/core"
)

// blob is the serialized form of a snapshot handed to persistence collaborators.
type blob struct {
	Kind       string               `json:"kind"`
	Handle     core.EntityHandle    `json:"handle"`
	CapturedAt time.Time            `json:"capturedAt"`
	Grid       *core.Grid           `json:"grid,omitempty"`
	Trees      []core.TreeInstance `json:"trees,omitempty"`
	Transform  *core.Transform      `json:"transform,omitempty"`
}

// Encode serializes a snapshot as gzip-compressed JSON.
func Encode(snap Snapshot) ([]byte, error) {
	b := blob{
		Kind:       snap.Kind().String(),
		Handle:     snap.Handle(),
		CapturedAt: snap.CapturedAt(),
	}
	switch v := snap.(type) {
	case *GridSnapshot:
		g := v.data
		b.Grid = &g
	case *TreeSnapshot:
		b.Trees = v.trees
		if b.Trees == nil {
			b.Trees = []core.TreeInstance{}
		}
	case *TransformSnapshot:
		t := v.transform
		b.Transform = &t
	default:
		return nil, fmt.Errorf("encode %s: unsupported snapshot %T", snap.Handle(), snap)
	}

	var buf bytes.Buffer
	gzWriter := gzip.NewWriter(&buf)
	if err := json.NewEncoder(gzWriter).Encode(b); err != nil {
		return nil, fmt.Errorf("encode %s: %w", snap.Handle(), err)
	}
	if err := gzWriter.Close(); err != nil {
		return nil, fmt.Errorf("encode %s: %w", snap.Handle(), err)
	}
	return buf.Bytes(), nil
}

// Decode reverses Encode.
func Decode(data []byte) (Snapshot, error) {
	gzReader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	defer gzReader.Close()

	raw, err := io.ReadAll(gzReader)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	var b blob
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	kind, err := core.ParseKind(b.Kind)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	switch kind {
	case core.KindHeights, core.KindSplats:
		if b.Grid == nil {
			return nil, fmt.Errorf("decode snapshot %s: missing grid", b.Handle)
		}
		if err := b.Grid.Validate(); err != nil {
			return nil, fmt.Errorf("decode snapshot %s: %w", b.Handle, err)
		}
		gk := core.GridHeights
		if kind == core.KindSplats {
			gk = core.GridSplats
		}
		return NewGridSnapshot(b.Handle, gk, *b.Grid, b.CapturedAt), nil
	case core.KindTrees:
		return NewTreeSnapshot(b.Handle, b.Trees, b.CapturedAt), nil
	case core.KindTransform:
		if b.Transform == nil {
			return nil, fmt.Errorf("decode snapshot %s: missing transform", b.Handle)
		}
		return NewTransformSnapshot(b.Handle, *b.Transform, b.CapturedAt), nil
	default:
		return nil, fmt.Errorf("decode snapshot %s: kind %s has no state", b.Handle, kind)
	}
}
