package snapshot

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/runtimeeditor/history/pkg/core"
)

// Store captures entity state from a Scene and writes it back.
// It carries no policy; commands decide what to capture and when.
type Store struct {
	scene  Scene
	logger *slog.Logger
	now    func() time.Time
}

// NewStore creates a Store over scene. A nil logger uses slog.Default().
func NewStore(scene Scene, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		scene:  scene,
		logger: logger,
		now:    time.Now,
	}
}

// Scene returns the collaborator the store reads from and writes to.
func (s *Store) Scene() Scene {
	return s.scene
}

// Exists reports whether h still resolves in the scene.
func (s *Store) Exists(h core.EntityHandle) bool {
	return s.scene.Exists(h)
}

// Capture takes a snapshot of the state a command of the given kind edits.
func (s *Store) Capture(h core.EntityHandle, kind core.Kind) (Snapshot, error) {
	switch kind {
	case core.KindHeights:
		return s.CaptureGrid(h, core.GridHeights)
	case core.KindSplats:
		return s.CaptureGrid(h, core.GridSplats)
	case core.KindTrees:
		return s.CaptureTrees(h)
	case core.KindTransform, core.KindPlacement, core.KindDeletion, core.KindGroup, core.KindUngroup:
		return s.CaptureTransform(h)
	default:
		return nil, fmt.Errorf("capture %s: kind %s has no state", h, kind)
	}
}

// CaptureGrid deep-copies the full grid of a tile.
func (s *Store) CaptureGrid(h core.EntityHandle, kind core.GridKind) (*GridSnapshot, error) {
	g, err := s.scene.ReadGrid(h, kind)
	if err != nil {
		return nil, fmt.Errorf("capture %s of %s: %w", kind, h, err)
	}
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("capture %s of %s: %w", kind, h, err)
	}
	return NewGridSnapshot(h, kind, g, s.now()), nil
}

// CaptureTrees copies the tree instance list of a tile.
func (s *Store) CaptureTrees(h core.EntityHandle) (*TreeSnapshot, error) {
	trees, err := s.scene.ReadPointList(h)
	if err != nil {
		return nil, fmt.Errorf("capture trees of %s: %w", h, err)
	}
	return NewTreeSnapshot(h, trees, s.now()), nil
}

// CaptureTransform reads the transform of an object.
func (s *Store) CaptureTransform(h core.EntityHandle) (*TransformSnapshot, error) {
	t, err := s.scene.ReadTransform(h)
	if err != nil {
		return nil, fmt.Errorf("capture transform of %s: %w", h, err)
	}
	return NewTransformSnapshot(h, t, s.now()), nil
}

// Restore writes snap back onto the entity it was taken from.
// A stale handle yields ErrEntityNotFound and a changed grid shape yields
// ErrEntityShapeMismatch; in both cases nothing is written.
func (s *Store) Restore(snap Snapshot) error {
	if snap == nil {
		return errors.New("restore: nil snapshot")
	}
	var err error
	switch v := snap.(type) {
	case *GridSnapshot:
		err = s.restoreGrid(v)
	case *TreeSnapshot:
		err = s.scene.WritePointList(v.handle, v.Trees())
	case *TransformSnapshot:
		err = s.scene.WriteTransform(v.handle, v.transform)
	default:
		return fmt.Errorf("restore %s: unsupported snapshot %T", snap.Handle(), snap)
	}
	if err == nil {
		return nil
	}

	err = fmt.Errorf("restore %s of %s: %w", snap.Kind(), snap.Handle(), err)
	switch {
	case errors.Is(err, ErrEntityNotFound):
		s.logger.Warn("Skipping restore of missing entity", "handle", snap.Handle(), "kind", snap.Kind().String())
	case errors.Is(err, ErrEntityShapeMismatch):
		s.logger.Warn("Skipping restore of reshaped entity", "handle", snap.Handle(), "error", err)
	}
	return err
}

func (s *Store) restoreGrid(snap *GridSnapshot) error {
	shape, err := s.scene.GridShape(snap.handle, snap.grid)
	if err != nil {
		return err
	}
	if shape != snap.data.Shape() {
		return fmt.Errorf("%w: entity is %s, snapshot is %s", ErrEntityShapeMismatch, shape, snap.data.Shape())
	}
	return s.scene.WriteGrid(snap.handle, snap.grid, snap.data.Clone())
}

// IsSoft reports whether err is a per-entity failure that a multi-entity
// command records as a warning instead of aborting on.
func IsSoft(err error) bool {
	return errors.Is(err, ErrEntityNotFound) || errors.Is(err, ErrEntityShapeMismatch)
}
