// Package session decides when editing gestures start and end, builds the
// matching commands and hands them to the history.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/runtimeeditor/history/internal/command"
	"github.com/runtimeeditor/history/internal/history"
	"github.com/runtimeeditor/history/internal/logging"
	"github.com/runtimeeditor/history/internal/snapshot"
	"github.com/runtimeeditor/history/internal/storage"
	"github.com/runtimeeditor/history/pkg/core"
)

var (
	// ErrNoTransaction is returned when a gesture operation needs an open transaction.
	ErrNoTransaction = errors.New("no open transaction")

	// ErrTransactionOpen is returned when an operation cannot run while a gesture is in progress.
	ErrTransactionOpen = errors.New("transaction already open")

	// ErrNoBackend is returned by Save, Load and List when no storage backend is configured.
	ErrNoBackend = errors.New("no storage backend configured")

	// ErrEntityExists is returned by Place when the handle is already in use.
	ErrEntityExists = errors.New("entity already exists")

	// ErrInvalidSave is returned by Restore when a save file cannot be loaded.
	// The world is left untouched.
	ErrInvalidSave = errors.New("invalid save file")
)

// World is the host scene as seen by the session: the history collaborator
// contract plus the level management needed for save, load and placement.
type World interface {
	snapshot.Scene
	AddTile(save core.TileSave) error
	AddObject(h core.EntityHandle, name string, t core.Transform)
	TileHandles() []core.EntityHandle
	ObjectHandles() []core.EntityHandle
	TileMeta(h core.EntityHandle) (core.TileMeta, bool)
	ObjectName(h core.EntityHandle) (string, bool)
	GroupByID(groupID string) (core.GroupInfo, bool)
	Reset()
}

// Auditor receives every history operation the session performs.
type Auditor interface {
	Audit(op string, res history.Result, st history.State)
}

// Dependencies holds everything the controller drives.
type Dependencies struct {
	World      World
	Store      *snapshot.Store
	History    *history.History
	Backend    storage.Backend
	LogManager *logging.SlogManager
}

// Controller owns the open transaction and routes finished commands into
// the history. All methods are safe for concurrent use.
type Controller struct {
	deps   Dependencies
	logger *slog.Logger

	mu        sync.Mutex
	open      command.Command
	tool      string
	selection []core.EntityHandle
	auditors  []Auditor
}

// New creates a controller. World, Store and History are required.
func New(deps Dependencies) (*Controller, error) {
	if deps.World == nil || deps.Store == nil || deps.History == nil {
		return nil, fmt.Errorf("session: world, store and history are required")
	}
	logger := slog.Default()
	if deps.LogManager != nil {
		logger = deps.LogManager.Component("session")
	}
	return &Controller{deps: deps, logger: logger}, nil
}

// AddAuditor registers a to receive every history operation.
func (c *Controller) AddAuditor(a Auditor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.auditors = append(c.auditors, a)
}

func (c *Controller) audit(op string, res history.Result) {
	st := c.deps.History.State()
	c.mu.Lock()
	auditors := append([]Auditor(nil), c.auditors...)
	c.mu.Unlock()
	for _, a := range auditors {
		a.Audit(op, res, st)
	}
}

// OpenTransaction starts a gesture of kind over handles, capturing their
// before state now. Terrain strokes usually open empty and Touch tiles later.
func (c *Controller) OpenTransaction(kind core.Kind, handles ...core.EntityHandle) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.open != nil {
		return ErrTransactionOpen
	}
	m, err := command.OpenModify(c.deps.Store, kind, handles...)
	if err != nil {
		return fmt.Errorf("open %s transaction: %w", kind, err)
	}
	c.open = m
	c.logger.Debug("Transaction opened", "kind", kind.String(), "id", m.ID(), "entities", len(handles))
	return nil
}

// BeginStroke opens an empty terrain transaction for the brush.
func (c *Controller) BeginStroke(mode BrushMode) error {
	return c.OpenTransaction(mode.Kind())
}

// Touch adds h to the open transaction, capturing its before state the first
// time. It reports whether h was new to the transaction.
func (c *Controller) Touch(h core.EntityHandle) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.open.(*command.Modify)
	if !ok {
		return false, ErrNoTransaction
	}
	return m.Touch(h)
}

// InTransaction reports whether a gesture is open.
func (c *Controller) InTransaction() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open != nil
}

// CloseTransaction ends the gesture, captures the after state and records
// the command. It reports whether the history kept it.
func (c *Controller) CloseTransaction() (bool, error) {
	c.mu.Lock()
	cmd := c.open
	c.open = nil
	c.mu.Unlock()
	if cmd == nil {
		return false, ErrNoTransaction
	}
	if err := cmd.Close(); err != nil {
		cmd.Release()
		return false, fmt.Errorf("close %s transaction: %w", cmd.Kind(), err)
	}
	return c.record(cmd)
}

// Cancel ends the gesture without recording it and puts every touched
// entity back to its before state.
func (c *Controller) Cancel() error {
	c.mu.Lock()
	cmd := c.open
	c.open = nil
	c.mu.Unlock()
	if cmd == nil {
		return ErrNoTransaction
	}
	defer cmd.Release()

	if err := cmd.Close(); err != nil {
		return fmt.Errorf("cancel %s transaction: %w", cmd.Kind(), err)
	}
	out, err := cmd.Revert()
	if err != nil {
		return fmt.Errorf("cancel %s transaction: %w", cmd.Kind(), err)
	}
	for _, w := range out.Warnings {
		c.logger.Warn("Entity not restored on cancel", "error", w)
	}
	c.logger.Debug("Transaction cancelled", "kind", cmd.Kind().String(), "id", cmd.ID())
	return nil
}

func (c *Controller) record(cmd command.Command) (bool, error) {
	id, kind, entities := cmd.ID(), cmd.Kind(), cmd.Entities()
	recorded, err := c.deps.History.Record(cmd)
	if err != nil {
		return false, err
	}
	if recorded {
		c.audit("record", history.Result{CommandID: id, Kind: kind, Affected: entities})
	}
	return recorded, nil
}

// Undo reverts the most recent command.
func (c *Controller) Undo() (history.Result, error) {
	return c.step("undo", c.deps.History.Undo)
}

// Redo re-applies the most recently undone command.
func (c *Controller) Redo() (history.Result, error) {
	return c.step("redo", c.deps.History.Redo)
}

func (c *Controller) step(op string, fn func() (history.Result, error)) (history.Result, error) {
	if c.InTransaction() {
		return history.Result{}, ErrTransactionOpen
	}
	res, err := fn()
	if err != nil && (errors.Is(err, history.ErrDisabled) || errors.Is(err, history.ErrReentrant)) {
		return res, err
	}
	for _, w := range res.Warnings {
		c.logger.Warn("Entity skipped", "op", op, "error", w)
	}
	if !res.Empty() || res.Cleared {
		c.audit(op, res)
	}
	return res, err
}

// ClearHistory empties both stacks.
func (c *Controller) ClearHistory(reason string) error {
	if err := c.deps.History.Clear(reason); err != nil {
		return err
	}
	c.audit("clear", history.Result{Cleared: true})
	return nil
}

// State returns the current undo/redo affordances.
func (c *Controller) State() history.State {
	return c.deps.History.State()
}

// LastTransform returns the transform h had after its latest recorded change.
func (c *Controller) LastTransform(h core.EntityHandle) (core.Transform, bool) {
	return c.deps.History.LastTransform(h)
}

// Select replaces the selection. Selection changes are never recorded.
func (c *Controller) Select(handles ...core.EntityHandle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selection = core.CloneHandles(handles)
	c.logger.Debug("Selection changed", "count", len(handles))
}

// Selection returns the current selection.
func (c *Controller) Selection() []core.EntityHandle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return core.CloneHandles(c.selection)
}

// SetTool switches the active tool. A gesture still open under the previous
// tool is closed and recorded first. Tool changes themselves are never recorded.
func (c *Controller) SetTool(name string) error {
	if c.InTransaction() {
		if _, err := c.CloseTransaction(); err != nil {
			return err
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tool = name
	return nil
}

// Tool returns the active tool name.
func (c *Controller) Tool() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tool
}

// Place adds an object to the world and records the placement.
func (c *Controller) Place(h core.EntityHandle, name string, t core.Transform) (bool, error) {
	if c.InTransaction() {
		return false, ErrTransactionOpen
	}
	if c.deps.World.Exists(h) {
		return false, fmt.Errorf("place %s: %w", h, ErrEntityExists)
	}
	c.deps.World.AddObject(h, name, t)
	p := command.NewPlacement(c.deps.Store, h)
	if err := p.Close(); err != nil {
		p.Release()
		return false, fmt.Errorf("place %s: %w", h, err)
	}
	return c.record(p)
}

// Delete removes an object from the world and records the deletion.
func (c *Controller) Delete(h core.EntityHandle) (bool, error) {
	if c.InTransaction() {
		return false, ErrTransactionOpen
	}
	d, err := command.NewDeletion(c.deps.Store, h)
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", h, err)
	}
	if err := c.deps.World.RemoveEntity(h); err != nil {
		d.Release()
		return false, fmt.Errorf("delete %s: %w", h, err)
	}
	if err := d.Close(); err != nil {
		d.Release()
		return false, fmt.Errorf("delete %s: %w", h, err)
	}
	return c.record(d)
}

// Group joins members under a new group and records it.
func (c *Controller) Group(name string, members ...core.EntityHandle) (core.GroupInfo, error) {
	if c.InTransaction() {
		return core.GroupInfo{}, ErrTransactionOpen
	}
	g, err := command.NewGroup(c.deps.Store, members)
	if err != nil {
		return core.GroupInfo{}, fmt.Errorf("group: %w", err)
	}
	info, err := c.deps.World.CreateGroup(core.GroupInfo{Name: name, Members: members})
	if err != nil {
		g.Release()
		return core.GroupInfo{}, fmt.Errorf("group: %w", err)
	}
	if err := g.Close(); err != nil {
		g.Release()
		if derr := c.deps.World.DissolveGroup(info.ID); derr != nil {
			c.logger.Warn("Failed to dissolve unrecorded group", "group", info.ID, "error", derr)
		}
		return core.GroupInfo{}, fmt.Errorf("group: %w", err)
	}
	if _, err := c.record(g); err != nil {
		return info, err
	}
	return info, nil
}

// Ungroup dissolves a group and records it.
func (c *Controller) Ungroup(groupID string) error {
	if c.InTransaction() {
		return ErrTransactionOpen
	}
	info, ok := c.deps.World.GroupByID(groupID)
	if !ok {
		return fmt.Errorf("ungroup %s: %w", groupID, snapshot.ErrEntityNotFound)
	}
	u, err := command.NewUngroup(c.deps.Store, info)
	if err != nil {
		return fmt.Errorf("ungroup %s: %w", groupID, err)
	}
	if err := c.deps.World.DissolveGroup(groupID); err != nil {
		u.Release()
		return fmt.Errorf("ungroup %s: %w", groupID, err)
	}
	if err := u.Close(); err != nil {
		u.Release()
		return fmt.Errorf("ungroup %s: %w", groupID, err)
	}
	_, err = c.record(u)
	return err
}

// Capture builds a save file of the whole world through the snapshot store.
func (c *Controller) Capture(name string) (*core.SaveFile, error) {
	store := c.deps.Store
	save := &core.SaveFile{Name: name, CreatedAt: time.Now().UTC()}

	for _, h := range c.deps.World.TileHandles() {
		meta, ok := c.deps.World.TileMeta(h)
		if !ok {
			continue
		}
		heights, err := store.CaptureGrid(h, core.GridHeights)
		if err != nil {
			return nil, fmt.Errorf("capture tile %s: %w", h, err)
		}
		splats, err := store.CaptureGrid(h, core.GridSplats)
		if err != nil {
			return nil, fmt.Errorf("capture tile %s: %w", h, err)
		}
		trees, err := store.CaptureTrees(h)
		if err != nil {
			return nil, fmt.Errorf("capture tile %s: %w", h, err)
		}
		save.Tiles = append(save.Tiles, core.TileSave{
			TileMeta: meta,
			Heights:  heights.Grid(),
			Splats:   splats.Grid(),
			Trees:    trees.Trees(),
		})
	}

	for _, h := range c.deps.World.ObjectHandles() {
		snap, err := store.CaptureTransform(h)
		if err != nil {
			return nil, fmt.Errorf("capture object %s: %w", h, err)
		}
		name, _ := c.deps.World.ObjectName(h)
		save.Objects = append(save.Objects, core.ObjectSave{Handle: h, Name: name, Transform: snap.Transform()})
	}
	return save, nil
}

// Save writes the world to the storage backend under name.
func (c *Controller) Save(name string) error {
	if c.deps.Backend == nil {
		return ErrNoBackend
	}
	if c.InTransaction() {
		return ErrTransactionOpen
	}
	save, err := c.Capture(name)
	if err != nil {
		return err
	}
	if err := c.deps.Backend.SaveMap(save); err != nil {
		return fmt.Errorf("save %q: %w", name, err)
	}
	c.logger.Info("Map saved", "name", name, "tiles", len(save.Tiles), "objects", len(save.Objects))
	return nil
}

// Load replaces the world with a saved map and clears the history.
func (c *Controller) Load(name string) error {
	if c.deps.Backend == nil {
		return ErrNoBackend
	}
	if c.InTransaction() {
		return ErrTransactionOpen
	}
	save, err := c.deps.Backend.LoadMap(name)
	if err != nil {
		return fmt.Errorf("load %q: %w", name, err)
	}
	if err := c.Restore(save); err != nil {
		if errors.Is(err, ErrInvalidSave) {
			return err
		}
		// The world was reset, so old commands no longer match it.
		if cerr := c.ClearHistory("load"); cerr != nil {
			c.logger.Warn("Failed to clear history after failed load", "error", cerr)
		}
		return err
	}
	c.logger.Info("Map loaded", "name", name, "tiles", len(save.Tiles), "objects", len(save.Objects))
	return c.ClearHistory("load")
}

// Restore replaces the world with the contents of save. History is left alone.
// Every tile is checked before the world is reset.
func (c *Controller) Restore(save *core.SaveFile) error {
	if err := validateSave(save); err != nil {
		return err
	}
	c.deps.World.Reset()
	for _, t := range save.Tiles {
		if err := c.deps.World.AddTile(t); err != nil {
			return fmt.Errorf("restore %q: %w", save.Name, err)
		}
	}
	for _, o := range save.Objects {
		c.deps.World.AddObject(o.Handle, o.Name, o.Transform)
	}
	return nil
}

func validateSave(save *core.SaveFile) error {
	if save == nil {
		return fmt.Errorf("restore: %w: nil save", ErrInvalidSave)
	}
	for _, t := range save.Tiles {
		if err := t.Heights.Validate(); err != nil {
			return fmt.Errorf("restore %q: %w: tile %s heights: %v", save.Name, ErrInvalidSave, t.Handle, err)
		}
		if err := t.Splats.Validate(); err != nil {
			return fmt.Errorf("restore %q: %w: tile %s splats: %v", save.Name, ErrInvalidSave, t.Handle, err)
		}
	}
	return nil
}

// List returns the names of every saved map.
func (c *Controller) List() ([]string, error) {
	if c.deps.Backend == nil {
		return nil, ErrNoBackend
	}
	return c.deps.Backend.ListMaps()
}

// ClearWorld removes every entity and clears the history.
func (c *Controller) ClearWorld() error {
	c.mu.Lock()
	if c.open != nil {
		c.open.Release()
		c.open = nil
	}
	c.selection = nil
	c.mu.Unlock()

	c.deps.World.Reset()
	return c.ClearHistory("world reset")
}
