package session

import (
	"fmt"

	"github.com/runtimeeditor/history/internal/dispatcher"
	"github.com/runtimeeditor/history/internal/util"
	"github.com/runtimeeditor/history/pkg/core"
)

// RegisterHandlers registers the host bridge commands with the dispatcher.
// Every mutating command is serialized so gestures from the host apply in order.
func (c *Controller) RegisterHandlers(d *dispatcher.Dispatcher) {
	// Gestures
	d.Register(":TX:OPEN:", c.handleOpen, dispatcher.Serialized(), dispatcher.Logged())
	d.Register(":TX:STROKE:", c.handleStroke, dispatcher.Serialized(), dispatcher.Logged())
	d.Register(":TX:TOUCH:", c.handleTouch, dispatcher.Serialized())
	d.Register(":TX:CLOSE:", c.handleClose, dispatcher.Serialized(), dispatcher.Logged())
	d.Register(":TX:CANCEL:", c.handleCancel, dispatcher.Serialized(), dispatcher.Logged())

	// History
	d.Register(":UNDO:", c.handleUndo, dispatcher.Serialized(), dispatcher.Logged())
	d.Register(":REDO:", c.handleRedo, dispatcher.Serialized(), dispatcher.Logged())
	d.Register(":HISTORY:CLEAR:", c.handleClear, dispatcher.Serialized(), dispatcher.Logged())
	d.Register(":HISTORY:STATE:", c.handleState)

	// Never recorded
	d.Register(":SELECT:", c.handleSelect, dispatcher.Serialized())
	d.Register(":TOOL:", c.handleTool, dispatcher.Serialized(), dispatcher.Logged())

	// Object lifecycle
	d.Register(":PLACE:", c.handlePlace, dispatcher.Serialized(), dispatcher.Logged())
	d.Register(":DELETE:", c.handleDelete, dispatcher.Serialized(), dispatcher.Logged())
	d.Register(":GROUP:", c.handleGroup, dispatcher.Serialized(), dispatcher.Logged())
	d.Register(":UNGROUP:", c.handleUngroup, dispatcher.Serialized(), dispatcher.Logged())

	// Persistence
	d.Register(":SAVE:", c.handleSave, dispatcher.Serialized(), dispatcher.Logged())
	d.Register(":LOAD:", c.handleLoad, dispatcher.Serialized(), dispatcher.Logged())
	d.Register(":LIST:", c.handleList)
}

func requireArgs(e dispatcher.Event, n int) error {
	if len(e.Args) < n {
		return fmt.Errorf("%s: want at least %d args, got %d", e.Command, n, len(e.Args))
	}
	return nil
}

func (c *Controller) handleOpen(e dispatcher.Event) (any, error) {
	if err := requireArgs(e, 1); err != nil {
		return nil, err
	}
	kind, err := core.ParseKind(util.CleanArg(e.Args[0]))
	if err != nil {
		return nil, err
	}
	return nil, c.OpenTransaction(kind, util.ParseHandles(e.Args[1:])...)
}

func (c *Controller) handleStroke(e dispatcher.Event) (any, error) {
	if err := requireArgs(e, 1); err != nil {
		return nil, err
	}
	mode, err := ParseBrushMode(util.CleanArg(e.Args[0]))
	if err != nil {
		return nil, err
	}
	return nil, c.BeginStroke(mode)
}

func (c *Controller) handleTouch(e dispatcher.Event) (any, error) {
	if err := requireArgs(e, 1); err != nil {
		return nil, err
	}
	added := 0
	for _, h := range util.ParseHandles(e.Args) {
		ok, err := c.Touch(h)
		if err != nil {
			return added, err
		}
		if ok {
			added++
		}
	}
	return added, nil
}

func (c *Controller) handleClose(dispatcher.Event) (any, error) {
	return c.CloseTransaction()
}

func (c *Controller) handleCancel(dispatcher.Event) (any, error) {
	return nil, c.Cancel()
}

func (c *Controller) handleUndo(dispatcher.Event) (any, error) {
	return c.Undo()
}

func (c *Controller) handleRedo(dispatcher.Event) (any, error) {
	return c.Redo()
}

func (c *Controller) handleClear(e dispatcher.Event) (any, error) {
	reason := "host"
	if len(e.Args) > 0 {
		reason = util.CleanArg(e.Args[0])
	}
	return nil, c.ClearHistory(reason)
}

func (c *Controller) handleState(dispatcher.Event) (any, error) {
	return c.State(), nil
}

func (c *Controller) handleSelect(e dispatcher.Event) (any, error) {
	c.Select(util.ParseHandles(e.Args)...)
	return nil, nil
}

func (c *Controller) handleTool(e dispatcher.Event) (any, error) {
	if err := requireArgs(e, 1); err != nil {
		return nil, err
	}
	return nil, c.SetTool(util.CleanArg(e.Args[0]))
}

// handlePlace expects: handle, name, [x,y,z]
func (c *Controller) handlePlace(e dispatcher.Event) (any, error) {
	if err := requireArgs(e, 3); err != nil {
		return nil, err
	}
	pos, err := util.ParseVec3(e.Args[2])
	if err != nil {
		return nil, fmt.Errorf("%s position: %w", e.Command, err)
	}
	t := core.IdentityTransform()
	t.Position = pos
	return c.Place(core.EntityHandle(util.CleanArg(e.Args[0])), util.CleanArg(e.Args[1]), t)
}

func (c *Controller) handleDelete(e dispatcher.Event) (any, error) {
	if err := requireArgs(e, 1); err != nil {
		return nil, err
	}
	deleted := 0
	for _, h := range util.ParseHandles(e.Args) {
		ok, err := c.Delete(h)
		if err != nil {
			return deleted, err
		}
		if ok {
			deleted++
		}
	}
	return deleted, nil
}

// handleGroup expects: name, members...
func (c *Controller) handleGroup(e dispatcher.Event) (any, error) {
	if err := requireArgs(e, 3); err != nil {
		return nil, err
	}
	info, err := c.Group(util.CleanArg(e.Args[0]), util.ParseHandles(e.Args[1:])...)
	if err != nil {
		return nil, err
	}
	return info.ID, nil
}

func (c *Controller) handleUngroup(e dispatcher.Event) (any, error) {
	if err := requireArgs(e, 1); err != nil {
		return nil, err
	}
	return nil, c.Ungroup(util.CleanArg(e.Args[0]))
}

func (c *Controller) handleSave(e dispatcher.Event) (any, error) {
	if err := requireArgs(e, 1); err != nil {
		return nil, err
	}
	return nil, c.Save(util.CleanArg(e.Args[0]))
}

func (c *Controller) handleLoad(e dispatcher.Event) (any, error) {
	if err := requireArgs(e, 1); err != nil {
		return nil, err
	}
	return nil, c.Load(util.CleanArg(e.Args[0]))
}

func (c *Controller) handleList(dispatcher.Event) (any, error) {
	return c.List()
}
