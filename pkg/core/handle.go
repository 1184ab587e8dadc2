// pkg/core/handle.go
package core

// EntityHandle is a stable, comparable identifier issued by the host for each
// editable object. The history never interprets it beyond equality.
type EntityHandle string

// SameHandles reports whether a and b reference the same entities in the same order.
func SameHandles(a, b []EntityHandle) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// CloneHandles returns a copy of handles that does not share backing storage.
func CloneHandles(handles []EntityHandle) []EntityHandle {
	if handles == nil {
		return nil
	}
	out := make([]EntityHandle, len(handles))
	copy(out, handles)
	return out
}
