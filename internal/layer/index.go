package layer

import "fmt"

// ResolveIndex converts a selection position from a front-to-back list
// into a storage index. The list shows the stack mirrored, so selection s
// maps to storage index length-1-s (equivalently, -(s+1) from the end).
//
// NoSelection yields ErrNoSelection; callers treat that as a no-op.
func ResolveIndex(selection, length int) (int, error) {
	if selection == NoSelection {
		return 0, ErrNoSelection
	}
	if selection < 0 || selection >= length {
		return 0, fmt.Errorf("%w: selection %d (length %d)", ErrIndex, selection, length)
	}
	return length - 1 - selection, nil
}

// SelectionOf is the inverse of ResolveIndex.
func SelectionOf(index, length int) int {
	if index < 0 || index >= length {
		return NoSelection
	}
	return length - 1 - index
}
