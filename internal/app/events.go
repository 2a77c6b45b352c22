package app

// EventType identifies different session events.
type EventType int

const (
	// EventLayersChanged fires after the stack changes. Data is the new selection.
	EventLayersChanged EventType = iota
	// EventViewChanged fires after a zoom, pan or layer move. Data is the zoom level.
	EventViewChanged
	// EventMinimapChanged fires after the minimap is reprojected. Data is the camera.
	EventMinimapChanged
	// EventMapLoaded fires after New or Open. Data is the map path, empty for a new map.
	EventMapLoaded
	// EventMapSaved fires after a successful save. Data is the map path.
	EventMapSaved
	// EventModified fires when the unsaved-changes flag flips. Data is the flag.
	EventModified
)

func (e EventType) String() string {
	switch e {
	case EventLayersChanged:
		return "LayersChanged"
	case EventViewChanged:
		return "ViewChanged"
	case EventMinimapChanged:
		return "MinimapChanged"
	case EventMapLoaded:
		return "MapLoaded"
	case EventMapSaved:
		return "MapSaved"
	case EventModified:
		return "Modified"
	default:
		return "Unknown"
	}
}

// EventListener is called when an event occurs.
type EventListener func(data interface{})

type pendingEvent struct {
	event EventType
	data  interface{}
}

// On registers an event listener for the specified event type.
func (s *Session) On(event EventType, listener EventListener) {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (s *Session) Emit(event EventType, data interface{}) {
	s.lmu.RLock()
	listeners := s.listeners[event]
	s.lmu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// queue records an event to be emitted once the session lock is released.
func (s *Session) queue(event EventType, data interface{}) {
	s.pending = append(s.pending, pendingEvent{event, data})
}

// do runs fn under the session lock and then emits whatever fn queued, so
// listeners may call back into the session.
func (s *Session) do(fn func() error) error {
	s.mu.Lock()
	err := fn()
	events := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, e := range events {
		s.Emit(e.event, e.data)
	}
	return err
}
