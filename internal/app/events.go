package app

// EventType identifies different session events.
type EventType int

const (
	EventImageLoaded EventType = iota
	EventPointsChanged
	EventProposalsChanged
	EventRegistryChanged
	EventHoverChanged
	EventColorChanged
	EventBaseImageRefreshed
	EventError
)

func (e EventType) String() string {
	switch e {
	case EventImageLoaded:
		return "image-loaded"
	case EventPointsChanged:
		return "points-changed"
	case EventProposalsChanged:
		return "proposals-changed"
	case EventRegistryChanged:
		return "registry-changed"
	case EventHoverChanged:
		return "hover-changed"
	case EventColorChanged:
		return "color-changed"
	case EventBaseImageRefreshed:
		return "base-image-refreshed"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// EventListener is called when an event occurs.
type EventListener func(data interface{})

type event struct {
	typ  EventType
	data interface{}
}

// On registers an event listener for the specified event type.
func (s *State) On(event EventType, listener EventListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type. It must not be
// called with s.mu held.
func (s *State) Emit(event EventType, data interface{}) {
	s.mu.RLock()
	listeners := s.listeners[event]
	s.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

func (s *State) emitAll(events []event) {
	for _, e := range events {
		s.Emit(e.typ, e.data)
	}
}
