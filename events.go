package dtransform

import (
	"sync"

	"github.com/akmonengine/dtransform/ecs"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	PARENT_INVALID EventType = iota
	HIERARCHY_MALFORMED
	HIERARCHY_TOO_DEEP
	ORIGIN_STALE
	ORIGIN_RECOVERED
	ORIGIN_SHIFTED
)

type EventType uint8

// Event interface - all events implement this
type Event interface {
	Type() EventType
}

// ParentInvalidEvent is reported when an entity points at a parent without a local and world transform.
// The entity is propagated as a root for the frame.
type ParentInvalidEvent struct {
	Entity ecs.Entity
	Parent ecs.Entity
}

func (e ParentInvalidEvent) Type() EventType { return PARENT_INVALID }

// HierarchyMalformedEvent is reported when a child listed under Parent points at another parent
type HierarchyMalformedEvent struct {
	Parent ecs.Entity
	Child  ecs.Entity
}

func (e HierarchyMalformedEvent) Type() EventType { return HIERARCHY_MALFORMED }

// HierarchyTooDeepEvent is reported when the walk reaches MaxDepth, which usually means a cycle
type HierarchyTooDeepEvent struct {
	Entity ecs.Entity
	Depth  int
}

func (e HierarchyTooDeepEvent) Type() EventType { return HIERARCHY_TOO_DEEP }

// OriginStaleEvent is reported every frame the pinned origin entity has no world transform
type OriginStaleEvent struct {
	Entity ecs.Entity
	Origin mgl64.Vec3
}

func (e OriginStaleEvent) Type() EventType { return ORIGIN_STALE }

type OriginRecoveredEvent struct {
	Entity ecs.Entity
	Origin mgl64.Vec3
}

func (e OriginRecoveredEvent) Type() EventType { return ORIGIN_RECOVERED }

type OriginShiftedEvent struct {
	Previous mgl64.Vec3
	Current  mgl64.Vec3
}

func (e OriginShiftedEvent) Type() EventType { return ORIGIN_SHIFTED }

// Reporter receives the non fatal conditions met by the passes
type Reporter interface {
	Report(event Event)
}

func report(r Reporter, event Event) {
	if r != nil {
		r.Report(event)
	}
}

// EventListener - callback for events
type EventListener func(event Event)

// Events buffers the events of a frame and dispatches them once the frame is over.
// Report may be called from passes running concurrently.
type Events struct {
	mu sync.Mutex

	// Listeners by event type
	listeners map[EventType][]EventListener

	// Event buffer to send at flush
	buffer []Event

	counts     map[EventType]int
	lastCounts map[EventType]int
}

func NewEvents() *Events {
	return &Events{
		listeners:  make(map[EventType][]EventListener),
		buffer:     make([]Event, 0, 64),
		counts:     make(map[EventType]int),
		lastCounts: make(map[EventType]int),
	}
}

// Subscribe adds a listener for an event type
func (e *Events) Subscribe(eventType EventType, listener EventListener) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.listeners[eventType] = append(e.listeners[eventType], listener)
}

func (e *Events) Report(event Event) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.buffer = append(e.buffer, event)
	e.counts[event.Type()]++
}

// Count returns how many events of the given type the last flushed frame produced
func (e *Events) Count(eventType EventType) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.lastCounts[eventType]
}

// flush sends all buffered events and clears the buffer.
// inspect, when set, sees every event before the listeners.
func (e *Events) flush(inspect func(event Event)) {
	e.mu.Lock()
	buffer := e.buffer
	e.buffer = make([]Event, 0, cap(buffer))
	e.lastCounts, e.counts = e.counts, e.lastCounts
	clear(e.counts)
	listeners := make(map[EventType][]EventListener, len(e.listeners))
	for t, l := range e.listeners {
		listeners[t] = l
	}
	e.mu.Unlock()

	for _, event := range buffer {
		if inspect != nil {
			inspect(event)
		}
		for _, listener := range listeners[event.Type()] {
			listener(event)
		}
	}
}
