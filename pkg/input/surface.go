package input

import (
	"errors"
	"fmt"
	"time"

	"github.com/sasha-s/go-deadlock"
)

var ErrSurfaceNotFound = errors.New("surface not found")

// Surface accepts native keyboard events, e.g. the engine's canvas.
type Surface interface {
	Dispatch(event KeyboardEvent) error
}

// Document finds surfaces by their element id.
type Document interface {
	Surface(id string) (Surface, error)
}

// Registry is a Document backed by a table of surfaces.
type Registry struct {
	mutex    deadlock.RWMutex
	surfaces map[string]Surface
}

func NewRegistry() *Registry {
	return &Registry{
		surfaces: make(map[string]Surface),
	}
}

func (r *Registry) Add(id string, surface Surface) {
	r.mutex.Lock()
	r.surfaces[id] = surface
	r.mutex.Unlock()
}

func (r *Registry) Remove(id string) {
	r.mutex.Lock()
	delete(r.surfaces, id)
	r.mutex.Unlock()
}

func (r *Registry) Surface(id string) (Surface, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	surface, ok := r.surfaces[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSurfaceNotFound, id)
	}
	return surface, nil
}

type RecordedEvent struct {
	KeyboardEvent
	At time.Time
}

// Recorder is a surface that remembers everything dispatched at it.
type Recorder struct {
	mutex  deadlock.Mutex
	events []RecordedEvent
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Dispatch(event KeyboardEvent) error {
	r.mutex.Lock()
	r.events = append(r.events, RecordedEvent{
		KeyboardEvent: event,
		At:            time.Now(),
	})
	r.mutex.Unlock()
	return nil
}

func (r *Recorder) Events() []RecordedEvent {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return append([]RecordedEvent(nil), r.events...)
}

func (r *Recorder) Len() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.events)
}

var _ Surface = (*Recorder)(nil)
var _ Document = (*Registry)(nil)
