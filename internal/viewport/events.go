package viewport

type EventKind int

const (
	EventMove EventKind = iota
	EventZoom
	EventRotate
	EventResize
)

// every camera change fires exactly one of these
var AllEvents = []EventKind{EventMove, EventZoom, EventRotate, EventResize}

func (k EventKind) String() string {
	switch k {
	case EventMove:
		return "move"
	case EventZoom:
		return "zoom"
	case EventRotate:
		return "rotate"
	case EventResize:
		return "resize"
	default:
		return "unknown"
	}
}

type Event struct {
	Kind   EventKind
	Camera Camera
}

type Listener func(Event)

type entry struct {
	id uint64
	fn Listener
}

// On registers fn for kind and returns its deregistration func. Calling the
// returned func more than once is harmless.
func (v *Viewport) On(kind EventKind, fn Listener) (off func()) {
	if v.closed || fn == nil {
		return func() {}
	}
	v.nextID++
	id := v.nextID
	v.listeners[kind] = append(v.listeners[kind], entry{id: id, fn: fn})
	return func() { v.off(kind, id) }
}

func (v *Viewport) off(kind EventKind, id uint64) {
	list := v.listeners[kind]
	for i, e := range list {
		if e.id == id {
			v.listeners[kind] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

func (v *Viewport) ListenerCount() int {
	n := 0
	for _, l := range v.listeners {
		n += len(l)
	}
	return n
}

// Close drops every listener; later registrations are ignored.
func (v *Viewport) Close() {
	v.closed = true
	v.listeners = map[EventKind][]entry{}
}

func (v *Viewport) emit(kind EventKind) {
	list := v.listeners[kind]
	if len(list) == 0 {
		return
	}
	// listeners may deregister while we iterate
	snapshot := append([]entry(nil), list...)
	ev := Event{Kind: kind, Camera: v.cam}
	for _, e := range snapshot {
		e.fn(ev)
	}
}
