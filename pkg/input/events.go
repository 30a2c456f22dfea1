package input

type EventType string

const (
	KeyDown EventType = "keydown"
	KeyUp   EventType = "keyup"
)

const CONTROL_KEY = "Control"

// KeyboardEvent is a native keyboard event dispatched at a surface.
type KeyboardEvent struct {
	Type       EventType `cbor:"type" json:"type"`
	Key        string    `cbor:"key" json:"key"`
	Ctrl       bool      `cbor:"ctrl,omitempty" json:"ctrl,omitempty"`
	Alt        bool      `cbor:"alt,omitempty" json:"alt,omitempty"`
	Shift      bool      `cbor:"shift,omitempty" json:"shift,omitempty"`
	Meta       bool      `cbor:"meta,omitempty" json:"meta,omitempty"`
	Bubbles    bool      `cbor:"bubbles,omitempty" json:"bubbles,omitempty"`
	Cancelable bool      `cbor:"cancelable,omitempty" json:"cancelable,omitempty"`
}

type Modifiers struct {
	Ctrl  bool `cbor:"ctrl,omitempty"`
	Alt   bool `cbor:"alt,omitempty"`
	Shift bool `cbor:"shift,omitempty"`
	Meta  bool `cbor:"meta,omitempty"`
}

// ToolkitEvent is a key press or release as reported by the UI toolkit.
// Key is the toolkit's logical key name.
type ToolkitEvent struct {
	Key       string    `cbor:"key"`
	Pressed   bool      `cbor:"pressed"`
	Modifiers Modifiers `cbor:"modifiers"`
}

// The toolkit names these keys differently from the platform.
var nativeNames = map[string]string{
	"Up":    "ArrowUp",
	"Down":  "ArrowDown",
	"Left":  "ArrowLeft",
	"Right": "ArrowRight",
	"Space": " ",
}

// NativeName translates a toolkit key name into the platform key name.
func NativeName(key string) string {
	if name, ok := nativeNames[key]; ok {
		return name
	}
	return key
}

func (e ToolkitEvent) Native() KeyboardEvent {
	type_ := KeyUp
	if e.Pressed {
		type_ = KeyDown
	}

	return KeyboardEvent{
		Type:       type_,
		Key:        NativeName(e.Key),
		Ctrl:       e.Modifiers.Ctrl,
		Alt:        e.Modifiers.Alt,
		Shift:      e.Modifiers.Shift,
		Meta:       e.Modifiers.Meta,
		Bubbles:    true,
		Cancelable: true,
	}
}
