package input

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
)

const canvas = "iw_player_canvas"

func setup() (*Registry, *Recorder) {
	document := NewRegistry()
	recorder := NewRecorder()
	document.Add(canvas, recorder)
	return document, recorder
}

func TestNativeName(t *testing.T) {
	assert.Equal(t, "ArrowUp", NativeName("Up"))
	assert.Equal(t, "ArrowDown", NativeName("Down"))
	assert.Equal(t, "ArrowLeft", NativeName("Left"))
	assert.Equal(t, "ArrowRight", NativeName("Right"))
	assert.Equal(t, " ", NativeName("Space"))
	assert.Equal(t, "ArrowUp", NativeName("ArrowUp"))
	assert.Equal(t, "Enter", NativeName("Enter"))
	assert.Equal(t, "A", NativeName("A"))
}

func TestForwardKeepsOrder(t *testing.T) {
	document, recorder := setup()
	bridge := NewBridge(document, canvas)

	err := bridge.Forward([]ToolkitEvent{
		{Key: "ArrowUp", Pressed: true},
		{Key: "ArrowUp", Pressed: false},
	})
	require.NoError(t, err)

	events := recorder.Events()
	require.Len(t, events, 2)
	assert.Equal(t, KeyDown, events[0].Type)
	assert.Equal(t, "ArrowUp", events[0].Key)
	assert.True(t, events[0].Bubbles)
	assert.True(t, events[0].Cancelable)
	assert.Equal(t, KeyUp, events[1].Type)
	assert.Equal(t, "ArrowUp", events[1].Key)
}

func TestForwardTranslates(t *testing.T) {
	document, recorder := setup()
	bridge := NewBridge(document, canvas)

	require.NoError(t, bridge.Forward([]ToolkitEvent{
		{Key: "Space", Pressed: true, Modifiers: Modifiers{Shift: true}},
		{Key: "Left", Pressed: true},
		{Key: "Space", Pressed: false},
	}))

	events := recorder.Events()
	require.Len(t, events, 3)
	assert.Equal(t, " ", events[0].Key)
	assert.True(t, events[0].Shift)
	assert.Equal(t, "ArrowLeft", events[1].Key)
	assert.Equal(t, " ", events[2].Key)
	assert.Equal(t, KeyUp, events[2].Type)
}

func TestForwardMissingSurface(t *testing.T) {
	bridge := NewBridge(NewRegistry(), canvas)

	assert.NoError(t, bridge.Forward(nil))
	err := bridge.Forward([]ToolkitEvent{{Key: "A", Pressed: true}})
	assert.ErrorIs(t, err, ErrSurfaceNotFound)
}

type failingSurface struct{}

func (failingSurface) Dispatch(KeyboardEvent) error {
	return errors.New("gone")
}

func TestForwardStopsOnError(t *testing.T) {
	document := NewRegistry()
	document.Add(canvas, failingSurface{})

	err := NewBridge(document, canvas).Forward([]ToolkitEvent{{Key: "A", Pressed: true}})
	assert.ErrorContains(t, err, "gone")
}

func TestControlTap(t *testing.T) {
	document, recorder := setup()
	tap := NewControlTap(document, canvas, DEFAULT_CONTROL_DELAY)
	defer tap.Close()

	handled, err := tap.HandleNative(KeyboardEvent{Type: KeyDown, Key: CONTROL_KEY, Ctrl: true})
	require.NoError(t, err)
	require.True(t, handled)

	events := recorder.Events()
	require.Len(t, events, 1, "keydown is dispatched immediately")
	assert.Equal(t, KeyDown, events[0].Type)
	assert.Equal(t, CONTROL_KEY, events[0].Key)
	assert.True(t, events[0].Ctrl)
	assert.Equal(t, 1, tap.Pending())

	require.Eventually(t, func() bool {
		return recorder.Len() == 2
	}, time.Second, time.Millisecond)

	events = recorder.Events()
	assert.Equal(t, KeyUp, events[1].Type)
	assert.Equal(t, CONTROL_KEY, events[1].Key)
	assert.GreaterOrEqual(t, events[1].At.Sub(events[0].At), DEFAULT_CONTROL_DELAY)
	assert.Equal(t, 0, tap.Pending())
}

func TestControlTapIgnores(t *testing.T) {
	document, recorder := setup()
	tap := NewControlTap(document, canvas, DEFAULT_CONTROL_DELAY)
	defer tap.Close()

	for _, event := range []KeyboardEvent{
		{Type: KeyUp, Key: CONTROL_KEY},
		{Type: KeyDown, Key: "A", Ctrl: true},
		{Type: KeyDown, Key: CONTROL_KEY, Ctrl: true, Shift: true},
		{Type: KeyDown, Key: CONTROL_KEY, Ctrl: true, Alt: true},
		{Type: KeyDown, Key: CONTROL_KEY, Ctrl: true, Meta: true},
	} {
		handled, err := tap.HandleNative(event)
		require.NoError(t, err)
		assert.False(t, handled, "%+v", event)
	}

	assert.Equal(t, 0, recorder.Len())
	assert.Equal(t, 0, tap.Pending())
}

func TestControlTapRepeated(t *testing.T) {
	document, recorder := setup()
	tap := NewControlTap(document, canvas, DEFAULT_CONTROL_DELAY)
	defer tap.Close()

	for i := 0; i < 3; i++ {
		_, err := tap.HandleNative(KeyboardEvent{Type: KeyDown, Key: CONTROL_KEY, Ctrl: true})
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool {
		return recorder.Len() == 6
	}, time.Second, time.Millisecond)

	ups := 0
	for _, event := range recorder.Events() {
		if event.Type == KeyUp {
			ups++
		}
	}
	assert.Equal(t, 3, ups, "one keyup per press")
}

func TestControlTapClose(t *testing.T) {
	document, recorder := setup()
	tap := NewControlTap(document, canvas, 50*time.Millisecond)

	_, err := tap.HandleNative(KeyboardEvent{Type: KeyDown, Key: CONTROL_KEY, Ctrl: true})
	require.NoError(t, err)
	tap.Close()
	assert.Equal(t, 0, tap.Pending())

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, recorder.Len())
}

func TestControlTapMissingSurface(t *testing.T) {
	tap := NewControlTap(NewRegistry(), canvas, DEFAULT_CONTROL_DELAY)
	_, err := tap.HandleNative(KeyboardEvent{Type: KeyDown, Key: CONTROL_KEY, Ctrl: true})
	assert.ErrorIs(t, err, ErrSurfaceNotFound)
}

func writeMessage(t *testing.T, ctx context.Context, c *websocket.Conn, message Message) {
	data, err := cbor.Marshal(message)
	require.NoError(t, err)
	require.NoError(t, c.Write(ctx, websocket.MessageBinary, data))
}

func readDispatch(t *testing.T, ctx context.Context, c *websocket.Conn) KeyboardEvent {
	typ, data, err := c.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, websocket.MessageBinary, typ)

	var message Message
	require.NoError(t, cbor.Unmarshal(data, &message))
	require.Equal(t, DispatchOp, message.Op)
	require.NotNil(t, message.Event)
	return *message.Event
}

func TestIngress(t *testing.T) {
	server := httptest.NewServer(NewIngress(canvas, DEFAULT_CONTROL_DELAY, 1000))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	c, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer c.Close(websocket.StatusNormalClosure, "")

	writeMessage(t, ctx, c, Message{Op: HelloOp, Surface: canvas})
	writeMessage(t, ctx, c, Message{Op: FrameOp, Events: []ToolkitEvent{
		{Key: "Up", Pressed: true},
		{Key: "Up", Pressed: false},
	}})

	first := readDispatch(t, ctx, c)
	assert.Equal(t, KeyDown, first.Type)
	assert.Equal(t, "ArrowUp", first.Key)
	second := readDispatch(t, ctx, c)
	assert.Equal(t, KeyUp, second.Type)
	assert.Equal(t, "ArrowUp", second.Key)

	writeMessage(t, ctx, c, Message{Op: NativeOp, Event: &KeyboardEvent{
		Type: KeyDown,
		Key:  CONTROL_KEY,
		Ctrl: true,
	}})

	down := readDispatch(t, ctx, c)
	assert.Equal(t, KeyDown, down.Type)
	assert.Equal(t, CONTROL_KEY, down.Key)
	up := readDispatch(t, ctx, c)
	assert.Equal(t, KeyUp, up.Type)
	assert.Equal(t, CONTROL_KEY, up.Key)
}

func TestIngressWithoutSurface(t *testing.T) {
	server := httptest.NewServer(NewIngress(canvas, DEFAULT_CONTROL_DELAY, 1000))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	c, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer c.Close(websocket.StatusNormalClosure, "")

	writeMessage(t, ctx, c, Message{Op: HelloOp, Surface: "some_other_canvas"})
	writeMessage(t, ctx, c, Message{Op: FrameOp, Events: []ToolkitEvent{
		{Key: "A", Pressed: true},
	}})

	_, _, err = c.Read(ctx)
	require.Error(t, err)
	assert.Equal(t, websocket.StatusPolicyViolation, websocket.CloseStatus(err))
}
