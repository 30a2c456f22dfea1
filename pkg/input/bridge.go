package input

import (
	"fmt"
	"time"

	"github.com/iwplayer/shell/pkg/timer"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sasha-s/go-deadlock"
)

// Bridge re-emits toolkit key events at the engine's surface, which does not
// see the toolkit's events on its own.
type Bridge struct {
	document Document
	target   string
}

func NewBridge(document Document, target string) *Bridge {
	return &Bridge{
		document: document,
		target:   target,
	}
}

// Forward dispatches the key events of one UI frame in the order they were
// delivered. The first failed dispatch aborts the rest of the frame.
func (b *Bridge) Forward(frame []ToolkitEvent) error {
	if len(frame) == 0 {
		return nil
	}

	surface, err := b.document.Surface(b.target)
	if err != nil {
		return err
	}

	for _, event := range frame {
		err := surface.Dispatch(event.Native())
		if err != nil {
			return fmt.Errorf("failed to dispatch %s: %w", event.Key, err)
		}
	}

	return nil
}

const DEFAULT_CONTROL_DELAY = 15 * time.Millisecond

// ControlTap passes plain Control presses through to the surface. The
// toolkit swallows them, so the document-level keydown is turned into a
// synthetic keydown and, after a short delay, a synthetic keyup.
//
// Each press arms its own timer; timers are never merged or cancelled, so
// quick repeated taps produce one keyup per press.
type ControlTap struct {
	document Document
	target   string
	delay    time.Duration

	mutex  deadlock.Mutex
	timers map[*timer.Timer]struct{}
	logger zerolog.Logger
}

func NewControlTap(document Document, target string, delay time.Duration) *ControlTap {
	return &ControlTap{
		document: document,
		target:   target,
		delay:    delay,
		timers:   make(map[*timer.Timer]struct{}),
		logger:   log.With().Str("component", "control-tap").Logger(),
	}
}

func isControlTap(event KeyboardEvent) bool {
	return event.Type == KeyDown &&
		event.Key == CONTROL_KEY &&
		!event.Shift &&
		!event.Alt &&
		!event.Meta
}

// HandleNative looks at a native keydown seen by the document. It returns
// true when the event was a Control tap and a keyup was scheduled.
func (c *ControlTap) HandleNative(event KeyboardEvent) (bool, error) {
	if !isControlTap(event) {
		return false, nil
	}

	surface, err := c.document.Surface(c.target)
	if err != nil {
		return false, err
	}

	err = surface.Dispatch(KeyboardEvent{
		Type:       KeyDown,
		Key:        CONTROL_KEY,
		Ctrl:       true,
		Bubbles:    true,
		Cancelable: true,
	})
	if err != nil {
		return false, err
	}

	var release *timer.Timer
	release = timer.AfterFunc(c.delay, func() {
		c.mutex.Lock()
		delete(c.timers, release)
		c.mutex.Unlock()

		err := surface.Dispatch(KeyboardEvent{
			Type:       KeyUp,
			Key:        CONTROL_KEY,
			Bubbles:    true,
			Cancelable: true,
		})
		if err != nil {
			c.logger.Warn().Err(err).Msg("failed to release control")
		}
	})

	c.mutex.Lock()
	c.timers[release] = struct{}{}
	c.mutex.Unlock()

	release.Start()
	return true, nil
}

// Pending is the number of keyups that have not been sent yet.
func (c *ControlTap) Pending() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	pending := 0
	for release := range c.timers {
		if release.Pending() {
			pending++
		}
	}
	return pending
}

// Close drops every keyup that has not been sent yet.
func (c *ControlTap) Close() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	for release := range c.timers {
		release.Stop()
	}
	c.timers = make(map[*timer.Timer]struct{})
}
