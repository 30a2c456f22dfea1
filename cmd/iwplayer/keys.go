package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/iwplayer/shell/pkg/config"
	"github.com/iwplayer/shell/pkg/input"
)

// frameFor presses every key and then releases them in reverse order.
func frameFor(keys []string) []input.ToolkitEvent {
	frame := make([]input.ToolkitEvent, 0, 2*len(keys))
	for _, key := range keys {
		frame = append(frame, input.ToolkitEvent{Key: key, Pressed: true})
	}
	for i := len(keys) - 1; i >= 0; i-- {
		frame = append(frame, input.ToolkitEvent{Key: keys[i], Pressed: false})
	}
	return frame
}

func keysCommand(configs []string, keys []string, control bool) error {
	settings, err := config.Process(configs)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	surface := settings.Input.Surface
	document := input.NewRegistry()
	recorder := input.NewRecorder()
	document.Add(surface, recorder)

	bridge := input.NewBridge(document, surface)
	tap := input.NewControlTap(document, surface, settings.Input.Delay())
	defer tap.Close()

	start := time.Now()
	err = bridge.Forward(frameFor(keys))
	if err != nil {
		return err
	}

	if control {
		_, err = tap.HandleNative(input.KeyboardEvent{
			Type: input.KeyDown,
			Key:  input.CONTROL_KEY,
			Ctrl: true,
		})
		if err != nil {
			return err
		}
	}

	deadline := time.Now().Add(time.Second + settings.Input.Delay())
	for tap.Pending() > 0 {
		if time.Now().After(deadline) {
			return fmt.Errorf("control keyup was never sent")
		}
		time.Sleep(time.Millisecond)
	}

	for _, event := range recorder.Events() {
		modifiers := make([]string, 0)
		if event.Ctrl {
			modifiers = append(modifiers, "ctrl")
		}
		if event.Alt {
			modifiers = append(modifiers, "alt")
		}
		if event.Shift {
			modifiers = append(modifiers, "shift")
		}
		if event.Meta {
			modifiers = append(modifiers, "meta")
		}

		fmt.Printf(
			"%8s %-7s %-12q %s\n",
			event.At.Sub(start).Round(time.Microsecond),
			event.Type,
			event.Key,
			strings.Join(modifiers, "+"),
		)
	}

	return nil
}
