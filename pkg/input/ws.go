package input

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/iwplayer/shell/pkg/utils"

	"github.com/fxamacker/cbor/v2"
	"github.com/mileusna/useragent"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
	"nhooyr.io/websocket"
)

type Op uint8

const (
	// page -> server: the page's canvas is ready under Surface
	HelloOp Op = iota
	// page -> server: the toolkit key events of one frame
	FrameOp
	// page -> server: a keydown seen by the document itself
	NativeOp
	// server -> page: dispatch Event at the canvas
	DispatchOp
)

type Message struct {
	Op      Op             `cbor:"op"`
	Surface string         `cbor:"surface,omitempty"`
	Events  []ToolkitEvent `cbor:"events,omitempty"`
	Event   *KeyboardEvent `cbor:"event,omitempty"`
}

const (
	SURFACE_BUFFER = 64
	WRITE_TIMEOUT  = 5 * time.Second
)

var ErrSlowSurface = errors.New("surface is not keeping up")

// WSSurface is a canvas in a browser page connected over a websocket.
type WSSurface struct {
	send      chan []byte
	closeSlow func()
}

func NewWSSurface(closeSlow func()) *WSSurface {
	return &WSSurface{
		send:      make(chan []byte, SURFACE_BUFFER),
		closeSlow: closeSlow,
	}
}

func (s *WSSurface) Dispatch(event KeyboardEvent) error {
	bytes, err := cbor.Marshal(Message{
		Op:    DispatchOp,
		Event: &event,
	})
	if err != nil {
		return err
	}

	select {
	case s.send <- bytes:
		return nil
	default:
		if s.closeSlow != nil {
			s.closeSlow()
		}
		return ErrSlowSurface
	}
}

func WriteTimeout(ctx context.Context, timeout time.Duration, c *websocket.Conn, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.Write(ctx, websocket.MessageBinary, msg)
}

func (s *WSSurface) pollWrites(ctx context.Context, c *websocket.Conn) {
	for {
		select {
		case msg := <-s.send:
			err := WriteTimeout(ctx, WRITE_TIMEOUT, c, msg)
			if err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// Ingress accepts websocket connections from player pages and runs a bridge
// and a Control tap for each of them.
type Ingress struct {
	target            string
	delay             time.Duration
	messagesPerSecond int
}

func NewIngress(target string, delay time.Duration, messagesPerSecond int) *Ingress {
	if delay <= 0 {
		delay = DEFAULT_CONTROL_DELAY
	}
	if messagesPerSecond <= 0 {
		messagesPerSecond = 120
	}

	return &Ingress{
		target:            target,
		delay:             delay,
		messagesPerSecond: messagesPerSecond,
	}
}

func deviceType(agent useragent.UserAgent) string {
	switch {
	case agent.Mobile:
		return "mobile"
	case agent.Tablet:
		return "tablet"
	case agent.Desktop:
		return "desktop"
	}
	return "unknown"
}

func (i *Ingress) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to accept input websocket")
		return
	}
	defer c.Close(websocket.StatusInternalError, "operational error")

	agent := useragent.Parse(r.UserAgent())
	err = i.HandleClient(r.Context(), c, r.RemoteAddr, agent)

	if errors.Is(err, context.Canceled) ||
		websocket.CloseStatus(err) == websocket.StatusNormalClosure ||
		websocket.CloseStatus(err) == websocket.StatusGoingAway {
		return
	}
	if err != nil {
		log.Debug().Err(err).Msg("input websocket closed")
		return
	}

	c.Close(websocket.StatusNormalClosure, "")
}

func (i *Ingress) HandleClient(ctx context.Context, c *websocket.Conn, host string, agent useragent.UserAgent) error {
	session := utils.NewSession(ctx)
	defer session.Cancel()
	ctx = session.Ctx()

	logger := log.With().
		Str("session", session.Id()).
		Str("host", host).
		Str("device", deviceType(agent)).
		Str("browser", agent.Name).
		Logger()

	surface := NewWSSurface(func() {
		c.Close(websocket.StatusPolicyViolation, "connection too slow to keep up with messages")
	})
	go surface.pollWrites(ctx, c)

	document := NewRegistry()
	bridge := NewBridge(document, i.target)
	tap := NewControlTap(document, i.target, i.delay)
	defer tap.Close()

	limiter := rate.NewLimiter(rate.Limit(i.messagesPerSecond), i.messagesPerSecond)

	logger.Info().Msg("input client connected")
	defer func() {
		logger.Info().Dur("duration", time.Since(session.Started())).Msg("input client disconnected")
	}()

	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			return err
		}

		if typ != websocket.MessageBinary {
			continue
		}

		if !limiter.Allow() {
			logger.Warn().Msg("dropping input message over the rate limit")
			continue
		}

		var message Message
		if err := cbor.Unmarshal(data, &message); err != nil {
			logger.Debug().Err(err).Msg("invalid input message")
			continue
		}

		err = i.handleMessage(logger, surface, document, bridge, tap, message)
		if errors.Is(err, ErrSurfaceNotFound) {
			logger.Error().Err(err).Msg("page has no engine surface")
			c.Close(websocket.StatusPolicyViolation, "no engine surface")
			return err
		}
		if err != nil {
			logger.Warn().Err(err).Msg("failed to handle input message")
		}
	}
}

func (i *Ingress) handleMessage(
	logger zerolog.Logger,
	surface *WSSurface,
	document *Registry,
	bridge *Bridge,
	tap *ControlTap,
	message Message,
) error {
	switch message.Op {
	case HelloOp:
		id := message.Surface
		if id == "" {
			id = i.target
		}
		document.Add(id, surface)
		logger.Debug().Str("surface", id).Msg("surface registered")
		return nil
	case FrameOp:
		return bridge.Forward(message.Events)
	case NativeOp:
		if message.Event == nil {
			return nil
		}
		_, err := tap.HandleNative(*message.Event)
		return err
	}

	return nil
}
