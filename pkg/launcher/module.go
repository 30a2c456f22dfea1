package launcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/iwplayer/shell/pkg/assets"
	"github.com/iwplayer/shell/pkg/engine"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sasha-s/go-deadlock"
)

var ErrNoResetRequested = errors.New("no reset was requested")

// State is what the launcher shows besides the files themselves. Only user
// actions change it.
type State struct {
	Expanded     map[string]bool
	Playing      bool
	PendingReset bool
}

func (s State) clone() State {
	expanded := make(map[string]bool, len(s.Expanded))
	for name, value := range s.Expanded {
		expanded[name] = value
	}
	s.Expanded = expanded
	return s
}

type Launcher struct {
	manager   *assets.Manager
	engine    engine.Engine
	shareware engine.Source
	config    engine.Config

	mutex deadlock.Mutex
	state State

	// serializes play attempts
	playMutex deadlock.Mutex
	logger    zerolog.Logger
}

func New(
	manager *assets.Manager,
	game engine.Engine,
	shareware engine.Source,
	config engine.Config,
) *Launcher {
	return &Launcher{
		manager:   manager,
		engine:    game,
		shareware: shareware,
		config:    config,
		state: State{
			Expanded: make(map[string]bool),
		},
		logger: log.With().Str("component", "launcher").Logger(),
	}
}

func (l *Launcher) State() State {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.state.clone()
}

// Upload opens the picker and hands whatever it returns to the manager. A
// cancelled pick changes nothing.
func (l *Launcher) Upload(ctx context.Context, picker assets.Picker) (assets.UploadState, error) {
	files, err := picker.Open(ctx)
	if err != nil {
		return l.manager.State(), err
	}

	if len(files) == 0 {
		l.logger.Debug().Msg("file pick returned nothing")
		return l.manager.State(), nil
	}

	return l.manager.Ingest(ctx, files), nil
}

// TogglePanel flips a panel between expanded and collapsed and returns the
// new value.
func (l *Launcher) TogglePanel(name string) bool {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	expanded := !l.state.Expanded[name]
	l.state.Expanded[name] = expanded
	return expanded
}

func (l *Launcher) RequestReset() {
	l.mutex.Lock()
	l.state.PendingReset = true
	l.mutex.Unlock()
}

func (l *Launcher) CancelReset() {
	l.mutex.Lock()
	l.state.PendingReset = false
	l.mutex.Unlock()
}

// ConfirmReset forgets the uploaded files. It only works after RequestReset.
func (l *Launcher) ConfirmReset(ctx context.Context) error {
	l.mutex.Lock()
	if !l.state.PendingReset {
		l.mutex.Unlock()
		return ErrNoResetRequested
	}
	l.state.PendingReset = false
	l.mutex.Unlock()

	l.manager.Reset(ctx)
	return nil
}

// Stage builds a complete loader from the current upload state. The bundled
// files are loaded for the shareware loader and used to fill the gaps of a
// partial custom one.
func (l *Launcher) Stage(ctx context.Context) (*engine.StagedLoader, error) {
	state := l.manager.State()
	built, err := l.manager.BuildLoader(state)
	if err != nil {
		return nil, err
	}

	loader, ok := built.(*engine.StagedLoader)
	if !ok {
		return nil, fmt.Errorf("unexpected loader type %T", built)
	}

	if loader.IsShareware() {
		err = engine.LoadShareware(ctx, loader, l.shareware)
		if err != nil {
			return nil, err
		}
		return loader, nil
	}

	filled, err := engine.FillGaps(ctx, loader, l.shareware)
	if err != nil {
		return nil, err
	}

	if len(filled) > 0 {
		l.logger.Warn().
			Str("tier", loader.Tier().String()).
			Int("filled", len(filled)).
			Msg("custom files are incomplete, filling in with shareware")
	}

	return loader, nil
}

// Play stages the loader and starts the engine with it. Nothing changes
// unless the engine starts.
func (l *Launcher) Play(ctx context.Context) error {
	l.playMutex.Lock()
	defer l.playMutex.Unlock()

	loader, err := l.Stage(ctx)
	if err != nil {
		return fmt.Errorf("failed to stage game data: %w", err)
	}

	err = l.engine.Start(ctx, loader, l.config)
	if err != nil {
		return fmt.Errorf("failed to start engine: %w", err)
	}

	l.mutex.Lock()
	l.state.Playing = true
	l.mutex.Unlock()

	l.logger.Info().
		Str("tier", loader.Tier().String()).
		Bool("shareware", loader.IsShareware()).
		Msg("game started")

	return nil
}
