package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/iwplayer/shell/pkg/assets"

	"github.com/rs/zerolog/log"
	"github.com/sasha-s/go-deadlock"
)

const DEFAULT_CANVAS = "iw_player_canvas"

type Config struct {
	// The element the engine renders into and receives keys on
	Canvas     string
	Fullscreen bool
}

func DefaultConfig() Config {
	return Config{
		Canvas: DEFAULT_CANVAS,
	}
}

func (c Config) Validate() error {
	if c.Canvas == "" {
		return fmt.Errorf("engine config has no canvas")
	}
	return nil
}

// Engine starts a game from a staged loader. A failed start leaves the
// engine as it was.
type Engine interface {
	Start(ctx context.Context, loader *StagedLoader, config Config) error
}

func checkStart(loader *StagedLoader, config Config) error {
	if err := config.Validate(); err != nil {
		return err
	}

	missing := loader.Missing()
	if len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for _, kind := range missing {
			names = append(names, assets.Filename(kind, loader.Tier()))
		}
		return fmt.Errorf("%w: %s", ErrIncomplete, strings.Join(names, ", "))
	}

	return nil
}

// Exporter writes the staged files into a directory for a native engine
// build to pick up.
type Exporter struct {
	Directory string
}

func (e *Exporter) Start(ctx context.Context, loader *StagedLoader, config Config) error {
	if err := checkStart(loader, config); err != nil {
		return err
	}

	err := os.MkdirAll(e.Directory, 0755)
	if err != nil {
		return err
	}

	for _, name := range loader.Names() {
		if err := ctx.Err(); err != nil {
			return err
		}

		data, _ := loader.Get(name)
		err := assets.WriteBytes(data, filepath.Join(e.Directory, name))
		if err != nil {
			return fmt.Errorf("failed to export %s: %w", name, err)
		}
	}

	log.Info().
		Str("dir", e.Directory).
		Str("tier", loader.Tier().String()).
		Msg("exported game data")

	return nil
}

type Manifest struct {
	Tier      assets.Tier `json:"tier"`
	Shareware bool        `json:"shareware"`
	Canvas    string      `json:"canvas"`
	Files     []string    `json:"files"`
}

// Publisher hands the staged files to the browser engine over HTTP. The
// manifest is served at the handler root and each file under its name.
type Publisher struct {
	mutex  deadlock.RWMutex
	loader *StagedLoader
	config Config
}

func NewPublisher() *Publisher {
	return &Publisher{}
}

func (p *Publisher) Start(ctx context.Context, loader *StagedLoader, config Config) error {
	if err := checkStart(loader, config); err != nil {
		return err
	}

	p.mutex.Lock()
	p.loader = loader
	p.config = config
	p.mutex.Unlock()

	log.Info().
		Str("tier", loader.Tier().String()).
		Str("canvas", config.Canvas).
		Msg("published game data")

	return nil
}

func (p *Publisher) Manifest() (Manifest, bool) {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	if p.loader == nil {
		return Manifest{}, false
	}

	return Manifest{
		Tier:      p.loader.Tier(),
		Shareware: p.loader.IsShareware(),
		Canvas:    p.config.Canvas,
		Files:     p.loader.Names(),
	}, true
}

func (p *Publisher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := strings.Trim(r.URL.Path, "/")
	if name == "" {
		manifest, ok := p.Manifest()
		if !ok {
			http.Error(w, "no game started", http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(manifest)
		return
	}

	p.mutex.RLock()
	loader := p.loader
	p.mutex.RUnlock()

	if loader == nil {
		http.Error(w, "no game started", http.StatusNotFound)
		return
	}

	data, ok := loader.Get(name)
	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(data)
}

var _ Engine = (*Exporter)(nil)
var _ Engine = (*Publisher)(nil)
