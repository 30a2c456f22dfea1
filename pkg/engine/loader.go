package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/iwplayer/shell/pkg/assets"

	"github.com/sasha-s/go-deadlock"
)

var (
	ErrWrongName  = errors.New("file does not belong to this loader")
	ErrIncomplete = errors.New("loader is missing files")
)

// StagedLoader holds the files the engine will be started with, keyed by
// their canonical names.
type StagedLoader struct {
	tier      assets.Tier
	shareware bool

	mutex deadlock.Mutex
	files map[assets.FileKind][]byte
}

func NewEmpty(tier assets.Tier) *StagedLoader {
	return &StagedLoader{
		tier:  tier,
		files: make(map[assets.FileKind][]byte),
	}
}

// NewShareware returns an empty loader for the bundled data set. Its files
// are filled in by LoadShareware.
func NewShareware() *StagedLoader {
	loader := NewEmpty(assets.Shareware)
	loader.shareware = true
	return loader
}

func (l *StagedLoader) Tier() assets.Tier {
	return l.tier
}

func (l *StagedLoader) IsShareware() bool {
	return l.shareware
}

func (l *StagedLoader) Load(name string, data []byte) error {
	kind, tier, ok := assets.Classify(name)
	if !ok || tier != l.tier {
		return fmt.Errorf("%w: %s (tier %s)", ErrWrongName, name, l.tier)
	}

	l.mutex.Lock()
	l.files[kind] = data
	l.mutex.Unlock()
	return nil
}

func (l *StagedLoader) Has(kind assets.FileKind) bool {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	_, ok := l.files[kind]
	return ok
}

func (l *StagedLoader) Get(name string) ([]byte, bool) {
	kind, tier, ok := assets.Classify(name)
	if !ok || tier != l.tier {
		return nil, false
	}

	l.mutex.Lock()
	defer l.mutex.Unlock()
	data, ok := l.files[kind]
	return data, ok
}

func (l *StagedLoader) Missing() []assets.FileKind {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	missing := make([]assets.FileKind, 0)
	for _, kind := range assets.AllKinds {
		if _, ok := l.files[kind]; !ok {
			missing = append(missing, kind)
		}
	}
	return missing
}

func (l *StagedLoader) IsComplete() bool {
	return len(l.Missing()) == 0
}

// Names lists the staged files in sorted order.
func (l *StagedLoader) Names() []string {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	names := make([]string, 0, len(l.files))
	for kind := range l.files {
		names = append(names, assets.Filename(kind, l.tier))
	}
	sort.Strings(names)
	return names
}

// Factory builds staged loaders for the provisioning manager.
type Factory struct{}

func (Factory) NewEmpty(tier assets.Tier) assets.Loader {
	return NewEmpty(tier)
}

func (Factory) NewShareware() assets.Loader {
	return NewShareware()
}

var _ assets.Loader = (*StagedLoader)(nil)
var _ assets.LoaderFactory = Factory{}

// Source provides the bundled shareware files by canonical name.
type Source interface {
	Get(ctx context.Context, name string) ([]byte, error)
}

// RemoteSource fetches shareware files from a base URL.
type RemoteSource string

func (r RemoteSource) Get(ctx context.Context, name string) ([]byte, error) {
	return assets.DownloadBytes(ctx, assets.CleanSourcePath(string(r))+name)
}

// LoadShareware fills a shareware loader with the bundled files.
func LoadShareware(ctx context.Context, loader *StagedLoader, source Source) error {
	if !loader.IsShareware() {
		return fmt.Errorf("not a shareware loader")
	}

	for _, kind := range assets.AllKinds {
		name := assets.Filename(kind, assets.Shareware)
		data, err := source.Get(ctx, name)
		if err != nil {
			return fmt.Errorf("failed to load shareware file %s: %w", name, err)
		}

		err = loader.Load(name, data)
		if err != nil {
			return err
		}
	}

	return nil
}

// FillGaps stages shareware contents for every file a custom loader lacks,
// under the names of the loader's tier. It returns the kinds it filled.
func FillGaps(ctx context.Context, loader *StagedLoader, source Source) ([]assets.FileKind, error) {
	missing := loader.Missing()
	for _, kind := range missing {
		data, err := source.Get(ctx, assets.Filename(kind, assets.Shareware))
		if err != nil {
			return nil, fmt.Errorf("failed to fill %s: %w", kind, err)
		}

		err = loader.Load(assets.Filename(kind, loader.Tier()), data)
		if err != nil {
			return nil, err
		}
	}

	return missing, nil
}
