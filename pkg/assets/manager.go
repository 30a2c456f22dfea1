package assets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iwplayer/shell/pkg/utils"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sasha-s/go-deadlock"
)

// Loader is the engine object asset bytes are staged into before play.
type Loader interface {
	Load(name string, data []byte) error
}

type LoaderFactory interface {
	NewEmpty(tier Tier) Loader
	NewShareware() Loader
}

// Failure describes a store operation that did not go through.
type Failure struct {
	Op  string
	Key string
	Err error
}

func (f Failure) Error() string {
	if f.Key == "" {
		return fmt.Sprintf("store %s failed: %v", f.Op, f.Err)
	}
	return fmt.Sprintf("store %s %s failed: %v", f.Op, f.Key, f.Err)
}

func (f Failure) Unwrap() error {
	return f.Err
}

// Manager is the single owner of the files the user has supplied. The store
// is only a best-effort mirror of its state. Store writes are applied by a
// single worker in the order they were issued.
type Manager struct {
	store   Store
	loaders LoaderFactory

	mutex  deadlock.Mutex
	state  UploadState
	jobs   chan storeJob
	closed bool

	failures  *utils.Topic[Failure]
	dropMixed bool
	logger    zerolog.Logger
}

// JOB_BUFFER is how many store writes can be queued before the caller
// waits for the worker.
const JOB_BUFFER = 64

type storeJob struct {
	ctx context.Context
	op  string
	key string
	run func(ctx context.Context) error
	// closed once every job before it has been applied
	done chan struct{}
}

type ManagerOption func(*Manager)

// WithDropMixedTiers makes Restore discard files whose tier is lower than
// the tier of the restored set.
func WithDropMixedTiers() ManagerOption {
	return func(m *Manager) {
		m.dropMixed = true
	}
}

func NewManager(store Store, loaders LoaderFactory, options ...ManagerOption) *Manager {
	m := &Manager{
		store:    store,
		loaders:  loaders,
		state:    NoUpload(),
		jobs:     make(chan storeJob, JOB_BUFFER),
		failures: utils.NewTopic[Failure](),
		logger:   log.With().Str("component", "assets").Logger(),
	}

	for _, option := range options {
		option(m)
	}

	go m.pollJobs()

	return m
}

// State returns a copy of the current upload state.
func (m *Manager) State() UploadState {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.state.Clone()
}

// Failures subscribes to persistence failures.
func (m *Manager) Failures() *utils.Subscriber[Failure] {
	return m.failures.Subscribe()
}

func (m *Manager) pollJobs() {
	for job := range m.jobs {
		if job.done != nil {
			close(job.done)
			continue
		}

		err := job.run(job.ctx)
		if err != nil {
			m.report(Failure{Op: job.op, Key: job.key, Err: err})
		}
	}
}

// Flush waits for every store write and clear issued so far.
func (m *Manager) Flush() {
	m.mutex.Lock()
	if m.closed {
		m.mutex.Unlock()
		return
	}
	done := make(chan struct{})
	m.jobs <- storeJob{done: done}
	m.mutex.Unlock()

	<-done
}

// Close flushes the store queue and stops its worker. Store writes issued
// afterwards are dropped.
func (m *Manager) Close() {
	m.Flush()

	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	close(m.jobs)
}

func (m *Manager) report(failure Failure) {
	m.logger.Error().Err(failure.Err).
		Str("op", failure.Op).
		Str("key", failure.Key).
		Msg("asset store operation failed")
	m.failures.Publish(failure)
}

// enqueue hands a store operation to the worker. It must be called with
// the mutex held so that jobs are queued in the same order as the state
// changes they mirror. The operation outlives the caller's request.
func (m *Manager) enqueue(ctx context.Context, op string, key string, fn func(ctx context.Context) error) {
	if m.closed {
		m.logger.Warn().Str("op", op).Str("key", key).Msg("store is closed, dropping operation")
		return
	}

	m.jobs <- storeJob{
		ctx: context.WithoutCancel(ctx),
		op:  op,
		key: key,
		run: fn,
	}
}

type accepted struct {
	kind FileKind
	data []byte
}

// Ingest merges a batch of picked files into the current set. Unknown files
// and shareware files are skipped. A batch of a different tier than the
// current set replaces it. Accepted files are mirrored to the store in the
// background.
func (m *Manager) Ingest(ctx context.Context, files []PickedFile) UploadState {
	var batchTier Tier
	batch := make([]accepted, 0, len(files))

	for _, file := range files {
		kind, tier, ok := Classify(file.Name)
		if !ok {
			m.logger.Debug().Str("file", file.Name).Msg("skipping unrecognized file")
			continue
		}

		if !tier.Uploadable() {
			m.logger.Debug().Str("file", file.Name).Msg("skipping shareware file")
			continue
		}

		if batchTier == 0 {
			batchTier = tier
		}

		batch = append(batch, accepted{
			kind: kind,
			data: file.Data,
		})
	}

	m.mutex.Lock()
	if len(batch) == 0 {
		state := m.state.Clone()
		m.mutex.Unlock()
		return state
	}

	superseded := false
	set := m.state.Set()
	if set == nil {
		set = NewAssetSet(batchTier)
		m.state = NewUploadState(set)
	} else if set.Tier() != batchTier {
		m.logger.Info().
			Str("from", set.Tier().String()).
			Str("to", batchTier.String()).
			Msg("upload replaces files of another tier")
		set.SetTier(batchTier)
		superseded = true
	}

	for _, file := range batch {
		set.Put(file.kind, file.data)
	}

	// The old tier's files must be gone before the new ones land, or
	// Restore would pick them up again.
	if superseded {
		m.enqueue(ctx, "clear", "", m.store.Clear)
	}

	for _, file := range batch {
		name := Filename(file.kind, batchTier)
		data := file.data
		m.enqueue(ctx, "put", name, func(ctx context.Context) error {
			return m.store.Set(ctx, name, data)
		})
	}

	state := m.state.Clone()
	m.mutex.Unlock()

	m.logger.Info().
		Str("tier", batchTier.String()).
		Int("accepted", len(batch)).
		Int("skipped", len(files)-len(batch)).
		Bool("complete", state.IsComplete()).
		Msg("ingested files")

	return state
}

type lookup struct {
	kind  FileKind
	tier  Tier
	data  []byte
	found bool
}

func (m *Manager) lookup(ctx context.Context, kind FileKind) lookup {
	for _, tier := range []Tier{FullSix, Episode3} {
		name := Filename(kind, tier)
		data, err := m.store.Get(ctx, name)
		if err == nil {
			return lookup{kind: kind, tier: tier, data: data, found: true}
		}

		if !errors.Is(err, Missing) {
			m.logger.Warn().Err(err).Str("key", name).Msg("failed to read stored asset")
		}
	}

	return lookup{kind: kind}
}

// Restore rebuilds the upload state from the store. Each kind is resolved
// on its own, preferring tier 6 over tier 3. The set takes the highest tier
// found and keeps every file that was found, even when it is incomplete.
// Writes still queued are applied first.
func (m *Manager) Restore(ctx context.Context) UploadState {
	m.Flush()

	results := make(chan lookup, NUM_KINDS)
	for _, kind := range AllKinds {
		go func(kind FileKind) {
			results <- m.lookup(ctx, kind)
		}(kind)
	}

	best := Shareware
	found := make([]lookup, 0, NUM_KINDS)
	for range AllKinds {
		result := <-results
		if !result.found {
			continue
		}

		if result.tier >= best {
			best = result.tier
		}
		found = append(found, result)
	}

	state := NoUpload()
	if best > Shareware {
		set := NewAssetSet(best)
		mixed := make([]string, 0)
		for _, result := range found {
			if result.tier != best {
				mixed = append(mixed, Filename(result.kind, result.tier))
				if m.dropMixed {
					continue
				}
			}
			set.Put(result.kind, result.data)
		}

		if len(mixed) > 0 {
			m.logger.Warn().
				Str("tier", best.String()).
				Str("files", strings.Join(mixed, ",")).
				Bool("dropped", m.dropMixed).
				Msg("restored files from a lower tier")
		}

		state = NewUploadState(set)
	}

	m.mutex.Lock()
	m.state = state
	m.mutex.Unlock()

	m.logger.Info().
		Str("tier", state.Tier().String()).
		Bool("custom", state.IsCustom()).
		Bool("complete", state.IsComplete()).
		Msg("restored upload state")

	return state.Clone()
}

// BuildLoader turns an upload state into an engine loader. Missing slots are
// left out; filling them is up to the caller.
func (m *Manager) BuildLoader(state UploadState) (Loader, error) {
	set := state.Set()
	if set == nil {
		return m.loaders.NewShareware(), nil
	}

	loader := m.loaders.NewEmpty(set.Tier())
	for _, kind := range set.Kinds() {
		data, _ := set.Get(kind)
		name := Filename(kind, set.Tier())
		err := loader.Load(name, data)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", name, err)
		}
	}

	return loader, nil
}

// Reset forgets every uploaded file, in memory right away and in the store
// in the background.
func (m *Manager) Reset(ctx context.Context) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.state = NoUpload()
	m.logger.Info().Msg("resetting uploaded files")
	m.enqueue(ctx, "clear", "", m.store.Clear)
}
