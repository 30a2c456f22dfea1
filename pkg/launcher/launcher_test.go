package launcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/iwplayer/shell/pkg/assets"
	"github.com/iwplayer/shell/pkg/engine"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	fail    error
	started []*engine.StagedLoader
}

func (e *fakeEngine) Start(ctx context.Context, loader *engine.StagedLoader, config engine.Config) error {
	if e.fail != nil {
		return e.fail
	}
	if !loader.IsComplete() {
		return engine.ErrIncomplete
	}
	e.started = append(e.started, loader)
	return nil
}

func shareware(t *testing.T) *assets.MemoryStore {
	source := assets.NewMemoryStore()
	for _, kind := range assets.AllKinds {
		name := assets.Filename(kind, assets.Shareware)
		require.NoError(t, source.Set(context.Background(), name, []byte(name)))
	}
	return source
}

func files(tier assets.Tier, kinds ...assets.FileKind) assets.Picked {
	picked := make(assets.Picked, 0, len(kinds))
	for _, kind := range kinds {
		name := assets.Filename(kind, tier)
		picked = append(picked, assets.PickedFile{Name: name, Data: []byte(name)})
	}
	return picked
}

func setup(t *testing.T) (*Launcher, *assets.Manager, *fakeEngine) {
	manager := assets.NewManager(assets.NewMemoryStore(), engine.Factory{})
	game := &fakeEngine{}
	return New(manager, game, shareware(t), engine.DefaultConfig()), manager, game
}

func TestPanels(t *testing.T) {
	launcher, _, _ := setup(t)

	assert.True(t, launcher.TogglePanel("help"))
	assert.True(t, launcher.TogglePanel("files"))
	assert.False(t, launcher.TogglePanel("help"))

	state := launcher.State()
	assert.False(t, state.Expanded["help"])
	assert.True(t, state.Expanded["files"])

	// The returned state is a copy
	state.Expanded["help"] = true
	assert.False(t, launcher.State().Expanded["help"])

	assert.Equal(t, []string{"files"}, launcher.Status().Expanded)
}

func TestUpload(t *testing.T) {
	launcher, manager, _ := setup(t)
	ctx := context.Background()

	state, err := launcher.Upload(ctx, files(assets.FullSix, assets.AudioHeader, assets.MapData))
	require.NoError(t, err)
	assert.True(t, state.IsCustom())
	assert.Equal(t, assets.FullSix, state.Tier())
	manager.Flush()

	// A cancelled pick leaves everything alone
	state, err = launcher.Upload(ctx, assets.Picked{})
	require.NoError(t, err)
	assert.Equal(t, 2, state.Set().Len())

	_, err = launcher.Upload(ctx, assets.PathPicker{"/does/not/exist/VSWAP.WL6"})
	assert.Error(t, err)
	assert.Equal(t, 2, manager.State().Set().Len())
}

func TestReset(t *testing.T) {
	launcher, manager, _ := setup(t)
	ctx := context.Background()

	_, err := launcher.Upload(ctx, files(assets.Episode3, assets.Config))
	require.NoError(t, err)

	assert.ErrorIs(t, launcher.ConfirmReset(ctx), ErrNoResetRequested)
	assert.True(t, manager.State().IsCustom())

	launcher.RequestReset()
	assert.True(t, launcher.State().PendingReset)
	launcher.CancelReset()
	assert.False(t, launcher.State().PendingReset)
	assert.ErrorIs(t, launcher.ConfirmReset(ctx), ErrNoResetRequested)

	launcher.RequestReset()
	require.NoError(t, launcher.ConfirmReset(ctx))
	assert.False(t, launcher.State().PendingReset)
	assert.False(t, manager.State().IsCustom())

	manager.Flush()
	assert.False(t, manager.Restore(ctx).IsCustom())
}

func TestPlayShareware(t *testing.T) {
	launcher, _, game := setup(t)

	require.NoError(t, launcher.Play(context.Background()))
	assert.True(t, launcher.State().Playing)

	require.Len(t, game.started, 1)
	loader := game.started[0]
	assert.True(t, loader.IsShareware())
	assert.True(t, loader.IsComplete())

	data, ok := loader.Get("VSWAP.WL1")
	require.True(t, ok)
	assert.Equal(t, []byte("VSWAP.WL1"), data)
}

func TestPlayFillsGaps(t *testing.T) {
	launcher, _, game := setup(t)
	ctx := context.Background()

	_, err := launcher.Upload(ctx, files(assets.FullSix, assets.MapData))
	require.NoError(t, err)

	require.NoError(t, launcher.Play(ctx))
	require.Len(t, game.started, 1)

	loader := game.started[0]
	assert.Equal(t, assets.FullSix, loader.Tier())
	assert.True(t, loader.IsComplete())

	data, _ := loader.Get("GAMEMAPS.WL6")
	assert.Equal(t, []byte("GAMEMAPS.WL6"), data)
	data, _ = loader.Get("VSWAP.WL6")
	assert.Equal(t, []byte("VSWAP.WL1"), data)
}

func TestPlayFailure(t *testing.T) {
	launcher, _, game := setup(t)
	ctx := context.Background()

	game.fail = errors.New("no canvas")
	err := launcher.Play(ctx)
	assert.ErrorContains(t, err, "no canvas")
	assert.False(t, launcher.State().Playing)

	// Without bundled files nothing can be staged
	broken := New(
		assets.NewManager(assets.NewMemoryStore(), engine.Factory{}),
		&fakeEngine{},
		assets.NewMemoryStore(),
		engine.DefaultConfig(),
	)
	err = broken.Play(ctx)
	assert.ErrorIs(t, err, assets.Missing)
	assert.False(t, broken.State().Playing)
}

func TestStatus(t *testing.T) {
	launcher, _, _ := setup(t)

	status := launcher.Status()
	assert.Equal(t, "shareware", status.Tier)
	assert.False(t, status.Custom)
	assert.False(t, status.Complete)
	require.Len(t, status.Files, assets.NUM_KINDS)
	assert.Equal(t, "AUDIOHED.WL1", status.Files[0].Name)
	assert.False(t, status.Files[0].Present)

	_, err := launcher.Upload(context.Background(), files(assets.Episode3, assets.AudioHeader))
	require.NoError(t, err)

	status = launcher.Status()
	assert.Equal(t, "episode-3", status.Tier)
	assert.True(t, status.Custom)
	file := status.Files[0]
	assert.Equal(t, "AUDIOHED.WL3", file.Name)
	assert.True(t, file.Present)
	assert.Equal(t, len("AUDIOHED.WL3"), file.Size)
	assert.Equal(t, assets.Checksum([]byte("AUDIOHED.WL3")), file.Checksum)
	assert.False(t, status.Files[1].Present)
}

func request(t *testing.T, handler http.Handler, method string, path string) (int, Status) {
	r := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	var status Status
	if w.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	}
	return w.Code, status
}

func TestAPI(t *testing.T) {
	launcher, manager, game := setup(t)
	api := NewAPI(launcher)

	code, status := request(t, api, http.MethodGet, "/api/status")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "shareware", status.Tier)

	code, _ = request(t, api, http.MethodPost, "/api/status")
	assert.Equal(t, http.StatusMethodNotAllowed, code)
	code, _ = request(t, api, http.MethodPost, "/api/unknown")
	assert.Equal(t, http.StatusNotFound, code)

	// Upload two files in one form
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for _, name := range []string{"VSWAP.WL6", "readme.txt"} {
		part, err := writer.CreateFormFile("files", name)
		require.NoError(t, err)
		part.Write([]byte(name))
	}
	require.NoError(t, writer.Close())

	r := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	r.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	api.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, "full", status.Tier)
	assert.Equal(t, 1, manager.State().Set().Len())
	manager.Flush()

	code, status = request(t, api, http.MethodPost, "/api/panels/files")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []string{"files"}, status.Expanded)

	code, status = request(t, api, http.MethodPost, "/api/play")
	require.Equal(t, http.StatusOK, code)
	assert.True(t, status.Playing)
	assert.Len(t, game.started, 1)

	code, _ = request(t, api, http.MethodPost, "/api/reset/confirm")
	assert.Equal(t, http.StatusConflict, code)

	code, status = request(t, api, http.MethodPost, "/api/reset")
	require.Equal(t, http.StatusOK, code)
	assert.True(t, status.PendingReset)

	code, status = request(t, api, http.MethodPost, "/api/reset/confirm")
	require.Equal(t, http.StatusOK, code)
	assert.False(t, status.PendingReset)
	assert.False(t, status.Custom)
	manager.Flush()
}

func TestReadUploadOrder(t *testing.T) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for _, file := range []struct{ field, name string }{
		{"b", "VSWAP.WL6"},
		{"a", "VSWAP.WL3"},
		{"a", "CONFIG.WL3"},
		{"c", "MAPHEAD.WL6"},
	} {
		part, err := writer.CreateFormFile(file.field, file.name)
		require.NoError(t, err)
		part.Write([]byte(file.name))
	}
	require.NoError(t, writer.Close())

	r := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	r.Header.Set("Content-Type", writer.FormDataContentType())

	files, err := readUpload(r)
	require.NoError(t, err)

	names := make([]string, 0, len(files))
	for _, file := range files {
		names = append(names, file.Name)
	}
	assert.Equal(t, []string{"VSWAP.WL3", "CONFIG.WL3", "VSWAP.WL6", "MAPHEAD.WL6"}, names)

	launcher, _, _ := setup(t)
	state, err := launcher.Upload(context.Background(), files)
	require.NoError(t, err)
	assert.Equal(t, assets.Episode3, state.Tier())
}
