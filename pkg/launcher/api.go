package launcher

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"regexp"
	"sort"

	"github.com/iwplayer/shell/pkg/assets"
	"github.com/iwplayer/shell/pkg/engine"

	"github.com/rs/zerolog/log"
)

const MAX_UPLOAD_MEMORY = 32 << 20

var (
	PANEL_PATH_REGEX = regexp.MustCompile(`^/api/panels/([\w-]+)$`)
)

// API exposes the launcher's actions over HTTP. It expects to be mounted at
// /api/.
type API struct {
	launcher *Launcher
}

func NewAPI(launcher *Launcher) *API {
	return &API{launcher: launcher}
}

func writeJSON(w http.ResponseWriter, code int, value interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	err := json.NewEncoder(w).Encode(value)
	if err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

// readUpload collects the files of a multipart form. Fields are read in
// name order and files in the order they were sent, since the first file
// decides the tier of the batch.
func readUpload(r *http.Request) (assets.Picked, error) {
	err := r.ParseMultipartForm(MAX_UPLOAD_MEMORY)
	if err != nil {
		return nil, err
	}
	defer r.MultipartForm.RemoveAll()

	fields := make([]string, 0, len(r.MultipartForm.File))
	for field := range r.MultipartForm.File {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	files := make(assets.Picked, 0)
	for _, field := range fields {
		for _, header := range r.MultipartForm.File[field] {
			file, err := header.Open()
			if err != nil {
				return nil, err
			}

			data, err := io.ReadAll(file)
			file.Close()
			if err != nil {
				return nil, err
			}

			files = append(files, assets.PickedFile{
				Name: assets.BaseName(header.Filename),
				Data: data,
			})
		}
	}

	return files, nil
}

func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	path := r.URL.Path

	if path == "/api/status" {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, a.launcher.Status())
		return
	}

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	matches := PANEL_PATH_REGEX.FindStringSubmatch(path)
	if len(matches) == 2 {
		a.launcher.TogglePanel(matches[1])
		writeJSON(w, http.StatusOK, a.launcher.Status())
		return
	}

	switch path {
	case "/api/upload":
		files, err := readUpload(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		_, err = a.launcher.Upload(ctx, files)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
	case "/api/play":
		err := a.launcher.Play(ctx)
		if errors.Is(err, engine.ErrIncomplete) {
			writeError(w, http.StatusConflict, err)
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
	case "/api/reset":
		a.launcher.RequestReset()
	case "/api/reset/cancel":
		a.launcher.CancelReset()
	case "/api/reset/confirm":
		err := a.launcher.ConfirmReset(ctx)
		if err != nil {
			writeError(w, http.StatusConflict, err)
			return
		}
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, a.launcher.Status())
}
