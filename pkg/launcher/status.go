package launcher

import (
	"sort"

	"github.com/iwplayer/shell/pkg/assets"
)

type FileStatus struct {
	Kind     string `json:"kind" yaml:"kind"`
	Name     string `json:"name" yaml:"name"`
	Present  bool   `json:"present" yaml:"present"`
	Size     int    `json:"size,omitempty" yaml:"size,omitempty"`
	Checksum string `json:"checksum,omitempty" yaml:"checksum,omitempty"`
}

type Status struct {
	Tier         string       `json:"tier" yaml:"tier"`
	Custom       bool         `json:"custom" yaml:"custom"`
	Complete     bool         `json:"complete" yaml:"complete"`
	Playing      bool         `json:"playing" yaml:"playing"`
	PendingReset bool         `json:"pendingReset" yaml:"pendingReset"`
	Expanded     []string     `json:"expanded" yaml:"expanded"`
	Files        []FileStatus `json:"files" yaml:"files"`
}

func (l *Launcher) Status() Status {
	state := l.State()
	upload := l.manager.State()

	expanded := make([]string, 0, len(state.Expanded))
	for name, value := range state.Expanded {
		if value {
			expanded = append(expanded, name)
		}
	}
	sort.Strings(expanded)

	status := Status{
		Tier:         upload.Tier().String(),
		Custom:       upload.IsCustom(),
		Complete:     upload.IsComplete(),
		Playing:      state.Playing,
		PendingReset: state.PendingReset,
		Expanded:     expanded,
		Files:        make([]FileStatus, 0, assets.NUM_KINDS),
	}

	set := upload.Set()
	for _, kind := range assets.AllKinds {
		file := FileStatus{
			Kind: kind.String(),
			Name: assets.Filename(kind, upload.Tier()),
		}

		if set != nil {
			if data, ok := set.Get(kind); ok {
				file.Present = true
				file.Size = len(data)
				file.Checksum = assets.Checksum(data)
			}
		}

		status.Files = append(status.Files, file)
	}

	return status
}
