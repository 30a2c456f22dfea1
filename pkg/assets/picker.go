package assets

import (
	"context"
	"os"
)

// PickedFile is one file handed over by a file picker.
type PickedFile struct {
	Name string
	Data []byte
}

// Picker is the file-pick capability. A cancelled pick yields no files and
// no error.
type Picker interface {
	Open(ctx context.Context) ([]PickedFile, error)
}

// PathPicker "picks" the files at the given paths.
type PathPicker []string

func (p PathPicker) Open(ctx context.Context) ([]PickedFile, error) {
	files := make([]PickedFile, 0, len(p))
	for _, path := range p {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}

		files = append(files, PickedFile{
			Name: BaseName(path),
			Data: data,
		})
	}

	return files, nil
}

// Picked is a picker whose files are already in memory, such as the parts
// of a multipart upload.
type Picked []PickedFile

func (p Picked) Open(ctx context.Context) ([]PickedFile, error) {
	return p, nil
}
