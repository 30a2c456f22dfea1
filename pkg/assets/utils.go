package assets

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"
)

func FileExists(path string) bool {
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return true
	}
	return false
}

// WriteBytes writes data to a temporary file next to path and renames it
// into place, so a crash never leaves a truncated asset behind.
func WriteBytes(data []byte, path string) error {
	temp := path + ".tmp"
	out, err := os.Create(temp)
	if err != nil {
		return err
	}

	_, err = out.Write(data)
	if err != nil {
		out.Close()
		os.Remove(temp)
		return err
	}

	err = out.Close()
	if err != nil {
		os.Remove(temp)
		return err
	}

	return os.Rename(temp, path)
}

func DownloadBytes(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, Missing
	}

	// Check server response
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bad status: %s", resp.Status)
	}

	return io.ReadAll(resp.Body)
}

// CleanSourcePath turns an index or file URL into the directory URL that
// contains it.
func CleanSourcePath(indexURL string) string {
	if strings.HasSuffix(indexURL, "/") {
		return indexURL
	}

	lastSlash := strings.LastIndex(indexURL, "/")
	if lastSlash == -1 {
		return ""
	}

	return indexURL[:lastSlash+1]
}

// BaseName strips any directory a file picker may have left in a name.
func BaseName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	return filepath.Base(name)
}

func Checksum(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}
