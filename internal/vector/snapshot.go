package vector

import (
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const (
	structureSuffix = ".index"
	idsSuffix       = ".ids"
)

// idSnapshot is the identifier companion artifact. Load checks its length and
// dimension against the structure file to detect artifacts that do not belong together.
type idSnapshot struct {
	Version    int
	Structure  string
	Dimensions int
	IDs        []string
}

const idSnapshotVersion = 1

// writeFileAtomic writes to a temp file in the target directory and renames it over path,
// so readers never observe a half-written artifact.
func writeFileAtomic(path string, write func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()
	if err := write(tmp); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}
	committed = true
	return nil
}

func writeIDs(path string, snap *idSnapshot) error {
	return writeFileAtomic(path, func(w io.Writer) error {
		if err := gob.NewEncoder(w).Encode(snap); err != nil {
			return fmt.Errorf("encode ids: %w", err)
		}
		return nil
	})
}

func readIDs(path string) (*idSnapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ids file: %w", err)
	}
	defer f.Close()
	var snap idSnapshot
	if err := gob.NewDecoder(f).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode ids: %w", err)
	}
	if snap.Version != idSnapshotVersion {
		return nil, fmt.Errorf("unsupported ids snapshot version %d", snap.Version)
	}
	return &snap, nil
}

// fileExists reports whether path exists; other stat errors are returned.
func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}
