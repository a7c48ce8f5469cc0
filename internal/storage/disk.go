package storage

import (
	"io/fs"
	"os"
	"path/filepath"
)

// DiskUsageBytes returns the total size in bytes of the given paths: the database file,
// the index snapshot artifacts and the upload directory.
// Each path may be a file or a directory (recursively summed).
// Missing paths contribute 0; other errors are returned.
func DiskUsageBytes(paths ...string) (int64, error) {
	var total int64
	for _, p := range paths {
		if p == "" {
			continue
		}
		info, err := os.Stat(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return 0, err
		}
		if !info.IsDir() {
			total += info.Size()
			continue
		}
		n, err := dirSize(p)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

func dirSize(dir string) (int64, error) {
	var total int64
	err := filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	return total, err
}
