package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// Usage reports how many bytes a store occupies on disk, sidecar files included.
func Usage(store BlockStore) (int64, error) {
	return DiskUsageBytes(store.Paths()...)
}

// DiskUsageBytes sums the sizes of files and directory trees. Missing paths count as zero.
func DiskUsageBytes(paths ...string) (int64, error) {
	var total int64
	for _, p := range paths {
		if p == "" {
			continue
		}
		err := filepath.WalkDir(p, func(_ string, d fs.DirEntry, err error) error {
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
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return 0, err
		}
	}
	return total, nil
}
