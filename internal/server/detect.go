// internal/server/detect.go
package server

import (
	"errors"
	"io/fs"
	"path/filepath"
	"sync"
)

// ChangeDetector reports whether anything under a set of paths changed
// since the previous check, by comparing the sum of file modification times
// and the number of files. It is coarse: an edit that keeps both the same
// goes unnoticed.
type ChangeDetector struct {
	paths []string

	mu     sync.Mutex
	primed bool
	sum    int64
	count  int
}

func NewChangeDetector(paths ...string) *ChangeDetector {
	return &ChangeDetector{paths: paths}
}

// Changed rescans the paths. The first call only records the state and
// reports false. Missing paths count as empty.
func (d *ChangeDetector) Changed() (bool, error) {
	sum, count, err := d.scan()
	if err != nil {
		return false, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	changed := d.primed && (sum != d.sum || count != d.count)
	d.primed, d.sum, d.count = true, sum, count
	return changed, nil
}

func (d *ChangeDetector) scan() (int64, int, error) {
	var sum int64
	var count int
	for _, root := range d.paths {
		err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return nil
				}
				return err
			}
			if entry.IsDir() {
				return nil
			}
			info, err := entry.Info()
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return nil
				}
				return err
			}
			sum += info.ModTime().UnixNano()
			count++
			return nil
		})
		if err != nil {
			return 0, 0, err
		}
	}
	return sum, count, nil
}
