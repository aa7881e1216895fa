// Package fs discovers knowledge-base documents on disk.
package fs

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// Walker enumerates candidate documents under a root directory, filtered by
// doublestar include/exclude patterns and a set of supported extensions.
type Walker struct {
	includes   []string
	excludes   []string
	extensions map[string]bool
}

// NewWalker builds a walker. extensions holds normalized lowercase
// extensions including the dot (".pdf"); an empty set accepts everything.
func NewWalker(includes, excludes, extensions []string) *Walker {
	if len(includes) == 0 {
		includes = []string{"**/*"}
	}
	extSet := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		extSet[strings.ToLower(ext)] = true
	}
	return &Walker{
		includes:   includes,
		excludes:   excludes,
		extensions: extSet,
	}
}

// FileInfo describes one discovered document.
type FileInfo struct {
	Path    string
	Name    string
	ModTime time.Time
	Size    int64
}

// Walk returns matching files under root, smallest first so batches fill
// with quick wins before the large documents arrive.
func (w *Walker) Walk(root string) ([]FileInfo, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	var files []FileInfo
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		if info.IsDir() {
			if path != root && w.shouldExclude(relPath+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		if len(w.extensions) > 0 && !w.extensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		if w.shouldInclude(relPath) && !w.shouldExclude(relPath) {
			files = append(files, FileInfo{
				Path:    path,
				Name:    info.Name(),
				ModTime: info.ModTime(),
				Size:    info.Size(),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(files, func(i, j int) bool {
		return files[i].Size < files[j].Size
	})
	return files, nil
}

func (w *Walker) shouldInclude(path string) bool {
	for _, pattern := range w.includes {
		matched, err := doublestar.Match(pattern, path)
		if err == nil && matched {
			return true
		}
	}
	return false
}

func (w *Walker) shouldExclude(path string) bool {
	for _, pattern := range w.excludes {
		matched, err := doublestar.Match(pattern, path)
		if err == nil && matched {
			return true
		}
	}
	return false
}
