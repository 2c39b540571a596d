package pipeline

import (
	"io/fs"
	pathpkg "path"
	"path/filepath"
	"sort"
	"strings"
)

// Source represents a discovered image file.
type Source struct {
	// AbsPath is the path to the file on disk.
	AbsPath string
	// RelPath is the path relative to the input directory, slash separated.
	RelPath string
	// Key is RelPath without its extension.
	Key string
	// Hint is the format the extension suggests. Identification still
	// decides; the hint is only reported when the two disagree.
	Hint string
	// Size is the file size in bytes.
	Size int64
}

// ScanImages walks inputDir and returns every file whose extension is a key
// of exts (".png" style, lower case, mapped to a format ID). Hidden
// directories are skipped. The result is sorted by RelPath.
func ScanImages(inputDir string, exts map[string]string) ([]Source, error) {
	var found []Source
	walk := func(path string, d fs.DirEntry, err error) error {
		switch {
		case err != nil:
			return err
		case d.IsDir():
			if path != inputDir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		case !d.Type().IsRegular():
			return nil
		}
		hint, ok := exts[strings.ToLower(filepath.Ext(d.Name()))]
		if !ok {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(inputDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		found = append(found, Source{
			AbsPath: path,
			RelPath: rel,
			Key:     strings.TrimSuffix(rel, pathpkg.Ext(rel)),
			Hint:    hint,
			Size:    info.Size(),
		})
		return nil
	}
	if err := filepath.WalkDir(inputDir, walk); err != nil {
		return nil, err
	}
	sort.Slice(found, func(i, j int) bool { return found[i].RelPath < found[j].RelPath })
	return found, nil
}
