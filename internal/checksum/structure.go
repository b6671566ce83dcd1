package checksum

import (
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
)

// StructureHash digests a depth-first, name-sorted traversal of every
// tracked root. Files contribute type, relative path, size, and mtime;
// directories contribute type, relative path, and mtime before recursing.
// Missing roots contribute a marker instead of an error: two passes can emit
// identical artifact text while the underlying file set changed in a way
// that must still invalidate downstream caches.
//
// extraMarkers lets the caller fold scan-failure markers
// (error:<path>:<message>) into the same digest.
func StructureHash(roots []string, extraMarkers []string) string {
	d := xxhash.New()
	for _, root := range roots {
		writeRoot(d, root)
	}
	for _, marker := range extraMarkers {
		fmt.Fprintf(d, "%s\n", marker)
	}
	sum := d.Sum64()
	var b [8]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(sum >> (56 - 8*i))
	}
	return hex.EncodeToString(b[:])
}

func writeRoot(w io.Writer, root string) {
	if _, err := os.Lstat(root); err != nil {
		fmt.Fprintf(w, "missing:%s\n", root)
		return
	}
	fmt.Fprintf(w, "root:%s\n", root)

	// WalkDir visits entries in lexical order, parents before children.
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			fmt.Fprintf(w, "error:%s:%s\n", path, err.Error())
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		info, infoErr := d.Info()
		if infoErr != nil {
			fmt.Fprintf(w, "error:%s:%s\n", path, infoErr.Error())
			return nil
		}
		if d.IsDir() {
			fmt.Fprintf(w, "d:%s:%d\n", filepath.ToSlash(rel), info.ModTime().UnixNano())
		} else {
			fmt.Fprintf(w, "f:%s:%d:%d\n", filepath.ToSlash(rel), info.Size(), info.ModTime().UnixNano())
		}
		return nil
	})
	if err != nil {
		fmt.Fprintf(w, "error:%s:%s\n", root, err.Error())
	}
}

// ErrorMarker formats a scan-failure marker the way the structure hash
// expects it.
func ErrorMarker(path, message string) string {
	return fmt.Sprintf("error:%s:%s", path, message)
}
