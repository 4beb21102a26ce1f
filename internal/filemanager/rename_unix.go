//go:build !windows

package filemanager

import "os"

// replaceFile moves src over dst. os.Rename is atomic on Unix.
func replaceFile(src, dst string) error {
	return os.Rename(src, dst)
}
