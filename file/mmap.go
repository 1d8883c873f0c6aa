package file

import (
	"os"
)

// MmapFile is a read-only memory-mapped file: the mapped bytes and the
// descriptor that backs them.
type MmapFile struct {
	Data []byte
	Fd   *os.File
}
