package sdds

import (
	"path/filepath"

	"sdds/file"
)

// OpenReadMmap maps an uncompressed file and decodes it in place, which
// makes repeated page scans cheap. Compressed files must go through
// OpenRead.
func OpenReadMmap(path string) (*Dataset, error) {
	s, err := file.OpenMmap(path)
	if err != nil {
		return nil, err
	}
	ds, err := openReadStream(s, filepath.Dir(path))
	if err != nil {
		s.Close()
		return nil, err
	}
	return ds, nil
}
