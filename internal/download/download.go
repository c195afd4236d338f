// Package download persists serialized exports to disk. The lifecycle is
// acquire, trigger, release: content goes to a transient temp file that is
// either renamed into place or removed, never left behind.
package download

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pdftablepro/pdftab/internal/common"
	"github.com/pdftablepro/pdftab/internal/entity"
)

// Filename builds a timestamped name so repeated downloads in one session
// never collide.
func Filename(base string, format entity.ExportFormat, now time.Time) string {
	if base == "" {
		base = "extracted_tables"
	}
	return fmt.Sprintf("%s_%s%s", base, now.Format("20060102_150405"), format.Ext())
}

// Save writes data under dir with a timestamped filename and returns the full
// path. The write goes through a temp file in the same directory; on any
// failure the temp file is removed.
func Save(dir, base string, format entity.ExportFormat, data []byte, now time.Time) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", common.WrapError(err, "create output directory")
	}

	dest := filepath.Join(dir, Filename(base, format, now))

	tmp, err := os.CreateTemp(dir, ".pdftab-*")
	if err != nil {
		return "", common.WrapError(err, "create temp file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", common.WrapError(err, "write export")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", common.WrapError(err, "close export")
	}
	if err := os.Rename(tmpName, dest); err != nil {
		_ = os.Remove(tmpName)
		return "", common.WrapError(err, "finalize export")
	}
	return dest, nil
}
