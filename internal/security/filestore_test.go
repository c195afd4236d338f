package security

import (
	"errors"
	"log/slog"
	"os"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdftablepro/pdftab/internal/common"
	"github.com/pdftablepro/pdftab/internal/entity"
)

func newTestStore(t *testing.T, opts ...FileStoreOption) *FileStore {
	t.Helper()
	s, err := NewFileStore(t.TempDir(), time.Hour, slog.New(slog.DiscardHandler), opts...)
	require.NoError(t, err)
	return s
}

func TestFileStore_SaveAndExportRoundtrip(t *testing.T) {
	s := newTestStore(t)

	id, err := s.Save([]byte("%PDF-1.4 content"))
	require.NoError(t, err)
	require.True(t, IsValidFileID(id))

	require.NoError(t, s.SaveExport(id, entity.FormatCSV, []byte(`"a","b"`)))

	path, err := s.ExportPath(id, entity.FormatCSV)
	require.NoError(t, err)
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `"a","b"`, string(got))
}

func TestFileStore_OwnerOnlyPermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permission bits")
	}
	s := newTestStore(t)
	id, err := s.Save([]byte("%PDF-1.4"))
	require.NoError(t, err)
	require.NoError(t, s.SaveExport(id, entity.FormatJSON, []byte("{}")))

	path, err := s.ExportPath(id, entity.FormatJSON)
	require.NoError(t, err)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileStore_ExportPathRejectsBadID(t *testing.T) {
	s := newTestStore(t)
	_, err := s.ExportPath("../../etc/passwd", entity.FormatCSV)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrInvalidInput))
}

func TestFileStore_UnknownIDNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.ExportPath("01234567-89ab-4cde-8f01-23456789abcd", entity.FormatCSV)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestFileStore_CleanupRemovesEverything(t *testing.T) {
	s := newTestStore(t)
	id, err := s.Save([]byte("%PDF-1.4"))
	require.NoError(t, err)
	require.NoError(t, s.SaveExport(id, entity.FormatCSV, []byte("x")))

	path, err := s.ExportPath(id, entity.FormatCSV)
	require.NoError(t, err)

	require.NoError(t, s.Cleanup(id))
	assert.NoFileExists(t, path)
	assert.Equal(t, 0, s.Count())

	// Cleaning up again is a no-op, not an error.
	assert.NoError(t, s.Cleanup(id))
}

func TestFileStore_RemoveExpired(t *testing.T) {
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := newTestStore(t, WithClock(func() time.Time { return current }))

	oldID, err := s.Save([]byte("%PDF-old"))
	require.NoError(t, err)

	current = current.Add(30 * time.Minute)
	freshID, err := s.Save([]byte("%PDF-fresh"))
	require.NoError(t, err)

	// 61 minutes after the first save, 31 after the second.
	current = current.Add(31 * time.Minute)
	assert.Equal(t, 1, s.RemoveExpired())
	assert.Equal(t, 1, s.Count())

	_, err = s.ExportPath(oldID, entity.FormatCSV)
	assert.True(t, errors.Is(err, common.ErrNotFound))
	_ = freshID
}
