package security

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pdftablepro/pdftab/internal/common"
	"github.com/pdftablepro/pdftab/internal/entity"
)

var fileIDPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// IsValidFileID reports whether id looks like one of the store's UUIDs.
// Anything else is rejected before it can reach the filesystem.
func IsValidFileID(id string) bool {
	return fileIDPattern.MatchString(id)
}

// storedFile tracks one upload and its generated exports.
type storedFile struct {
	id        string
	dir       string
	createdAt time.Time
	exports   map[entity.ExportFormat]string
}

// FileStore keeps uploads and their exports in per-file directories under a
// private root. Files are addressed by random UUIDs, written with owner-only
// permissions, and expire after a configurable interval.
type FileStore struct {
	root   string
	expiry time.Duration
	logger *slog.Logger
	now    func() time.Time

	mu    sync.Mutex
	files map[string]*storedFile
}

// FileStoreOption configures a FileStore.
type FileStoreOption func(*FileStore)

// WithClock overrides the store's time source.
func WithClock(now func() time.Time) FileStoreOption {
	return func(s *FileStore) { s.now = now }
}

// NewFileStore creates the root directory with owner-only permissions and
// returns an empty store.
func NewFileStore(root string, expiry time.Duration, logger *slog.Logger, opts ...FileStoreOption) (*FileStore, error) {
	if root == "" {
		return nil, common.NewAppError("STORE_ROOT", "upload directory is required", common.ErrInvalidInput)
	}
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, common.WrapError(err, "create upload directory")
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &FileStore{
		root:   root,
		expiry: expiry,
		logger: logger,
		now:    time.Now,
		files:  map[string]*storedFile{},
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Save writes upload content under a fresh UUID and returns the id.
func (s *FileStore) Save(content []byte) (string, error) {
	id := uuid.NewString()
	dir := filepath.Join(s.root, id)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", common.WrapError(err, "create file directory")
	}
	path := filepath.Join(dir, "upload.pdf")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		_ = os.RemoveAll(dir)
		return "", common.WrapError(err, "write upload")
	}

	s.mu.Lock()
	s.files[id] = &storedFile{
		id:        id,
		dir:       dir,
		createdAt: s.now(),
		exports:   map[entity.ExportFormat]string{},
	}
	s.mu.Unlock()

	s.logger.Debug("store.save", "file_id", id, "bytes", len(content))
	return id, nil
}

// SaveExport stores serialized export bytes alongside the upload they came
// from.
func (s *FileStore) SaveExport(id string, format entity.ExportFormat, data []byte) error {
	s.mu.Lock()
	f, ok := s.files[id]
	s.mu.Unlock()
	if !ok {
		return common.NewAppError("STORE_NOT_FOUND", "File not found or expired", common.ErrNotFound)
	}

	path := filepath.Join(f.dir, fmt.Sprintf("export%s", format.Ext()))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return common.WrapError(err, "write export")
	}

	s.mu.Lock()
	f.exports[format] = path
	s.mu.Unlock()
	return nil
}

// ExportPath returns the on-disk path of a previously saved export.
func (s *FileStore) ExportPath(id string, format entity.ExportFormat) (string, error) {
	if !IsValidFileID(id) {
		return "", common.NewAppError("STORE_BAD_ID", "Invalid file ID", common.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[id]
	if !ok {
		return "", common.NewAppError("STORE_NOT_FOUND", "File not found or expired", common.ErrNotFound)
	}
	path, ok := f.exports[format]
	if !ok {
		return "", common.NewAppError("STORE_NO_EXPORT", "File not found or expired", common.ErrNotFound)
	}
	return path, nil
}

// Cleanup removes a file and all of its exports. Removing an unknown id is
// not an error.
func (s *FileStore) Cleanup(id string) error {
	if !IsValidFileID(id) {
		return common.NewAppError("STORE_BAD_ID", "Invalid file ID", common.ErrInvalidInput)
	}

	s.mu.Lock()
	f, ok := s.files[id]
	delete(s.files, id)
	s.mu.Unlock()
	if !ok {
		return nil
	}

	if err := os.RemoveAll(f.dir); err != nil {
		return common.WrapError(err, "remove file directory")
	}
	s.logger.Debug("store.cleanup", "file_id", id)
	return nil
}

// Count reports how many files are currently tracked.
func (s *FileStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}

// RemoveExpired drops every file older than the store's expiry and returns
// how many were removed.
func (s *FileStore) RemoveExpired() int {
	cutoff := s.now().Add(-s.expiry)

	s.mu.Lock()
	var expired []*storedFile
	for id, f := range s.files {
		if f.createdAt.Before(cutoff) {
			expired = append(expired, f)
			delete(s.files, id)
		}
	}
	s.mu.Unlock()

	for _, f := range expired {
		if err := os.RemoveAll(f.dir); err != nil {
			s.logger.Warn("store.expire.remove_failed", "file_id", f.id, "error", err)
		}
	}
	if len(expired) > 0 {
		s.logger.Info("store.expire", "removed", len(expired))
	}
	return len(expired)
}

// StartJanitor sweeps expired files every interval until ctx is cancelled.
func (s *FileStore) StartJanitor(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.RemoveExpired()
			}
		}
	}()
}
