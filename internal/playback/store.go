package playback

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
	"github.com/spf13/afero"

	"kodarr/internal/logging"
	"kodarr/internal/services/kodi"
)

// Record captures playback stopped on one host.
type Record struct {
	Host     string     `json:"host"`
	Movie    kodi.Movie `json:"movie"`
	Position float64    `json:"position"`
	Paused   bool       `json:"paused"`
}

func (r Record) String() string {
	return fmt.Sprintf("%s on %s stopped at %.2f%%", r.Movie, r.Host, r.Position)
}

// Store is the single-slot preservation store.
type Store interface {
	Save(records []Record)
	LoadAndClear() []Record
}

// FileStore keeps records as a JSON document. On the OS filesystem the file is
// guarded by an flock on a sibling ".lock" file; other filesystems fall back
// to an in-process mutex.
type FileStore struct {
	fs     afero.Fs
	path   string
	logger *slog.Logger
	mu     sync.Mutex
}

// NewFileStore constructs a store at path on fsys. A nil fsys uses the OS filesystem.
func NewFileStore(fsys afero.Fs, path string, logger *slog.Logger) *FileStore {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return &FileStore{
		fs:     fsys,
		path:   path,
		logger: logging.NewComponentLogger(logger, "playback"),
	}
}

// Path returns the store location.
func (s *FileStore) Path() string { return s.path }

// Save overwrites the store with records.
func (s *FileStore) Save(records []Record) {
	s.logger.Debug("storing stopped playback", logging.Int("records", len(records)), logging.Path(s.path))
	if err := s.save(records); err != nil {
		logging.WarnWithContext(s.logger, "failed to store stopped playback", "store_write_failed",
			logging.Error(err),
			logging.Path(s.path),
			logging.String(logging.FieldErrorHint, "check permissions on paths.state_dir"),
			logging.String(logging.FieldImpact, "stopped playback will not be restarted"),
		)
	}
}

func (s *FileStore) save(records []Record) error {
	if records == nil {
		records = []Record{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	unlock, err := s.lock()
	if err != nil {
		return err
	}
	defer unlock()

	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o600); err != nil {
		return fmt.Errorf("write store: %w", err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("replace store: %w", err)
	}
	return nil
}

// LoadAndClear returns the stored records and removes the store in one locked
// step. An absent or unreadable store yields no records.
func (s *FileStore) LoadAndClear() []Record {
	records, err := s.loadAndClear()
	if err != nil {
		logging.WarnWithContext(s.logger, "failed to load stopped playback", "store_read_failed",
			logging.Error(err),
			logging.Path(s.path),
			logging.String(logging.FieldImpact, "stopped playback will not be restarted"),
		)
		return nil
	}
	if len(records) > 0 {
		s.logger.Debug("loaded stopped playback", logging.Int("records", len(records)))
	}
	return records
}

func (s *FileStore) loadAndClear() ([]Record, error) {
	unlock, err := s.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read store: %w", err)
	}
	if err := s.fs.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("remove store: %w", err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode store: %w", err)
	}
	return records, nil
}

// Peek returns the stored records without consuming them.
func (s *FileStore) Peek() ([]Record, error) {
	unlock, err := s.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read store: %w", err)
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode store: %w", err)
	}
	return records, nil
}

func (s *FileStore) lock() (func(), error) {
	if _, ok := s.fs.(*afero.OsFs); !ok {
		s.mu.Lock()
		return s.mu.Unlock, nil
	}
	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	fileLock := flock.New(s.path + ".lock")
	if err := fileLock.Lock(); err != nil {
		return nil, fmt.Errorf("lock store: %w", err)
	}
	return func() { _ = fileLock.Unlock() }, nil
}
