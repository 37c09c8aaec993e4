package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"
)

// Store persists sessions as one JSON document per id under a single
// directory. Save is atomic: the document is written to a temporary
// file in the same directory and renamed into place, so a crash
// mid-write never clobbers the previous durable copy.
type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session storage: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// The cross-process lock lives in a sidecar file rather than on the
// session document itself: Save renames a fresh inode into place, which
// would silently detach any lock held on the old one.
func (s *Store) lockPath(id string) string {
	return s.path(id) + ".lock"
}

// Acquire takes the cross-process lock guarding the session with the
// given id. The caller holds it for as long as the session is active
// and must Unlock it when the session is released.
func (s *Store) Acquire(id string) (*flock.Flock, error) {
	lock := flock.New(s.lockPath(id))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock session %s: %w", id, err)
	}
	if !locked {
		return nil, fmt.Errorf("session %s is in use by another process", id)
	}
	return lock, nil
}

// Save writes the session atomically.
func (s *Store) Save(sess *Session) error {
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session %s: %w", sess.ID, err)
	}
	tmp, err := os.CreateTemp(s.dir, sess.ID+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp session file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write session %s: %w", sess.ID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close session %s: %w", sess.ID, err)
	}
	if err := os.Rename(tmpPath, s.path(sess.ID)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename session %s into place: %w", sess.ID, err)
	}
	return nil
}

// Load reads and validates a session. A missing file yields
// ErrSessionNotFound; a file that exists but does not decode into a
// structurally valid session yields a *CorruptError.
func (s *Store) Load(id string) (*Session, error) {
	path := s.path(id)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
		}
		return nil, fmt.Errorf("read session %s: %w", id, err)
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, &CorruptError{Path: path, Err: err}
	}
	if err := sess.validate(); err != nil {
		return nil, &CorruptError{Path: path, Err: err}
	}
	return &sess, nil
}

// SessionInfo is the lightweight listing entry read without decoding
// full turn histories.
type SessionInfo struct {
	ID        string
	Name      string
	UpdatedAt time.Time
}

// List returns all readable sessions, most recently updated first.
// Unreadable files are skipped with a log line rather than failing the
// whole listing.
func (s *Store) List() ([]SessionInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read session storage: %w", err)
	}
	var infos []SessionInfo
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		id := strings.TrimSuffix(name, ".json")
		info, err := s.readInfo(id)
		if err != nil {
			zap.S().Warnw("skipping unreadable session file", "file", name, "error", err)
			continue
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].UpdatedAt.After(infos[j].UpdatedAt)
	})
	return infos, nil
}

// readInfo decodes only the metadata fields needed for listing.
func (s *Store) readInfo(id string) (SessionInfo, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		return SessionInfo{}, err
	}
	var head struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		UpdatedAt time.Time `json:"updated_at"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return SessionInfo{}, err
	}
	if head.ID == "" {
		return SessionInfo{}, fmt.Errorf("missing session id")
	}
	return SessionInfo{ID: head.ID, Name: head.Name, UpdatedAt: head.UpdatedAt}, nil
}

// Latest returns the id of the most recently updated session, or
// ErrSessionNotFound when the store is empty.
func (s *Store) Latest() (string, error) {
	infos, err := s.List()
	if err != nil {
		return "", err
	}
	if len(infos) == 0 {
		return "", ErrSessionNotFound
	}
	return infos[0].ID, nil
}

// Prune removes session files whose updated_at is older than maxAgeDays.
// Best effort per file: a file that cannot be read, is locked by a live
// process, or cannot be removed is logged and skipped. maxAgeDays of
// zero disables pruning. The sweep is cancellable between files and
// never touches the in-memory active session.
func (s *Store) Prune(ctx context.Context, maxAgeDays int) (int, error) {
	if maxAgeDays <= 0 {
		return 0, nil
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read session storage: %w", err)
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -maxAgeDays)
	removed := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		id := strings.TrimSuffix(name, ".json")
		path := s.path(id)

		lock := flock.New(s.lockPath(id))
		locked, err := lock.TryLock()
		if err != nil || !locked {
			zap.S().Debugw("session in use, skipping prune", "id", id)
			continue
		}
		info, err := s.readInfo(id)
		if err != nil {
			zap.S().Warnw("unreadable session file during prune", "file", name, "error", err)
			lock.Unlock()
			continue
		}
		if !info.UpdatedAt.Before(cutoff) {
			lock.Unlock()
			continue
		}
		if err := os.Remove(path); err != nil {
			zap.S().Warnw("failed to remove expired session", "id", id, "error", err)
			lock.Unlock()
			continue
		}
		os.Remove(s.lockPath(id))
		lock.Unlock()
		removed++
		zap.S().Debugw("pruned expired session", "id", id, "updated_at", info.UpdatedAt)
	}
	return removed, nil
}
