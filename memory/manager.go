package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/comrude/comrude/messages"
)

// Manager owns exactly one active session and orchestrates the turn
// window, the compressor, and the store. All mutation goes through the
// Manager; there is no process-wide session singleton. While a session
// is active the Manager holds its cross-process file lock, which is
// what keeps the prune sweep off the session's durable file.
type Manager struct {
	mu         sync.Mutex
	cfg        Config
	store      *Store
	compressor *Compressor
	session    *Session
	lock       *flock.Flock
}

func NewManager(cfg Config) (*Manager, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid memory config: %w", err)
	}
	store, err := NewStore(cfg.StoragePath)
	if err != nil {
		return nil, err
	}
	return &Manager{
		cfg:        cfg,
		store:      store,
		compressor: NewCompressor(cfg),
	}, nil
}

// CreateSession allocates a fresh session with an empty turn log and a
// snapshot of the current config, persists it, and makes it active. An
// empty name gets a timestamped default. The in-memory session is
// always created; a lock or save failure degrades durability, not the
// session itself.
func (m *Manager) CreateSession(name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releaseLock()
	m.session = newSession(name, m.cfg)
	if lock, err := m.store.Acquire(m.session.ID); err != nil {
		zap.S().Warnw("failed to lock new session", "id", m.session.ID, "error", err)
	} else {
		m.lock = lock
	}
	if err := m.store.Save(m.session); err != nil {
		zap.S().Warnw("failed to persist new session", "id", m.session.ID, "error", err)
		return m.session.ID, err
	}
	return m.session.ID, nil
}

// LoadSession makes the session with the given id active, taking its
// cross-process lock first. A session held by another live process
// cannot be loaded.
func (m *Manager) LoadSession(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Reloading the active session keeps the lock already held.
	if m.session != nil && m.session.ID == id {
		sess, err := m.store.Load(id)
		if err != nil {
			return err
		}
		m.session = sess
		return nil
	}

	lock, err := m.store.Acquire(id)
	if err != nil {
		return err
	}
	sess, err := m.store.Load(id)
	if err != nil {
		lock.Unlock()
		return err
	}
	m.releaseLock()
	m.lock = lock
	m.session = sess
	return nil
}

// releaseLock drops the active session's file lock. Caller holds m.mu.
func (m *Manager) releaseLock() {
	if m.lock != nil {
		m.lock.Unlock()
		m.lock = nil
	}
}

// Close releases the active session's cross-process lock, making the
// session eligible for loading elsewhere and for age-based pruning.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releaseLock()
}

// LoadLatest makes the most recently updated stored session active.
func (m *Manager) LoadLatest() error {
	id, err := m.store.Latest()
	if err != nil {
		return err
	}
	return m.LoadSession(id)
}

// RecordTurn appends a completed turn and synchronously compresses the
// window back under budget before returning. The session is persisted
// after every turn; a save failure is returned but leaves the in-memory
// session fully usable. A compression invariant failure likewise keeps
// the appended turn and leaves the window uncompressed.
func (m *Manager) RecordTurn(user, assistant messages.Message, snapshot []messages.ContextItem) (*ConversationTurn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil, fmt.Errorf("no active session")
	}

	ts := time.Now().UTC()
	if n := len(m.session.Turns); n > 0 && !ts.After(m.session.Turns[n-1].Timestamp) {
		ts = m.session.Turns[n-1].Timestamp.Add(time.Nanosecond)
	}
	turn := ConversationTurn{
		ID:                uuid.NewString(),
		Timestamp:         ts,
		UserMessage:       user,
		AssistantResponse: assistant,
		ContextSnapshot:   snapshot,
	}
	turn.TokensUsed = TurnTokens(turn)

	m.session.Turns = append(m.session.Turns, turn)
	m.session.UpdatedAt = ts

	turns, cumulative, err := m.compressor.Compress(m.session.Turns, m.session.Cumulative)
	if err != nil {
		return &turn, err
	}
	m.session.Turns = turns
	m.session.Cumulative = cumulative

	if err := m.store.Save(m.session); err != nil {
		zap.S().Warnw("failed to persist session after turn", "id", m.session.ID, "error", err)
		return &turn, err
	}
	return &turn, nil
}

// Save persists the active session.
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return fmt.Errorf("no active session")
	}
	m.session.UpdatedAt = time.Now().UTC()
	return m.store.Save(m.session)
}

// Clear resets the turn log and the cumulative context while preserving
// the session id and name.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return
	}
	m.session.Turns = []ConversationTurn{}
	m.session.Cumulative = []messages.ContextItem{}
	m.session.UpdatedAt = time.Now().UTC()
}

// RenderContext returns the canonical provider-facing view: the
// cumulative residue followed by the context snapshots of the most
// recent turns, in chronological order.
func (m *Manager) RenderContext() []messages.ContextItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil
	}
	items := make([]messages.ContextItem, 0, len(m.session.Cumulative))
	items = append(items, m.session.Cumulative...)
	turns := m.session.Turns
	if len(turns) > m.cfg.MaxContextTurns {
		turns = turns[len(turns)-m.cfg.MaxContextTurns:]
	}
	for _, turn := range turns {
		items = append(items, turn.ContextSnapshot...)
	}
	return items
}

// Turns returns a copy of the active session's turn window.
func (m *Manager) Turns() []ConversationTurn {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil
	}
	out := make([]ConversationTurn, len(m.session.Turns))
	copy(out, m.session.Turns)
	return out
}

// SessionID returns the active session's id, or empty when none.
func (m *Manager) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return ""
	}
	return m.session.ID
}

// SessionName returns the active session's name, or empty when none.
func (m *Manager) SessionName() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return ""
	}
	return m.session.Name
}

// ListSessions lists stored sessions, most recently updated first.
func (m *Manager) ListSessions() ([]SessionInfo, error) {
	return m.store.List()
}

// PruneExpired sweeps the store for sessions older than the configured
// retention. Safe to run concurrently with the interactive loop.
func (m *Manager) PruneExpired(ctx context.Context) (int, error) {
	return m.store.Prune(ctx, m.cfg.MaxAgeDays)
}
