package serve

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/docchat/chatmarkup/internal/markup"
	"github.com/docchat/chatmarkup/internal/streaming"
)

var (
	errManagerClosed    = errors.New("session manager closed")
	errSessionDiscarded = errors.New("session was discarded")
)

// MessageSession is the streaming session of one assistant message. Calls are
// serialized so concurrent chunk requests for the same message cannot
// interleave.
type MessageSession struct {
	mu               sync.Mutex
	session          *streaming.Session
	discarded        bool
	lastUsedUnixNano atomic.Int64
}

func newMessageSession(opts []markup.ParseOption) *MessageSession {
	ms := &MessageSession{session: streaming.NewSession(opts...)}
	ms.Touch()
	return ms
}

// Append applies a chunk and returns the rebuilt content. It fails with
// errSessionDiscarded once the manager has dropped the session.
func (ms *MessageSession) Append(chunk streaming.Chunk) (markup.Content, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if ms.discarded {
		return markup.Content{}, errSessionDiscarded
	}
	ms.Touch()
	return ms.session.Append(chunk), nil
}

// Current returns the content for the text accumulated so far.
func (ms *MessageSession) Current() markup.Content {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.Touch()
	return ms.session.Current()
}

// Reset clears the accumulated text.
func (ms *MessageSession) Reset() markup.Content {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.Touch()
	ms.session.Reset()
	return ms.session.Current()
}

// discard marks the session as dropped by its manager. Callers hold the
// manager lock; lock order is manager before session.
func (ms *MessageSession) discard() {
	ms.mu.Lock()
	ms.discarded = true
	ms.mu.Unlock()
}

func (ms *MessageSession) Touch() {
	ms.lastUsedUnixNano.Store(time.Now().UnixNano())
}

func (ms *MessageSession) LastUsed() time.Time {
	unixNano := ms.lastUsedUnixNano.Load()
	if unixNano == 0 {
		return time.Time{}
	}
	return time.Unix(0, unixNano)
}

// SessionManager keeps one MessageSession per message id. Sessions idle for
// longer than the TTL are dropped by a background janitor, and creating a
// session beyond the maximum evicts the least recently used one.
type SessionManager struct {
	ttl       time.Duration
	max       int
	parseOpts []markup.ParseOption

	mu       sync.Mutex
	sessions map[string]*MessageSession
	closed   bool
	stopCh   chan struct{}
}

// NewSessionManager starts a manager. Close stops its janitor.
func NewSessionManager(ttl time.Duration, max int, opts ...markup.ParseOption) *SessionManager {
	m := &SessionManager{
		ttl:       ttl,
		max:       max,
		parseOpts: opts,
		sessions:  make(map[string]*MessageSession),
		stopCh:    make(chan struct{}),
	}
	go m.janitor()
	return m
}

func (m *SessionManager) janitor() {
	ticker := time.NewTicker(max(30*time.Second, m.ttl/2))
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			m.evictExpired(now)
		case <-m.stopCh:
			return
		}
	}
}

func (m *SessionManager) evictExpired(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	evicted := 0
	for id, ms := range m.sessions {
		if now.Sub(ms.LastUsed()) > m.ttl {
			ms.discard()
			delete(m.sessions, id)
			evicted++
			slog.Debug("session expired", "id", id)
		}
	}
	return evicted
}

// GetOrCreate returns the session for id, creating it on first use.
func (m *SessionManager) GetOrCreate(id string) (*MessageSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, errManagerClosed
	}
	if ms, ok := m.sessions[id]; ok {
		ms.Touch()
		return ms, nil
	}

	if len(m.sessions) >= m.max {
		oldestID := ""
		var oldestTime time.Time
		for sid, ms := range m.sessions {
			t := ms.LastUsed()
			if oldestID == "" || t.Before(oldestTime) {
				oldestID = sid
				oldestTime = t
			}
		}
		if oldestID != "" {
			m.sessions[oldestID].discard()
			delete(m.sessions, oldestID)
			slog.Debug("session evicted", "id", oldestID, "max", m.max)
		}
	}

	ms := newMessageSession(m.parseOpts)
	m.sessions[id] = ms
	slog.Debug("session created", "id", id)
	return ms, nil
}

// Get returns the session for id if it exists.
func (m *SessionManager) Get(id string) (*MessageSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ms, ok := m.sessions[id]
	if ok {
		ms.Touch()
	}
	return ms, ok
}

// Delete discards the session for id and reports whether it existed.
func (m *SessionManager) Delete(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	ms, ok := m.sessions[id]
	if !ok {
		return false
	}
	ms.discard()
	delete(m.sessions, id)
	return true
}

// Len returns the number of live sessions.
func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Close stops the janitor and drops every session.
func (m *SessionManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	close(m.stopCh)
	for _, ms := range m.sessions {
		ms.discard()
	}
	m.sessions = map[string]*MessageSession{}
}
