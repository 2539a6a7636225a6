package session

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vladimiradmaev/chronic-care/internal/store"
)

// Session is one patient's in-memory state
type Session struct {
	ID        string
	ChatID    int64 // Telegram chat, zero for HTTP sessions
	Store     *store.Store
	CreatedAt time.Time

	mu         sync.Mutex
	lastSeen   time.Time
	closers    map[int]func()
	nextCloser int
}

func newSession(id string, chatID int64, st *store.Store, now time.Time) *Session {
	return &Session{
		ID:        id,
		ChatID:    chatID,
		Store:     st,
		CreatedAt: now,
		lastSeen:  now,
		closers:   make(map[int]func()),
	}
}

// LastSeen is the last time the session was used
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// OnClose registers fn to run when the session is deleted. Hooks run in
// reverse registration order. The returned func removes fn again.
func (s *Session) OnClose(fn func()) (deregister func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextCloser
	s.nextCloser++
	s.closers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.closers, id)
	}
}

func (s *Session) closerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.closers)
}

func (s *Session) close() {
	s.mu.Lock()
	ids := make([]int, 0, len(s.closers))
	for id := range s.closers {
		ids = append(ids, id)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ids)))
	closers := make([]func(), 0, len(ids))
	for _, id := range ids {
		closers = append(closers, s.closers[id])
	}
	s.closers = make(map[int]func())
	s.mu.Unlock()

	for _, fn := range closers {
		fn()
	}
}

// Factory builds the store of a new session
type Factory func() *store.Store

// Registry manages sessions keyed by id
type Registry struct {
	sessions map[string]*Session
	factory  Factory
	onCreate []func(*Session)
	now      func() time.Time
	mu       sync.RWMutex
}

// NewRegistry creates a registry; a nil factory builds default stores
func NewRegistry(factory Factory) *Registry {
	if factory == nil {
		factory = func() *store.Store { return store.New(nil) }
	}
	return &Registry{
		sessions: make(map[string]*Session),
		factory:  factory,
		now:      time.Now,
	}
}

// OnCreate registers fn to run for every new session before it is returned.
// fn must not call back into the registry.
// Must be called before the registry is shared.
func (r *Registry) OnCreate(fn func(*Session)) {
	r.onCreate = append(r.onCreate, fn)
}

func (r *Registry) created(s *Session) {
	for _, fn := range r.onCreate {
		fn(s)
	}
}

// TelegramKey is the session id used for a Telegram chat
func TelegramKey(chatID int64) string {
	return fmt.Sprintf("tg:%d", chatID)
}

// Create starts a new session under a random id
func (r *Registry) Create() *Session {
	s := newSession(uuid.NewString(), 0, r.factory(), r.now())
	r.created(s)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s
	return s
}

// ForChat gets or creates the session of a Telegram chat
func (r *Registry) ForChat(chatID int64) *Session {
	id := TelegramKey(chatID)

	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if ok {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		return s
	}
	s = newSession(id, chatID, r.factory(), r.now())
	r.created(s)
	r.sessions[id] = s
	return s
}

// Get returns the session with id
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Touch marks s as used now so Expire keeps it
func (r *Registry) Touch(s *Session) {
	now := r.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if now.After(s.lastSeen) {
		s.lastSeen = now
	}
}

// Delete removes the session with id and runs its close hooks
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if ok {
		s.close()
	}
}

// Expire deletes HTTP sessions unused for longer than ttl and returns how many
// were removed.
// Telegram sessions live as long as the process.
func (r *Registry) Expire(ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}
	cutoff := r.now().Add(-ttl)

	var expired []string
	r.Range(func(s *Session) bool {
		if s.ChatID == 0 && s.LastSeen().Before(cutoff) {
			expired = append(expired, s.ID)
		}
		return true
	})
	for _, id := range expired {
		r.Delete(id)
	}
	return len(expired)
}

// Close deletes every session
func (r *Registry) Close() {
	var ids []string
	r.Range(func(s *Session) bool {
		ids = append(ids, s.ID)
		return true
	})
	for _, id := range ids {
		r.Delete(id)
	}
}

// Len returns the number of live sessions
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Range calls fn for every session until fn returns false.
// fn runs without the registry lock held.
func (r *Registry) Range(fn func(*Session) bool) {
	r.mu.RLock()
	all := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		all = append(all, s)
	}
	r.mu.RUnlock()

	for _, s := range all {
		if !fn(s) {
			return
		}
	}
}
