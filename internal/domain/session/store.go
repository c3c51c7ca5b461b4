package session

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a session ID does not resolve, either because
// it never existed or because the idle sweep already evicted it.
var ErrNotFound = errors.New("session not found")

const cleanupInterval = 5 * time.Minute

// Store holds live sessions in memory. Sessions idle for longer than the
// configured TTL are evicted by the cleanup loop so abandoned intakes do not
// accumulate for the lifetime of the process.
type Store struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	idleTTL  time.Duration
}

func NewStore(idleTTL time.Duration) *Store {
	return &Store{
		sessions: make(map[uuid.UUID]*Session),
		idleTTL:  idleTTL,
	}
}

// Create registers a fresh session in the intake state.
func (st *Store) Create() *Session {
	now := time.Now().UTC()
	sess := &Session{
		mu:        &sync.Mutex{},
		ID:        uuid.New(),
		State:     StateIntake,
		CreatedAt: now,
		UpdatedAt: now,
	}

	st.mu.Lock()
	st.sessions[sess.ID] = sess
	st.mu.Unlock()

	return sess
}

func (st *Store) Get(id uuid.UUID) (*Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	sess, ok := st.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return sess, nil
}

func (st *Store) Delete(id uuid.UUID) {
	st.mu.Lock()
	delete(st.sessions, id)
	st.mu.Unlock()
}

// List returns a page of sessions ordered by creation time, oldest first,
// along with the total count before paging.
func (st *Store) List(limit, offset int) ([]*Session, int) {
	st.mu.RLock()
	all := make([]*Session, 0, len(st.sessions))
	for _, sess := range st.sessions {
		all = append(all, sess)
	}
	st.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})

	total := len(all)
	if offset >= total {
		return []*Session{}, total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total
}

func (st *Store) Count() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// StartCleanup launches the idle sweep. It stops when ctx is cancelled.
func (st *Store) StartCleanup(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				st.evictIdle()
			}
		}
	}()
}

// evictIdle removes sessions whose last transition is older than the idle
// TTL and reports how many were dropped. Each session's own lock is taken
// while reading its timestamp so a transition in flight is never judged
// stale mid-update.
func (st *Store) evictIdle() int {
	cutoff := time.Now().UTC().Add(-st.idleTTL)

	st.mu.Lock()
	defer st.mu.Unlock()

	evicted := 0
	for id, sess := range st.sessions {
		sess.mu.Lock()
		idle := sess.UpdatedAt.Before(cutoff)
		sess.mu.Unlock()
		if idle {
			delete(st.sessions, id)
			evicted++
		}
	}
	return evicted
}
