package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/simonhull/firebird-suite/nest/internal/logger"
)

type memEntry struct {
	job     Job
	expires time.Time
}

// MemoryStore keeps jobs in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memEntry
	ttl     time.Duration
	now     func() time.Time
	log     logger.Logger

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.now = now }
}

// WithMemoryLogger sets the logger.
func WithMemoryLogger(l logger.Logger) MemoryOption {
	return func(s *MemoryStore) { s.log = l }
}

// NewMemoryStore creates a store whose entries live for ttl. A janitor sweeps
// every interval; an interval <= 0 disables it and Sweep must be called.
func NewMemoryStore(ttl, interval time.Duration, opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]memEntry),
		ttl:     ttl,
		now:     time.Now,
		log:     logger.Default(),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}

	if interval > 0 {
		go s.janitor(interval)
	} else {
		close(s.done)
	}
	return s
}

func (s *MemoryStore) janitor(interval time.Duration) {
	defer close(s.done)
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-t.C:
			if n, _ := s.Sweep(context.Background()); n > 0 {
				s.log.Debug("expired jobs evicted", logger.F("count", n))
			}
		}
	}
}

// Put stores a copy of job.
func (s *MemoryStore) Put(_ context.Context, job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[job.TaskID] = memEntry{job: *job, expires: s.now().Add(s.ttl)}
	return nil
}

// Get returns a copy of the job.
func (s *MemoryStore) Get(_ context.Context, taskID string) (*Job, error) {
	s.mu.RLock()
	e, ok := s.entries[taskID]
	s.mu.RUnlock()

	if !ok || !s.now().Before(e.expires) {
		return nil, notFound(taskID)
	}
	job := e.job
	return &job, nil
}

// Delete removes a job. Unknown ids are not an error.
func (s *MemoryStore) Delete(_ context.Context, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, taskID)
	return nil
}

// Sweep removes expired entries.
func (s *MemoryStore) Sweep(_ context.Context) (int, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, e := range s.entries {
		if !now.Before(e.expires) {
			delete(s.entries, id)
			n++
		}
	}
	return n, nil
}

// Len reports the number of stored entries, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close stops the janitor and waits for it to exit.
func (s *MemoryStore) Close() error {
	s.once.Do(func() { close(s.stop) })
	<-s.done
	return nil
}
